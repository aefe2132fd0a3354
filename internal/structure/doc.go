// Package structure reconstructs the implicit coordinate hierarchy of a
// decoded BUFR message from its flat key sequence.
//
// BUFR has no explicit nesting in the decoded key stream. A coordinate
// descriptor (class 0-9: identification, time, position, height) opens a
// scope that lasts until the same coordinate recurs or a shallower one does.
// [Walk] assigns each key a nesting level from that rule in one pass.
//
// Walking is the expensive part of processing a message and its output
// depends only on the message's structure, so [ShapeCache] memoizes the
// walked and filtered key list per [Shape].
package structure
