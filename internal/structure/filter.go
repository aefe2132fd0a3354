package structure

// FilterKeys keeps the keys whose name or raw literal is in include. An
// empty include keeps everything. The input is not modified.
func FilterKeys(keys []Key, include []string) []Key {
	if len(include) == 0 {
		out := make([]Key, len(keys))
		copy(out, keys)
		return out
	}
	set := make(map[string]struct{}, len(include))
	for _, n := range include {
		set[n] = struct{}{}
	}
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if _, ok := set[k.Name]; ok {
			out = append(out, k)
			continue
		}
		if _, ok := set[k.Raw]; ok {
			out = append(out, k)
		}
	}
	return out
}
