package bufr

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// maxLineSize bounds one JSONL record; large compressed messages with many
// subsets run to several megabytes.
const maxLineSize = 64 << 20

// OpenFile opens a JSONL file of decoded messages, transparently
// decompressing it when the name ends in ".zst".
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &zstdFile{dec: dec, f: f}, nil
}

type zstdFile struct {
	dec *zstd.Decoder
	f   *os.File
}

func (z *zstdFile) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdFile) Close() error {
	z.dec.Close()
	return z.f.Close()
}

// CreateFile creates a JSONL output file, zstd-compressed when the name ends
// in ".zst".
func CreateFile(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &zstdWriteFile{enc: enc, f: f}, nil
}

type zstdWriteFile struct {
	enc *zstd.Encoder
	f   *os.File
}

func (z *zstdWriteFile) Write(p []byte) (int, error) { return z.enc.Write(p) }

func (z *zstdWriteFile) Close() error {
	if err := z.enc.Close(); err != nil {
		z.f.Close()
		return err
	}
	return z.f.Close()
}

// ReadMessages yields one message per non-blank line of r. A malformed line
// is yielded as an error; iteration continues unless the consumer stops.
func ReadMessages(r io.Reader) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		line := 0
		for sc.Scan() {
			line++
			b := sc.Bytes()
			if len(bytes.TrimSpace(b)) == 0 {
				continue
			}
			m, err := DecodeJSON(b)
			if err != nil {
				if !yield(nil, fmt.Errorf("line %d: %w", line, err)) {
					return
				}
				continue
			}
			if !yield(m, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(nil, fmt.Errorf("read messages: %w", err))
		}
	}
}
