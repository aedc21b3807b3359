//go:build !tinygo

package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sugawarayuuta/sonnet"
)

// JSONL writes one JSON object per event and line.
type JSONL struct {
	pipe
	c io.Closer
}

// NewJSONL writes events to w.
func NewJSONL(w io.Writer) *JSONL {
	j := &JSONL{}
	j.start(func(ch <-chan Record) error {
		bw := bufio.NewWriter(w)
		var werr error
		for r := range ch {
			if werr != nil {
				continue
			}
			b, err := sonnet.Marshal(r)
			if err != nil {
				werr = fmt.Errorf("encode trace record: %w", err)
				continue
			}
			b = append(b, '\n')
			if _, err := bw.Write(b); err != nil {
				werr = fmt.Errorf("write trace: %w", err)
			}
		}
		if werr != nil {
			return werr
		}
		return bw.Flush()
	})
	return j
}

// CreateJSONL creates or truncates the file at path and writes events to it.
func CreateJSONL(path string) (*JSONL, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file %q: %w", path, err)
	}
	j := NewJSONL(f)
	j.c = f
	return j, nil
}

// Close flushes pending events and closes the file, if CreateJSONL opened it.
func (j *JSONL) Close() error {
	err := j.stop()
	if j.c != nil && !errors.Is(err, ErrClosed) {
		if cerr := j.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ReadJSONL decodes a trace written by JSONL.
func ReadJSONL(r io.Reader) ([]Record, error) {
	var out []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var rec Record
		if err := sonnet.Unmarshal(b, &rec); err != nil {
			return out, fmt.Errorf("trace line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("read trace: %w", err)
	}
	return out, nil
}
