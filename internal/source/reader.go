// Package source loads file contents for parsing, memory-mapping large files
// and reading small ones into an owned buffer.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// MmapThreshold is the size above which files are memory-mapped.
const MmapThreshold = 8 << 10

// Op names the I/O step that failed.
type Op string

const (
	OpOpen Op = "open"
	OpRead Op = "read"
	OpMmap Op = "mmap"
)

// IOError reports a file-scoped read failure.
type IOError struct {
	Op   Op
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Buffer holds the complete contents of one file. The bytes returned by
// Bytes are valid until Close.
type Buffer struct {
	data   []byte
	mapped bool
}

// Bytes returns the file contents.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the number of bytes held.
func (b *Buffer) Len() int { return len(b.data) }

// Mapped reports whether the contents are memory-mapped.
func (b *Buffer) Mapped() bool { return b.mapped }

// Close releases the mapping, if any. It is safe to call more than once.
func (b *Buffer) Close() error {
	if !b.mapped {
		b.data = nil
		return nil
	}
	data := b.data
	b.data, b.mapped = nil, false
	return unmap(data)
}

// Open loads path, whose length is expected to be size bytes. Files larger
// than MmapThreshold are mapped read-only with sequential access advice;
// the rest are read into memory.
func Open(path string, size int64) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: OpOpen, Path: path, Err: err}
	}
	defer f.Close()

	if size > MmapThreshold {
		data, err := mapFile(f, size)
		if err != nil {
			if errors.Is(err, errNoMmap) {
				return readAll(f, path, size)
			}
			return nil, &IOError{Op: OpMmap, Path: path, Err: err}
		}
		return &Buffer{data: data, mapped: true}, nil
	}
	return readAll(f, path, size)
}

func readAll(f *os.File, path string, size int64) (*Buffer, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, &IOError{Op: OpRead, Path: path, Err: err}
	}
	return &Buffer{data: data}, nil
}

// ReadFile stats path and loads it with Open.
func ReadFile(path string) (*Buffer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &IOError{Op: OpOpen, Path: path, Err: err}
	}
	return Open(path, info.Size())
}
