//go:build unix

package source

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

var errNoMmap = errors.New("mmap unsupported")

func mapFile(f *os.File, size int64) ([]byte, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	// Advice is a hint; failure leaves the mapping usable.
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return data, nil
}

func unmap(data []byte) error {
	return unix.Munmap(data)
}
