//go:build !unix

package source

import (
	"errors"
	"os"
)

var errNoMmap = errors.New("mmap unsupported")

func mapFile(*os.File, int64) ([]byte, error) { return nil, errNoMmap }

func unmap([]byte) error { return nil }
