package internal

import (
	"io"
	"os"
)

// FileSystem defines the subset of os package functions the uploader needs
// to read a local file. Tests swap it for an in-memory implementation.
type FileSystem interface {
	Stat(name string) (os.FileInfo, error)
	Open(name string) (io.ReadCloser, error)
}

// RealOS is the default implementation that delegates to the real os package.
type RealOS struct{}

func (RealOS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) } //nolint:revive

func (RealOS) Open(name string) (io.ReadCloser, error) { //nolint:revive
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return file, nil
}
