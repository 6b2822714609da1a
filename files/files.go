// Package files gives the protocol engines their only access to the local
// filesystem: the server opens source files under a storage root and the
// client writes the received words to one output file.
package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wordstep/wordstep/protocol"
)

type Source interface {
	Open(name string) (*protocol.WordReader, error)
}

type Sink interface {
	Create() (*protocol.WordWriter, error)
	Remove() error
}

type DirSource struct {
	Root string
}

func NewDirSource(root string) *DirSource {
	return &DirSource{Root: root}
}

// Open appends name to the root as is, requested names are not sanitized.
func (s *DirSource) Open(name string) (*protocol.WordReader, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: %w", protocol.ErrFileNotFound, protocol.ErrEmptyFilename)
	}
	path := s.Root + string(filepath.Separator) + name
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %w", protocol.ErrFileNotFound, path, err)
	}
	info, err := f.Stat()
	if err == nil && info.IsDir() {
		err = errors.New("is a directory")
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s %w", protocol.ErrFileNotFound, path, err)
	}
	return protocol.NewWordReader(f), nil
}

type FileSink struct {
	Path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

// Create truncates any previous output.
func (s *FileSink) Create() (*protocol.WordWriter, error) {
	if dir := filepath.Dir(s.Path); dir != "." {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %w", protocol.ErrFileAccess, dir, err)
		}
	}
	f, err := os.Create(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %w", protocol.ErrFileAccess, s.Path, err)
	}
	return protocol.NewWordWriter(f), nil
}

func (s *FileSink) Remove() error {
	err := os.Remove(s.Path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("%w: %s %w", protocol.ErrFileAccess, s.Path, err)
}
