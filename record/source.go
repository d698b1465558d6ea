package record

import (
	"fmt"
	"os"

	"github.com/arloliu/structarray/errs"
)

// LargeFileThreshold is the default size from which OpenSource leaves a record
// file on disk instead of loading it in memory.
const LargeFileThreshold int64 = 1 << 32

// Source is a fixed-stride sequence of raw records.
//
// It is either a *MemorySource holding every byte, or a *FileSource pointing at a
// file that is opened for each field scan.
type Source interface {
	// Size returns the total number of bytes, trailing partial record included.
	Size() int64
	// String describes the source for logs.
	String() string

	isSource()
}

// MemorySource is a record source held entirely in memory.
type MemorySource struct {
	data []byte
}

var _ Source = (*MemorySource)(nil)

// NewMemorySource wraps data. The slice is not copied and must not be modified
// while decoders use it.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

// ReadMemorySource loads the file at path in memory.
func ReadMemorySource(path string) (*MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.IO("read record source", err)
	}

	return &MemorySource{data: data}, nil
}

func (s *MemorySource) Size() int64 {
	return int64(len(s.data))
}

// Bytes returns the raw records.
func (s *MemorySource) Bytes() []byte {
	return s.data
}

func (s *MemorySource) String() string {
	return fmt.Sprintf("memory(%d bytes)", len(s.data))
}

func (s *MemorySource) isSource() {}

// FileSource is a record source left on disk.
type FileSource struct {
	path string
	size int64
}

var _ Source = (*FileSource)(nil)

// NewFileSource describes the file at path. The file is not kept open.
func NewFileSource(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errs.IO("stat record source", err)
	}

	if info.IsDir() {
		return nil, errs.IO("stat record source", fmt.Errorf("%s is a directory", path))
	}

	return &FileSource{path: path, size: info.Size()}, nil
}

func (s *FileSource) Size() int64 {
	return s.size
}

// Path returns the file path.
func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) String() string {
	return fmt.Sprintf("file(%s, %d bytes)", s.path, s.size)
}

func (s *FileSource) isSource() {}

// OpenSource picks the source kind for the file at path: files smaller than
// threshold are loaded in memory, larger ones stay on disk. A threshold of zero or
// less means LargeFileThreshold.
func OpenSource(path string, threshold int64) (Source, error) {
	if threshold <= 0 {
		threshold = LargeFileThreshold
	}

	fs, err := NewFileSource(path)
	if err != nil {
		return nil, err
	}

	if fs.size >= threshold {
		return fs, nil
	}

	return ReadMemorySource(path)
}
