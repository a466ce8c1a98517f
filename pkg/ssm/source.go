package ssm

import (
	"io"
	"os"
	"path/filepath"
)

// Source is the content for an asset: either a path to a local file or an
// in-memory reader. A reader source must carry its own filename; a path
// source takes its basename. Content is fully buffered before the remote
// call, there is no streaming upload.
type Source struct {
	path     string
	reader   io.Reader
	filename string
}

// FromPath references a readable local file.
func FromPath(path string) *Source {
	return &Source{path: path}
}

// FromReader wraps an in-memory or streaming content source. filename is
// mandatory since there is no path to derive it from.
func FromReader(r io.Reader, filename string) *Source {
	return &Source{reader: r, filename: filename}
}

// resolve dispatches on the source variant exactly once, producing the
// buffered content and the filename to send. Local I/O failures are
// returned untouched (os.PathError and friends) so callers can inspect
// them with the standard predicates.
func (s *Source) resolve() (content []byte, filename string, err error) {
	if s.reader != nil {
		if s.filename == "" {
			return nil, "", invalidArg("filename", "required when content comes from a reader")
		}
		content, err = io.ReadAll(s.reader)
		if err != nil {
			return nil, "", err
		}
		return content, s.filename, nil
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, "", err
	}
	if !info.Mode().IsRegular() {
		return nil, "", &os.PathError{Op: "read", Path: s.path, Err: os.ErrInvalid}
	}

	content, err = os.ReadFile(s.path)
	if err != nil {
		return nil, "", err
	}
	return content, filepath.Base(s.path), nil
}
