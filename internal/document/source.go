package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxUploadBytes mirrors the upload cap enforced by the scoring service.
const DefaultMaxUploadBytes int64 = 5 * 1024 * 1024

var (
	ErrEmpty    = errors.New("document is empty")
	ErrTooLarge = errors.New("document is too large")
)

// Role tells which side of the comparison a document belongs to.
type Role string

const (
	RoleResume         Role = "resume"
	RoleJobDescription Role = "job_description"
)

// Mode tells whether a document was supplied as a file or as pasted text.
type Mode string

const (
	ModeFile Mode = "file"
	ModeText Mode = "text"
)

// File is an opaque handle on uploaded bytes.
type File struct {
	Name string
	Size int64
	data []byte
}

// NewFile wraps in-memory content.
func NewFile(name string, data []byte) *File {
	return &File{Name: name, Size: int64(len(data)), data: data}
}

// Bytes returns the file content. Callers must not modify it.
func (f *File) Bytes() []byte {
	if f == nil {
		return nil
	}
	return f.data
}

// Source is one of the two documents entered by the user.
// Only File is meaningful in file mode and only Text in text mode.
type Source struct {
	Role Role
	Mode Mode
	File *File
	Text string
}

// FromText builds a text-mode source.
func FromText(role Role, text string) Source {
	return Source{Role: role, Mode: ModeText, Text: text}
}

// FromFile builds a file-mode source.
func FromFile(role Role, file *File) Source {
	return Source{Role: role, Mode: ModeFile, File: file}
}

// FromPath reads a local file into a file-mode source.
// Files larger than maxBytes are rejected; a non-positive maxBytes uses DefaultMaxUploadBytes.
func FromPath(role Role, path string, maxBytes int64) (Source, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return Source{}, fmt.Errorf("%s path is required", role)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return Source{}, fmt.Errorf("stat %s file: %w", role, err)
	}
	if stat.IsDir() {
		return Source{}, fmt.Errorf("%s path %q is a directory", role, path)
	}
	if stat.Size() == 0 {
		return Source{}, fmt.Errorf("%s file %q: %w", role, path, ErrEmpty)
	}
	if stat.Size() > maxBytes {
		return Source{}, fmt.Errorf("%s file %q (%d bytes, limit %d): %w", role, path, stat.Size(), maxBytes, ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("read %s file: %w", role, err)
	}

	return FromFile(role, NewFile(filepath.Base(path), data)), nil
}

// HasData reports whether the source carries something worth sending.
func (s Source) HasData() bool {
	switch s.Mode {
	case ModeFile:
		return s.File != nil
	case ModeText:
		return strings.TrimSpace(s.Text) != ""
	default:
		return false
	}
}

// FormField returns the multipart part name the scoring service expects for this source.
func (s Source) FormField() string {
	prefix := "resume"
	if s.Role == RoleJobDescription {
		prefix = "jd"
	}

	if s.Mode == ModeText {
		return prefix + "_text"
	}
	return prefix + "_file"
}

// Label is a short human readable description used in prompts and logs.
func (s Source) Label() string {
	switch {
	case !s.HasData():
		return "not set"
	case s.Mode == ModeFile:
		return fmt.Sprintf("%s (%d bytes)", s.File.Name, s.File.Size)
	default:
		return fmt.Sprintf("pasted text (%d chars)", len([]rune(strings.TrimSpace(s.Text))))
	}
}
