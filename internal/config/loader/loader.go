// Package loader reads configuration documents from disk.
//
// Documents may be written as JSON (comments and trailing commas are
// tolerated), YAML or TOML. Every format is decoded into a generic map and
// then canonicalized to JSON so that validation and decoding downstream
// only ever deal with one representation.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Default size limits.
const (
	DefaultMaxSourceBytes int64 = 1 << 20
	DefaultMaxTotalBytes  int64 = 4 << 20
)

// Loader errors.
var (
	// ErrTooLarge indicates a source exceeded a size limit.
	ErrTooLarge = errors.New("loader: source too large")

	// ErrUnsupportedFormat indicates a file extension with no decoder.
	ErrUnsupportedFormat = errors.New("loader: unsupported format")

	// ErrNotObject indicates a document whose root is not an object.
	ErrNotObject = errors.New("loader: document root is not an object")
)

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// Document is one decoded configuration source.
type Document struct {
	// Path is where the document was read from.
	Path string
	// Format is the decoder that was used.
	Format Format
	// Size is the raw size in bytes.
	Size int64
	// JSON is the canonical JSON rendering of the document.
	JSON []byte
}

// Loader reads documents with a per-source size limit.
type Loader struct {
	fs       FileSystem
	maxBytes int64
}

// Option configures a Loader.
type Option func(*Loader)

// WithFS sets the file system.
func WithFS(fsys FileSystem) Option {
	return func(l *Loader) {
		if fsys != nil {
			l.fs = fsys
		}
	}
}

// WithMaxBytes sets the per-source size limit. Non-positive values keep
// the default.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// New creates a loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		fs:       DefaultFS(),
		maxBytes: DefaultMaxSourceBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FS returns the loader's file system.
func (l *Loader) FS() FileSystem {
	return l.fs
}

// Exists reports whether path names a regular file.
func (l *Loader) Exists(path string) bool {
	info, err := l.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads and decodes the document at path.
// Returns nil, nil if the file doesn't exist (not an error).
func (l *Loader) Load(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	if info, err := l.fs.Stat(path); err == nil && info.Size() > l.maxBytes {
		return nil, &SizeError{Path: path, Size: info.Size(), Limit: l.maxBytes}
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, &SizeError{Path: path, Size: int64(len(data)), Limit: l.maxBytes}
	}

	canonical, err := Decode(format, path, data)
	if err != nil {
		return nil, err
	}

	return &Document{
		Path:   path,
		Format: format,
		Size:   int64(len(data)),
		JSON:   canonical,
	}, nil
}

// SizeError reports a source that exceeded a size limit.
type SizeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s is %d bytes, limit is %d", e.Path, e.Size, e.Limit)
}

func (e *SizeError) Unwrap() error {
	return ErrTooLarge
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
