// Package viewer is the terminal host that drives the action engine: it
// shows a read-only file, turns key presses into dispatches and applies
// the returned results to its view.
package viewer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dshills/glance/internal/dispatcher/execctx"
)

// MaxFileBytes bounds files the viewer loads.
const MaxFileBytes = 64 << 20

// ErrTooLarge indicates a file above MaxFileBytes.
var ErrTooLarge = errors.New("viewer: file too large")

// Document is a loaded file.
type Document struct {
	Path     string
	Lines    []string
	Metadata *execctx.FileMetadata
}

// Load reads a file. Binary files load with no lines.
func Load(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("viewer: %s is a directory", path)
	}
	if info.Size() > MaxFileBytes {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrTooLarge, path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewDocument(path, data), nil
}

// NewDocument builds a document from content.
func NewDocument(path string, data []byte) *Document {
	md := &execctx.FileMetadata{
		Size:     int64(len(data)),
		Encoding: "utf-8",
		IsBinary: execctx.IsBinary(data),
	}
	doc := &Document{Path: path, Metadata: md}
	if md.IsBinary {
		return doc
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text != "" || len(data) > 0 {
		doc.Lines = strings.Split(text, "\n")
	}
	md.Language = execctx.DetectLanguage(path, text)
	return doc
}

// Language returns the detected language.
func (d *Document) Language() string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata.Language
}
