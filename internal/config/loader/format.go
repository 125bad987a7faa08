package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Extensions lists the recognized file extensions in lookup order.
var Extensions = []string{".json", ".yaml", ".yml", ".toml"}

// FormatFromPath returns the format implied by the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Decode parses data in the given format and returns its canonical JSON
// form. The document root must be an object.
func Decode(format Format, source string, data []byte) ([]byte, error) {
	var (
		doc map[string]any
		err error
	)

	switch format {
	case FormatJSON:
		doc, err = decodeJSON(source, data)
	case FormatYAML:
		doc, err = decodeYAML(source, data)
	case FormatTOML:
		doc, err = decodeTOML(source, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &ParseError{Path: source, Message: ErrNotObject.Error(), Err: ErrNotObject}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	return out, nil
}

func decodeJSON(source string, data []byte) (map[string]any, error) {
	clean := jsonc.ToJSON(data)

	dec := json.NewDecoder(bytes.NewReader(clean))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		pe := &ParseError{Path: source, Message: err.Error(), Err: err}
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			pe.Line, pe.Column = position(clean, syn.Offset)
		}
		return nil, pe
	}

	doc, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{Path: source, Message: ErrNotObject.Error(), Err: ErrNotObject}
	}
	return doc, nil
}

func decodeYAML(source string, data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	return doc, nil
}

func decodeTOML(source string, data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		pe := &ParseError{Path: source, Message: err.Error(), Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, pe.Column = de.Position()
		}
		return nil, pe
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col = 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
