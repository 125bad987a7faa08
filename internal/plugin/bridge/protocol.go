// Package bridge is the narrow API through which embedded Lua snippets
// talk to the viewer.
//
// Snippets never share memory with the host. Every call is a single JSON
// object on one line, answered by a single JSON object on one line:
//
//	-> {"id":1,"op":"status.update","args":{"message":"done","severity":"success"}}
//	<- {"id":1,"ok":true}
//	-> {"id":2,"op":"file.info"}
//	<- {"id":2,"ok":true,"result":{"path":"main.go","language":"go","totalLines":120,"currentLine":7}}
//
// The Host answers from a read-only Snapshot taken when the action was
// invoked and records status updates so the executor can report them.
// The Client is the snippet side. The transport is any pair of streams:
// a child process's stdio, or an in-memory pipe (see Pipe).
package bridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Op names a bridge operation.
type Op string

// Bridge operations. This is the entire surface a snippet can reach.
const (
	OpStatusUpdate Op = "status.update"
	OpStatusClear  Op = "status.clear"
	OpFileInfo     Op = "file.info"
	OpSelection    Op = "selection.get"
)

// MaxMessageBytes bounds a single protocol line.
const MaxMessageBytes = 4 << 20

// Protocol errors.
var (
	// ErrUnknownOp is returned for an operation outside the bridge API.
	ErrUnknownOp = errors.New("bridge: unknown operation")

	// ErrMalformed is returned for a line that is not a valid message.
	ErrMalformed = errors.New("bridge: malformed message")

	// ErrClosed is returned when the peer went away.
	ErrClosed = errors.New("bridge: connection closed")
)

// Severity tags a status message.
type Severity string

// Status severities.
const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity validates s. Empty means info.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case "":
		return SeverityInfo, nil
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return Severity(s), nil
	default:
		return "", fmt.Errorf("invalid severity %q", s)
	}
}

// Status is a status line published by a snippet.
type Status struct {
	Message  string
	Severity Severity
	// Timeout is how long the host should show the message. Zero means
	// until replaced.
	Timeout time.Duration
}

// FileInfo describes the file being viewed.
type FileInfo struct {
	Path        string
	Language    string
	TotalLines  int
	CurrentLine int
}

// Selection describes the selected lines.
type Selection struct {
	Lines []int
	Count int
	Text  string
}

// Request is one decoded call.
type Request struct {
	ID   int64
	Op   Op
	Args gjson.Result
}

// Response is one decoded reply.
type Response struct {
	ID     int64
	OK     bool
	Error  string
	Result gjson.Result
}

// EncodeRequest renders a call. args must be a JSON object or nil.
func EncodeRequest(id int64, op Op, args []byte) ([]byte, error) {
	msg, err := sjson.SetBytes([]byte(`{}`), "id", id)
	if err != nil {
		return nil, err
	}
	if msg, err = sjson.SetBytes(msg, "op", string(op)); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		if !gjson.ValidBytes(args) {
			return nil, fmt.Errorf("%w: args are not valid JSON", ErrMalformed)
		}
		if msg, err = sjson.SetRawBytes(msg, "args", args); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// DecodeRequest parses a call.
func DecodeRequest(line []byte) (Request, error) {
	if !gjson.ValidBytes(line) {
		return Request{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	doc := gjson.ParseBytes(line)
	if !doc.IsObject() {
		return Request{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	op := doc.Get("op")
	if op.Type != gjson.String || op.Str == "" {
		return Request{ID: doc.Get("id").Int()}, fmt.Errorf("%w: missing op", ErrMalformed)
	}
	return Request{
		ID:   doc.Get("id").Int(),
		Op:   Op(op.Str),
		Args: doc.Get("args"),
	}, nil
}

// EncodeResult renders a successful reply. result may be nil.
func EncodeResult(id int64, result []byte) ([]byte, error) {
	msg, err := sjson.SetBytes([]byte(`{}`), "id", id)
	if err != nil {
		return nil, err
	}
	if msg, err = sjson.SetBytes(msg, "ok", true); err != nil {
		return nil, err
	}
	if len(result) > 0 {
		if msg, err = sjson.SetRawBytes(msg, "result", result); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// EncodeError renders a failed reply.
func EncodeError(id int64, cause error) []byte {
	msg, _ := sjson.SetBytes([]byte(`{}`), "id", id)
	msg, _ = sjson.SetBytes(msg, "ok", false)
	msg, _ = sjson.SetBytes(msg, "error", cause.Error())
	return msg
}

// DecodeResponse parses a reply.
func DecodeResponse(line []byte) (Response, error) {
	if !gjson.ValidBytes(line) {
		return Response{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	doc := gjson.ParseBytes(line)
	ok := doc.Get("ok")
	if !ok.IsBool() {
		return Response{}, fmt.Errorf("%w: missing ok", ErrMalformed)
	}
	return Response{
		ID:     doc.Get("id").Int(),
		OK:     ok.Bool(),
		Error:  doc.Get("error").String(),
		Result: doc.Get("result"),
	}, nil
}

func encodeFileInfo(fi FileInfo) []byte {
	out := []byte(`{}`)
	out, _ = sjson.SetBytes(out, "path", fi.Path)
	out, _ = sjson.SetBytes(out, "language", fi.Language)
	out, _ = sjson.SetBytes(out, "totalLines", fi.TotalLines)
	out, _ = sjson.SetBytes(out, "currentLine", fi.CurrentLine)
	return out
}

func decodeFileInfo(r gjson.Result) FileInfo {
	return FileInfo{
		Path:        r.Get("path").String(),
		Language:    r.Get("language").String(),
		TotalLines:  int(r.Get("totalLines").Int()),
		CurrentLine: int(r.Get("currentLine").Int()),
	}
}

func encodeSelection(s Selection) []byte {
	lines := s.Lines
	if lines == nil {
		lines = []int{}
	}
	out := []byte(`{}`)
	out, _ = sjson.SetBytes(out, "lines", lines)
	out, _ = sjson.SetBytes(out, "count", s.Count)
	out, _ = sjson.SetBytes(out, "text", s.Text)
	return out
}

func decodeSelection(r gjson.Result) Selection {
	var lines []int
	for _, n := range r.Get("lines").Array() {
		lines = append(lines, int(n.Int()))
	}
	return Selection{
		Lines: lines,
		Count: int(r.Get("count").Int()),
		Text:  r.Get("text").String(),
	}
}

func encodeStatusArgs(st Status) []byte {
	out := []byte(`{}`)
	out, _ = sjson.SetBytes(out, "message", st.Message)
	if st.Severity != "" {
		out, _ = sjson.SetBytes(out, "severity", string(st.Severity))
	}
	if st.Timeout > 0 {
		out, _ = sjson.SetBytes(out, "timeoutMs", st.Timeout.Milliseconds())
	}
	return out
}

func decodeStatusArgs(args gjson.Result) (Status, error) {
	msg := args.Get("message")
	if msg.Type != gjson.String {
		return Status{}, errors.New("status.update: message must be a string")
	}
	sev, err := ParseSeverity(args.Get("severity").String())
	if err != nil {
		return Status{}, fmt.Errorf("status.update: %w", err)
	}
	st := Status{Message: msg.Str, Severity: sev}
	if t := args.Get("timeoutMs"); t.Exists() {
		if t.Type != gjson.Number || t.Int() < 0 {
			return Status{}, errors.New("status.update: timeoutMs must be a non-negative number")
		}
		st.Timeout = time.Duration(t.Int()) * time.Millisecond
	}
	return st, nil
}
