package bridge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dshills/glance/internal/actionctx"
	"github.com/dshills/glance/internal/dispatcher/execctx"
	"github.com/dshills/glance/internal/logging"
)

// Snapshot is the read-only view a snippet may query.
type Snapshot struct {
	File      FileInfo
	Selection Selection
}

// SnapshotOf captures the parts of ec a snippet may see.
func SnapshotOf(ec *execctx.ExecutionContext) Snapshot {
	ac := actionctx.FromExecution(ec)
	if ec == nil {
		return Snapshot{File: FileInfo{Language: ac.Language}}
	}

	var lines []int
	for _, n := range ec.SelectedLines {
		if n >= 1 && n <= len(ec.Lines) {
			lines = append(lines, n)
		}
	}
	return Snapshot{
		File: FileInfo{
			Path:        ec.CurrentFile,
			Language:    ac.Language,
			TotalLines:  len(ec.Lines),
			CurrentLine: ec.CurrentLine,
		},
		Selection: Selection{
			Lines: lines,
			Count: len(lines),
			Text:  ac.SelectedText,
		},
	}
}

// Host answers bridge calls. It is safe for concurrent use.
type Host struct {
	snap   Snapshot
	logger *logging.Logger

	mu      sync.Mutex
	status  *Status
	updates int
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) HostOption {
	return func(h *Host) {
		h.logger = l
	}
}

// NewHost creates a host serving snap.
func NewHost(snap Snapshot, opts ...HostOption) *Host {
	h := &Host{snap: snap}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.WithComponent("bridge")
	return h
}

// Status returns the status line currently published, if any. A cleared
// status reports false.
func (h *Host) Status() (Status, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == nil {
		return Status{}, false
	}
	return *h.status, true
}

// Updates returns how many status calls (updates and clears) were made.
func (h *Host) Updates() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.updates
}

// Handle answers one request line. It never fails: errors are reported
// to the caller in the reply.
func (h *Host) Handle(line []byte) []byte {
	req, err := DecodeRequest(line)
	if err != nil {
		return EncodeError(req.ID, err)
	}

	result, err := h.dispatch(req)
	if err != nil {
		h.logger.Debug("%s failed: %v", req.Op, err)
		return EncodeError(req.ID, err)
	}
	reply, err := EncodeResult(req.ID, result)
	if err != nil {
		return EncodeError(req.ID, err)
	}
	return reply
}

func (h *Host) dispatch(req Request) ([]byte, error) {
	switch req.Op {
	case OpStatusUpdate:
		st, err := decodeStatusArgs(req.Args)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.status = &st
		h.updates++
		h.mu.Unlock()
		return nil, nil

	case OpStatusClear:
		h.mu.Lock()
		h.status = nil
		h.updates++
		h.mu.Unlock()
		return nil, nil

	case OpFileInfo:
		return encodeFileInfo(h.snap.File), nil

	case OpSelection:
		return encodeSelection(h.snap.Selection), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, req.Op)
	}
}

// Serve answers newline-delimited requests from r on w until r reaches
// EOF or ctx is done.
func (h *Host) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxMessageBytes)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		reply := append(h.Handle(line), '\n')
		if _, err := w.Write(reply); err != nil {
			return fmt.Errorf("bridge: writing reply: %w", err)
		}
	}
	return sc.Err()
}
