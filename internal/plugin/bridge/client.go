package bridge

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tidwall/gjson"
)

// RemoteError is an error reported by the host.
type RemoteError struct {
	Op      Op
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Client issues bridge calls. Calls are serialized; it is safe for
// concurrent use.
type Client struct {
	mu   sync.Mutex
	r    *bufio.Reader
	w    io.Writer
	next int64
}

// NewClient creates a client reading replies from r and writing calls to w.
func NewClient(r io.Reader, w io.Writer) *Client {
	return &Client{
		r: bufio.NewReader(r),
		w: w,
	}
}

// Call sends one request and waits for its reply.
func (c *Client) Call(op Op, args []byte) (gjson.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next++
	id := c.next

	msg, err := EncodeRequest(id, op, args)
	if err != nil {
		return gjson.Result{}, err
	}
	if _, err := c.w.Write(append(msg, '\n')); err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", ErrClosed, err)
	}

	line, err := c.readLine()
	if err != nil {
		return gjson.Result{}, err
	}
	resp, err := DecodeResponse(line)
	if err != nil {
		return gjson.Result{}, err
	}
	if resp.ID != id {
		return gjson.Result{}, fmt.Errorf("%w: reply %d for request %d", ErrMalformed, resp.ID, id)
	}
	if !resp.OK {
		return gjson.Result{}, &RemoteError{Op: op, Message: resp.Error}
	}
	return resp.Result, nil
}

func (c *Client) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, isPrefix, err := c.r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("%w: %v", ErrClosed, err)
		}
		line = append(line, chunk...)
		if len(line) > MaxMessageBytes {
			return nil, fmt.Errorf("%w: reply exceeds %d bytes", ErrMalformed, MaxMessageBytes)
		}
		if !isPrefix {
			return line, nil
		}
	}
}

// UpdateStatus publishes a status line.
func (c *Client) UpdateStatus(st Status) error {
	_, err := c.Call(OpStatusUpdate, encodeStatusArgs(st))
	return err
}

// ClearStatus removes the status line.
func (c *Client) ClearStatus() error {
	_, err := c.Call(OpStatusClear, nil)
	return err
}

// FileInfo queries the file being viewed.
func (c *Client) FileInfo() (FileInfo, error) {
	r, err := c.Call(OpFileInfo, nil)
	if err != nil {
		return FileInfo{}, err
	}
	return decodeFileInfo(r), nil
}

// Selection queries the current selection.
func (c *Client) Selection() (Selection, error) {
	r, err := c.Call(OpSelection, nil)
	if err != nil {
		return Selection{}, err
	}
	return decodeSelection(r), nil
}
