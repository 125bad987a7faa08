package bridge

import (
	"context"
	"io"
	"sync"
)

// Pipe connects a client to h through in-memory streams. The returned
// close function shuts the connection down and waits for the host
// goroutine to finish. It may be called more than once.
func Pipe(ctx context.Context, h *Host) (*Client, func() error) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	done := make(chan error, 1)
	go func() {
		err := h.Serve(ctx, reqR, respW)
		respW.CloseWithError(ErrClosed)
		reqR.Close()
		done <- err
	}()

	var (
		once sync.Once
		err  error
	)
	closeFn := func() error {
		once.Do(func() {
			reqW.Close()
			respR.Close()
			err = <-done
		})
		return err
	}
	return NewClient(respR, reqW), closeFn
}
