package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func TestConverse_RoundTrip(t *testing.T) {
	s := NewSupervisor()
	defer s.Shutdown(time.Second)

	path, args := ShellCommand("", `read line; echo "got $line"; echo note >&2`)
	var reply string
	res, err := s.Converse(context.Background(), Spec{Path: path, Args: args}, func(ctx context.Context, stdout io.Reader, stdin io.Writer) error {
		if _, err := fmt.Fprintln(stdin, "ping"); err != nil {
			return err
		}
		sc := bufio.NewScanner(stdout)
		for sc.Scan() {
			reply = sc.Text()
		}
		return sc.Err()
	})
	if err != nil {
		t.Fatalf("Converse() error = %v", err)
	}
	if reply != "got ping" {
		t.Errorf("reply = %q", reply)
	}
	if !res.Success() {
		t.Errorf("expected success, got %+v", res)
	}
	if res.Stderr != "note\n" {
		t.Errorf("Stderr = %q", res.Stderr)
	}
}

func TestConverse_Timeout(t *testing.T) {
	s := NewSupervisor()
	defer s.Shutdown(time.Second)

	path, args := ShellCommand("", "trap '' TERM; sleep 30")
	start := time.Now()
	res, err := s.Converse(context.Background(), Spec{
		Path:    path,
		Args:    args,
		Timeout: 50 * time.Millisecond,
		Grace:   200 * time.Millisecond,
	}, func(ctx context.Context, stdout io.Reader, stdin io.Writer) error {
		_, err := io.Copy(io.Discard, stdout)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.TimedOut || !res.Killed {
		t.Errorf("expected forced kill, got %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("converse took %v", elapsed)
	}
}

func TestConverse_FuncErrorStopsChild(t *testing.T) {
	s := NewSupervisor()
	defer s.Shutdown(time.Second)

	boom := errors.New("boom")
	path, args := ShellCommand("", "sleep 30")
	res, err := s.Converse(context.Background(), Spec{Path: path, Args: args, Grace: 200 * time.Millisecond},
		func(context.Context, io.Reader, io.Writer) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if res.Success() {
		t.Error("stopped child should not report success")
	}
}
