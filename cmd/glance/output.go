package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/dshills/glance/internal/dispatcher/handler"
)

var (
	success   = color.New(color.FgGreen).SprintFunc()
	failure   = color.New(color.FgRed).SprintFunc()
	highlight = color.New(color.FgCyan).SprintFunc()
	warning   = color.New(color.FgYellow).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
)

// colorize paints s for a result message type.
func colorize(t handler.MessageType, s string) string {
	switch t {
	case handler.MessageSuccess:
		return success(s)
	case handler.MessageWarning:
		return warning(s)
	case handler.MessageError:
		return failure(s)
	default:
		return s
	}
}

// printResult writes a result's output and its message.
func printResult(w io.Writer, r handler.ExecutionResult) {
	if r.Output != "" {
		fmt.Fprint(w, r.Output)
		if r.Output[len(r.Output)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}
	if r.Message != "" {
		fmt.Fprintln(w, colorize(r.MessageType, r.Message))
	}
}
