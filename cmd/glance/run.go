package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/app"
	"github.com/dshills/glance/internal/dispatcher/execctx"
	"github.com/dshills/glance/internal/viewer"
)

var (
	flagRunFile   string
	flagRunLine   int
	flagRunSelect string
	flagRunYes    bool
	flagRunStats  bool
)

var runCmd = &cobra.Command{
	Use:   "run <action-id>",
	Short: "Run one action without the viewer",
	Long: `Run an action against a file as if it were invoked from the viewer.
Dangerous actions ask for confirmation on the terminal unless --yes is given.

Examples:
  glance run fmt --file main.go
  glance run count --file notes.txt --select 3,5-7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ec, err := runContext()
		if err != nil {
			return err
		}

		in := bufio.NewReader(cmd.InOrStdin())
		errOut := cmd.ErrOrStderr()
		a, err := newApp(func(o *app.Options) {
			o.Confirm = func(_ context.Context, _ *action.Definition, prompt string) (bool, error) {
				if flagRunYes {
					return true, nil
				}
				return askYesNo(in, errOut, prompt)
			}
		})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		r, err := a.Run(ctx, args[0], ec)
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), r)

		if flagRunStats {
			m := a.Metrics()
			fmt.Fprintf(errOut, "%s dispatches=%d errors=%d timeouts=%d avg=%s exit=%d\n",
				faint("stats:"), m.TotalDispatches(), m.TotalErrors(), m.TotalTimeouts(),
				m.AverageDuration(), r.ExitCode)
		}
		if r.IsError() {
			return fmt.Errorf("%s failed", args[0])
		}
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&flagRunFile, "file", "f", "", "File the action runs against")
	f.IntVarP(&flagRunLine, "line", "l", 1, "Current line (1-based)")
	f.StringVarP(&flagRunSelect, "select", "s", "", "Selected lines, e.g. 3,5-7")
	f.BoolVarP(&flagRunYes, "yes", "y", false, "Run dangerous actions without asking")
	f.BoolVar(&flagRunStats, "stats", false, "Print execution statistics to stderr")
}

// runContext builds the execution context from the run flags.
func runContext() (*execctx.ExecutionContext, error) {
	ec := execctx.New().WithMode(action.ModeStatic)
	if flagRunFile != "" {
		doc, err := viewer.Load(flagRunFile)
		if err != nil {
			return nil, err
		}
		path := flagRunFile
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		ec = ec.WithFile(path, doc.Lines).WithMetadata(doc.Metadata)
	}
	ec = ec.WithCursor(flagRunLine, 1)

	sel, err := parseSelection(flagRunSelect)
	if err != nil {
		return nil, err
	}
	ec = ec.WithSelection(sel)
	if err := ec.Validate(); err != nil {
		return nil, err
	}
	return ec, nil
}

// parseSelection parses a comma separated list of lines and ranges.
func parseSelection(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var lines []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q", part)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(hi); err != nil || end < start {
				return nil, fmt.Errorf("invalid selection %q", part)
			}
		}
		for n := start; n <= end; n++ {
			lines = append(lines, n)
		}
	}
	return lines, nil
}

// askYesNo prompts on w and reads an answer from r. Anything but y or yes
// declines.
func askYesNo(r *bufio.Reader, w io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(w, "%s [y/N] ", warning(prompt))
	answer, err := r.ReadString('\n')
	if err != nil && answer == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
