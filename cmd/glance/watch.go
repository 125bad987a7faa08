package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/glance/internal/config/notify"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload configuration on change and report each reload",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		changes := make(chan notify.Change, 16)
		sub := a.Subscribe(func(c notify.Change) {
			select {
			case changes <- c:
			default:
			}
		})
		defer sub.Unsubscribe()

		if err := a.Watch(); err != nil {
			return err
		}

		st := a.State()
		if st.Fallback() {
			fmt.Fprintf(out, "%s %v\n", warning("built-ins only:"), st.Err)
		} else {
			fmt.Fprintf(out, "%s %d actions\n", success("loaded"), st.Registry.Len())
		}
		fmt.Fprintln(out, faint("watching for changes, press Ctrl-C to stop"))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case c := <-changes:
				printChange(cmd, c)
			}
		}
	},
}

func printChange(cmd *cobra.Command, c notify.Change) {
	out := cmd.OutOrStdout()
	stamp := faint(c.Time.Format("15:04:05"))
	switch c.Type {
	case notify.ChangeReload:
		fmt.Fprintf(out, "%s %s %d actions from %s\n", stamp, success("reloaded"), c.Actions, highlight(c.Source))
	case notify.ChangeFailed:
		fmt.Fprintf(out, "%s %s %v\n", stamp, failure("reload failed:"), c.Err)
	case notify.ChangeFallback:
		fmt.Fprintf(out, "%s %s %v\n", stamp, warning("built-ins only:"), c.Err)
	}
	if len(c.Warnings) > 0 {
		fmt.Fprintf(out, "         %s\n", warning(strings.Join(c.Warnings, "\n         ")))
	}
}
