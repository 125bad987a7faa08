package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errCheckFailed = errors.New("configuration check failed")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate action configuration",
	Long: `Resolve every configuration source and build the action registry,
reporting the sources found, the conflicts between them and any
warnings. Exits non-zero if the viewer would fall back to built-ins.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Mode: %s\n", a.Resolver().Mode())

		res, err := a.Resolver().Resolve()
		if err != nil {
			fmt.Fprintf(out, "%s %v\n", failure("✗"), err)
			return errCheckFailed
		}

		fmt.Fprintln(out, "Sources:")
		if len(res.Sources) == 0 {
			fmt.Fprintln(out, faint("  none found"))
		}
		for _, s := range res.Sources {
			switch {
			case s.Loaded:
				fmt.Fprintf(out, "  %s %-8s %s (%d bytes)\n", success("✓"), s.Source, s.Path, s.Size)
			case s.Skipped != "":
				fmt.Fprintf(out, "  %s %-8s %s: %s\n", warning("!"), s.Source, s.Path, s.Skipped)
			default:
				fmt.Fprintf(out, "  %s %-8s %s\n", faint("-"), s.Source, faint(s.Path))
			}
		}

		if len(res.Conflicts) > 0 {
			fmt.Fprintln(out, "Conflicts:")
			for _, c := range res.Conflicts {
				fmt.Fprintf(out, "  %s\n", c)
			}
		}

		st := a.State()
		if st.Fallback() {
			fmt.Fprintf(out, "%s %v\n", failure("✗"), st.Err)
			return errCheckFailed
		}
		for _, w := range st.Warnings() {
			fmt.Fprintf(out, "%s %s\n", warning("warning:"), w)
		}
		fmt.Fprintf(out, "%s %d actions, %d custom\n",
			success("✓"), st.Registry.Len(), len(st.Registry.Custom()))
		return nil
	},
}
