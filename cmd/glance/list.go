package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/glance/internal/action"
)

var flagListAll bool

var listCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List configured actions",
	Long: `List actions with their keys and sources. A query fuzzy-matches ids,
names and descriptions. Built-in actions are listed only with --all.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		st := a.State()
		if st.Fallback() {
			fmt.Fprintln(cmd.ErrOrStderr(), warning("configuration not loaded: "+st.Err.Error()))
		}

		query := ""
		if len(args) == 1 {
			query = args[0]
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, def := range st.Registry.Search(query) {
			if def.IsBuiltin() && !flagListAll {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				highlight(def.ID),
				strings.Join(st.Registry.Keys(def.ID), ","),
				def.DisplayName(),
				faint(actionTags(def)))
		}
		return tw.Flush()
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Show the effective key bindings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		reg := a.State().Registry
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, b := range reg.Bindings() {
			name := b.ActionID
			if def, ok := reg.ByID(b.ActionID); ok {
				name = def.DisplayName()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", highlight(b.Key), b.ActionID, name)
		}
		return tw.Flush()
	},
}

func init() {
	listCmd.Flags().BoolVarP(&flagListAll, "all", "a", false, "Include built-in actions")
}

// actionTags summarizes an action's source and flags.
func actionTags(def *action.Definition) string {
	tags := []string{"builtin"}
	if !def.IsBuiltin() {
		tags[0] = def.Source
	}
	if def.Dangerous {
		tags = append(tags, "dangerous")
	}
	if !def.IsEnabled() {
		tags = append(tags, "disabled")
	}
	if def.When != nil {
		tags = append(tags, "conditional")
	}
	return strings.Join(tags, " ")
}
