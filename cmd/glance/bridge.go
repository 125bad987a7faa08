package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/glance/internal/plugin/lua"
)

var (
	flagBridgeSource string
	flagBridgeFile   string
)

// bridgeLuaCmd is the child side of --lua-subprocess. It runs one snippet
// with the viewer API proxied over stdin and stdout.
var bridgeLuaCmd = &cobra.Command{
	Use:    lua.BridgeCommand,
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if (flagBridgeSource == "") == (flagBridgeFile == "") {
			return errors.New("exactly one of --source or --file is required")
		}
		sn := lua.Snippet{Code: flagBridgeSource, Path: flagBridgeFile}
		if err := lua.ServeStdio(cmd.Context(), sn, os.Stdin, os.Stdout, os.Stderr); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	bridgeLuaCmd.Flags().StringVar(&flagBridgeSource, "source", "", "Lua source to run")
	bridgeLuaCmd.Flags().StringVar(&flagBridgeFile, "file", "", "Lua file to run")
}
