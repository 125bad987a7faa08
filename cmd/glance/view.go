package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/app"
	"github.com/dshills/glance/internal/config"
	"github.com/dshills/glance/internal/dispatcher/handler"
	"github.com/dshills/glance/internal/viewer"
)

var flagNoWatch bool

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "View a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(cmd, args[0])
	},
}

func init() {
	viewCmd.Flags().BoolVar(&flagNoWatch, "no-watch", false, "Do not reload actions when configuration files change")
	rootCmd.Flags().BoolVar(&flagNoWatch, "no-watch", false, "Do not reload actions when configuration files change")
}

func runView(cmd *cobra.Command, path string) error {
	doc, err := viewer.Load(path)
	if err != nil {
		return err
	}
	if abs, err := filepath.Abs(path); err == nil {
		doc.Path = abs
	}

	// The pager only exists once the engine does, but the engine needs the
	// confirmation callback at construction.
	var pager *viewer.Pager
	confirm := func(ctx context.Context, def *action.Definition, prompt string) (bool, error) {
		return pager.Confirm(ctx, def, prompt)
	}

	a, err := newApp(func(o *app.Options) {
		o.Confirm = confirm
		// Log lines would draw over the screen.
		if o.Settings.Log.File == "" {
			o.Settings.Log.File = viewLogFile()
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if st := a.State(); st.Fallback() {
		a.Logger().Warn("using built-in actions only: %v", st.Err)
	}
	if !flagNoWatch {
		if err := a.Watch(); err != nil {
			a.Logger().Warn("not watching configuration: %v", err)
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing terminal: %w", err)
	}
	defer screen.Fini()

	pager = viewer.NewPager(a, screen, doc, viewer.WithLogger(a.Logger()))
	if st := a.State(); st.Fallback() {
		pager.State().SetStatus("Using built-in actions: "+st.Err.Error(), handler.MessageWarning, 0, time.Now())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return pager.Run(ctx)
}

// viewLogFile is where the viewer logs when settings name no file.
func viewLogFile() string {
	return filepath.Join(xdg.StateHome, config.AppName, "glance.log")
}
