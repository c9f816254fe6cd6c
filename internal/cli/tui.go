package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fragmede/campus/internal/ui"
)

func runTUI(cmd *cobra.Command, opts *options) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.log.Info("starting ui")
	app := ui.NewApp(ctx, rt.session, rt.log)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}
