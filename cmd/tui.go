package cmd

import (
	"context"

	"github.com/bassamadnan/mailagent/tui"
)

func runTUI(ctx context.Context) error {
	s, err := openServices(ctx)
	if err != nil {
		return err
	}
	app := tui.NewApp(ctx, s.proc, s.prompts, s.drafts, s.gateway.Configured(), logger)
	go func() {
		<-ctx.Done()
		app.Stop()
	}()
	logger.Info().Msg("TUI starting")
	if err := app.Run(); err != nil {
		return err
	}
	logger.Info().Msg("TUI stopped")
	return nil
}
