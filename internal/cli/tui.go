package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pbiembed/pbiembed/internal/tui"
)

func runTUI(cmd *cobra.Command, app *App) error {
	if !isTerminal(cmd) || !stdinIsTerminal(cmd) {
		return fail(cmd, app, invalidArgf("the interactive picker needs a terminal; see `pbiembed --help` for scripted commands"))
	}
	props, err := loadProperties(app)
	if err != nil {
		return fail(cmd, app, err)
	}

	bridge := tui.NewBridge()
	initCtx, cancel := context.WithTimeout(cmd.Context(), catalogTimeout)
	part, err := app.newPart(initCtx, props, bridge.Surface(), bridge.Renderer())
	cancel()
	if err != nil {
		bridge.Close()
		return fail(cmd, app, err)
	}
	defer part.Dispose()

	return tui.Run(cmd.Context(), tui.Config{
		Part:   part,
		Bridge: bridge,
		Save:   app.saveSelection,
		Logger: app.logger(),
	})
}
