package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/corebridge/corebridge/internal/bridge"
	"github.com/corebridge/corebridge/internal/daemon"
	"github.com/corebridge/corebridge/internal/tui"
	"github.com/corebridge/corebridge/internal/ui"
)

// callTimeout bounds how long the CLI waits for one core call. The call
// itself is not cancelled.
const callTimeout = 2 * time.Minute

// adapter returns a bridge over the configured daemon.
func (c *CLI) adapter() (*bridge.Adapter, error) {
	cfg, err := c.load()
	if err != nil {
		return nil, err
	}
	return bridge.New(bridge.Config{
		FilesDir: cfg.FilesDir,
		Core:     daemon.NewClient(cfg.Socket),
		Logger:   c.logger(cfg),
	})
}

func await[T any](f *bridge.Future[T]) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return f.Wait(ctx)
}

// runVoid drives a void operation behind a spinner titled title.
func runVoid(globals *CLI, call func(*bridge.Adapter) *bridge.Future[struct{}], title, ok string) error {
	a, err := globals.adapter()
	if err != nil {
		return err
	}
	return tui.RunSteps(context.Background(), []tui.Step{voidStep(a, call, title, ok)})
}

func voidStep(a *bridge.Adapter, call func(*bridge.Adapter) *bridge.Future[struct{}], title, ok string) tui.Step {
	return tui.Step{Title: title, Run: func(_ context.Context, note func(string)) error {
		if _, err := await(call(a)); err != nil {
			return err
		}
		note(ok)
		return nil
	}}
}

// StartCmd starts the core with the configured files dir.
type StartCmd struct{}

func (c *StartCmd) Run(globals *CLI) error {
	a, err := globals.adapter()
	if err != nil {
		return err
	}
	return tui.RunSteps(context.Background(), []tui.Step{
		voidStep(a, (*bridge.Adapter).Start, "Starting core", "Core started"),
		{Title: "Reading port", Run: func(_ context.Context, note func(string)) error {
			port, err := await(a.GetPort())
			if err != nil {
				return err
			}
			note("Core listening on port " + port)
			return nil
		}},
	})
}

// RestartCmd restarts the core.
type RestartCmd struct{}

func (c *RestartCmd) Run(globals *CLI) error {
	return runVoid(globals, (*bridge.Adapter).Restart, "Restarting core", "Core restarted")
}

// DropDatabaseCmd deletes the core database.
type DropDatabaseCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (c *DropDatabaseCmd) Run(globals *CLI) error {
	if !c.Yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("refusing to drop the database without --yes")
		}
		confirm := false
		err := huh.NewConfirm().
			Title("Delete the core database?").
			Description("Every setting and bot heartbeat under the files dir is lost.").
			Affirmative("Drop").
			Negative("Cancel").
			Value(&confirm).
			Run()
		if err != nil {
			return err
		}
		if !confirm {
			fmt.Println(ui.StepInfo("Nothing dropped"))
			return nil
		}
	}
	return runVoid(globals, (*bridge.Adapter).DropDatabase, "Dropping database", "Database dropped")
}

// PortCmd prints the core API port.
type PortCmd struct{}

func (c *PortCmd) Run(globals *CLI) error {
	a, err := globals.adapter()
	if err != nil {
		return err
	}
	port, err := await(a.GetPort())
	if err != nil {
		return err
	}
	fmt.Println(port)
	return nil
}

// NetworkConfigCmd reads or replaces the network config.
type NetworkConfigCmd struct {
	Get NetworkConfigGetCmd `cmd:"" help:"Print the network config as JSON."`
	Set NetworkConfigSetCmd `cmd:"" help:"Replace the network config."`
}

type NetworkConfigGetCmd struct{}

func (c *NetworkConfigGetCmd) Run(globals *CLI) error {
	a, err := globals.adapter()
	if err != nil {
		return err
	}
	raw, err := await(a.GetNetworkConfig())
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if json.Indent(&out, []byte(raw), "", "  ") != nil {
		fmt.Println(raw)
		return nil
	}
	fmt.Println(out.String())
	return nil
}

type NetworkConfigSetCmd struct {
	Config string `arg:"" help:"Network config JSON, or - to read stdin."`
}

func (c *NetworkConfigSetCmd) Run(globals *CLI) error {
	payload := c.Config
	if payload == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		payload = string(data)
	}
	return runVoid(globals, func(a *bridge.Adapter) *bridge.Future[struct{}] {
		return a.UpdateNetworkConfig(payload)
	}, "Updating network config", "Network config updated (applies on restart)")
}

// BotCmd manages the bot.
type BotCmd struct {
	Status BotStatusCmd `cmd:"" help:"Show whether the bot is running."`
	Start  BotStartCmd  `cmd:"" help:"Start the bot."`
	Stop   BotStopCmd   `cmd:"" help:"Stop the bot."`
}

type BotStatusCmd struct{}

func (c *BotStatusCmd) Run(globals *CLI) error {
	a, err := globals.adapter()
	if err != nil {
		return err
	}
	running, err := await(a.IsBotRunning())
	if err != nil {
		return err
	}
	fmt.Println(ui.BotState(running))
	return nil
}

type BotStartCmd struct{}

func (c *BotStartCmd) Run(globals *CLI) error {
	return runVoid(globals, (*bridge.Adapter).StartBot, "Starting bot", "Bot started")
}

type BotStopCmd struct{}

func (c *BotStopCmd) Run(globals *CLI) error {
	return runVoid(globals, (*bridge.Adapter).StopBot, "Stopping bot", "Bot stopped")
}
