package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/corebridge/corebridge/internal/apiclient"
	"github.com/corebridge/corebridge/internal/daemon"
	"github.com/corebridge/corebridge/internal/ui"
)

// DaemonCmd runs the daemon in the foreground. A supervisor is expected to
// background it.
type DaemonCmd struct {
	MetricsAddr string `help:"Serve Prometheus metrics on this address (overrides config)."`
}

func (c *DaemonCmd) Run(globals *CLI) error {
	cfg, err := globals.load()
	if err != nil {
		return err
	}
	client := daemon.NewClient(cfg.Socket)
	if status, err := client.Status(); err == nil {
		return fmt.Errorf("daemon already running (PID %d)", status.PID)
	}
	metricsAddr := cfg.MetricsAddr
	if c.MetricsAddr != "" {
		metricsAddr = c.MetricsAddr
	}
	return daemon.Run(context.Background(), daemon.Config{
		SocketPath:  cfg.Socket,
		ListenAddr:  cfg.ListenAddr,
		BotInterval: cfg.BotInterval,
		MetricsAddr: metricsAddr,
		Logger:      globals.logger(cfg),
	})
}

// StatusCmd queries a running daemon.
type StatusCmd struct{}

func (c *StatusCmd) Run(globals *CLI) error {
	cfg, err := globals.load()
	if err != nil {
		return err
	}
	client := daemon.NewClient(cfg.Socket)
	status, err := client.Status()
	if err != nil {
		fmt.Println(ui.Section("corebridge", ui.Rows([][2]string{
			{"daemon", ui.Status(ui.StateUnreachable)},
			{"socket", cfg.Socket},
		}), 80))
		return fmt.Errorf("no daemon running on %s", cfg.Socket)
	}

	rows := [][2]string{
		{"daemon", ui.Status(ui.StateRunning)},
		{"pid", fmt.Sprint(status.PID)},
		{"version", status.Version},
		{"core", coreState(client)},
		{"bot", ui.BotState(status.BotRunning)},
		{"socket", cfg.Socket},
	}
	if !status.StartedAt.IsZero() {
		rows = append(rows, [2]string{"uptime", time.Since(status.StartedAt).Round(time.Second).String()})
	}
	if status.MetricsAddr != "" {
		rows = append(rows, [2]string{"metrics", "http://" + status.MetricsAddr + "/metrics"})
	}
	fmt.Println(ui.Section("corebridge", ui.Rows(rows), 80))
	return nil
}

// StopCmd asks the daemon to shut down.
type StopCmd struct{}

func (c *StopCmd) Run(globals *CLI) error {
	cfg, err := globals.load()
	if err != nil {
		return err
	}
	client := daemon.NewClient(cfg.Socket)
	if err := client.Shutdown(); err != nil {
		daemon.RemoveStaleSocket(cfg.Socket)
		return fmt.Errorf("no daemon running on %s", cfg.Socket)
	}
	fmt.Println(ui.StepOK("Daemon stopped"))
	return nil
}

// coreState probes the core API through the port the daemon reports.
func coreState(client *daemon.Client) string {
	port, err := client.GetPort()
	if err != nil {
		return ui.Status(ui.StateStopped)
	}
	api, err := apiclient.New(strconv.FormatInt(port, 10))
	if err != nil {
		return ui.Status(ui.StateUnreachable)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := api.Health(ctx); err != nil {
		return ui.Status(ui.StateUnreachable)
	}
	return fmt.Sprintf("%s on port %d", ui.Status(ui.StateRunning), port)
}
