package main

import (
	"fmt"
	"os"

	"github.com/corebridge/corebridge/internal/config"
	"github.com/corebridge/corebridge/internal/ui"
)

// ConfigCmd manages the config file.
type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write a default config file."`
	Show ConfigShowCmd `cmd:"" help:"Print the effective config."`
}

type ConfigInitCmd struct {
	Force bool `short:"f" help:"Overwrite an existing file."`
}

func (c *ConfigInitCmd) Run(globals *CLI) error {
	path, err := globals.configPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	cfg, err := config.Default()
	if err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Println(ui.StepOK("Wrote " + path))
	return nil
}

type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(globals *CLI) error {
	cfg, err := globals.load()
	if err != nil {
		return err
	}
	metrics := cfg.MetricsAddr
	if metrics == "" {
		metrics = "disabled"
	}
	fmt.Println(ui.Rows([][2]string{
		{"files dir", cfg.FilesDir},
		{"socket", cfg.Socket},
		{"log level", cfg.LogLevel},
		{"listen addr", cfg.ListenAddr},
		{"metrics addr", metrics},
		{"bot interval", cfg.BotInterval.String()},
	}))
	return nil
}
