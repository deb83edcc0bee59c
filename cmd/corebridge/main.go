package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/corebridge/corebridge/internal/config"
	"github.com/corebridge/corebridge/internal/logging"
)

// CLI is the top-level Kong struct.
type CLI struct {
	Config  string `short:"c" help:"Config file (default ~/.config/corebridge/config.yaml)." type:"path"`
	Verbose bool   `short:"v" help:"Verbose output."`

	Daemon        DaemonCmd        `cmd:"" help:"Run the core in the background."`
	Start         StartCmd         `cmd:"" help:"Start the core."`
	Restart       RestartCmd       `cmd:"" help:"Restart the core."`
	DropDatabase  DropDatabaseCmd  `cmd:"" name:"drop-database" help:"Delete the core database."`
	Port          PortCmd          `cmd:"" help:"Print the core API port."`
	NetworkConfig NetworkConfigCmd `cmd:"" name:"network-config" help:"Read or replace the network config."`
	Bot           BotCmd           `cmd:"" help:"Manage the bot."`
	Status        StatusCmd        `cmd:"" help:"Show daemon status."`
	Stop          StopCmd          `cmd:"" help:"Stop the daemon."`
	Cfg           ConfigCmd        `cmd:"" name:"config" help:"Manage the config file."`
	Version       VersionCmd       `cmd:"" help:"Print version."`
}

func main() {
	var cli CLI
	k, err := kong.New(&cli,
		kong.Name("corebridge"),
		kong.Description("Drive a corebridge core from the command line"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			NoExpandSubcommands: true,
			Compact:             true,
		}),
	)
	if err != nil {
		panic(err)
	}

	args := os.Args[1:]
	if len(args) == 0 || (len(args) == 1 && args[0] == "help") {
		_, _ = k.Parse([]string{"--help"})
		os.Exit(0)
	}

	ctx, err := k.Parse(args)
	k.FatalIfErrorf(err)
	k.FatalIfErrorf(ctx.Run(&cli))
}

// configPath resolves --config against the default location.
func (c *CLI) configPath() (string, error) {
	if c.Config != "" {
		return c.Config, nil
	}
	return config.DefaultPath()
}

func (c *CLI) load() (*config.Config, error) {
	path, err := c.configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// logger writes to stderr at the configured level, or debug with -v.
func (c *CLI) logger(cfg *config.Config) *logging.Logger {
	level := cfg.LogLevel
	if c.Verbose {
		level = "debug"
	}
	return logging.New(os.Stderr, level)
}
