package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"

	"github.com/corebridge/corebridge/internal/config"
	"github.com/corebridge/corebridge/internal/daemon"
	"github.com/corebridge/corebridge/internal/logging"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	var cli CLI
	k, err := kong.New(&cli, kong.Name("corebridge"), kong.Exit(func(int) { t.Fatal("kong exited") }))
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := k.Parse(args)
	if err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return &cli, ctx
}

func TestParseCommands(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"start"}, "start"},
		{[]string{"drop-database", "--yes"}, "drop-database"},
		{[]string{"network-config", "get"}, "network-config get"},
		{[]string{"network-config", "set", `{"dht":"server"}`}, "network-config set <config>"},
		{[]string{"bot", "status"}, "bot status"},
		{[]string{"config", "init", "--force"}, "config init"},
		{[]string{"--config", "/tmp/c.yaml", "status"}, "status"},
	}
	for _, tt := range tests {
		_, ctx := parse(t, tt.args...)
		if got := ctx.Command(); got != tt.want {
			t.Errorf("%v: command = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestDropDatabaseNeedsYes(t *testing.T) {
	if err := (&DropDatabaseCmd{}).Run(&CLI{}); err == nil {
		t.Fatal("expected refusal without --yes")
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	cli := &CLI{Config: path}

	if err := (&ConfigInitCmd{}).Run(cli); err != nil {
		t.Fatalf("first init: %v", err)
	}
	if err := (&ConfigInitCmd{}).Run(cli); err == nil {
		t.Fatal("second init should refuse to overwrite")
	}
	if err := (&ConfigInitCmd{Force: true}).Run(cli); err != nil {
		t.Fatalf("forced init: %v", err)
	}
}

// startDaemon writes a config pointing at a temp socket and runs a daemon
// against it for the duration of the test.
func startDaemon(t *testing.T) *CLI {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.FilesDir = filepath.Join(home, "files")
	// Keep the socket path short; sun_path is limited to ~100 bytes.
	sock, err := os.MkdirTemp("", "cb")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(sock) })
	cfg.Socket = filepath.Join(sock, "core.sock")
	cfg.LogLevel = "error"
	path := filepath.Join(home, "config.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- daemon.Run(ctx, daemon.Config{
			SocketPath: cfg.Socket,
			Logger:     logging.New(os.Stderr, "error"),
		})
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("daemon did not stop")
		}
	})
	if err := daemon.NewClient(cfg.Socket).WaitForReady(5 * time.Second); err != nil {
		t.Fatalf("WaitForReady: %v", err)
	}
	return &CLI{Config: path}
}

func TestCommandsAgainstDaemon(t *testing.T) {
	cli := startDaemon(t)

	if err := (&PortCmd{}).Run(cli); err == nil {
		t.Error("port before start should fail")
	}
	steps := []struct {
		name string
		run  func(*CLI) error
	}{
		{"start", (&StartCmd{}).Run},
		{"port", (&PortCmd{}).Run},
		{"network-config set", (&NetworkConfigSetCmd{Config: `{"dht":"server"}`}).Run},
		{"network-config get", (&NetworkConfigGetCmd{}).Run},
		{"bot start", (&BotStartCmd{}).Run},
		{"bot status", (&BotStatusCmd{}).Run},
		{"status", (&StatusCmd{}).Run},
		{"bot stop", (&BotStopCmd{}).Run},
		{"restart", (&RestartCmd{}).Run},
		{"drop-database", (&DropDatabaseCmd{Yes: true}).Run},
	}
	for _, s := range steps {
		if err := s.run(cli); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
	}
	if err := (&BotStopCmd{}).Run(cli); err == nil {
		t.Error("stopping a stopped bot should fail")
	}
}

func TestStatusWithoutDaemon(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Socket = fmt.Sprintf("/tmp/corebridge-missing-%d.sock", os.Getpid())
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	if err := (&StatusCmd{}).Run(&CLI{Config: path}); err == nil {
		t.Fatal("expected error with no daemon")
	}
}
