// Package mobile is the gomobile entry point. Its exported API uses only
// types gomobile can bind, so the host app sees a CoreModule with nine
// promise-style methods.
package mobile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/corebridge/corebridge/internal/bridge"
	"github.com/corebridge/corebridge/internal/core"
	"github.com/corebridge/corebridge/internal/daemon"
	"github.com/corebridge/corebridge/internal/logging"
	"github.com/corebridge/corebridge/internal/node"
)

// Log levels passed to Logger.Log.
const (
	LevelDebug = int(core.LevelDebug)
	LevelInfo  = int(core.LevelInfo)
	LevelWarn  = int(core.LevelWarn)
	LevelError = int(core.LevelError)
)

// Promise is implemented by the host. Exactly one method is called per
// operation.
type Promise interface {
	Resolve(value string)
	ResolveBool(value bool)
	ResolveNull()
	Reject(kind, message string)
}

// Logger is implemented by the host.
type Logger interface {
	Log(level int, tag, message string)
}

type hostLogger struct{ l Logger }

func (h hostLogger) Log(level core.Level, tag, msg string) {
	h.l.Log(int(level), tag, msg)
}

// CoreModule is the module registered with the host runtime.
type CoreModule struct {
	adapter *bridge.Adapter
	closer  func() error
}

// NewCoreModule runs the core inside the app process. filesDir is the
// app's private storage directory.
func NewCoreModule(filesDir string, logger Logger) (*CoreModule, error) {
	n := node.New(node.Options{})
	return newCoreModule(filesDir, n, logger, n.Close)
}

// NewRemoteCoreModule forwards every call to a corebridge daemon listening
// on socketPath.
func NewRemoteCoreModule(filesDir, socketPath string, logger Logger) (*CoreModule, error) {
	if socketPath == "" {
		return nil, fmt.Errorf("mobile: socket path is required")
	}
	return newCoreModule(filesDir, daemon.NewClient(socketPath), logger, nil)
}

func newCoreModule(filesDir string, c core.Core, logger Logger, closer func() error) (*CoreModule, error) {
	var l core.Logger
	if logger != nil {
		l = hostLogger{logger}
	} else {
		l = logging.New(os.Stderr, "info")
	}
	a, err := bridge.New(bridge.Config{FilesDir: filesDir, Core: c, Logger: l})
	if err != nil {
		return nil, err
	}
	return &CoreModule{adapter: a, closer: closer}, nil
}

// Name is the module name the host registers.
func (m *CoreModule) Name() string { return bridge.Tag }

// Close releases an in-process core. It is a no-op for a remote one.
func (m *CoreModule) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}

// Start starts the core on the files dir. Resolves null.
func (m *CoreModule) Start(p Promise) { settleVoid(m.adapter.Start(), p) }

// Restart restarts the core on the files dir. Resolves null.
func (m *CoreModule) Restart(p Promise) { settleVoid(m.adapter.Restart(), p) }

// DropDatabase deletes the core database under the files dir. Resolves null.
func (m *CoreModule) DropDatabase(p Promise) { settleVoid(m.adapter.DropDatabase(), p) }

// StartBot starts the bot. Resolves null.
func (m *CoreModule) StartBot(p Promise) { settleVoid(m.adapter.StartBot(), p) }

// StopBot stops the bot. Resolves null.
func (m *CoreModule) StopBot(p Promise) { settleVoid(m.adapter.StopBot(), p) }

// GetPort resolves with the core API port in decimal.
func (m *CoreModule) GetPort(p Promise) { settleString(m.adapter.GetPort(), p) }

// GetNetworkConfig resolves with the network config as JSON.
func (m *CoreModule) GetNetworkConfig(p Promise) { settleString(m.adapter.GetNetworkConfig(), p) }

// UpdateNetworkConfig hands config to the core unchanged. Resolves null.
func (m *CoreModule) UpdateNetworkConfig(config string, p Promise) {
	settleVoid(m.adapter.UpdateNetworkConfig(config), p)
}

// IsBotRunning always resolves with a bool and never rejects.
func (m *CoreModule) IsBotRunning(p Promise) {
	f := m.adapter.IsBotRunning()
	go func() {
		running, _ := f.Wait(context.Background())
		p.ResolveBool(running)
	}()
}

func settleVoid(f *bridge.Future[struct{}], p Promise) {
	go func() {
		if _, err := f.Wait(context.Background()); err != nil {
			reject(p, err)
			return
		}
		p.ResolveNull()
	}()
}

func settleString(f *bridge.Future[string], p Promise) {
	go func() {
		v, err := f.Wait(context.Background())
		if err != nil {
			reject(p, err)
			return
		}
		p.Resolve(v)
	}()
}

func reject(p Promise, err error) {
	kind := bridge.KindCoreFailure
	var be *bridge.Error
	if errors.As(err, &be) {
		kind = be.Kind
	}
	p.Reject(kind, err.Error())
}
