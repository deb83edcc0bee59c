// Package bridge forwards host UI calls to the core and turns each outcome
// into a Future that resolves with the core's value or rejects with an
// *Error.
package bridge

import (
	"fmt"
	"strconv"
	"time"

	"github.com/corebridge/corebridge/internal/core"
	"github.com/corebridge/corebridge/internal/metrics"
)

// Tag is the source tag of every log entry the adapter writes.
const Tag = "CoreModule"

// Operation names, used in log entries, errors and metric labels.
const (
	OpStart               = "start"
	OpRestart             = "restart"
	OpDropDatabase        = "dropDatabase"
	OpGetPort             = "getPort"
	OpGetNetworkConfig    = "getNetworkConfig"
	OpUpdateNetworkConfig = "updateNetworkConfig"
	OpIsBotRunning        = "isBotRunning"
	OpStartBot            = "startBot"
	OpStopBot             = "stopBot"
)

// failureText is the log message prefix per operation.
var failureText = map[string]string{
	OpStart:               "unable to start core",
	OpRestart:             "unable to restart core",
	OpDropDatabase:        "unable to drop database",
	OpGetPort:             "unable to get port",
	OpGetNetworkConfig:    "unable to get network config",
	OpUpdateNetworkConfig: "unable to update network config",
	OpStartBot:            "unable to start bot",
	OpStopBot:             "unable to stop bot",
}

// Config holds everything an Adapter needs.
type Config struct {
	// FilesDir is the application's private storage directory.
	FilesDir string
	Core     core.Core
	Logger   core.Logger      // nil discards
	Metrics  *metrics.Metrics // nil disables
}

// Adapter exposes the core's operations as asynchronous calls. It is safe
// for concurrent use and holds no mutable state.
type Adapter struct {
	filesDir string
	core     core.Core
	logger   core.Logger
	metrics  *metrics.Metrics
}

// New creates an Adapter. FilesDir is captured as-is.
func New(cfg Config) (*Adapter, error) {
	if cfg.Core == nil {
		return nil, fmt.Errorf("bridge: core is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = core.Discard
	}
	return &Adapter{
		filesDir: cfg.FilesDir,
		core:     cfg.Core,
		logger:   logger,
		metrics:  cfg.Metrics,
	}, nil
}

// FilesDir returns the path handed to Start, Restart and DropDatabase.
func (a *Adapter) FilesDir() string {
	return a.filesDir
}

// Start starts the core with the files directory.
func (a *Adapter) Start() *Future[struct{}] {
	return runVoid(a, OpStart, func() error {
		return a.core.Start(a.filesDir, a.logger)
	})
}

// Restart restarts the core with the files directory.
func (a *Adapter) Restart() *Future[struct{}] {
	return runVoid(a, OpRestart, func() error {
		return a.core.Restart(a.filesDir)
	})
}

// DropDatabase removes the core's database under the files directory.
func (a *Adapter) DropDatabase() *Future[struct{}] {
	return runVoid(a, OpDropDatabase, func() error {
		return a.core.DropDatabase(a.filesDir)
	})
}

// GetPort resolves with the core's port in decimal.
func (a *Adapter) GetPort() *Future[string] {
	return run(a, OpGetPort, func() (string, error) {
		port, err := a.core.GetPort()
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(port, 10), nil
	})
}

// GetNetworkConfig resolves with the core's encoded network config.
func (a *Adapter) GetNetworkConfig() *Future[string] {
	return run(a, OpGetNetworkConfig, a.core.GetNetworkConfig)
}

// UpdateNetworkConfig passes config to the core unchanged.
func (a *Adapter) UpdateNetworkConfig(config string) *Future[struct{}] {
	return runVoid(a, OpUpdateNetworkConfig, func() error {
		return a.core.UpdateNetworkConfig(config)
	})
}

// IsBotRunning resolves with the bot status. It never rejects: a core that
// panics while answering reports false.
func (a *Adapter) IsBotRunning() *Future[bool] {
	return run(a, OpIsBotRunning, func() (running bool, _ error) {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Log(core.LevelWarn, Tag, fmt.Sprintf("%s: core panicked: %v", OpIsBotRunning, r))
				running = false
			}
		}()
		return a.core.IsBotRunning(), nil
	})
}

// StartBot asks the core to start the bot.
func (a *Adapter) StartBot() *Future[struct{}] {
	return runVoid(a, OpStartBot, a.core.StartBot)
}

// StopBot asks the core to stop the bot.
func (a *Adapter) StopBot() *Future[struct{}] {
	return runVoid(a, OpStopBot, a.core.StopBot)
}

func runVoid(a *Adapter, op string, fn func() error) *Future[struct{}] {
	return run(a, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

// run calls fn on a new goroutine and completes the returned Future with its
// outcome. Failures, panics included, are logged once and wrapped in *Error.
func run[T any](a *Adapter, op string, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		began := time.Now()
		v, err := recovered(fn)
		a.metrics.Observe(op, err, time.Since(began))
		if err != nil {
			a.logger.Log(core.LevelError, Tag, fmt.Sprintf("%s: %s: %v", op, failureText[op], err))
			var zero T
			f.complete(zero, coreFailure(op, err))
			return
		}
		f.complete(v, nil)
	}()
	return f
}

// recovered turns a panic in fn into an error.
func recovered[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
