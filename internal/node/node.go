// Package node is the in-process core: it owns the database, the local API
// listener and the bot.
package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corebridge/corebridge/internal/core"
)

// Tag is the log tag for entries written by the node.
const Tag = "node"

var (
	ErrNotStarted     = errors.New("core is not started")
	ErrAlreadyStarted = errors.New("core is already started")
	ErrBotRunning     = errors.New("bot is already running")
	ErrBotNotRunning  = errors.New("bot is not running")
)

const (
	defaultListenAddr  = "127.0.0.1:0"
	defaultBotInterval = 30 * time.Second
	storeTimeout       = 5 * time.Second
)

// Options configures a Node. Zero values select defaults.
type Options struct {
	ListenAddr  string
	BotInterval time.Duration
}

// Node implements core.Core. All lifecycle calls are serialized.
type Node struct {
	opts Options

	mu     sync.Mutex
	logger core.Logger
	store  *store
	netCfg NetworkConfig
	ln     net.Listener
	srv    *http.Server
	bot    *bot

	botRunning atomic.Bool
}

var _ core.Core = (*Node)(nil)

// New returns a stopped Node.
func New(opts Options) *Node {
	if opts.ListenAddr == "" {
		opts.ListenAddr = defaultListenAddr
	}
	if opts.BotInterval <= 0 {
		opts.BotInterval = defaultBotInterval
	}
	return &Node{opts: opts, logger: core.Discard}
}

// Start opens the database under path and starts the local API listener.
func (n *Node) Start(path string, logger core.Logger) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if logger == nil {
		logger = core.Discard
	}
	return n.startLocked(path, logger)
}

// Restart stops the node if it is running and starts it again on path with
// the logger of the previous Start. The bot is left stopped.
func (n *Node) Restart(path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.stopLocked(); err != nil {
		return err
	}
	return n.startLocked(path, n.logger)
}

// DropDatabase deletes the database under path. A running node is stopped
// first and started again afterwards; the bot is left stopped.
func (n *Node) DropDatabase(path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	wasRunning := n.store != nil
	if err := n.stopLocked(); err != nil {
		return err
	}
	if err := removeStore(path); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	n.logger.Log(core.LevelInfo, Tag, "database dropped")
	if wasRunning {
		return n.startLocked(path, n.logger)
	}
	return nil
}

// GetPort returns the port of the local API listener.
func (n *Node) GetPort() (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ln == nil {
		return 0, ErrNotStarted
	}
	addr, ok := n.ln.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address %s", n.ln.Addr())
	}
	return int64(addr.Port), nil
}

// GetNetworkConfig returns the JSON form of the stored network config.
func (n *Node) GetNetworkConfig() (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.store == nil {
		return "", ErrNotStarted
	}
	return n.netCfg.Encode()
}

// UpdateNetworkConfig validates and stores config. GetNetworkConfig reports
// it at once; transports pick it up on the next start.
func (n *Node) UpdateNetworkConfig(config string) error {
	cfg, err := ParseNetworkConfig(config)
	if err != nil {
		return err
	}
	encoded, err := cfg.Encode()
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.store == nil {
		return ErrNotStarted
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := n.store.setSetting(ctx, settingNetworkConfig, encoded); err != nil {
		return err
	}
	n.netCfg = cfg
	n.logger.Log(core.LevelInfo, Tag, "network config updated")
	return nil
}

// IsBotRunning reports whether the bot is running.
func (n *Node) IsBotRunning() bool {
	return n.botRunning.Load()
}

// StartBot starts the periodic bot job.
func (n *Node) StartBot() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.store == nil {
		return ErrNotStarted
	}
	if n.bot != nil {
		return ErrBotRunning
	}
	st, logger := n.store, n.logger
	b, err := startBot(n.opts.BotInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := st.recordHeartbeat(ctx, time.Now()); err != nil {
			logger.Log(core.LevelWarn, Tag, fmt.Sprintf("bot heartbeat: %v", err))
		}
	})
	if err != nil {
		return err
	}
	n.bot = b
	n.botRunning.Store(true)
	n.logger.Log(core.LevelInfo, Tag, "bot started")
	return nil
}

// StopBot stops the bot job.
func (n *Node) StopBot() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.bot == nil {
		return ErrBotNotRunning
	}
	return n.stopBotLocked()
}

// Close stops everything the node owns.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stopLocked()
}

func (n *Node) startLocked(path string, logger core.Logger) error {
	if n.store != nil {
		return ErrAlreadyStarted
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return fmt.Errorf("create files dir: %w", err)
	}

	st, err := openStore(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	netCfg := DefaultNetworkConfig()
	raw, ok, err := st.setting(ctx, settingNetworkConfig)
	if err != nil {
		_ = st.Close()
		return err
	}
	if ok {
		if netCfg, err = ParseNetworkConfig(raw); err != nil {
			_ = st.Close()
			return fmt.Errorf("stored network config: %w", err)
		}
	}

	ln, err := net.Listen("tcp", n.opts.ListenAddr)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("listen on %s: %w", n.opts.ListenAddr, err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", n.handleHealth)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()

	n.logger = logger
	n.store = st
	n.netCfg = netCfg
	n.ln = ln
	n.srv = srv
	logger.Log(core.LevelInfo, Tag, fmt.Sprintf("core started, api on %s", ln.Addr()))
	return nil
}

func (n *Node) stopLocked() error {
	if n.store == nil {
		return nil
	}
	var errs []error
	if n.bot != nil {
		errs = append(errs, n.stopBotLocked())
	}
	if n.srv != nil {
		errs = append(errs, n.srv.Close())
	}
	errs = append(errs, n.store.Close())
	n.store, n.srv, n.ln = nil, nil, nil
	n.logger.Log(core.LevelInfo, Tag, "core stopped")
	return errors.Join(errs...)
}

func (n *Node) stopBotLocked() error {
	err := n.bot.stop()
	n.bot = nil
	n.botRunning.Store(false)
	n.logger.Log(core.LevelInfo, Tag, "bot stopped")
	return err
}

func (n *Node) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Health{Status: "ok", BotRunning: n.botRunning.Load()})
}

// Health is the body served on GET /health of the core API listener.
type Health struct {
	Status     string `json:"status"`
	BotRunning bool   `json:"bot_running"`
}
