package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/corebridge/corebridge/internal/logging"
	"github.com/corebridge/corebridge/internal/metrics"
	"github.com/corebridge/corebridge/internal/node"
	"github.com/corebridge/corebridge/internal/version"
)

const metricsShutdownTimeout = 5 * time.Second

// Config holds everything the daemon needs to start.
type Config struct {
	SocketPath  string
	ListenAddr  string        // core API listener, "" for 127.0.0.1:0
	BotInterval time.Duration // 0 for the node default
	MetricsAddr string        // "" disables the metrics endpoint
	Logger      *logging.Logger
}

// Run hosts a core behind the IPC socket and blocks until ctx ends, a
// signal arrives or a client asks for shutdown.
func Run(ctx context.Context, cfg Config) error {
	// Ignore SIGHUP so the daemon survives terminal close.
	signal.Ignore(syscall.SIGHUP)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(os.Stderr, "info")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg, "daemon")
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	n := node.New(node.Options{ListenAddr: cfg.ListenAddr, BotInterval: cfg.BotInterval})
	defer func() {
		if err := n.Close(); err != nil {
			logger.Errorf("close core: %v", err)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	d := &daemonHandler{
		startedAt:   time.Now(),
		core:        n,
		metricsAddr: cfg.MetricsAddr,
		cancel:      cancel,
	}
	srv := NewServer(cfg.SocketPath, d, n, WithMetrics(m), WithLogger(logger))
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer srv.Stop()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.MetricsAddr, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		hs := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := hs.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer scancel()
			return hs.Shutdown(sctx)
		})
		logger.Printf("metrics on http://%s/metrics", ln.Addr())
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	logger.Printf("daemon ready on %s (PID %d)", cfg.SocketPath, os.Getpid())
	err = g.Wait()
	logger.Printf("shutting down...")
	return err
}

// daemonHandler implements Handler for the IPC server.
type daemonHandler struct {
	startedAt   time.Time
	core        *node.Node
	metricsAddr string
	cancel      context.CancelFunc
}

func (d *daemonHandler) HandleStatus() *DaemonStatus {
	return &DaemonStatus{
		PID:         os.Getpid(),
		StartedAt:   d.startedAt,
		Version:     version.Version,
		BotRunning:  d.core.IsBotRunning(),
		MetricsAddr: d.metricsAddr,
	}
}

func (d *daemonHandler) HandleShutdown() {
	d.cancel()
}
