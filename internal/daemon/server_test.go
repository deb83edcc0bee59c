package daemon

import (
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/corebridge/corebridge/internal/core"
	"github.com/corebridge/corebridge/internal/metrics"
)

// MockHandler implements the Handler interface for testing.
type MockHandler struct {
	status     *DaemonStatus
	shutdownCh chan struct{}
}

func (h *MockHandler) HandleStatus() *DaemonStatus {
	return h.status
}

func (h *MockHandler) HandleShutdown() {
	if h.shutdownCh != nil {
		select {
		case h.shutdownCh <- struct{}{}:
		default:
		}
	}
}

// MockCore implements core.Core, recording the arguments it receives.
type MockCore struct {
	mu      sync.Mutex
	err     error
	paths   []string
	config  string
	port    int64
	bot     bool
	started bool
}

func (c *MockCore) record(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path != "" {
		c.paths = append(c.paths, path)
	}
	return c.err
}

func (c *MockCore) Start(path string, _ core.Logger) error {
	if err := c.record(path); err != nil {
		return err
	}
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	return nil
}
func (c *MockCore) Restart(path string) error { return c.record(path) }
func (c *MockCore) DropDatabase(path string) error { return c.record(path) }
func (c *MockCore) GetPort() (int64, error) {
	if err := c.record(""); err != nil {
		return 0, err
	}
	return c.port, nil
}
func (c *MockCore) GetNetworkConfig() (string, error) {
	if err := c.record(""); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config, nil
}
func (c *MockCore) UpdateNetworkConfig(cfg string) error {
	if err := c.record(""); err != nil {
		return err
	}
	c.mu.Lock()
	c.config = cfg
	c.mu.Unlock()
	return nil
}
func (c *MockCore) IsBotRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bot
}
func (c *MockCore) StartBot() error {
	if err := c.record(""); err != nil {
		return err
	}
	c.mu.Lock()
	c.bot = true
	c.mu.Unlock()
	return nil
}
func (c *MockCore) StopBot() error {
	if err := c.record(""); err != nil {
		return err
	}
	c.mu.Lock()
	c.bot = false
	c.mu.Unlock()
	return nil
}

func startTestServer(t *testing.T, handler Handler, c core.Core, opts ...ServerOption) *Client {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "test.sock")
	srv := NewServer(sockPath, handler, c, opts...)
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(srv.Stop)
	return &Client{SocketPath: sockPath}
}

func TestServerHandlesStatus(t *testing.T) {
	handler := &MockHandler{
		status: &DaemonStatus{PID: 9999, Version: "v1.2.3"},
	}
	c := startTestServer(t, handler, &MockCore{})

	status, err := c.Status()
	if err != nil {
		t.Fatal(err)
	}
	if status.PID != 9999 {
		t.Errorf("PID = %d, want 9999", status.PID)
	}
	if status.Version != "v1.2.3" {
		t.Errorf("Version = %q, want v1.2.3", status.Version)
	}
}

func TestServerHandlesShutdown(t *testing.T) {
	handler := &MockHandler{
		status:     &DaemonStatus{PID: 1},
		shutdownCh: make(chan struct{}, 1),
	}
	c := startTestServer(t, handler, &MockCore{})

	if err := c.Shutdown(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-handler.shutdownCh:
	case <-time.After(time.Second):
		t.Fatal("shutdown was not called")
	}
}

func TestServerRejectsUnknownMethod(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	srv := NewServer(sockPath, &MockHandler{status: &DaemonStatus{}}, &MockCore{})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop()

	// Send raw request with unknown method.
	conn, err := net.DialTimeout("unix", sockPath, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	_ = json.NewEncoder(conn).Encode(Request{ID: "abc", Method: "core.reboot"})
	var resp Response
	_ = json.NewDecoder(conn).Decode(&resp)
	if resp.OK {
		t.Error("expected error response for unknown method")
	}
	if resp.ID != "abc" {
		t.Errorf("ID = %q, want echoed %q", resp.ID, "abc")
	}
}

func TestServerRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	srv := NewServer(sockPath, &MockHandler{status: &DaemonStatus{}}, &MockCore{})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop()

	conn, err := net.DialTimeout("unix", sockPath, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	_, _ = conn.Write([]byte("{not json\n"))
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.OK || resp.Error != "invalid request" {
		t.Errorf("resp = %+v, want invalid request", resp)
	}
}

func TestServerCleanupSocket(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	srv := NewServer(sockPath, &MockHandler{status: &DaemonStatus{}}, &MockCore{})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	srv.Stop()

	// Socket file should be removed.
	conn, err := net.DialTimeout("unix", sockPath, 100*time.Millisecond)
	if err == nil {
		_ = conn.Close()
		t.Error("socket should not be connectable after Stop")
	}
}

func TestServerSocketPermissions(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	srv := NewServer(sockPath, &MockHandler{status: &DaemonStatus{}}, &MockCore{})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop()

	info, err := os.Stat(sockPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket mode = %o, want 600", perm)
	}
}

func TestServerForwardsCoreCalls(t *testing.T) {
	mc := &MockCore{port: 8080, config: `{"dht":"client"}`}
	c := startTestServer(t, &MockHandler{status: &DaemonStatus{}}, mc)

	const files = "/data/user/0/app/files"
	if err := c.Start(files, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Restart(files); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if err := c.DropDatabase(files); err != nil {
		t.Fatalf("DropDatabase: %v", err)
	}
	port, err := c.GetPort()
	if err != nil || port != 8080 {
		t.Errorf("GetPort = %d, %v; want 8080", port, err)
	}
	if err := c.UpdateNetworkConfig(`{"dht":"server"}`); err != nil {
		t.Fatalf("UpdateNetworkConfig: %v", err)
	}
	cfg, err := c.GetNetworkConfig()
	if err != nil || cfg != `{"dht":"server"}` {
		t.Errorf("GetNetworkConfig = %q, %v", cfg, err)
	}
	if c.IsBotRunning() {
		t.Error("IsBotRunning = true before StartBot")
	}
	if err := c.StartBot(); err != nil {
		t.Fatalf("StartBot: %v", err)
	}
	if !c.IsBotRunning() {
		t.Error("IsBotRunning = false after StartBot")
	}
	if err := c.StopBot(); err != nil {
		t.Fatalf("StopBot: %v", err)
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if len(mc.paths) != 3 {
		t.Fatalf("core saw %d paths, want 3", len(mc.paths))
	}
	for _, p := range mc.paths {
		if p != files {
			t.Errorf("path = %q, want %q", p, files)
		}
	}
}

func TestServerReportsCoreErrors(t *testing.T) {
	mc := &MockCore{err: errors.New("database is locked")}
	c := startTestServer(t, &MockHandler{status: &DaemonStatus{}}, mc)

	err := c.Start("/tmp/files", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "database is locked") {
		t.Errorf("error %q does not carry core message", err)
	}
	if _, err := c.GetPort(); err == nil {
		t.Error("GetPort succeeded, want error")
	}
}

func TestServerCountsCoreCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, "daemon")
	if err != nil {
		t.Fatal(err)
	}
	mc := &MockCore{port: 1}
	c := startTestServer(t, &MockHandler{status: &DaemonStatus{}}, mc, WithMetrics(m))

	_, _ = c.GetPort()
	_, _ = c.GetPort()
	mc.mu.Lock()
	mc.err = errors.New("boom")
	mc.mu.Unlock()
	_ = c.StartBot()

	if got := testutil.ToFloat64(m.Count(MethodPort, metrics.OutcomeOK)); got != 2 {
		t.Errorf("core.port ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Count(MethodStartBot, metrics.OutcomeError)); got != 1 {
		t.Errorf("core.bot.start error = %v, want 1", got)
	}
}

func TestFullRoundTrip(t *testing.T) {
	shutdownCh := make(chan struct{}, 1)
	handler := &MockHandler{
		status:     &DaemonStatus{PID: os.Getpid(), BotRunning: true},
		shutdownCh: shutdownCh,
	}
	client := startTestServer(t, handler, &MockCore{})

	// WaitForReady should succeed immediately.
	if err := client.WaitForReady(time.Second); err != nil {
		t.Fatalf("WaitForReady: %v", err)
	}

	// IsRunning should be true.
	if !client.IsRunning() {
		t.Error("IsRunning = false, want true")
	}

	// Status should work.
	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", status.PID, os.Getpid())
	}
	if !status.BotRunning {
		t.Error("BotRunning = false, want true")
	}

	// Shutdown should work.
	if err := client.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	select {
	case <-shutdownCh:
	case <-time.After(time.Second):
		t.Fatal("shutdown handler not called")
	}
}
