package daemon

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/corebridge/corebridge/internal/core"
)

const dialTimeout = 5 * time.Second

// Client communicates with a running daemon over its Unix socket. It
// implements core.Core so a bridge can drive a core living in the daemon.
type Client struct {
	SocketPath string
}

var _ core.Core = (*Client)(nil)

// NewClient returns a Client for the daemon listening on socketPath.
func NewClient(socketPath string) *Client {
	return &Client{SocketPath: socketPath}
}

// call sends a request and returns the response.
func (c *Client) call(req Request) (*Response, error) {
	req.ID = uuid.NewString()

	conn, err := net.DialTimeout("unix", c.SocketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon at %s: %w", c.SocketPath, err)
	}
	defer func() { _ = conn.Close() }()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	if !resp.OK {
		return nil, fmt.Errorf("daemon: %s", resp.Error)
	}
	return &resp, nil
}

// Status queries the daemon for its current state.
func (c *Client) Status() (*DaemonStatus, error) {
	resp, err := c.call(Request{Method: MethodStatus})
	if err != nil {
		return nil, err
	}
	return resp.State, nil
}

// Shutdown asks the daemon to gracefully shut down.
func (c *Client) Shutdown() error {
	_, err := c.call(Request{Method: MethodShutdown})
	return err
}

// Start starts the daemon's core on path. The daemon logs with its own
// logger, so logger is not used.
func (c *Client) Start(path string, _ core.Logger) error {
	_, err := c.call(Request{Method: MethodStart, Path: path})
	return err
}

// Restart restarts the daemon's core on path.
func (c *Client) Restart(path string) error {
	_, err := c.call(Request{Method: MethodRestart, Path: path})
	return err
}

// DropDatabase drops the core database under path.
func (c *Client) DropDatabase(path string) error {
	_, err := c.call(Request{Method: MethodDropDatabase, Path: path})
	return err
}

// GetPort returns the core's API port.
func (c *Client) GetPort() (int64, error) {
	resp, err := c.call(Request{Method: MethodPort})
	if err != nil {
		return 0, err
	}
	return resp.Port, nil
}

// GetNetworkConfig returns the core's encoded network config.
func (c *Client) GetNetworkConfig() (string, error) {
	resp, err := c.call(Request{Method: MethodGetNetworkConfig})
	if err != nil {
		return "", err
	}
	return resp.Config, nil
}

// UpdateNetworkConfig sends config to the core unchanged.
func (c *Client) UpdateNetworkConfig(config string) error {
	_, err := c.call(Request{Method: MethodUpdateNetworkConfig, Config: config})
	return err
}

// IsBotRunning reports the bot status. An unreachable daemon reads as not
// running.
func (c *Client) IsBotRunning() bool {
	resp, err := c.call(Request{Method: MethodBotRunning})
	if err != nil {
		return false
	}
	return resp.Running
}

// StartBot starts the core's bot.
func (c *Client) StartBot() error {
	_, err := c.call(Request{Method: MethodStartBot})
	return err
}

// StopBot stops the core's bot.
func (c *Client) StopBot() error {
	_, err := c.call(Request{Method: MethodStopBot})
	return err
}

// IsRunning returns true if the daemon socket is connectable.
func (c *Client) IsRunning() bool {
	conn, err := net.DialTimeout("unix", c.SocketPath, time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// WaitForReady polls the daemon socket until it accepts a status request
// or the timeout expires.
func (c *Client) WaitForReady(timeout time.Duration) error {
	deadline := time.After(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return fmt.Errorf("daemon not ready within %s", timeout)
		case <-ticker.C:
			if _, err := c.Status(); err == nil {
				return nil
			}
		}
	}
}

// RemoveStaleSocket removes a socket file if it exists.
func RemoveStaleSocket(sockPath string) {
	_ = os.Remove(sockPath)
}
