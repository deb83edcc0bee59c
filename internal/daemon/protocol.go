package daemon

import "time"

// Methods understood by the daemon.
const (
	MethodStatus              = "status"
	MethodShutdown            = "shutdown"
	MethodStart               = "core.start"
	MethodRestart             = "core.restart"
	MethodDropDatabase        = "core.drop_database"
	MethodPort                = "core.port"
	MethodGetNetworkConfig    = "core.network_config.get"
	MethodUpdateNetworkConfig = "core.network_config.update"
	MethodBotRunning          = "core.bot.running"
	MethodStartBot            = "core.bot.start"
	MethodStopBot             = "core.bot.stop"
)

// Request is sent from a client to the daemon over the Unix socket. One
// request per connection.
type Request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Path   string `json:"path,omitempty"`   // files dir for core.start, core.restart, core.drop_database
	Config string `json:"config,omitempty"` // payload for core.network_config.update
}

// Response is sent from the daemon back to the client.
type Response struct {
	ID      string        `json:"id"`
	OK      bool          `json:"ok"`
	Error   string        `json:"error,omitempty"`
	Port    int64         `json:"port,omitempty"`
	Config  string        `json:"config,omitempty"`
	Running bool          `json:"running,omitempty"`
	State   *DaemonStatus `json:"state,omitempty"`
}

// DaemonStatus is the live state returned by the "status" method.
type DaemonStatus struct {
	PID         int       `json:"pid"`
	StartedAt   time.Time `json:"started_at"`
	Version     string    `json:"version"`
	BotRunning  bool      `json:"bot_running"`
	MetricsAddr string    `json:"metrics_addr,omitempty"`
}
