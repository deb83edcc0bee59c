// Package core defines the contract between the bridge and the process that
// owns networking, storage and the bot.
package core

// Level is the severity of a diagnostic log entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Logger records diagnostic messages. Implementations must be safe for
// concurrent use.
type Logger interface {
	Log(level Level, tag, msg string)
}

// Core is the set of calls the bridge forwards to. Every call except
// IsBotRunning may fail.
type Core interface {
	Start(path string, logger Logger) error
	Restart(path string) error
	DropDatabase(path string) error
	GetPort() (int64, error)
	GetNetworkConfig() (string, error)
	UpdateNetworkConfig(config string) error
	IsBotRunning() bool
	StartBot() error
	StopBot() error
}

// Discard is a Logger that drops everything.
var Discard Logger = discard{}

type discard struct{}

func (discard) Log(Level, string, string) {}
