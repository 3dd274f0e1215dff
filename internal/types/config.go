package types

type RunMode string

const (
	// ModeLocal runs the event gateway, the settlement scheduler and the operator API in one process
	ModeLocal RunMode = "local"
	// ModeConsumer runs the event gateway and the contract FSM behind it, with the operator API but no settlement trigger
	ModeConsumer RunMode = "consumer"
	// ModeScheduler runs the settlement scheduler, scanner, processor and the operator API
	ModeScheduler RunMode = "scheduler"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
