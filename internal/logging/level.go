// Package logging provides the leveled logger shared by every
// execution context and the machinery that keeps its verbosity level
// synchronized across contexts.
package logging

// Level is a logging verbosity level. Higher is more verbose; OFF
// silences everything.
type Level int

const (
	// LevelOff silences all logging.
	LevelOff Level = iota
	// LevelError logs only errors.
	LevelError
	// LevelWarn logs warnings and errors.
	LevelWarn
	// LevelInfo logs general information. This is the default.
	LevelInfo
	// LevelDebug logs detailed debugging information.
	LevelDebug
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "OFF"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// valid reports whether l is a known level.
func (l Level) valid() bool {
	return l >= LevelOff && l <= LevelDebug
}

// ParseLevel parses a level name. Unrecognized names map to INFO.
func ParseLevel(s string) Level {
	switch s {
	case "off", "OFF":
		return LevelOff
	case "error", "ERROR":
		return LevelError
	case "warn", "WARN", "warning", "WARNING":
		return LevelWarn
	case "info", "INFO":
		return LevelInfo
	case "debug", "DEBUG":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// CoerceLevel converts an arbitrary payload value into a known level.
// Settings values and broadcast payloads arrive as any (often float64
// after a JSON round trip); anything unrecognized falls back to INFO.
func CoerceLevel(v any) Level {
	switch n := v.(type) {
	case Level:
		if n.valid() {
			return n
		}
	case int:
		if l := Level(n); l.valid() {
			return l
		}
	case int64:
		if l := Level(n); l.valid() {
			return l
		}
	case float64:
		if n == float64(int64(n)) {
			if l := Level(int64(n)); l.valid() {
				return l
			}
		}
	case string:
		return ParseLevel(n)
	}
	return LevelInfo
}
