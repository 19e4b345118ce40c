package cfg

import (
	"fmt"
	"strconv"
	"strings"
)

// Octal is the datatype for params such as dir-mode which accept a
// base-8 value.
type Octal int

func (o *Octal) UnmarshalText(text []byte) error {
	v, err := strconv.ParseInt(string(text), 8, 32)
	if err != nil {
		return err
	}
	*o = Octal(v)
	return nil
}

func (o Octal) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(o), 8)), nil
}

// CoverMode is the datatype for the --cover-mode diagnostic flag: it
// overrides the FS handler's readdir policy (spec §4.5).
type CoverMode string

const (
	CoverNever   CoverMode = "never"
	CoverDefault CoverMode = "default"
	CoverAlways  CoverMode = "always"
)

func (m *CoverMode) UnmarshalText(text []byte) error {
	v := CoverMode(strings.ToLower(string(text)))
	switch v {
	case CoverNever, CoverDefault, CoverAlways:
		*m = v
		return nil
	default:
		return fmt.Errorf("invalid cover-mode value: %q, must be one of never, default, always", text)
	}
}

func (m CoverMode) MarshalText() ([]byte, error) {
	return []byte(m), nil
}

// LogSeverity mirrors internal/logger.Severity as a string so it can be
// bound as a pflag/viper value and round-tripped through YAML.
type LogSeverity string

const (
	TraceLogSeverity   LogSeverity = "TRACE"
	DebugLogSeverity   LogSeverity = "DEBUG"
	InfoLogSeverity    LogSeverity = "INFO"
	WarningLogSeverity LogSeverity = "WARNING"
	ErrorLogSeverity   LogSeverity = "ERROR"
	OffLogSeverity     LogSeverity = "OFF"
)

var severityRanking = map[LogSeverity]int{
	TraceLogSeverity:   0,
	DebugLogSeverity:   1,
	InfoLogSeverity:    2,
	WarningLogSeverity: 3,
	ErrorLogSeverity:   4,
	OffLogSeverity:     5,
}

func (l *LogSeverity) UnmarshalText(text []byte) error {
	level := LogSeverity(strings.ToUpper(string(text)))
	if _, ok := severityRanking[level]; !ok {
		return fmt.Errorf("invalid log severity level: %s. Must be one of [TRACE, DEBUG, INFO, WARNING, ERROR, OFF]", text)
	}
	*l = level
	return nil
}

// LogFormat selects the slog handler used by internal/logger.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

func (f *LogFormat) UnmarshalText(text []byte) error {
	v := LogFormat(strings.ToLower(string(text)))
	if v != LogFormatText && v != LogFormatJSON {
		return fmt.Errorf("invalid log format: %q, must be text or json", text)
	}
	*f = v
	return nil
}
