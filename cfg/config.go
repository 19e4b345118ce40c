// Package cfg holds the mount configuration record: the explicit,
// recognized-options replacement for the source's dynamic attribute checks
// (spec.md §9), bound from flags and an optional YAML file the way the
// teacher's generated cfg package binds its own flags.
package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full set of recognized mount-time options.
type Config struct {
	Root string `yaml:"root"`

	FileSystem FileSystemConfig `yaml:"file-system"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// FileSystemConfig covers §4.5/§6's readdir policy and reserved-name mode
// bits.
type FileSystemConfig struct {
	CoverMode     CoverMode `yaml:"cover-mode"`
	MaxDirEntries uint32    `yaml:"max-dir-entries"`
	DirMode       Octal     `yaml:"dir-mode"`
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Severity LogSeverity `yaml:"severity"`
	Format   LogFormat   `yaml:"format"`
}

// DefaultConfig returns the stated defaults from spec.md §9/§6.
func DefaultConfig() Config {
	return Config{
		Root: "/",
		FileSystem: FileSystemConfig{
			CoverMode:     CoverDefault,
			MaxDirEntries: 210,
			DirMode:       Octal(0757),
		},
		Logging: LoggingConfig{
			Severity: InfoLogSeverity,
			Format:   LogFormatText,
		},
	}
}

// BindFlags registers every Config field as a flag and binds it into
// viper, in the teacher's generated-binding style.
func BindFlags(flagSet *pflag.FlagSet) error {
	def := DefaultConfig()

	flagSet.StringP("root", "", def.Root, "Backing directory where the persisted state and opaque files live.")
	if err := viper.BindPFlag("root", flagSet.Lookup("root")); err != nil {
		return err
	}

	flagSet.StringP("cover-mode", "", string(def.FileSystem.CoverMode), "Readdir cover-listing policy: never, default, or always.")
	if err := viper.BindPFlag("file-system.cover-mode", flagSet.Lookup("cover-mode")); err != nil {
		return err
	}

	flagSet.Uint32P("max-dir-entries", "", def.FileSystem.MaxDirEntries, "Entry-count threshold above which readdir falls back to cover mode.")
	if err := viper.BindPFlag("file-system.max-dir-entries", flagSet.Lookup("max-dir-entries")); err != nil {
		return err
	}

	dirMode, _ := def.FileSystem.DirMode.MarshalText()
	flagSet.StringP("dir-mode", "", string(dirMode), "Octal permission bits for newly created tag directories.")
	if err := viper.BindPFlag("file-system.dir-mode", flagSet.Lookup("dir-mode")); err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", string(def.Logging.Severity), "Minimum severity logged: TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")
	if err := viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-format", "", string(def.Logging.Format), "Log output format: text or json.")
	if err := viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	return nil
}
