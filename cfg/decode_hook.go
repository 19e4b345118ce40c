package cfg

import "github.com/mitchellh/mapstructure"

// DecodeHook lets viper.Unmarshal populate the TextUnmarshaler types above
// (CoverMode, LogSeverity, LogFormat, Octal) from plain strings in a YAML
// config file or flag value, the way the teacher's own DecodeHook does for
// its generated config types.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}
