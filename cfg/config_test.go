package cfg

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ConfigTest struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTest))
}

func (t *ConfigTest) SetupTest() {
	viper.Reset()
}

func (t *ConfigTest) TestBindFlagsThenUnmarshalYieldsDefaults() {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t.T(), BindFlags(fs))
	require.NoError(t.T(), fs.Parse(nil))

	var c Config
	require.NoError(t.T(), viper.Unmarshal(&c, viper.DecodeHook(DecodeHook())))

	assert.Equal(t.T(), "/", c.Root)
	assert.Equal(t.T(), CoverDefault, c.FileSystem.CoverMode)
	assert.Equal(t.T(), uint32(210), c.FileSystem.MaxDirEntries)
	assert.Equal(t.T(), InfoLogSeverity, c.Logging.Severity)
}

func (t *ConfigTest) TestOverrideCoverMode() {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t.T(), BindFlags(fs))
	require.NoError(t.T(), fs.Parse([]string{"--cover-mode=always"}))

	var c Config
	require.NoError(t.T(), viper.Unmarshal(&c, viper.DecodeHook(DecodeHook())))

	assert.Equal(t.T(), CoverAlways, c.FileSystem.CoverMode)
}

func (t *ConfigTest) TestInvalidCoverModeRejected() {
	var m CoverMode
	assert.Error(t.T(), m.UnmarshalText([]byte("sometimes")))
}
