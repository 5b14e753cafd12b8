package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Level(t *testing.T) {
	cases := []struct {
		name  string
		level string
		debug bool
		info  bool
	}{
		{name: "debug", level: "debug", debug: true, info: true},
		{name: "upper_case", level: " WARN ", debug: false, info: false},
		{name: "garbage_falls_back_to_info", level: "loud", debug: false, info: true},
		{name: "empty_is_info", level: "", debug: false, info: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := NewLogger(tc.level)
			require.NoError(t, err)
			assert.Equal(t, tc.debug, l.Core().Enabled(zapcore.DebugLevel))
			assert.Equal(t, tc.info, l.Core().Enabled(zapcore.InfoLevel))
		})
	}
	assert.NotNil(t, InfoLogger)
	assert.NotNil(t, FatalLogger)
}

func TestSetServiceName(t *testing.T) {
	old := SetServiceName("dash")
	defer SetServiceName(old)
	assert.Equal(t, "dash", serviceName)
}
