package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_StructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info().Str("wallet_id", "abc").Int64("balance", 2000).Msg("wallet created")

	var output map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output), "logger output should be valid JSON")

	assert.Equal(t, "wallet created", output["message"])
	assert.Equal(t, "abc", output["wallet_id"])
	assert.Equal(t, float64(2000), output["balance"])
	assert.Equal(t, "info", output["level"])
	assert.Contains(t, output, "time")
}

func TestNewWithWriter_Levels(t *testing.T) {
	tests := []struct {
		level     string
		logDebug  bool
		logInfo   bool
		logWarn   bool
		logErrors bool
	}{
		{"debug", true, true, true, true},
		{"info", false, true, true, true},
		{"warn", false, false, true, true},
		{"WARNING", false, false, true, true},
		{"error", false, false, false, true},
		{"bogus", false, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			emit := func(fn func(l zerolog.Logger)) bool {
				var buf bytes.Buffer
				fn(NewWithWriter(tt.level, &buf))
				return buf.Len() > 0
			}

			assert.Equal(t, tt.logDebug, emit(func(l zerolog.Logger) { l.Debug().Msg("d") }))
			assert.Equal(t, tt.logInfo, emit(func(l zerolog.Logger) { l.Info().Msg("i") }))
			assert.Equal(t, tt.logWarn, emit(func(l zerolog.Logger) { l.Warn().Msg("w") }))
			assert.Equal(t, tt.logErrors, emit(func(l zerolog.Logger) { l.Error().Msg("e") }))
		})
	}
}

func TestNew_PrettyMode(t *testing.T) {
	log := New("info", true, "wallet-service")
	log.Info().Msg("pretty mode test")
}

func TestNop_Discards(t *testing.T) {
	log := Nop()
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}
