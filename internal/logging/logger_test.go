package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info").Info().Str("plugin", "dock").Msg("engine ready")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "engine ready", line["message"])
	assert.Equal(t, "dock", line["plugin"])
	assert.Equal(t, "info", line["level"])
}

func TestNew_NilWriter(t *testing.T) {
	require.NotNil(t, New(nil, "silent"))
}

func TestNewStyled(t *testing.T) {
	for _, style := range []string{"pretty", "compact", "json", ""} {
		t.Run(style, func(t *testing.T) {
			require.NotNil(t, NewStyled(style, "silent"))
		})
	}
}

func TestSubAndPlugin(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug")

	log.Sub("plugins").Plugin("dock").Info().Msg("loaded")
	out := buf.String()
	assert.Contains(t, out, `"subsystem":"plugins"`)
	assert.Contains(t, out, `"plugin":"dock"`)
}

func TestLevels_Filter(t *testing.T) {
	emitAll := func(l *Logger) {
		l.Debug().Msg("d")
		l.Info().Msg("i")
		l.Warn().Msg("w")
		l.Error().Msg("e")
	}

	tests := []struct {
		level string
		lines int
	}{
		{"debug", 4},
		{"info", 3},
		{"", 3},
		{"warn", 2},
		{"error", 1},
		{"silent", 0},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			emitAll(New(&buf, tt.level))
			assert.Equal(t, tt.lines, bytes.Count(buf.Bytes(), []byte("\n")))
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.FatalLevel, parseLevel("fatal"))
	assert.Equal(t, zerolog.Disabled, parseLevel("silent"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("verbose"))
	// Config lowercases EINA_LOG_LEVEL; the parser itself does not.
	assert.Equal(t, zerolog.InfoLevel, parseLevel("WARN"))
}
