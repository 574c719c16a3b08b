package logging

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel(" warning "))
	require.Equal(t, zerolog.Disabled, ParseLevel("off"))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "info", FormatJSON, "codepilot")

	log.Debug().Msg("hidden")
	log.Info().Str("k", "v").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "codepilot", entry["service"])
	require.Equal(t, "shown", entry["message"])
	require.Equal(t, "v", entry["k"])
	require.Contains(t, entry, "time")
}

func TestNewWriterConsole(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "info", FormatConsole, "codepilot")
	log.Info().Msg("hello")
	require.Contains(t, buf.String(), "hello")
	require.NotContains(t, buf.String(), `"message"`)
}

func TestNewWriterConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var buf bytes.Buffer
			log := NewWriter(&buf, "info", FormatJSON, "codepilot")
			log.Info().Msg("x")
		}()
	}
	wg.Wait()

	require.Equal(t, time.RFC3339, zerolog.TimeFieldFormat)
}
