// SPDX-License-Identifier: EPL-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/pcmout/audio"
)

const presetJSON = `{
  "configs": [
    {
      "usage": "AAUDIO_USAGE_GAME",
      "contentType": "AAUDIO_CONTENT_TYPE_SONIFICATION",
      "performanceMode": "AAUDIO_PERFORMANCE_MODE_LOW_LATENCY",
      "sharingMode": "AAUDIO_SHARING_MODE_EXCLUSIVE",
      "audioFilePath": "/data/game.wav",
      "description": "Game - Low Latency"
    },
    {
      "usage": "VOICE_COMMUNICATION"
    }
  ]
}`

func writePresets(t *testing.T, data string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "presets.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	return path
}

func TestLoadPresets(t *testing.T) {
	t.Parallel()

	presets, err := LoadPresets(writePresets(t, presetJSON))
	require.NoError(t, err)
	require.Len(t, presets, 2)

	assert.Equal(t, "Game - Low Latency", presets[0].Description)
	assert.Equal(t, audio.Configuration{
		Usage:           audio.UsageGame,
		ContentType:     audio.ContentSonification,
		PerformanceMode: audio.PerformanceLowLatency,
		SharingMode:     audio.SharingExclusive,
		AudioFilePath:   "/data/game.wav",
	}, presets[0].Configuration())

	// missing fields take the custom defaults
	assert.Equal(t, Preset{
		Usage:           "VOICE_COMMUNICATION",
		ContentType:     "AAUDIO_CONTENT_TYPE_MUSIC",
		PerformanceMode: "AAUDIO_PERFORMANCE_MODE_LOW_LATENCY",
		SharingMode:     "AAUDIO_SHARING_MODE_SHARED",
		AudioFilePath:   audio.DefaultFilePath,
		Description:     "Custom Configuration",
	}, presets[1])
}

func TestLoadPresets_Fallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path func(t *testing.T) string
		kind error
	}{
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.json") }, audio.ErrIO},
		{"bad json", func(t *testing.T) string { return writePresets(t, "{configs") }, nil},
		{"empty", func(t *testing.T) string { return writePresets(t, `{"configs": []}`) }, ErrNoPresets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			presets, err := LoadPresets(tt.path(t))
			require.Error(t, err)
			if tt.kind != nil {
				assert.ErrorIs(t, err, tt.kind)
			}
			assert.Equal(t, []Preset{FallbackPreset()}, presets)
		})
	}
}

func TestConfig_Apply(t *testing.T) {
	t.Parallel()

	cfg := Config{Mode: "push", Backend: "oto"}
	cfg.Apply(FallbackPreset())

	assert.Equal(t, audio.Configuration{
		Usage:           audio.UsageMedia,
		ContentType:     audio.ContentMusic,
		PerformanceMode: audio.PerformancePowerSaving,
		SharingMode:     audio.SharingShared,
		AudioFilePath:   audio.DefaultFilePath,
	}, cfg.Configuration())
	assert.Equal(t, "push", cfg.Mode)
}
