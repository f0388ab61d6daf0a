// SPDX-License-Identifier: EPL-2.0

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/pcmout/audio"
	"github.com/ik5/pcmout/output"
	"github.com/ik5/pcmout/probe"
)

// DefaultPresetsPath is where preset files are looked up on a device.
const DefaultPresetsPath = "/data/aaudio_player_configs.json"

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Stream attributes, kept as strings so that both AAUDIO_ prefixed and
	// bare names are accepted.
	File            string
	Usage           string
	ContentType     string
	PerformanceMode string
	SharingMode     string

	Mode    string // pull or push
	Backend string // oto or portaudio

	LatencyProbe  bool
	GPIO          string
	ProbeInterval int // buffers per toggle

	StopTimeout time.Duration
	LogLevel    string
	Presets     string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		File:            envStr("PCMOUT_FILE", audio.DefaultFilePath),
		Usage:           envStr("PCMOUT_USAGE", "MEDIA"),
		ContentType:     envStr("PCMOUT_CONTENT_TYPE", "MUSIC"),
		PerformanceMode: envStr("PCMOUT_PERFORMANCE_MODE", "LOW_LATENCY"),
		SharingMode:     envStr("PCMOUT_SHARING_MODE", "SHARED"),

		Mode:    envStr("PCMOUT_MODE", "pull"),
		Backend: envStr("PCMOUT_BACKEND", "oto"),

		LatencyProbe:  envBool("PCMOUT_LATENCY_PROBE", false),
		GPIO:          envStr("PCMOUT_GPIO", probe.DefaultGPIOPath),
		ProbeInterval: envInt("PCMOUT_PROBE_INTERVAL", probe.DefaultInterval),

		StopTimeout: envDuration("PCMOUT_STOP_TIMEOUT", 60*time.Second),
		LogLevel:    envStr("PCMOUT_LOG_LEVEL", "info"),
		Presets:     envStr("PCMOUT_PRESETS", DefaultPresetsPath),
	}
}

// Configuration converts the stream attributes into the engine's form.
func (c Config) Configuration() audio.Configuration {
	return audio.ParseConfiguration(c.Usage, c.ContentType, c.PerformanceMode, c.SharingMode, c.File)
}

func (c Config) DataPath() output.DataPath { return output.ParseDataPath(c.Mode) }

// Level parses LogLevel, falling back to info.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}

	return lvl
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("90s") and plain seconds ("90").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	if d, err := time.ParseDuration(v); err == nil {
		return d
	}

	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}

	return fallback
}
