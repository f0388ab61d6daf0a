// SPDX-License-Identifier: EPL-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ik5/pcmout/audio"
)

var ErrNoPresets = errors.New("config: preset file has no configs")

// Preset is one named configuration from a preset file.
type Preset struct {
	Usage           string `json:"usage"`
	ContentType     string `json:"contentType"`
	PerformanceMode string `json:"performanceMode"`
	SharingMode     string `json:"sharingMode"`
	AudioFilePath   string `json:"audioFilePath"`
	Description     string `json:"description"`
}

type presetFile struct {
	Configs []Preset `json:"configs"`
}

// FallbackPreset is used when no preset file can be read.
func FallbackPreset() Preset {
	return Preset{
		Usage:           "AAUDIO_USAGE_MEDIA",
		ContentType:     "AAUDIO_CONTENT_TYPE_MUSIC",
		PerformanceMode: "AAUDIO_PERFORMANCE_MODE_POWER_SAVING",
		SharingMode:     "AAUDIO_SHARING_MODE_SHARED",
		AudioFilePath:   audio.DefaultFilePath,
		Description:     "Emergency Fallback - Media Playback",
	}
}

// LoadPresets reads the preset file at path. Missing fields get the
// defaults of a custom entry. On any error the single fallback preset is
// returned together with the error, so callers always have something to
// offer.
func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return []Preset{FallbackPreset()}, errors.Join(audio.ErrIO, err)
	}

	presets, err := ParsePresets(data)
	if err != nil {
		return []Preset{FallbackPreset()}, fmt.Errorf("%s: %w", path, err)
	}

	return presets, nil
}

func ParsePresets(data []byte) ([]Preset, error) {
	var f presetFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: decode presets: %w", err)
	}

	if len(f.Configs) == 0 {
		return nil, ErrNoPresets
	}

	for i := range f.Configs {
		f.Configs[i].fillDefaults()
	}

	return f.Configs, nil
}

func (p *Preset) fillDefaults() {
	if p.Usage == "" {
		p.Usage = "AAUDIO_USAGE_MEDIA"
	}
	if p.ContentType == "" {
		p.ContentType = "AAUDIO_CONTENT_TYPE_MUSIC"
	}
	if p.PerformanceMode == "" {
		p.PerformanceMode = "AAUDIO_PERFORMANCE_MODE_LOW_LATENCY"
	}
	if p.SharingMode == "" {
		p.SharingMode = "AAUDIO_SHARING_MODE_SHARED"
	}
	if p.AudioFilePath == "" {
		p.AudioFilePath = audio.DefaultFilePath
	}
	if p.Description == "" {
		p.Description = "Custom Configuration"
	}
}

func (p Preset) Configuration() audio.Configuration {
	return audio.ParseConfiguration(p.Usage, p.ContentType, p.PerformanceMode, p.SharingMode, p.AudioFilePath)
}

// Apply copies the preset's stream attributes over c.
func (c *Config) Apply(p Preset) {
	c.Usage = p.Usage
	c.ContentType = p.ContentType
	c.PerformanceMode = p.PerformanceMode
	c.SharingMode = p.SharingMode
	c.File = p.AudioFilePath
}
