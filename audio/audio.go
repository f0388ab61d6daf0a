// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"strings"
)

// SampleFormat is the in-memory layout of one sample as the output device
// consumes it.
type SampleFormat int

const (
	FormatInvalid SampleFormat = iota
	FormatInt16
	FormatInt24Packed
	FormatInt32
	FormatFloat32
)

// BytesPerSample returns the size of a single sample, or 0 for FormatInvalid.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatInt16:
		return 2
	case FormatInt24Packed:
		return 3
	case FormatInt32, FormatFloat32:
		return 4
	}

	return 0
}

func (f SampleFormat) String() string {
	switch f {
	case FormatInt16:
		return "int16"
	case FormatInt24Packed:
		return "int24-packed"
	case FormatInt32:
		return "int32"
	case FormatFloat32:
		return "float32"
	}

	return "invalid"
}

// Reader supplies contiguous PCM bytes to a data path.
type Reader interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// ChannelCount (e.g., 1=mono, 2=stereo).
	ChannelCount() int
	SampleFormat() SampleFormat
	// ReadAudioData fills dst and returns the number of bytes copied from the
	// file. A short count means end-of-stream; the rest of dst is zeroed.
	ReadAudioData(dst []byte) int
	IsOpen() bool

	// Close releases any resources.
	Close() error
}

// Usage tells the platform what the audio is for.
type Usage int

const (
	UsageMedia Usage = iota
	UsageVoiceCommunication
	UsageVoiceCommunicationSignalling
	UsageAlarm
	UsageNotification
	UsageRingtone
	UsageNotificationEvent
	UsageAccessibility
	UsageNavigationGuidance
	UsageSystemSonification
	UsageGame
	UsageAssistant
)

var usageNames = [...]string{
	UsageMedia:                        "MEDIA",
	UsageVoiceCommunication:           "VOICE_COMMUNICATION",
	UsageVoiceCommunicationSignalling: "VOICE_COMMUNICATION_SIGNALLING",
	UsageAlarm:                        "ALARM",
	UsageNotification:                 "NOTIFICATION",
	UsageRingtone:                     "RINGTONE",
	UsageNotificationEvent:            "NOTIFICATION_EVENT",
	UsageAccessibility:                "ACCESSIBILITY",
	UsageNavigationGuidance:           "NAVIGATION_GUIDANCE",
	UsageSystemSonification:           "SYSTEM_SONIFICATION",
	UsageGame:                         "GAME",
	UsageAssistant:                    "ASSISTANT",
}

// platform spellings that differ from the short names
var usageAliases = map[string]Usage{
	"NOTIFICATION_RINGTONE":          UsageRingtone,
	"ASSISTANCE_ACCESSIBILITY":       UsageAccessibility,
	"ASSISTANCE_NAVIGATION_GUIDANCE": UsageNavigationGuidance,
	"ASSISTANCE_SONIFICATION":        UsageSystemSonification,
}

func (u Usage) String() string {
	if u < 0 || int(u) >= len(usageNames) {
		return usageNames[UsageMedia]
	}

	return usageNames[u]
}

// ParseUsage accepts MEDIA as well as AAUDIO_USAGE_MEDIA. Unknown values
// fall back to UsageMedia.
func ParseUsage(s string) Usage {
	name := normalize(s, "AAUDIO_USAGE_", "USAGE_")
	for i, n := range usageNames {
		if n == name {
			return Usage(i)
		}
	}

	if u, ok := usageAliases[name]; ok {
		return u
	}

	return UsageMedia
}

// ContentType describes the kind of audio being played.
type ContentType int

const (
	ContentSpeech ContentType = iota
	ContentMusic
	ContentMovie
	ContentSonification
)

var contentTypeNames = [...]string{
	ContentSpeech:       "SPEECH",
	ContentMusic:        "MUSIC",
	ContentMovie:        "MOVIE",
	ContentSonification: "SONIFICATION",
}

func (c ContentType) String() string {
	if c < 0 || int(c) >= len(contentTypeNames) {
		return contentTypeNames[ContentMusic]
	}

	return contentTypeNames[c]
}

// ParseContentType falls back to ContentMusic for unknown values.
func ParseContentType(s string) ContentType {
	name := normalize(s, "AAUDIO_CONTENT_TYPE_", "CONTENT_TYPE_")
	for i, n := range contentTypeNames {
		if n == name {
			return ContentType(i)
		}
	}

	return ContentMusic
}

type PerformanceMode int

const (
	PerformanceLowLatency PerformanceMode = iota
	PerformancePowerSaving
)

func (p PerformanceMode) String() string {
	if p == PerformancePowerSaving {
		return "POWER_SAVING"
	}

	return "LOW_LATENCY"
}

// ParsePerformanceMode falls back to PerformanceLowLatency.
func ParsePerformanceMode(s string) PerformanceMode {
	if normalize(s, "AAUDIO_PERFORMANCE_MODE_", "PERFORMANCE_MODE_") == "POWER_SAVING" {
		return PerformancePowerSaving
	}

	return PerformanceLowLatency
}

type SharingMode int

const (
	SharingShared SharingMode = iota
	SharingExclusive
)

func (s SharingMode) String() string {
	if s == SharingExclusive {
		return "EXCLUSIVE"
	}

	return "SHARED"
}

// ParseSharingMode falls back to SharingShared.
func ParseSharingMode(s string) SharingMode {
	if normalize(s, "AAUDIO_SHARING_MODE_", "SHARING_MODE_") == "EXCLUSIVE" {
		return SharingExclusive
	}

	return SharingShared
}

// DefaultFilePath is played when no path was configured.
const DefaultFilePath = "/data/48k_2ch_16bit.wav"

// Configuration is what the host hands the engine before a start.
type Configuration struct {
	Usage           Usage
	ContentType     ContentType
	PerformanceMode PerformanceMode
	SharingMode     SharingMode
	AudioFilePath   string
}

// DefaultConfiguration mirrors the platform defaults.
func DefaultConfiguration() Configuration {
	return Configuration{
		Usage:           UsageMedia,
		ContentType:     ContentMusic,
		PerformanceMode: PerformanceLowLatency,
		SharingMode:     SharingShared,
		AudioFilePath:   DefaultFilePath,
	}
}

// ParseConfiguration builds a Configuration from the host's string values.
// An empty path keeps DefaultFilePath.
func ParseConfiguration(usage, contentType, performanceMode, sharingMode, path string) Configuration {
	cfg := Configuration{
		Usage:           ParseUsage(usage),
		ContentType:     ParseContentType(contentType),
		PerformanceMode: ParsePerformanceMode(performanceMode),
		SharingMode:     ParseSharingMode(sharingMode),
		AudioFilePath:   strings.TrimSpace(path),
	}
	if cfg.AudioFilePath == "" {
		cfg.AudioFilePath = DefaultFilePath
	}

	return cfg
}

func (c Configuration) String() string {
	return fmt.Sprintf("usage=%s content=%s performance=%s sharing=%s path=%s",
		c.Usage, c.ContentType, c.PerformanceMode, c.SharingMode, c.AudioFilePath)
}

func normalize(s string, prefixes ...string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return s[len(p):]
		}
	}

	return s
}
