// SPDX-License-Identifier: EPL-2.0

// Package config loads runtime settings from PCMOUT_* environment variables
// and reads JSON preset files of the form
//
//	{"configs": [{"usage": "AAUDIO_USAGE_GAME", "contentType": "...",
//	  "performanceMode": "...", "sharingMode": "...",
//	  "audioFilePath": "/data/tone.wav", "description": "Game"}]}
package config
