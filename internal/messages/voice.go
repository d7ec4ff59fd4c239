package messages

import "gia/internal/core/model"

// Voice holds speech parameters relative to the platform default (1.0).
type Voice struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

// VoiceProfile returns the speech parameters for a tone.
func VoiceProfile(tone model.Tone) Voice {
	switch model.ParseTone(string(tone)) {
	case model.ToneMindful:
		return Voice{Rate: 0.85, Pitch: 0.9, Volume: 0.8}
	case model.ToneGoofy:
		return Voice{Rate: 1.0, Pitch: 1.1, Volume: 0.9}
	default:
		return Voice{Rate: 1.0, Pitch: 1.0, Volume: 1.0}
	}
}
