package ui

import "github.com/rs/zerolog"

// Sound is a short cue for whisper channel changes.
type Sound int

const (
	SoundNone Sound = iota
	// SoundEnter plays when a whisper session starts.
	SoundEnter
	// SoundExit plays when a whisper session ends or lead is lost.
	SoundExit
)

func (s Sound) String() string {
	switch s {
	case SoundEnter:
		return "enter"
	case SoundExit:
		return "exit"
	default:
		return "none"
	}
}

// SoundPlayer plays cues asynchronously.
type SoundPlayer struct {
	enabled bool
	log     zerolog.Logger
	play    func(Sound) error
}

func NewSoundPlayer(enabled bool, log zerolog.Logger) *SoundPlayer {
	return &SoundPlayer{enabled: enabled, log: log, play: platformPlay}
}

// Play starts s and returns immediately.
func (p *SoundPlayer) Play(s Sound) {
	if p == nil || !p.enabled || s == SoundNone {
		return
	}
	go func() {
		if err := p.play(s); err != nil {
			p.log.Debug().Err(err).Str("sound", s.String()).Msg("Could not play sound")
		}
	}()
}
