package ui

import (
	"fmt"

	"github.com/TanaroSch/whisper-lead/internal/api"
	"github.com/TanaroSch/whisper-lead/internal/lead"
)

// TrayStatus is the status line shown in the tray menu.
type TrayStatus int

const (
	// StatusKeep leaves the tray status unchanged.
	StatusKeep TrayStatus = iota
	StatusInactive
	StatusActivating
	StatusActivated
	StatusInSession
	StatusError
)

// StatusLine renders the tray status text.
func StatusLine(s TrayStatus, detail string) string {
	switch s {
	case StatusActivating:
		return "Status: Activating..."
	case StatusActivated:
		return "Status: Activated"
	case StatusInSession:
		return "Status: In Session"
	case StatusError:
		if detail == "" {
			return "Status: Error"
		}
		return "Error: " + detail
	default:
		return "Status: Inactive"
	}
}

// Hint renders the one-line instruction that goes with a status.
func Hint(s TrayStatus) string {
	switch s {
	case StatusActivated:
		return "Press again to start/end a whisper session."
	case StatusInSession:
		return "Press again to end the session or leave early."
	case StatusActivating:
		return "Contacting the whisper server..."
	default:
		return "Press your keybind to activate as Team-Lead."
	}
}

// Feedback is everything the shell does in response to one lead event.
type Feedback struct {
	// Notify is false for events that only update the tray and play a sound.
	Notify  bool
	Level   Level
	Title   string
	Message string
	Sound   Sound
	Status  TrayStatus
	Detail  string
}

// EventFeedback maps a lead loop event to user feedback.
func EventFeedback(ev lead.Event) Feedback {
	switch ev.Kind {
	case lead.EventLeading:
		return Feedback{
			Notify:  true,
			Level:   LevelSuccess,
			Title:   "Team-Lead active",
			Message: ev.Result.Outcome.Describe() + " " + Hint(StatusActivated),
			Status:  StatusActivated,
		}
	case lead.EventFailed:
		msg := ev.Result.Outcome.Describe()
		if ev.Attempts > 1 {
			msg = fmt.Sprintf("%s (gave up after %d attempts)", msg, ev.Attempts)
		}
		return Feedback{
			Notify:  true,
			Level:   LevelError,
			Title:   "Activation failed",
			Message: msg,
			Status:  StatusError,
			Detail:  ev.Result.Outcome.Describe(),
		}
	case lead.EventLeadLost:
		return Feedback{
			Notify:  true,
			Level:   LevelWarn,
			Title:   "Deactivated",
			Message: api.LeadLost.Describe(),
			Sound:   SoundExit,
			Status:  StatusInactive,
		}
	case lead.EventWhisper:
		switch ev.Whisper {
		case api.WhisperStarted:
			return Feedback{Level: LevelInfo, Title: "Whisper session started", Sound: SoundEnter, Status: StatusInSession}
		case api.WhisperEnded:
			return Feedback{Level: LevelInfo, Title: "Whisper session ended", Sound: SoundExit, Status: StatusActivated}
		default:
			return Feedback{Level: LevelInfo, Title: "Whisper toggled", Status: StatusKeep}
		}
	case lead.EventWhisperFailed:
		msg := "The whisper server did not accept the request."
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		return Feedback{Notify: true, Level: LevelWarn, Title: "Whisper toggle failed", Message: msg, Status: StatusKeep}
	default:
		return Feedback{Status: StatusKeep}
	}
}

// StateStatus maps loop state changes to the tray status. Failed and Idle
// keep whatever the terminal event set.
func StateStatus(s lead.State) TrayStatus {
	switch s {
	case lead.Acquiring:
		return StatusActivating
	case lead.Leading:
		return StatusActivated
	default:
		return StatusKeep
	}
}
