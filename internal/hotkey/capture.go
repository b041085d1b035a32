package hotkey

import (
	"context"
	"time"
)

// buttonScanner looks for any held mouse or joystick button.
type buttonScanner interface {
	scan() (Binding, bool)
	close()
}

// Capture waits for the user to press a mouse side/middle button or any
// joystick button and returns its binding. Buttons already held when Capture
// starts are ignored until released. Keyboard combos are entered as text.
func Capture(ctx context.Context, interval time.Duration) (Binding, error) {
	s, err := newScanner()
	if err != nil {
		return Binding{}, err
	}
	defer s.close()
	return captureFrom(ctx, s, interval)
}

func captureFrom(ctx context.Context, s buttonScanner, interval time.Duration) (Binding, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	armed := false
	for {
		select {
		case <-ctx.Done():
			return Binding{}, ctx.Err()
		case <-ticker.C:
			b, held := s.scan()
			if !held {
				armed = true
				continue
			}
			if armed {
				return b, nil
			}
		}
	}
}
