package prompt

import "time"

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const defaultSpinnerInterval = 80 * time.Millisecond

// spinner animates the symbol while validation runs. It only starts showing
// after the first tick, so validation that finishes quickly never flickers.
type spinner struct {
	interval time.Duration
	ticker   *time.Ticker
	ticks    int
}

func (s *spinner) start() {
	s.stop()
	s.ticks = 0
	s.ticker = time.NewTicker(s.interval)
}

func (s *spinner) stop() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

// C returns the tick channel, or nil when stopped.
func (s *spinner) C() <-chan time.Time {
	if s.ticker == nil {
		return nil
	}
	return s.ticker.C
}

func (s *spinner) tick() string {
	s.ticks++
	return s.frame()
}

// frame returns the current frame, or "" before the first tick.
func (s *spinner) frame() string {
	if s.ticks == 0 {
		return ""
	}
	return spinnerFrames[(s.ticks-1)%len(spinnerFrames)]
}
