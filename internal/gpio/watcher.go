package gpio

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/debounce"
)

// Handler receives settled line changes.
type Handler interface {
	Handle(ctx context.Context, kind debounce.Kind, name string, active bool) debounce.Result
}

// Line binds a gpio offset to a device name.
type Line struct {
	Offset int
	Device string
}

type lineState struct {
	device    string
	stable    bool
	candidate bool
	since     time.Time
}

// Watcher polls a Reader and reports a level once it has held for the settle time.
// Lines start low, so a line that is already high at startup reports motion.
type Watcher struct {
	reader  Reader
	handler Handler
	poll    time.Duration
	settle  time.Duration
	lines   map[int]*lineState
}

// NewWatcher creates a watcher for lines.
func NewWatcher(reader Reader, handler Handler, lines []Line, poll, settle time.Duration) *Watcher {
	w := &Watcher{
		reader:  reader,
		handler: handler,
		poll:    poll,
		settle:  settle,
		lines:   make(map[int]*lineState, len(lines)),
	}
	for _, l := range lines {
		w.lines[l.Offset] = &lineState{device: l.Device}
	}
	return w
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	log.Info().
		Int("lines", len(w.lines)).
		Dur("poll", w.poll).
		Dur("settle", w.settle).
		Msg("GPIO watcher started")

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("GPIO watcher stopped")
			return nil
		case now := <-ticker.C:
			w.Poll(ctx, now)
		}
	}
}

// Poll reads every line once and dispatches settled changes.
func (w *Watcher) Poll(ctx context.Context, now time.Time) {
	levels, err := w.reader.Read()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read GPIO lines")
		return
	}

	for offset, st := range w.lines {
		level, ok := levels[offset]
		if !ok {
			continue
		}

		if level != st.candidate || st.since.IsZero() {
			st.candidate = level
			st.since = now
		}
		if st.candidate == st.stable || now.Sub(st.since) < w.settle {
			continue
		}

		st.stable = st.candidate
		res := w.handler.Handle(ctx, debounce.KindMotion, st.device, st.stable)
		log.Debug().
			Int("pin", offset).
			Str("device", st.device).
			Bool("active", st.stable).
			Str("status", string(res.Status)).
			Msg(res.Message)
	}
}
