package prompt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vito/promptline/pkg/input"
	"github.com/vito/promptline/pkg/render"
)

// Terminal is the session's view of the terminal it owns while a prompt
// runs.
type Terminal interface {
	io.Writer
	// Start puts the terminal in raw mode and begins delivering input and
	// resize notifications. Callbacks may be called from any goroutine.
	Start(onInput func([]byte), onResize func()) error
	// Stop restores the terminal.
	Stop()
	// Columns returns the current width, or 0 if unknown.
	Columns() int
	// HideCursor and ShowCursor toggle the hardware cursor.
	HideCursor()
	ShowCursor()
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session's logger, which the renderer shares.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithDebugWriter writes per-render stats as JSON lines to w.
func WithDebugWriter(w io.Writer) SessionOption {
	return func(s *Session) { s.debugWriter = w }
}

// WithSpinnerInterval sets the spinner's frame interval.
func WithSpinnerInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.spinInterval = d }
}

// Session runs prompts on a terminal, one at a time.
type Session struct {
	term         Terminal
	logger       *slog.Logger
	debugWriter  io.Writer
	spinInterval time.Duration
}

// NewSession returns a session on term.
func NewSession(term Terminal, opts ...SessionOption) *Session {
	s := &Session{
		term:         term,
		logger:       slog.Default(),
		spinInterval: defaultSpinnerInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run shows p and blocks until it is submitted or aborted. An abort is a
// normal result, not an error; errors come only from the terminal or from
// ctx.
func (s *Session) Run(ctx context.Context, p Prompt) (Result, error) {
	inputs := make(chan []byte, 64)
	resizes := make(chan struct{}, 1)
	quit := make(chan struct{})

	err := s.term.Start(func(data []byte) {
		buf := make([]byte, len(data))
		copy(buf, data)
		select {
		case inputs <- buf:
		case <-quit:
		}
	}, func() {
		select {
		case resizes <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return Result{}, fmt.Errorf("start terminal: %w", err)
	}
	defer func() {
		// Unblock input callbacks before Stop waits for them.
		close(quit)
		s.term.Stop()
	}()

	g, gctx := errgroup.WithContext(ctx)
	// Cancelled once the loop ends, so a validation still running after an
	// abort is told to give up.
	lctx, cancel := context.WithCancel(gctx)
	defer cancel()
	x := s.newLoop(lctx, g, p)
	g.Go(func() error {
		defer cancel()
		return x.run(inputs, resizes)
	})
	if err := g.Wait(); err != nil {
		return Result{Aborted: true}, err
	}
	return x.result, nil
}

// loop is the state of one Run. Everything in it is owned by the goroutine
// running loop.run, apart from validation, which reports back over a
// channel.
type loop struct {
	ctx    context.Context
	g      *errgroup.Group
	p      Prompt
	term   Terminal
	r      *render.Renderer
	dec    *input.Decoder
	logger *slog.Logger

	state     State
	validated chan error
	pending   bool
	queue     []input.Event
	spin      spinner
	// hidden is set while the cursor is hidden behind the spinner.
	hidden bool

	done   bool
	result Result
}

func (s *Session) newLoop(ctx context.Context, g *errgroup.Group, p Prompt) *loop {
	x := &loop{
		ctx:       ctx,
		g:         g,
		p:         p,
		term:      s.term,
		dec:       input.NewDecoder(),
		logger:    s.logger,
		validated: make(chan error, 1),
		spin:      spinner{interval: s.spinInterval},
	}
	opts := []render.Option{render.WithLogger(s.logger)}
	field := p.Field()
	if field != nil {
		opts = append(opts, render.WithCursor(field))
	}
	x.r = render.New(s.term, s.term.Columns, opts...)
	if s.debugWriter != nil {
		x.r.SetDebugWriter(s.debugWriter)
	}
	if field != nil {
		field.OnChange(func(e input.Effect) {
			// Value changes are followed by a full render; cursor-only
			// moves just reconcile.
			if !e.Changed {
				x.r.Reconcile()
			}
		})
	}
	return x
}

func (x *loop) run(inputs <-chan []byte, resizes <-chan struct{}) error {
	defer x.spin.stop()
	defer x.showCursor()
	x.render()
	for !x.done {
		select {
		case <-x.ctx.Done():
			x.r.Close()
			return x.ctx.Err()
		case data := <-inputs:
			x.dispatch(x.dec.Decode(data))
		case <-resizes:
			x.logger.Debug("resize", "width", x.r.Width())
			x.render()
		case err := <-x.validated:
			x.resolve(err)
		case <-x.spin.C():
			if !x.hidden {
				// Input is queued until validation resolves.
				x.term.HideCursor()
				x.hidden = true
			}
			x.state.Spinner = x.spin.tick()
			x.state.Status = Pending
			x.render()
		}
	}
	return nil
}

func (x *loop) render() {
	x.r.Render(x.p.View(x.state))
}

// dispatch handles events in order. Events arriving while validation is
// pending wait in the queue, except Abort, which always goes through.
func (x *loop) dispatch(events []input.Event) {
	x.queue = append(x.queue, events...)
	if x.pending {
		for _, ev := range x.queue {
			if ev.Kind == input.Abort {
				x.finish(true)
				return
			}
		}
		return
	}
	for len(x.queue) > 0 && !x.pending && !x.done {
		ev := x.queue[0]
		x.queue = x.queue[1:]
		x.handle(ev)
	}
}

func (x *loop) handle(ev input.Event) {
	x.logger.Debug("event", "event", ev)
	switch ev.Kind {
	case input.Abort:
		x.finish(true)
		return
	case input.Submit:
		x.submit()
		return
	}

	out := x.p.Handle(ev)
	if out.Bell {
		x.r.Bell()
	}
	if out.Changed {
		x.state.Error = ""
		x.render()
	}
	if out.Submit {
		x.submit()
	}
}

func (x *loop) submit() {
	x.pending = true
	x.spin.start()
	value := x.p.Value()
	ctx, validated := x.ctx, x.validated
	validate := x.p.Validate
	x.g.Go(func() error {
		err := validate(ctx, value)
		select {
		case validated <- err:
		case <-ctx.Done():
		}
		return nil
	})
}

func (x *loop) showCursor() {
	if x.hidden {
		x.term.ShowCursor()
		x.hidden = false
	}
}

func (x *loop) resolve(err error) {
	x.pending = false
	x.spin.stop()
	x.showCursor()
	x.state.Spinner = ""
	if err != nil {
		x.logger.Debug("validation failed", "err", err)
		x.state.Status = Editing
		x.state.Error = err.Error()
		x.render()
		x.dispatch(nil)
		return
	}
	x.finish(false)
}

func (x *loop) finish(aborted bool) {
	x.spin.stop()
	x.showCursor()
	x.pending = false
	x.queue = nil
	x.state = State{Status: Done}
	if aborted {
		x.state.Status = Aborted
	}
	x.render()
	x.r.Close()
	x.done = true
	x.result = Result{Value: x.p.Value(), Aborted: aborted}
	x.p.Finish(x.result)
}
