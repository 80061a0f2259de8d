package main

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/vito/promptline/pkg/ioctx"
)

//go:embed render_debug_dashboard.html
var dashboardHTML []byte

func renderDebugCmd() *cobra.Command {
	var (
		addr    string
		logFile string
		open    bool
	)

	cmd := &cobra.Command{
		Use:   "render-debug",
		Short: "Launch a live dashboard of render stats",
		Long: `Starts a local web server that charts per-render stats as they are
written. Run prompts with --render-log (or PROMPTLINE_DEBUG_RENDER=1) in
another terminal.

The dashboard tails the JSONL log and streams new records to the browser
with Server-Sent Events.`,
		Example: `  # In terminal 1: ask with render stats enabled
  PROMPTLINE_DEBUG_RENDER=1 promptline ask "Name?"

  # In terminal 2: launch the dashboard
  promptline render-debug
  promptline render-debug --file /path/to/custom.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRenderDebug(cmd.Context(), addr, logFile, open)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:0", "Address to listen on (port 0 picks one)")
	cmd.Flags().StringVar(&logFile, "file", defaultRenderLog, "Path to the JSONL render log")
	cmd.Flags().BoolVar(&open, "open", true, "Open a browser")
	return cmd
}

func runRenderDebug(ctx context.Context, addr, logFile string, openBrowser bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := newStatsHub(maxStatsHistory)
	go tailStats(ctx, logFile, hub.publish)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(dashboardHTML)
	})
	mux.HandleFunc("/events", hub.serveSSE)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	url := fmt.Sprintf("http://%s", ln.Addr())
	out := ioctx.Stderr(ctx)
	fmt.Fprintf(out, "Dashboard: %s\n", url)
	fmt.Fprintf(out, "Tailing:   %s\n", logFile)
	fmt.Fprintln(out, "Press Ctrl+C to stop.")

	if openBrowser {
		go openURL(ctx, url)
	}

	srv := &http.Server{Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

const maxStatsHistory = 2000

// statsHub fans records out to connected browsers. New subscribers first
// get the most recent records.
type statsHub struct {
	mu      sync.Mutex
	subs    map[chan []byte]struct{}
	history [][]byte
	limit   int
}

func newStatsHub(limit int) *statsHub {
	return &statsHub{
		subs:  map[chan []byte]struct{}{},
		limit: limit,
	}
}

func (h *statsHub) publish(record []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, record)
	if len(h.history) > h.limit {
		h.history = h.history[len(h.history)-h.limit:]
	}
	for ch := range h.subs {
		select {
		case ch <- record:
		default:
			// slow client, drop
		}
	}
}

// subscribe returns past records and a channel of new ones.
func (h *statsHub) subscribe() ([][]byte, chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan []byte, 64)
	h.subs[ch] = struct{}{}
	return append([][]byte(nil), h.history...), ch
}

func (h *statsHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, ch)
}

// serveSSE streams the history and then every new record as Server-Sent
// Events until the client goes away.
func (h *statsHub) serveSSE(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	past, ch := h.subscribe()
	defer h.unsubscribe(ch)

	send := func(records ...[]byte) error {
		for _, record := range records {
			if _, err := fmt.Fprintf(w, "data: %s\n\n", record); err != nil {
				return err
			}
		}
		return rc.Flush()
	}
	if err := send(past...); err != nil {
		slog.Debug("stream render stats", "err", err)
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case record := <-ch:
			if err := send(record); err != nil {
				slog.Debug("stream render stats", "err", err)
				return
			}
		}
	}
}

// tailStats follows path from its current end, calling publish with each
// complete JSON line. It reopens the file when it is truncated or does not
// exist yet.
func tailStats(ctx context.Context, path string, publish func([]byte)) {
	for ctx.Err() == nil {
		f, err := os.Open(path)
		if err != nil {
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			slog.Warn("seek render log", "err", err)
		}
		followStats(ctx, f, publish)
		_ = f.Close()
	}
}

func followStats(ctx context.Context, f *os.File, publish func([]byte)) {
	r := bufio.NewReader(f)
	var partial []byte
	for ctx.Err() == nil {
		line, err := r.ReadBytes('\n')
		partial = append(partial, line...)
		if err == nil {
			record := partial[:len(partial)-1]
			if json.Valid(record) {
				publish(record)
			}
			partial = nil
			continue
		}
		if !errors.Is(err, io.EOF) {
			return
		}

		sleep(ctx, 50*time.Millisecond)
		info, err := f.Stat()
		if err != nil {
			return
		}
		pos, err := f.Seek(0, io.SeekCurrent)
		if err != nil || info.Size() < pos {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var browserCommands = map[string][]string{
	"darwin":  {"open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

// openURL opens url in the default browser. The listener is already bound,
// so the browser can connect straight away.
func openURL(ctx context.Context, url string) {
	args, ok := browserCommands[runtime.GOOS]
	if !ok {
		args = []string{"xdg-open"}
	}
	cmd := exec.CommandContext(ctx, args[0], append(args[1:], url)...)
	if err := cmd.Run(); err != nil {
		slog.Debug("open browser", "err", err)
	}
}
