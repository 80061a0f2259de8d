package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/vito/promptline/pkg/ioctx"
	"github.com/vito/promptline/pkg/prompt"
	"github.com/vito/promptline/pkg/term"
)

// defaultRenderLog is where render stats go when PROMPTLINE_DEBUG_RENDER is
// set without --render-log.
const defaultRenderLog = "/tmp/promptline_render_debug.log"

// errAborted exits non-zero without printing anything; the prompt already
// shows that it was aborted.
var errAborted = errors.New("aborted")

// Config holds the global flags.
type Config struct {
	Debug     bool
	LogFile   string
	RenderLog string
	DebugAddr string
}

// app is shared by every subcommand.
type app struct {
	cfg Config

	logFile   *os.File
	renderLog *os.File
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "promptline",
		Short: "Interactive prompts for shell scripts",
		Long: `Promptline asks questions on the terminal and prints the answers.

Prompts are drawn below the cursor, in the normal scrollback, and are
redrawn in place as you type. Answers are printed to stdout, so prompts
can be used in command substitutions.`,
		Example: `  # Ask for a line of text
  name=$(promptline ask "What's your name?")

  # Ask a yes/no question
  promptline confirm --default "Deploy now?"

  # Ask every question in promptline.toml and print the answers as JSON
  promptline run`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.cfg.Debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.cfg.LogFile, "log-file", "", "Write logs to a file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&a.cfg.RenderLog, "render-log", "", "Write per-render stats as JSON lines to a file (PROMPTLINE_DEBUG_RENDER=1 uses "+defaultRenderLog+")")
	rootCmd.PersistentFlags().StringVar(&a.cfg.DebugAddr, "debug-addr", "", "Serve pprof and expvar handlers on this address")

	rootCmd.AddCommand(
		askCmd(a),
		confirmCmd(a),
		runCmd(a),
		renderDebugCmd(),
		renderStressCmd(a),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	ctx = ioctx.WithStdout(ctx, os.Stdout)
	ctx = ioctx.WithStderr(ctx, os.Stderr)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			if errors.Is(err, errAborted) {
				return
			}
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		a.teardown()
		os.Exit(1)
	}
}

func (a *app) setup() error {
	level := slog.LevelInfo
	if a.cfg.Debug {
		level = slog.LevelDebug
	}

	var logOut io.Writer = os.Stderr
	if a.cfg.LogFile != "" {
		f, err := os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		logOut = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level: level,
	})))

	renderLog := a.cfg.RenderLog
	if renderLog == "" && os.Getenv("PROMPTLINE_DEBUG_RENDER") != "" {
		renderLog = defaultRenderLog
	}
	if renderLog != "" {
		f, err := os.OpenFile(renderLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open render log: %w", err)
		}
		a.renderLog = f
		slog.Debug("render stats enabled", "path", renderLog)
	}

	if a.cfg.DebugAddr != "" {
		if err := setupDebugHandlers(a.cfg.DebugAddr); err != nil {
			return fmt.Errorf("debug handlers: %w", err)
		}
	}
	return nil
}

func (a *app) teardown() {
	if a.renderLog != nil {
		_ = a.renderLog.Close()
		a.renderLog = nil
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

// session returns a session on the process terminal.
func (a *app) session() *prompt.Session {
	opts := []prompt.SessionOption{prompt.WithLogger(slog.Default())}
	if a.renderLog != nil {
		opts = append(opts, prompt.WithDebugWriter(a.renderLog))
	}
	return prompt.NewSession(term.NewProcessTerminal(), opts...)
}

// ask runs p and turns an abort into errAborted.
func (a *app) ask(ctx context.Context, s *prompt.Session, p prompt.Prompt) (string, error) {
	res, err := s.Run(ctx, p)
	if err != nil {
		return "", err
	}
	if res.Aborted {
		return "", errAborted
	}
	return res.Value, nil
}
