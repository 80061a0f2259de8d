package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/vito/promptline/pkg/config"
	"github.com/vito/promptline/pkg/ioctx"
	"github.com/vito/promptline/pkg/prompt"
)

func runCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Ask the questions in a question file and print the answers as JSON",
		Long: `Asks every question in a question file, in order, and prints the answers
as a JSON object keyed by question name. Confirm questions answer true or
false; every other type answers a string.

Without an argument the file is promptline.toml, found by walking up from
the current directory to the enclosing git repository.`,
		Example: `  promptline run
  promptline run scaffold.toml | jq -r .project`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, file, err := loadQuestions(args)
			if err != nil {
				return err
			}
			slog.Debug("loaded questions", "path", path, "file", pretty.Sprint(file))

			answers, err := a.askAll(cmd.Context(), file)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(ioctx.Stdout(cmd.Context()))
			enc.SetIndent("", "  ")
			return enc.Encode(answers)
		},
	}
	return cmd
}

func loadQuestions(args []string) (string, *config.File, error) {
	if len(args) == 1 {
		file, err := config.Load(args[0])
		return args[0], file, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, err
	}
	path, file, err := config.Find(cwd)
	if err != nil {
		return "", nil, err
	}
	if file == nil {
		return "", nil, fmt.Errorf("no %s found in %s or its parents", config.FileName, cwd)
	}
	return path, file, nil
}

// askAll asks each question on one session, stopping at the first abort.
func (a *app) askAll(ctx context.Context, file *config.File) (map[string]any, error) {
	s := a.session()
	answers := make(map[string]any, len(file.Questions))
	for _, q := range file.Questions {
		p, err := q.Prompt()
		if err != nil {
			return nil, err
		}
		value, err := a.ask(ctx, s, p)
		if err != nil {
			return nil, err
		}
		answers[q.Name] = answer(p, value)
		slog.Debug("answered", "question", q.Name)
	}
	return answers, nil
}

func answer(p prompt.Prompt, value string) any {
	if c, ok := p.(*prompt.Confirm); ok {
		return c.Confirmed()
	}
	return value
}
