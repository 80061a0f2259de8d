package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vito/promptline/pkg/config"
	"github.com/vito/promptline/pkg/ioctx"
	"github.com/vito/promptline/pkg/prompt"
)

func askCmd(a *app) *cobra.Command {
	q := config.Question{Name: "answer"}

	cmd := &cobra.Command{
		Use:   "ask MESSAGE",
		Short: "Ask for a line of text and print the answer",
		Long: `Asks for a line of text and prints the answer to stdout.

Up and Down recall earlier answers when --history is set. Tab accepts the
placeholder given by --initial. Ctrl+C or Escape aborts with a non-zero
exit status.`,
		Example: `  promptline ask "Project name?" --initial demo --pattern '^[a-z-]+$'
  promptline ask "Token?" --type password
  promptline ask "PIN?" --accept 0-9 --type emoji`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Message = args[0]
			if q.Confirm() {
				return errors.New("use promptline confirm for yes/no questions")
			}
			p, err := q.Prompt()
			if err != nil {
				return err
			}
			value, err := a.ask(cmd.Context(), a.session(), p)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(ioctx.Stdout(cmd.Context()), value)
			return err
		},
	}

	cmd.Flags().StringVarP(&q.Type, "type", "t", "text", "Input style: text, password, emoji or invisible")
	cmd.Flags().StringVarP(&q.Initial, "initial", "i", "", "Placeholder, used as the answer if nothing is typed")
	cmd.Flags().StringVar(&q.Hint, "hint", "", "Note shown under the field")
	cmd.Flags().StringVarP(&q.Pattern, "pattern", "p", "", "Regular expression the answer must match")
	cmd.Flags().StringVarP(&q.Error, "error", "e", "", "Message shown when the answer does not match --pattern")
	cmd.Flags().StringVar(&q.Accept, "accept", "", "Characters that may be typed, e.g. a-z0-9-")
	cmd.Flags().StringVar(&q.History, "history", "", "Name of the answer history to use")
	return cmd
}

func confirmCmd(a *app) *cobra.Command {
	var (
		def    bool
		status bool
	)

	cmd := &cobra.Command{
		Use:   "confirm MESSAGE",
		Short: "Ask a yes/no question and print true or false",
		Long: `Asks a yes/no question. Typing y or n answers immediately; Enter takes
the default. The answer is printed as true or false, or reported through
the exit status with --status.`,
		Example: `  promptline confirm "Overwrite?"
  if promptline confirm --status --default "Deploy now?"; then make deploy; fi`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := prompt.NewConfirm(args[0], def)
			if _, err := a.ask(cmd.Context(), a.session(), c); err != nil {
				return err
			}
			if status {
				if !c.Confirmed() {
					return errAborted
				}
				return nil
			}
			_, err := fmt.Fprintln(ioctx.Stdout(cmd.Context()), strconv.FormatBool(c.Confirmed()))
			return err
		},
	}

	cmd.Flags().BoolVarP(&def, "default", "y", false, "Answer yes on a bare Enter")
	cmd.Flags().BoolVar(&status, "status", false, "Print nothing; exit non-zero unless the answer is yes")
	return cmd
}
