// Package config loads question files.
//
// A question file is TOML with one [[question]] table per prompt, asked in
// order:
//
//	[[question]]
//	name    = "project"
//	message = "Project name?"
//	initial = "demo"
//	pattern = "^[a-z-]+$"
//	error   = "lowercase letters and dashes"
//	accept  = "a-z-"
//
//	[[question]]
//	name    = "private"
//	type    = "confirm"
//	message = "Private?"
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/vito/promptline/pkg/input"
	"github.com/vito/promptline/pkg/prompt"
)

// FileName is the name Find looks for.
const FileName = "promptline.toml"

// Question types.
const (
	TypeText      = "text"
	TypePassword  = "password"
	TypeEmoji     = "emoji"
	TypeInvisible = "invisible"
	TypeConfirm   = "confirm"
)

// File is a parsed question file.
type File struct {
	Questions []Question `toml:"question"`
}

// Question describes one prompt.
type Question struct {
	// Name is the key the answer is stored under.
	Name string `toml:"name"`
	// Type is one of text (the default), password, emoji, invisible or
	// confirm.
	Type    string `toml:"type,omitempty"`
	Message string `toml:"message"`
	// Initial is the placeholder of a text question, or the default of a
	// confirm question ("true" or "false").
	Initial string `toml:"initial,omitempty"`
	Hint    string `toml:"hint,omitempty"`
	// Pattern is a regular expression the answer must match.
	Pattern string `toml:"pattern,omitempty"`
	// Error is shown when the answer does not match Pattern.
	Error string `toml:"error,omitempty"`
	// Accept lists the characters that may be typed, as the inside of a
	// regexp character class.
	Accept string `toml:"accept,omitempty"`
	// History names the answer history to use.
	History string `toml:"history,omitempty"`
}

// Load reads and validates a question file.
func Load(path string) (*File, error) {
	var file File
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if err := file.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return &file, nil
}

// Find searches for promptline.toml starting from dir and walking up to
// parent directories, stopping at a .git boundary. It returns ("", nil, nil)
// if there is none.
func Find(dir string) (string, *File, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			file, err := Load(path)
			if err != nil {
				return "", nil, err
			}
			return path, file, nil
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}

// Validate checks every question and that names are unique.
func (f *File) Validate() error {
	if len(f.Questions) == 0 {
		return errors.New("no questions")
	}
	seen := map[string]bool{}
	for i, q := range f.Questions {
		if err := q.Validate(); err != nil {
			return errors.Wrapf(err, "question %d", i+1)
		}
		if seen[q.Name] {
			return errors.Errorf("question %d: duplicate name %q", i+1, q.Name)
		}
		seen[q.Name] = true
	}
	return nil
}

// Validate checks the question's fields without building it.
func (q Question) Validate() error {
	if q.Name == "" {
		return errors.New("missing name")
	}
	if q.Message == "" {
		return errors.Errorf("%s: missing message", q.Name)
	}
	_, err := q.Prompt()
	return err
}

// Confirm reports whether the question is a yes/no question.
func (q Question) Confirm() bool {
	return q.Type == TypeConfirm
}

// Prompt builds the prompt for the question.
func (q Question) Prompt() (prompt.Prompt, error) {
	if q.Confirm() {
		return q.confirm()
	}

	mask, err := prompt.ParseMask(q.Type)
	if err != nil {
		return nil, errors.Wrap(err, q.Name)
	}
	opts := []prompt.TextOption{
		prompt.WithMask(mask),
		prompt.WithInitial(q.Initial),
		prompt.WithHint(q.Hint),
	}
	if q.Pattern != "" {
		re, err := regexp.Compile(q.Pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: pattern", q.Name)
		}
		opts = append(opts, prompt.WithPattern(re, q.Error))
	} else if q.Error != "" {
		return nil, errors.Errorf("%s: error message without a pattern", q.Name)
	}
	if q.Accept != "" {
		accept, err := input.ParseAccept(q.Accept)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: accept", q.Name)
		}
		opts = append(opts, prompt.WithAccept(accept))
	}
	if q.History != "" {
		h := prompt.NewHistory(q.History)
		h.Load()
		opts = append(opts, prompt.WithHistory(h))
	}
	return prompt.NewText(q.Message, opts...), nil
}

func (q Question) confirm() (prompt.Prompt, error) {
	for field, v := range map[string]string{
		"pattern": q.Pattern,
		"accept":  q.Accept,
		"history": q.History,
	} {
		if v != "" {
			return nil, errors.Errorf("%s: %s does not apply to confirm questions", q.Name, field)
		}
	}
	def := false
	if q.Initial != "" {
		var err error
		def, err = strconv.ParseBool(q.Initial)
		if err != nil {
			return nil, errors.Errorf("%s: initial must be true or false, got %q", q.Name, q.Initial)
		}
	}
	return prompt.NewConfirm(q.Message, def), nil
}
