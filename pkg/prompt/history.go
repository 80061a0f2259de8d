package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxHistoryEntries = 1000

// History is a list of previous answers to a question, persisted to a file.
type History struct {
	entries []string
	index   int // -1 means "not navigating"
	draft   string
	file    string
}

// NewHistory returns the history named name, stored under
// $XDG_DATA_HOME/promptline/history. Call Load to read it.
func NewHistory(name string) *History {
	return NewHistoryFile(historyFilePath(name))
}

// NewHistoryFile returns a history stored in file.
func NewHistoryFile(file string) *History {
	return &History{index: -1, file: file}
}

// historyFilePath respects XDG_DATA_HOME (default ~/.local/share).
func historyFilePath(name string) string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "promptline_history_"+cleanName(name))
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "promptline", "history", cleanName(name))
}

func cleanName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "default"
	}
	return name
}

// File returns the path the history is stored in.
func (h *History) File() string { return h.file }

// Entries returns the answers, oldest first.
func (h *History) Entries() []string { return h.entries }

// Add appends an answer (skipping consecutive duplicates and empty values)
// and persists it.
func (h *History) Add(value string) {
	h.Reset()
	if value == "" || (len(h.entries) > 0 && h.entries[len(h.entries)-1] == value) {
		return
	}
	h.entries = append(h.entries, value)
	h.appendToFile(value)
}

// Previous steps back from current, which is remembered so stepping forward
// past the newest entry restores it. It reports false at the oldest entry.
func (h *History) Previous(current string) (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	switch {
	case h.index == -1:
		h.draft = current
		h.index = len(h.entries) - 1
	case h.index > 0:
		h.index--
	default:
		return "", false
	}
	return h.entries[h.index], true
}

// Next steps forward. It reports false when not navigating.
func (h *History) Next() (string, bool) {
	if h.index == -1 {
		return "", false
	}
	h.index++
	if h.index >= len(h.entries) {
		h.index = -1
		return h.draft, true
	}
	return h.entries[h.index], true
}

// Reset ends navigation.
func (h *History) Reset() {
	h.index = -1
	h.draft = ""
}

// Load reads history from the file. A missing file is an empty history.
func (h *History) Load() {
	data, err := os.ReadFile(h.file)
	if err != nil {
		return
	}
	h.entries = h.entries[:0]
	for line := range strings.SplitSeq(strings.TrimSpace(string(data)), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			h.entries = append(h.entries, historyDecode(line))
		}
	}
	// Truncate on load if the file grew too large (amortized).
	if len(h.entries) > maxHistoryEntries {
		h.entries = h.entries[len(h.entries)-maxHistoryEntries:]
		h.rewriteFile()
	}
}

func (h *History) appendToFile(line string) {
	_ = os.MkdirAll(filepath.Dir(h.file), 0755)
	f, err := os.OpenFile(h.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = fmt.Fprintln(f, historyEncode(line))
}

func (h *History) rewriteFile() {
	_ = os.MkdirAll(filepath.Dir(h.file), 0755)
	var buf strings.Builder
	for _, entry := range h.entries {
		buf.WriteString(historyEncode(entry))
		buf.WriteByte('\n')
	}
	_ = os.WriteFile(h.file, []byte(buf.String()), 0644)
}

// historyEncode escapes an entry for single-line storage.
// Newlines become literal \n, backslashes become \\.
func historyEncode(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

// historyDecode reverses historyEncode.
func historyDecode(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				buf.WriteByte('\n')
				i++
				continue
			case '\\':
				buf.WriteByte('\\')
				i++
				continue
			}
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}
