// Package ansiseq splits terminal output into literal text and the escape
// sequences embedded in it, classifying each sequence by what a line-based
// renderer may do with it: keep it (SGR styling), consume it as a cursor
// anchor (save-cursor), or drop it (everything else).
//
// The classifier never fails. Bytes that do not form a complete sequence are
// returned as literal text, so corrupt input still renders as best-effort
// text.
package ansiseq

import (
	"iter"
	"strings"
	"unicode/utf8"
)

// Kind classifies a Token.
type Kind int

const (
	// Literal is plain text, written verbatim.
	Literal Kind = iota
	// Style is an SGR sequence (terminated by 'm'). It is kept in styled
	// output and contributes nothing to visible width.
	Style
	// Anchor is a save-cursor sequence (ESC 7 or CSI s). It marks the cursor
	// anchor and is dropped from all output.
	Anchor
	// Other is any other recognized sequence. It is dropped from all output
	// since it cannot be relied on to render consistently.
	Other
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Style:
		return "style"
	case Anchor:
		return "anchor"
	case Other:
		return "other"
	}
	return "unknown"
}

// Token is one classified span of the input.
type Token struct {
	Kind Kind
	Text string
}

const (
	esc = 0x1b
	// csi8 is the single-byte C1 control sequence introducer. It may appear
	// either as a raw byte or UTF-8 encoded as U+009B.
	csi8 = 0x9b
)

// SaveCursor and SaveCursorCSI are the two anchor markers. Prompt layers
// embed one of them where the editable field begins.
const (
	SaveCursor    = "\x1b7"
	SaveCursorCSI = "\x1b[s"
)

// intermediates may follow the introducer before any parameters.
const intermediates = "[()#;?"

// Tokens classifies s, yielding literal runs and escape sequences in order.
// Adjacent literal bytes are coalesced into a single token.
func Tokens(s string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		lit := 0
		for i := 0; i < len(s); {
			n, size := introducer(s, i)
			if n == 0 {
				i += size
				continue
			}
			end, final, ok := scan(s, i, n)
			if !ok {
				// Not a sequence; the introducer is literal text.
				i += n
				continue
			}
			if lit < i {
				if !yield(Token{Kind: Literal, Text: s[lit:i]}) {
					return
				}
			}
			if !yield(Token{Kind: classify(s[i+n:end], final), Text: s[i:end]}) {
				return
			}
			i = end
			lit = end
		}
		if lit < len(s) {
			yield(Token{Kind: Literal, Text: s[lit:]})
		}
	}
}

// Strip returns s with every recognized escape sequence removed.
func Strip(s string) string {
	var b strings.Builder
	for tok := range Tokens(s) {
		if tok.Kind == Literal {
			b.WriteString(tok.Text)
		}
	}
	return b.String()
}

// introducer returns the byte length of an escape introducer at s[i], or 0
// along with the size of the character to skip.
func introducer(s string, i int) (int, int) {
	if s[i] == esc {
		return 1, 1
	}
	r, size := utf8.DecodeRuneInString(s[i:])
	switch {
	case r == '\u009b':
		return size, size
	case r == utf8.RuneError && size == 1 && s[i] == csi8:
		return 1, 1
	}
	return 0, size
}

// scan parses the remainder of a sequence whose n-byte introducer starts at
// s[i]. It returns the end offset and final byte.
func scan(s string, i, n int) (int, byte, bool) {
	j := i + n

	if j < len(s) && isDigit(s[j]) && (s[i] == esc || !opensParams(s, j+1)) {
		// A single digit, e.g. ESC 7 (save) and ESC 8 (restore). After the
		// C1 introducer a digit may also start parameters, as in CSI 31 m.
		return j + 1, s[j], true
	}
	if s[i] == esc && j < len(s) && (s[j] == ']' || s[j] == '_' || s[j] == 'P') {
		return scanString(s, j+1)
	}

	for j < len(s) && strings.IndexByte(intermediates, s[j]) >= 0 {
		j++
	}
	for j < len(s) && (isDigit(s[j]) || s[j] == ';') {
		j++
	}
	if j >= len(s) || !isFinal(s[j]) {
		return 0, 0, false
	}
	return j + 1, s[j], true
}

// scanString finds the terminator (BEL or ST) of an OSC, APC or DCS string
// whose payload starts at s[j].
func scanString(s string, j int) (int, byte, bool) {
	for ; j < len(s); j++ {
		if s[j] == 0x07 {
			return j + 1, s[j], true
		}
		if s[j] == esc && j+1 < len(s) && s[j+1] == '\\' {
			return j + 2, '\\', true
		}
	}
	return 0, 0, false
}

func classify(body string, final byte) Kind {
	switch final {
	case 'm':
		return Style
	case '7':
		return Anchor
	case 's':
		if body == "[s" || body == "s" {
			return Anchor
		}
	}
	return Other
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// opensParams reports whether the byte at s[k] continues a parameter list
// begun by a digit: more parameters, or the SGR terminator.
func opensParams(s string, k int) bool {
	return k < len(s) && (isDigit(s[k]) || s[k] == ';' || s[k] == 'm')
}

// isFinal reports whether b can terminate a sequence: the CSI final byte
// range plus the keypad mode selectors.
func isFinal(b byte) bool {
	if b >= 0x40 && b <= 0x7e {
		return true
	}
	return b == '=' || b == '>' || b == '<'
}
