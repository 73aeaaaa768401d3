// Package token implements matmake's lexical model: a Token carries the text
// of a single word from a Matmakefile together with the whitespace that
// followed it and the line/column it started at, so later error messages can
// point back at the exact source location. Tokens groups a run of them and
// knows how to split on whitespace runs (groups), or glue them back into a
// single string (concat).
//
// Grounded on the scanning style of _examples/lenticularis39-mk's lexer
// (state-driven rune reading with line/col tracking) and on the exact token
// semantics of the original C++ implementation's token.h (trailingSpace,
// groups(), concat(), append()).
package token

import (
	"fmt"
	"strings"
)

// Location is a line/column position within a Matmakefile.
type Location struct {
	Line, Col int
}

// String renders a location the way matmake's error messages expect it.
func (l Location) String() string {
	return fmt.Sprintf("Matmakefile:%d:%d", l.Line, l.Col)
}

// specialChars is the set of characters that form their own token runs
// outside of a bare word, e.g. "+=", ".", ":", "-".
const specialChars = "+=.-:*"

func isSpecialChar(c byte) bool {
	return strings.IndexByte(specialChars, c) >= 0
}

// A Token is a single word of Matmakefile text plus the whitespace (if any)
// that immediately followed it in the source.
type Token struct {
	Text          string
	TrailingSpace string
	Location      Location
}

// New builds a Token with no location information, useful for synthesized
// tokens the engine builds internally (e.g. compiler flags it composes).
func New(text string) Token {
	return Token{Text: text}
}

// At builds a Token with an explicit source location.
func At(text string, loc Location) Token {
	return Token{Text: text, Location: loc}
}

// String renders the token's text only; use Raw to include trailing space.
func (t Token) String() string {
	return t.Text
}

// Raw renders the token's text followed by the whitespace that trailed it.
func (t Token) Raw() string {
	return t.Text + t.TrailingSpace
}

// Empty reports whether the token carries no text.
func (t Token) Empty() bool {
	return t.Text == ""
}

// Equal compares token text only, ignoring trailing space and location -
// this is the comparison the engine uses throughout (e.g. matching a
// property name, or comparing two commands for staleness).
func (t Token) Equal(s string) bool {
	return t.Text == s
}

// Tokens is a sequence of Token, e.g. the whole value assigned to a property.
type Tokens []Token

// Of is a convenience constructor for a single-word Tokens value.
func Of(text string) Tokens {
	return Tokens{New(text)}
}

// String concatenates token text and trailing space, i.e. round-trips the
// original source text these tokens were parsed from.
func (ts Tokens) String() string {
	var b strings.Builder
	for _, t := range ts {
		b.WriteString(t.Raw())
	}
	return b.String()
}

// Groups splits the sequence at whitespace boundaries, returning one Tokens
// slice per whitespace-delimited run - used to turn something like
// "a.cpp b.cpp" into two independent glob patterns, or "-Ia -Ib" into two
// separate include flags.
func (ts Tokens) Groups() []Tokens {
	if len(ts) == 0 {
		return nil
	}
	groups := []Tokens{{}}
	for _, t := range ts {
		last := len(groups) - 1
		groups[last] = append(groups[last], t)
		if t.TrailingSpace != "" {
			groups = append(groups, Tokens{})
		}
	}
	if len(groups[len(groups)-1]) == 0 {
		groups = groups[:len(groups)-1]
	}
	return groups
}

// Concat joins every token's text (ignoring trailing space) into one Token,
// taking the location of the first token - used whenever a whole property
// value needs to collapse to a single string, e.g. the "inherit" target name.
func (ts Tokens) Concat() Token {
	var b strings.Builder
	for _, t := range ts {
		b.WriteString(t.Text)
	}
	ret := Token{Text: b.String()}
	if len(ts) > 0 {
		ret.Location = ts[0].Location
	}
	return ret
}

// Trim returns the token with leading/trailing whitespace stripped from its text.
func (t Token) Trim() Token {
	t.Text = strings.TrimSpace(t.Text)
	return t
}

// Trim strips surrounding whitespace from the concatenation of ts.
func (ts Tokens) Trim() Token {
	return ts.Concat().Trim()
}

// Append adds other's tokens to the end of ts, inserting a single space of
// separation if ts is non-empty and its last token didn't already end in
// whitespace - this is the "+=" semantics from §4.2.
func (ts Tokens) Append(other Tokens) Tokens {
	if len(ts) > 0 && ts[len(ts)-1].TrailingSpace == "" {
		ts[len(ts)-1].TrailingSpace = " "
	}
	return append(ts, other...)
}

// Empty reports whether the sequence carries no tokens at all.
func (ts Tokens) Empty() bool {
	return len(ts) == 0
}

// Tokenize scans a single line of Matmakefile text into Tokens, recording
// 1-based line/column positions. Whitespace runs become a token's
// TrailingSpace; any run of specialChars forms its own token, except that a
// run is cut short right after an "=" (so "+=" parses as one token but
// "a+=b" still separates "a", "+=" and "b"). "#" starts a line comment.
func Tokenize(line string, lineNumber int) Tokens {
	var ret Tokens
	col := 1

	newWord := func() {
		if len(ret) == 0 || !ret[len(ret)-1].Empty() {
			ret = append(ret, Token{Location: Location{Line: lineNumber, Col: col}})
		}
	}

	i := 0
	n := len(line)
	// Skip leading whitespace entirely; it carries no meaning at the start
	// of a line (there is no preceding token to attach it to).
	for i < n && isSpace(line[i]) {
		i++
		col++
	}

	newWord()

	for i < n {
		c := line[i]
		switch {
		case isSpace(c):
			last := len(ret) - 1
			for i < n && isSpace(line[i]) {
				ret[last].TrailingSpace += string(line[i])
				i++
				col++
			}
			newWord()
		case isSpecialChar(c):
			newWord()
			last := len(ret) - 1
			for i < n && isSpecialChar(line[i]) {
				ret[last].Text += string(line[i])
				i++
				col++
				if line[i-1] == '=' {
					break
				}
			}
			if i >= n || !isSpace(line[i]) {
				newWord()
			}
		case c == '#':
			i = n // rest of line is a comment
		default:
			last := len(ret) - 1
			ret[last].Text += string(c)
			i++
			col++
		}
	}

	if len(ret) > 0 && ret[len(ret)-1].Empty() {
		ret = ret[:len(ret)-1]
	}
	return ret
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}

// NameDescriptor splits a dotted "target.property" name into its root target
// name and property name, joining runs of adjacent tokens with no space
// between them the way the original NameDescriptor does (so a target name
// like "my-lib" that tokenizes as "my", "-", "lib" is rejoined into one
// name before the dot/property split is looked for).
type NameDescriptor struct {
	RootName     Token
	PropertyName Token
}

// NewNameDescriptor builds a NameDescriptor from the tokens of a single
// assignment's left-hand side, e.g. the "mylib.flags" in "mylib.flags = -O2".
func NewNameDescriptor(name Tokens) NameDescriptor {
	name = append(Tokens(nil), name...) // don't mutate caller's slice
	for len(name) > 1 && name[0].TrailingSpace == "" &&
		!name[1].Equal(".") && !name[1].Equal("=") && !name[1].Equal("+=") {
		name[0].Text += name[1].Text
		name[0].TrailingSpace = name[1].TrailingSpace
		name = append(name[:1], name[2:]...)
	}

	nd := NameDescriptor{RootName: New("root")}
	if len(name) == 1 {
		nd.PropertyName = name[0]
	} else if len(name) == 3 && name[1].Equal(".") {
		nd.RootName = name[0]
		nd.PropertyName = name[2]
	}
	return nd
}

// Empty reports whether no property name could be resolved from the source tokens.
func (n NameDescriptor) Empty() bool {
	return n.PropertyName.Empty()
}
