package catalog

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind identifies the field a catalog line carries.
type Kind int

const (
	KindBoundary Kind = iota
	KindPrint
	KindComposer
	KindTitle
	KindGenre
	KindKey
	KindCompositionYear
	KindEdition
	KindEditor
	KindVoice
	KindPartiture
	KindIncipit
)

var kindNames = map[Kind]string{
	KindBoundary:        "boundary",
	KindPrint:           "print",
	KindComposer:        "composer",
	KindTitle:           "title",
	KindGenre:           "genre",
	KindKey:             "key",
	KindCompositionYear: "composition_year",
	KindEdition:         "edition",
	KindEditor:          "editor",
	KindVoice:           "voice",
	KindPartiture:       "partiture",
	KindIncipit:         "incipit",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Token is one classified line. Boundary tokens have an empty Value.
type Token struct {
	Kind  Kind
	Value string
	Index int // 1-based voice index from the label, 0 otherwise
	Line  int
}

// labels maps each fixed label prefix to its kind. Voice lines are matched separately.
var labels = []struct {
	prefix string
	kind   Kind
}{
	{"Print Number: ", KindPrint},
	{"Composer: ", KindComposer},
	{"Title: ", KindTitle},
	{"Genre: ", KindGenre},
	{"Key: ", KindKey},
	{"Composition Year: ", KindCompositionYear},
	{"Edition: ", KindEdition},
	{"Editor: ", KindEditor},
	{"Partiture: ", KindPartiture},
	{"Incipit: ", KindIncipit},
}

var voiceLabel = regexp.MustCompile(`^Voice (\d+): `)

// Tokenizer classifies catalog lines. It is forward-only and consumed once.
type Tokenizer struct {
	scanner *bufio.Scanner
	line    int
	err     error
}

// NewTokenizer returns a tokenizer reading from r.
func NewTokenizer(r io.Reader) *Tokenizer {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Tokenizer{scanner: scanner}
}

// Next returns the next token. It returns false at end of input or on a read error.
func (t *Tokenizer) Next() (Token, bool) {
	for t.scanner.Scan() {
		t.line++
		text := strings.TrimRight(t.scanner.Text(), "\r")

		if strings.TrimSpace(text) == "" {
			return Token{Kind: KindBoundary, Line: t.line}, true
		}

		if tok, ok := classify(text); ok {
			tok.Line = t.line
			return tok, true
		}
	}
	t.err = t.scanner.Err()
	return Token{}, false
}

// Err returns the first read error, if any.
func (t *Tokenizer) Err() error {
	return t.err
}

// classify matches a non-blank line against the known labels.
// Lines with an unknown label or an empty value produce no token.
func classify(line string) (Token, bool) {
	for _, l := range labels {
		if rest, ok := strings.CutPrefix(line, l.prefix); ok {
			return valueToken(l.kind, rest, 0)
		}
	}

	if m := voiceLabel.FindStringSubmatchIndex(line); m != nil {
		index, err := strconv.Atoi(line[m[2]:m[3]])
		if err != nil {
			return Token{}, false
		}
		return valueToken(KindVoice, line[m[1]:], index)
	}

	return Token{}, false
}

func valueToken(kind Kind, raw string, index int) (Token, bool) {
	value := strings.TrimSpace(norm.NFC.String(raw))
	if value == "" {
		return Token{}, false
	}
	return Token{Kind: kind, Value: value, Index: index}, true
}
