package catalog

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
)

// ErrMalformedStream is returned when the input cannot be turned into records.
var ErrMalformedStream = errors.New("malformed catalog stream")

// ParseError locates a malformed-stream failure in the input.
type ParseError struct {
	Line   int
	Kind   Kind
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d (%s): %s", e.Line, e.Kind, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedStream
}

// builder is the fold state: the closed records and the record still being filled.
// apply only appends past the end of prints, so a state it was given never changes.
type builder struct {
	prints []Print
	cur    Print
	open   bool
}

// apply folds one token into the state and returns the new state.
func (b builder) apply(tok Token) (builder, error) {
	switch tok.Kind {
	case KindBoundary:
		return b.close(), nil
	case KindPrint:
		id, err := strconv.Atoi(tok.Value)
		if err != nil {
			return b, &ParseError{Line: tok.Line, Kind: tok.Kind, Reason: fmt.Sprintf("print number %q is not an integer", tok.Value)}
		}
		b = b.close()
		b.cur = Print{ID: id}
		b.open = true
		return b, nil
	}

	if !b.open {
		return b, &ParseError{Line: tok.Line, Kind: tok.Kind, Reason: "field appears before any print number"}
	}

	b.cur = applyField(b.cur, tok)
	return b, nil
}

// close moves the open record, if any, to the finished list.
func (b builder) close() builder {
	if b.open {
		b.prints = append(b.prints, b.cur)
		b.cur = Print{}
		b.open = false
	}
	return b
}

// records returns every record of the state, including the open one.
func (b builder) records() []Print {
	if !b.open {
		return b.prints
	}
	return append(slices.Clip(b.prints), b.cur)
}

// applyField returns p with one field applied. Scalar fields overwrite; lists append.
func applyField(p Print, tok Token) Print {
	c := p.Edition.Composition
	switch tok.Kind {
	case KindComposer:
		c = c.withComposers(ParseComposers(tok.Value))
	case KindTitle:
		c.Name = tok.Value
	case KindGenre:
		c.Genre = tok.Value
	case KindKey:
		c.Key = tok.Value
	case KindCompositionYear:
		c.Year = ParseYear(tok.Value)
	case KindVoice:
		c = c.withVoice(ParseVoice(tok.Value))
	case KindIncipit:
		c.Incipit = tok.Value
	case KindEdition:
		p.Edition.Name = tok.Value
	case KindEditor:
		p.Edition = p.Edition.withEditors(ParseEditors(tok.Value))
	case KindPartiture:
		p.Partiture = ParsePartiture(tok.Value)
	}
	p.Edition.Composition = c
	return p
}

// Parse reads a whole catalog stream and returns its records in input order.
// A field line before the first print number aborts with ErrMalformedStream.
func Parse(r io.Reader) ([]Print, error) {
	tokens := NewTokenizer(r)

	var (
		state builder
		err   error
	)
	for tok, ok := tokens.Next(); ok; tok, ok = tokens.Next() {
		if state, err = state.apply(tok); err != nil {
			return nil, err
		}
	}
	if err := tokens.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	return state.records(), nil
}
