package template

import (
	"fmt"
	"strings"
)

// SpanKind distinguishes literal text from a placeholder reference.
type SpanKind int

const (
	SpanLiteral SpanKind = iota
	SpanPlaceholder
)

// Span is one segment of a template string. For placeholders, Text holds
// the trimmed identifier without the surrounding braces.
type Span struct {
	Kind SpanKind
	Text string
}

// MalformedError reports a template whose braces do not balance, e.g. a
// dangling "{{" with no closing "}}". Ambiguity is surfaced, never guessed.
type MalformedError struct {
	Input  string
	Offset int
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed template: unclosed {{ at offset %d in %q", e.Offset, e.Input)
}

// Lex splits input into literal and placeholder spans in a single
// left-to-right scan. Placeholders do not nest; an opening "{{" without a
// matching "}}" is an error, and an empty "{{}}" is rejected too.
func Lex(input string) ([]Span, error) {
	var spans []Span
	rest := input
	offset := 0

	for {
		open := strings.Index(rest, "{{")
		if open == -1 {
			if rest != "" {
				spans = append(spans, Span{Kind: SpanLiteral, Text: rest})
			}
			return spans, nil
		}

		if open > 0 {
			spans = append(spans, Span{Kind: SpanLiteral, Text: rest[:open]})
		}

		closing := strings.Index(rest[open+2:], "}}")
		if closing == -1 {
			return nil, &MalformedError{Input: input, Offset: offset + open}
		}

		name := strings.TrimSpace(rest[open+2 : open+2+closing])
		if name == "" {
			return nil, &MalformedError{Input: input, Offset: offset + open}
		}
		spans = append(spans, Span{Kind: SpanPlaceholder, Text: name})

		consumed := open + 2 + closing + 2
		offset += consumed
		rest = rest[consumed:]
	}
}

// Placeholders returns the distinct placeholder names in input, in order of
// first appearance. Malformed input yields the lexer error.
func Placeholders(input string) ([]string, error) {
	spans, err := Lex(input)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	for _, span := range spans {
		if span.Kind != SpanPlaceholder || seen[span.Text] {
			continue
		}
		seen[span.Text] = true
		names = append(names, span.Text)
	}
	return names, nil
}
