// Package mention implements the @-mention grammar used in thought
// titles and bodies.
//
// A mention is either a quoted form, @"any text without a quote", or an
// unquoted token running from the @ to the nearest boundary: end of
// input, whitespace, one of the punctuation characters `. , ! ? ; :`,
// or another @. The unquoted scan takes the shortest span that reaches
// a boundary, so multi-word mentions require the quoted form.
//
// Scanning and linking are deliberately two separate passes: Strip
// removes every mention span whether or not it resolves, while Extract
// only yields ids for spans whose text equals an existing title
// (case-insensitive). An unresolved @foo therefore disappears from
// persisted text yet creates no connection.
package mention

import (
	"strings"

	"thoughtgraph/domain/thought"
)

// MaxSuggestions caps the candidate list returned by Suggest.
const MaxSuggestions = 5

// Span is one mention occurrence. Start and End are byte offsets of the
// whole span including the @ and any quotes; Text is the captured title.
type Span struct {
	Start  int
	End    int
	Text   string
	Quoted bool
}

// Scan finds every mention span in text, resolved or not.
func Scan(text string) []Span {
	var spans []Span
	i := 0
	for i < len(text) {
		if text[i] != '@' {
			i++
			continue
		}
		if span, ok := scanAt(text, i); ok {
			spans = append(spans, span)
			i = span.End
			continue
		}
		i++
	}
	return spans
}

// scanAt attempts to read one mention starting at the @ at offset at.
func scanAt(text string, at int) (Span, bool) {
	rest := text[at+1:]
	if strings.HasPrefix(rest, `"`) {
		if end := strings.IndexByte(rest[1:], '"'); end > 0 {
			return Span{
				Start:  at,
				End:    at + 1 + 1 + end + 1,
				Text:   rest[1 : 1+end],
				Quoted: true,
			}, true
		}
		// Unterminated quote: fall through and treat the quote as an
		// ordinary token character.
	}

	n := 0
	for n < len(rest) && !isBoundary(rest[n]) {
		n++
	}
	if n == 0 {
		return Span{}, false
	}
	return Span{Start: at, End: at + 1 + n, Text: rest[:n]}, true
}

// isBoundary reports whether b terminates an unquoted mention token.
func isBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '@', '.', ',', '!', '?', ';', ':':
		return true
	}
	return false
}

// Strip removes every mention span from text and trims the result.
func Strip(text string) string {
	spans := Scan(text)
	if len(spans) == 0 {
		return strings.TrimSpace(text)
	}
	var b strings.Builder
	last := 0
	for _, s := range spans {
		b.WriteString(text[last:s.Start])
		last = s.End
	}
	b.WriteString(text[last:])
	return strings.TrimSpace(b.String())
}

// Extract resolves the mentions in text against the given collection and
// returns the ids of matched thoughts, de-duplicated in span order.
// Matching is case-insensitive title equality over the captured span;
// a span matching no title produces nothing.
func Extract(text string, thoughts []thought.Thought) []string {
	spans := Scan(text)
	if len(spans) == 0 {
		return nil
	}

	byTitle := make(map[string]string, len(thoughts))
	for _, t := range thoughts {
		key := strings.ToLower(t.Title)
		if _, ok := byTitle[key]; !ok {
			byTitle[key] = t.ID
		}
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, s := range spans {
		id, ok := byTitle[strings.ToLower(s.Text)]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Suggestion describes an in-progress mention at the cursor.
type Suggestion struct {
	// Query is the lowercased partial text typed after the @.
	Query string
	// Start is the byte offset of the @ that opened the mention.
	Start int
	// Candidates are thoughts whose titles contain Query, in collection
	// order, at most MaxSuggestions of them.
	Candidates []thought.Thought

	// rawLen is the byte length of the partial as typed. Lowercasing can
	// change byte length (e.g. U+0130), so Query is not a safe measure
	// of the span being replaced.
	rawLen int
}

// Suggest locates the nearest unterminated @ run ending at the cursor
// and returns completion candidates. It returns ok=false when the text
// before the cursor holds no @, or the run already contains a space.
func Suggest(text string, cursor int, thoughts []thought.Thought) (Suggestion, bool) {
	if cursor < 0 || cursor > len(text) {
		return Suggestion{}, false
	}
	before := text[:cursor]
	at := strings.LastIndexByte(before, '@')
	if at == -1 {
		return Suggestion{}, false
	}
	partial := before[at+1:]
	if strings.Contains(partial, " ") {
		return Suggestion{}, false
	}

	query := strings.ToLower(partial)
	s := Suggestion{Query: query, Start: at, rawLen: len(partial)}
	for _, t := range thoughts {
		if strings.Contains(strings.ToLower(t.Title), query) {
			s.Candidates = append(s.Candidates, t)
			if len(s.Candidates) == MaxSuggestions {
				break
			}
		}
	}
	return s, len(s.Candidates) > 0
}

// Insert replaces the in-progress mention described by s with a
// completed mention of title, quoting it when it contains a space.
func (s Suggestion) Insert(text, title string) string {
	completed := "@" + title
	if strings.Contains(title, " ") {
		completed = `@"` + title + `"`
	}
	after := text[s.Start+1+s.rawLen:]
	return text[:s.Start] + completed + after
}
