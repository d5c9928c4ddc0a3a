// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactor

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pii-anonymizer/internal/detector"
)

func span(start, end int, entity string) detector.Span {
	return detector.Span{Start: start, End: end, EntityType: entity}
}

func TestRedact_ContactExample(t *testing.T) {
	text := "Contact John Doe at john@example.com"
	spans := []detector.Span{span(8, 16, "PERSON"), span(20, 36, "EMAIL_ADDRESS")}

	got, err := Redact(text, spans)
	require.NoError(t, err)
	assert.Equal(t, "Contact ******** at ****************", got)
}

func TestRedact_SpanPastEndRejected(t *testing.T) {
	// The email ends at 36; an end offset of 37 lies outside the text
	text := "Contact John Doe at john@example.com"
	spans := []detector.Span{span(8, 16, "PERSON"), span(20, 37, "EMAIL_ADDRESS")}

	_, err := Redact(text, spans)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfRangeSpan)

	var spanErr *SpanError
	require.True(t, errors.As(err, &spanErr))
	assert.Equal(t, 1, spanErr.Index)
	assert.Equal(t, 36, spanErr.TextLength)
}

func TestRedact_EmptySpans(t *testing.T) {
	for _, text := range []string{"", "nothing here", "ünïcödé"} {
		got, err := Redact(text, nil)
		require.NoError(t, err)
		assert.Equal(t, text, got)

		got, err = Redact(text, []detector.Span{})
		require.NoError(t, err)
		assert.Equal(t, text, got)
	}
}

func TestRedact_Boundaries(t *testing.T) {
	text := "abcdefgh"

	got, err := Redact(text, []detector.Span{span(0, 3, "A"), span(5, 8, "B")})
	require.NoError(t, err)
	assert.Equal(t, "***de***", got)

	got, err = Redact(text, []detector.Span{span(0, 8, "ALL")})
	require.NoError(t, err)
	assert.Equal(t, "********", got)
}

func TestRedact_AdjacentSpans(t *testing.T) {
	got, err := Redact("abcdefgh", []detector.Span{span(2, 4, "A"), span(4, 6, "B")})
	require.NoError(t, err)
	assert.Equal(t, "ab****gh", got)
}

func TestRedact_MultibyteCharacters(t *testing.T) {
	text := "Grüße an Jürgen Müller"
	got, err := Redact(text, []detector.Span{span(9, 22, "PERSON")})
	require.NoError(t, err)
	assert.Equal(t, "Grüße an *************", got)
	assert.Equal(t, utf8.RuneCountInString(text), utf8.RuneCountInString(got))
}

func TestRedact_ValidationFailures(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		spans []detector.Span
		kind  ErrorKind
		want  error
		index int
	}{
		{
			name:  "overlapping spans",
			text:  "abcdefgh",
			spans: []detector.Span{span(0, 5, "A"), span(3, 8, "B")},
			kind:  OverlappingSpans,
			want:  ErrOverlappingSpans,
			index: 1,
		},
		{
			name:  "same start overlaps",
			text:  "abcdefgh",
			spans: []detector.Span{span(2, 4, "A"), span(2, 6, "B")},
			kind:  OverlappingSpans,
			want:  ErrOverlappingSpans,
			index: 1,
		},
		{
			name:  "reversed order",
			text:  "abcdefgh",
			spans: []detector.Span{span(5, 7, "A"), span(0, 2, "B")},
			kind:  InvalidSpanOrder,
			want:  ErrInvalidSpanOrder,
			index: 1,
		},
		{
			name:  "zero width",
			text:  "abcdefgh",
			spans: []detector.Span{span(4, 4, "X")},
			kind:  OutOfRangeSpan,
			want:  ErrOutOfRangeSpan,
		},
		{
			name:  "end before start",
			text:  "abcdefgh",
			spans: []detector.Span{span(5, 2, "X")},
			kind:  OutOfRangeSpan,
			want:  ErrOutOfRangeSpan,
		},
		{
			name:  "negative start",
			text:  "abcdefgh",
			spans: []detector.Span{span(-1, 2, "X")},
			kind:  OutOfRangeSpan,
			want:  ErrOutOfRangeSpan,
		},
		{
			name:  "end past text",
			text:  "abc",
			spans: []detector.Span{span(1, 4, "X")},
			kind:  OutOfRangeSpan,
			want:  ErrOutOfRangeSpan,
		},
		{
			name:  "counts characters not bytes",
			text:  "äöü",
			spans: []detector.Span{span(0, 4, "X")},
			kind:  OutOfRangeSpan,
			want:  ErrOutOfRangeSpan,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Redact(tc.text, tc.spans)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.kind, KindOf(err))

			var spanErr *SpanError
			require.True(t, errors.As(err, &spanErr))
			assert.Equal(t, tc.index, spanErr.Index)
			assert.Contains(t, err.Error(), tc.kind.String())
		})
	}
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("boom")))
	assert.Equal(t, ErrorKind(0), KindOf(nil))
}

func TestRedactWith_EntityTagShiftsOffsets(t *testing.T) {
	text := "Mail ann@corp.io or call 555-123-4567 now"
	spans := []detector.Span{span(5, 16, "EMAIL_ADDRESS"), span(25, 37, "PHONE_NUMBER")}

	result, err := RedactWith(text, spans, EntityTag())
	require.NoError(t, err)
	assert.Equal(t, "Mail <EMAIL_ADDRESS> or call <PHONE_NUMBER> now", result.Text)

	require.Len(t, result.Mappings, 2)
	for _, m := range result.Mappings {
		runes := []rune(result.Text)
		assert.Equal(t, m.Replacement, string(runes[m.OutputStart:m.OutputEnd]))
	}
}

func TestRedactWith_Repeat(t *testing.T) {
	result, err := RedactWith("id 1234", []detector.Span{span(3, 7, "ID")}, Repeat('#'))
	require.NoError(t, err)
	assert.Equal(t, "id ####", result.Text)
	assert.Equal(t, []Mapping{{Span: span(3, 7, "ID"), Replacement: "####", OutputStart: 3, OutputEnd: 7}}, result.Mappings)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyMask, s)

	s, err = ParseStrategy(" TAG ")
	require.NoError(t, err)
	assert.Equal(t, StrategyTag, s)

	_, err = ParseStrategy("synthetic")
	assert.Error(t, err)
}

func TestNewMasker(t *testing.T) {
	sp := span(0, 3, "US_SSN")
	assert.Equal(t, "***", NewMasker(StrategyMask, 0).Mask("abc", sp))
	assert.Equal(t, "xxx", NewMasker(StrategyMask, 'x').Mask("abc", sp))
	assert.Equal(t, "<US_SSN>", NewMasker(StrategyTag, 0).Mask("abc", sp))
}

// randomCase builds a text and a valid, sorted, non-overlapping span list
func randomCase(rng *rand.Rand) (string, []detector.Span) {
	alphabet := []rune("abc XYZ 012 @.-éß漢")
	n := rng.Intn(60)
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = alphabet[rng.Intn(len(alphabet))]
	}

	var spans []detector.Span
	pos := 0
	for pos < n {
		start := pos + rng.Intn(5)
		if start >= n {
			break
		}
		end := start + 1 + rng.Intn(6)
		if end > n {
			end = n
		}
		spans = append(spans, span(start, end, "X"))
		pos = end
	}
	return string(runes), spans
}

func TestRedact_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		text, spans := randomCase(rng)
		got, err := Redact(text, spans)
		require.NoError(t, err, "text=%q spans=%v", text, spans)

		in := []rune(text)
		out := []rune(got)

		// Length preservation
		require.Len(t, out, len(in))

		covered := make([]bool, len(in))
		for _, s := range spans {
			for p := s.Start; p < s.End; p++ {
				covered[p] = true
			}
		}
		for p := range in {
			if covered[p] {
				// Span coverage
				require.Equal(t, '*', out[p], "position %d of %q", p, got)
			} else {
				// Non-span preservation
				require.Equal(t, in[p], out[p], "position %d of %q", p, got)
			}
		}

		// Idempotence under re-detection
		again, err := Redact(got, spans)
		require.NoError(t, err)
		require.Equal(t, got, again)
	}
}

func TestRedact_ConcurrentUse(t *testing.T) {
	text := strings.Repeat("Contact John Doe at john@example.com. ", 50)
	spans := []detector.Span{span(8, 16, "PERSON"), span(20, 36, "EMAIL_ADDRESS")}
	want, err := Redact(text, spans)
	require.NoError(t, err)

	done := make(chan string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			got, _ := Redact(text, spans)
			done <- got
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-done)
	}
}

func FuzzRedact(f *testing.F) {
	f.Add("Contact John Doe at john@example.com", 8, 16, 20, 36)
	f.Add("abcdefgh", 0, 5, 3, 8)
	f.Add("", 0, 0, 0, 0)

	f.Fuzz(func(t *testing.T, text string, s1, e1, s2, e2 int) {
		spans := []detector.Span{span(s1, e1, "A"), span(s2, e2, "B")}
		got, err := Redact(text, spans)
		if err != nil {
			if KindOf(err) == 0 {
				t.Fatalf("untyped error: %v", err)
			}
			return
		}
		if utf8.RuneCountInString(got) != len([]rune(text)) {
			t.Fatalf("length changed: %q -> %q", text, got)
		}
	})
}
