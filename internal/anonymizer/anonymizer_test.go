// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package anonymizer

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pii-anonymizer/internal/detector"
	"pii-anonymizer/internal/detector/patterns"
	"pii-anonymizer/internal/redactor"
	"pii-anonymizer/internal/table"
)

// fakeDetector returns fixed spans per input text
type fakeDetector struct {
	spans    map[string][]detector.Span
	fail     map[string]error
	calls    atomic.Int32
	language atomic.Value
}

func (f *fakeDetector) Name() string { return "fake" }

func (f *fakeDetector) Detect(ctx context.Context, text, language string) ([]detector.Span, error) {
	f.calls.Add(1)
	f.language.Store(language)
	if err := f.fail[text]; err != nil {
		return nil, err
	}
	return append([]detector.Span(nil), f.spans[text]...), nil
}

const contact = "Contact John Doe at john@example.com, see https://example.com"

func contactDetector() *fakeDetector {
	return &fakeDetector{spans: map[string][]detector.Span{
		contact: {
			{Start: 8, End: 16, EntityType: "PERSON", Score: 0.85},
			{Start: 20, End: 36, EntityType: "EMAIL_ADDRESS", Score: 1.0},
			{Start: 42, End: 61, EntityType: "URL", Score: 0.5},
			// Presidio commonly reports the email domain as a URL as well
			{Start: 25, End: 36, EntityType: "URL", Score: 0.5},
		},
	}}
}

func TestAnonymizeText_ExcludesURLsByDefault(t *testing.T) {
	det := contactDetector()
	a := New(det, DefaultOptions())

	res, err := a.AnonymizeText(context.Background(), contact)
	require.NoError(t, err)

	assert.Equal(t, "Contact ******** at ****************, see https://example.com", res.Text)
	assert.Equal(t, map[string]int{"PERSON": 1, "EMAIL_ADDRESS": 1}, res.EntityCounts)
	assert.Len(t, res.Spans, 2)
	assert.Equal(t, "en", det.language.Load())
}

func TestAnonymizeText_ConfigurableExclusions(t *testing.T) {
	opts := DefaultOptions()
	opts.ExcludeEntities = []string{"person"}
	a := New(contactDetector(), opts)

	res, err := a.AnonymizeText(context.Background(), contact)
	require.NoError(t, err)

	// The email outranks the overlapping URL finding inside it
	assert.Equal(t, "Contact John Doe at ****************, see *******************", res.Text)
	assert.Equal(t, map[string]int{"EMAIL_ADDRESS": 1, "URL": 1}, res.EntityCounts)
}

func TestAnonymizeText_EmptyTextSkipsDetector(t *testing.T) {
	det := contactDetector()
	res, err := New(det, DefaultOptions()).AnonymizeText(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "", res.Text)
	assert.Empty(t, res.Spans)
	assert.Equal(t, int32(0), det.calls.Load())
}

func TestAnonymizeText_AllowListAndScore(t *testing.T) {
	opts := DefaultOptions()
	opts.AllowList = []string{" john doe "}
	opts.MinScore = 0.9
	a := New(contactDetector(), opts)

	res, err := a.AnonymizeText(context.Background(), contact)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"EMAIL_ADDRESS": 1}, res.EntityCounts)
	assert.True(t, strings.HasPrefix(res.Text, "Contact John Doe at ****"))
}

func TestAnonymizeText_TagMasker(t *testing.T) {
	opts := DefaultOptions()
	opts.Masker = redactor.EntityTag()
	opts.Language = "de"
	det := contactDetector()

	res, err := New(det, opts).AnonymizeText(context.Background(), contact)
	require.NoError(t, err)
	assert.Equal(t, "Contact <PERSON> at <EMAIL_ADDRESS>, see https://example.com", res.Text)
	assert.Equal(t, "de", det.language.Load())
	require.Len(t, res.Mappings, 2)
	assert.Equal(t, 8, res.Mappings[0].OutputStart)
}

func TestAnonymizeText_DetectorError(t *testing.T) {
	boom := errors.New("analyzer down")
	det := &fakeDetector{fail: map[string]error{"x": boom}}

	_, err := New(det, DefaultOptions()).AnonymizeText(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrDetection)
	assert.Contains(t, err.Error(), "fake detection failed: analyzer down")
}

func TestAnonymizeText_InvalidDetectorSpans(t *testing.T) {
	det := &fakeDetector{spans: map[string][]detector.Span{
		"short": {{Start: 2, End: 40, EntityType: "X", Score: 1}},
	}}

	_, err := New(det, DefaultOptions()).AnonymizeText(context.Background(), "short")
	require.Error(t, err)
	assert.ErrorIs(t, err, redactor.ErrOutOfRangeSpan)
}

func TestAnonymizeTable_OnlyTextColumns(t *testing.T) {
	det := &fakeDetector{spans: map[string][]detector.Span{
		"John Doe":         {{Start: 0, End: 8, EntityType: "PERSON", Score: 0.85}},
		"jane@corp.io":     {{Start: 0, End: 12, EntityType: "EMAIL_ADDRESS", Score: 1}},
		"call 555-234-5678": {{Start: 5, End: 17, EntityType: "PHONE_NUMBER", Score: 0.75}},
	}}
	in := table.New(
		[]string{"name", "contact", "age"},
		[][]string{
			{"John Doe", "jane@corp.io", "42"},
			{"", "call 555-234-5678", "37"},
		},
	)
	before := in.Clone()

	opts := DefaultOptions()
	opts.Workers = 3
	var progress atomic.Int32
	opts.Progress = func(completed, total int) { progress.Add(1) }

	res, err := New(det, opts).AnonymizeTable(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"********", "************", "42"},
		{"", "call ************", "37"},
	}, res.Redacted.Rows)
	assert.Equal(t, []string{"name", "contact"}, res.TextColumns)
	assert.Equal(t, map[string]int{"PERSON": 1, "EMAIL_ADDRESS": 1, "PHONE_NUMBER": 1}, res.EntityCounts)
	assert.Equal(t, 3, res.Cells)
	assert.Equal(t, int32(3), det.calls.Load())
	assert.Equal(t, int32(3), progress.Load())

	assert.Equal(t, before, in, "input table must not be modified")
}

func TestAnonymizeTable_AggregatesCellErrors(t *testing.T) {
	det := &fakeDetector{fail: map[string]error{
		"bad one": errors.New("timeout"),
		"bad two": errors.New("rate limited"),
	}}
	in := table.New([]string{"notes"}, [][]string{{"fine"}, {"bad one"}, {"bad two"}})

	res, err := New(det, DefaultOptions()).AnonymizeTable(context.Background(), in)
	require.Error(t, err)
	assert.Nil(t, res)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)

	var cellErr *CellError
	require.True(t, errors.As(merr.Errors[0], &cellErr))
	assert.Equal(t, 1, cellErr.Row)
	assert.Equal(t, "notes", cellErr.Column)
	assert.Contains(t, err.Error(), `row 3, column "notes"`)
	assert.ErrorIs(t, err, ErrDetection)
}

func TestAnonymizeTable_FromText(t *testing.T) {
	a := New(patterns.New(), DefaultOptions())

	res, err := a.AnonymizeTable(context.Background(), table.FromText("Contact John Doe at john@example.com"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Contact ******** at ****************"}}, res.Redacted.Rows)
	assert.Equal(t, []string{"text"}, res.Redacted.Columns)
}

func TestAnonymizeTable_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	det := &fakeDetector{}
	rows := make([][]string, 20)
	for i := range rows {
		rows[i] = []string{"text"}
	}

	_, err := New(det, DefaultOptions()).AnonymizeTable(ctx, table.New([]string{"c"}, rows))
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	a := New(contactDetector(), Options{})
	assert.Equal(t, "fake", a.DetectorName())

	// zero Options still masks with asterisks and keeps URLs
	res, err := a.AnonymizeText(context.Background(), contact)
	require.NoError(t, err)
	assert.Equal(t, 1, res.EntityCounts["URL"])
}

func TestWithLanguageAndProgress(t *testing.T) {
	det := contactDetector()
	base := New(det, DefaultOptions())

	assert.Same(t, base, base.WithLanguage(""))
	assert.Same(t, base, base.WithLanguage("en"))

	de := base.WithLanguage("de")
	assert.Equal(t, "de", de.Language())
	assert.Equal(t, "en", base.Language())

	var calls atomic.Int32
	withProgress := de.WithProgress(func(completed, total int) { calls.Add(1) })
	_, err := withProgress.AnonymizeTable(context.Background(), table.FromText(contact))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "de", det.language.Load())
}

func TestAnonymizeText_PartialOverlapMasksUnion(t *testing.T) {
	const text = "Patient ID 123-45-6789-0042 seen"
	det := &fakeDetector{spans: map[string][]detector.Span{
		text: {
			{Start: 11, End: 22, EntityType: "US_SSN", Score: 0.85},
			{Start: 15, End: 27, EntityType: "MEDICAL_LICENSE", Score: 0.6},
		},
	}}

	res, err := New(det, DefaultOptions()).AnonymizeText(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, "Patient ID **************** seen", res.Text)
	for _, s := range det.spans[text] {
		for i := s.Start; i < s.End; i++ {
			assert.Equal(t, '*', []rune(res.Text)[i], "character %d of %s left unmasked", i, s)
		}
	}
	assert.Equal(t, map[string]int{"US_SSN": 1}, res.EntityCounts)
	require.Len(t, res.Spans, 1)
	assert.Equal(t, detector.Span{Start: 11, End: 27, EntityType: "US_SSN", Score: 0.85}, res.Spans[0])
}

func TestAnonymizeText_PartialOverlapTagged(t *testing.T) {
	const text = "Patient ID 123-45-6789-0042 seen"
	det := &fakeDetector{spans: map[string][]detector.Span{
		text: {
			{Start: 15, End: 27, EntityType: "MEDICAL_LICENSE", Score: 0.6},
			{Start: 11, End: 22, EntityType: "US_SSN", Score: 0.85},
		},
	}}
	opts := DefaultOptions()
	opts.Masker = redactor.EntityTag()

	res, err := New(det, opts).AnonymizeText(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, "Patient ID <US_SSN> seen", res.Text)
}
