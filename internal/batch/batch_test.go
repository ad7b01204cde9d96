package batch

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boscorat/bankparse/internal/statement"
)

type fakeProcessor struct {
	// per-file behavior keyed by path
	panics  map[string]bool
	errs    map[string]error
	failCAB map[string]bool
	delays  map[string]time.Duration
}

func (f *fakeProcessor) ProcessFile(path, _, _ string) (*statement.Statement, error) {
	if d := f.delays[path]; d > 0 {
		time.Sleep(d)
	}
	if f.panics[path] {
		panic("boom: " + path)
	}
	if err := f.errs[path]; err != nil {
		return nil, err
	}
	stmt := &statement.Statement{ID: "id-" + path, File: path, Success: !f.failCAB[path]}
	return stmt, nil
}

func TestRunIsolatesWorkerFailure(t *testing.T) {
	files := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"}
	proc := &fakeProcessor{panics: map[string]bool{"c.pdf": true}}
	r := NewRunner(proc, slog.Default(), 1)

	b := r.Run(context.Background(), "inbox", files, "", "")

	require.Len(t, b.Outcomes, 5)
	assert.Equal(t, 4, b.SuccessCount)
	assert.Equal(t, 1, b.ErrorCount)

	for i, out := range b.Outcomes {
		assert.Equal(t, i+1, out.BatchLine)
		assert.Equal(t, files[i], out.File)
	}

	failed := b.Outcomes[2]
	assert.False(t, failed.Success)
	assert.True(t, failed.ErrorConfig, "worker failures are configuration-class")
	assert.False(t, failed.ErrorCAB)
	assert.Nil(t, failed.Statement)
	assert.Contains(t, failed.ErrorMessage, "worker failure")
	assert.Contains(t, failed.ErrorMessage, "c.pdf")
}

func TestRunPreservesInputOrderUnderTurbo(t *testing.T) {
	files := []string{"slow.pdf", "mid.pdf", "fast.pdf"}
	proc := &fakeProcessor{delays: map[string]time.Duration{
		"slow.pdf": 60 * time.Millisecond,
		"mid.pdf":  30 * time.Millisecond,
	}}
	r := NewRunner(proc, slog.Default(), 3)

	b := r.Run(context.Background(), "inbox", files, "", "")

	require.Len(t, b.Outcomes, 3)
	for i, out := range b.Outcomes {
		assert.Equal(t, files[i], out.File, "outcomes ordered by input, not completion")
		assert.True(t, out.Success)
	}
	assert.Equal(t, 3, b.SuccessCount)
}

func TestRunClassifiesFailures(t *testing.T) {
	files := []string{"ok.pdf", "unresolved.pdf", "unbalanced.pdf"}
	proc := &fakeProcessor{
		errs:    map[string]error{"unresolved.pdf": errors.New("resolving account: no match")},
		failCAB: map[string]bool{"unbalanced.pdf": true},
	}
	r := NewRunner(proc, slog.Default(), 1)

	b := r.Run(context.Background(), "inbox", files, "", "")

	assert.True(t, b.Outcomes[0].Success)

	unresolved := b.Outcomes[1]
	assert.True(t, unresolved.ErrorConfig)
	assert.False(t, unresolved.ErrorCAB)
	assert.Nil(t, unresolved.Statement)

	unbalanced := b.Outcomes[2]
	assert.False(t, unbalanced.Success)
	assert.True(t, unbalanced.ErrorCAB)
	assert.False(t, unbalanced.ErrorConfig)
	require.NotNil(t, unbalanced.Statement, "reconciliation failures keep their extracted data")

	assert.Equal(t, 1, b.SuccessCount)
	assert.Equal(t, 2, b.ErrorCount)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, 3, b.PDFCount)
}
