package analyzer

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpscout/mcpscout/internal/capability"
	"github.com/mcpscout/mcpscout/internal/finding"
	"github.com/mcpscout/mcpscout/internal/logging"
	"github.com/mcpscout/mcpscout/internal/retry"
)

// fakeClassifier scripts per-call verdicts or errors.
type fakeClassifier struct {
	fn    func(call int, batch []capability.Descriptor) ([]Verdict, error)
	calls int
}

func (f *fakeClassifier) Model() string { return "openai/gpt-test" }

func (f *fakeClassifier) Classify(ctx context.Context, batch []capability.Descriptor) ([]Verdict, error) {
	f.calls++
	return f.fn(f.calls, batch)
}

func newTestHeuristic(classifier Classifier, batchSize int) *Heuristic {
	return NewHeuristic(HeuristicOptions{
		Classifier: classifier,
		BatchSize:  batchSize,
		Retry:      retry.Config{MaxAttempts: 3},
		Logger:     logging.NewLogger(false, false, false),
	})
}

func TestHeuristicMapsVerdictsToFindings(t *testing.T) {
	classifier := &fakeClassifier{fn: func(call int, batch []capability.Descriptor) ([]Verdict, error) {
		return []Verdict{{
			Index:       1,
			Check:       "pii_leakage",
			Severity:    finding.SeverityMedium,
			Confidence:  0.8,
			Title:       "Tool requests personal data",
			Description: "The schema solicits a government ID.",
		}}, nil
	}}

	h := newTestHeuristic(classifier, 8)
	caps := setOf(
		toolDescriptor("read_file", "Reads a document."),
		toolDescriptor("register", "Collects user details."),
	)

	findings, err := h.Analyze(context.Background(), caps)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, finding.AnalyzerHeuristic, f.Analyzer)
	assert.Equal(t, "openai/gpt-test", f.RuleID)
	assert.Equal(t, "pii_leakage", f.Check)
	assert.Equal(t, finding.SeverityMedium, f.Severity)
	assert.Equal(t, 0.8, f.Confidence)
	assert.Equal(t, []capability.Key{{Kind: capability.KindTool, Name: "register"}}, f.Capabilities)
}

func TestHeuristicBatchesSequentially(t *testing.T) {
	var sizes []int
	classifier := &fakeClassifier{fn: func(call int, batch []capability.Descriptor) ([]Verdict, error) {
		sizes = append(sizes, len(batch))
		return nil, nil
	}}

	h := newTestHeuristic(classifier, 2)
	caps := setOf(
		toolDescriptor("a", ""), toolDescriptor("b", ""),
		toolDescriptor("c", ""), toolDescriptor("d", ""),
		toolDescriptor("e", ""),
	)

	_, err := h.Analyze(context.Background(), caps)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestHeuristicDropsMalformedVerdicts(t *testing.T) {
	classifier := &fakeClassifier{fn: func(call int, batch []capability.Descriptor) ([]Verdict, error) {
		return []Verdict{
			{Index: 7, Check: "pii_leakage", Severity: finding.SeverityLow},
			{Index: -1, Check: "pii_leakage", Severity: finding.SeverityLow},
			{Index: 0, Check: "pii_leakage", Severity: "catastrophic"},
			{Index: 0, Check: "pii_leakage", Severity: finding.SeverityLow, Confidence: 0.5},
		}, nil
	}}

	h := newTestHeuristic(classifier, 8)
	findings, err := h.Analyze(context.Background(), setOf(toolDescriptor("a", "")))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, 0.5, findings[0].Confidence)
}

func TestHeuristicClampsConfidence(t *testing.T) {
	classifier := &fakeClassifier{fn: func(call int, batch []capability.Descriptor) ([]Verdict, error) {
		return []Verdict{
			{Index: 0, Check: "jailbreak", Severity: finding.SeverityLow, Confidence: 1.7},
			{Index: 0, Check: "pii_leakage", Severity: finding.SeverityLow, Confidence: -0.2},
		}, nil
	}}

	h := newTestHeuristic(classifier, 8)
	findings, err := h.Analyze(context.Background(), setOf(toolDescriptor("a", "")))
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, 1.0, findings[0].Confidence)
	assert.Equal(t, 0.0, findings[1].Confidence)
}

func TestHeuristicFiltersDisabledChecks(t *testing.T) {
	classifier := &fakeClassifier{fn: func(call int, batch []capability.Descriptor) ([]Verdict, error) {
		return []Verdict{
			{Index: 0, Check: "jailbreak", Severity: finding.SeverityLow},
			{Index: 0, Check: "pii_leakage", Severity: finding.SeverityLow},
		}, nil
	}}

	h := NewHeuristic(HeuristicOptions{
		Classifier: classifier,
		Retry:      retry.Config{MaxAttempts: 1},
		Enabled:    func(check string) bool { return check == "pii_leakage" },
		Logger:     logging.NewLogger(false, false, false),
	})

	findings, err := h.Analyze(context.Background(), setOf(toolDescriptor("a", "")))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "pii_leakage", findings[0].Check)
}

func TestHeuristicRetriesTransientFailures(t *testing.T) {
	classifier := &fakeClassifier{fn: func(call int, batch []capability.Descriptor) ([]Verdict, error) {
		if call == 1 {
			return nil, errors.New("connection reset by peer")
		}
		return []Verdict{{Index: 0, Check: "pii_leakage", Severity: finding.SeverityLow}}, nil
	}}

	h := newTestHeuristic(classifier, 8)
	findings, err := h.Analyze(context.Background(), setOf(toolDescriptor("a", "")))
	require.NoError(t, err)
	assert.Len(t, findings, 1)
	assert.Equal(t, 2, classifier.calls)
}

func TestHeuristicStopsRetryingOnNonTransientRejection(t *testing.T) {
	classifier := &fakeClassifier{fn: func(call int, batch []capability.Descriptor) ([]Verdict, error) {
		return nil, &openai.APIError{HTTPStatusCode: 400, Message: "bad request"}
	}}

	h := newTestHeuristic(classifier, 8)
	findings, err := h.Analyze(context.Background(), setOf(toolDescriptor("a", "")))

	var unavail *UnavailableError
	require.ErrorAs(t, err, &unavail)
	assert.Empty(t, findings)
	assert.Equal(t, 1, classifier.calls, "malformed-request rejections must not be retried")
}

func TestHeuristicKeepsPartialFindingsOnBatchFailure(t *testing.T) {
	classifier := &fakeClassifier{fn: func(call int, batch []capability.Descriptor) ([]Verdict, error) {
		if batch[0].Name == "a" {
			return []Verdict{{Index: 0, Check: "pii_leakage", Severity: finding.SeverityLow}}, nil
		}
		return nil, &openai.APIError{HTTPStatusCode: 401, Message: "invalid api key"}
	}}

	h := newTestHeuristic(classifier, 1)
	findings, err := h.Analyze(context.Background(), setOf(
		toolDescriptor("a", ""),
		toolDescriptor("b", ""),
	))

	var unavail *UnavailableError
	require.ErrorAs(t, err, &unavail)
	assert.Len(t, findings, 1, "successful batches survive a later failure")
}

func TestHeuristicCancellationSurfacesContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	classifier := &fakeClassifier{fn: func(call int, batch []capability.Descriptor) ([]Verdict, error) {
		cancel()
		return nil, ctx.Err()
	}}

	h := newTestHeuristic(classifier, 8)
	_, err := h.Analyze(ctx, setOf(toolDescriptor("a", "")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&openai.APIError{HTTPStatusCode: 429}))
	assert.True(t, isTransient(&openai.APIError{HTTPStatusCode: 503}))
	assert.False(t, isTransient(&openai.APIError{HTTPStatusCode: 401}))
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.True(t, isTransient(&openai.RequestError{HTTPStatusCode: 0, Err: errors.New("dial tcp: refused")}))
	assert.False(t, isTransient(&openai.RequestError{HTTPStatusCode: 404, Err: errors.New("not found")}))
	assert.True(t, isTransient(errors.New("read: connection reset")))
}
