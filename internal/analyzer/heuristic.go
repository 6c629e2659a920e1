package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/mcpscout/mcpscout/internal/capability"
	"github.com/mcpscout/mcpscout/internal/finding"
	"github.com/mcpscout/mcpscout/internal/logging"
	"github.com/mcpscout/mcpscout/internal/retry"
)

// Verdict is one per-descriptor judgment from the classification model.
// Index addresses the descriptor's position within the submitted batch.
type Verdict struct {
	Index       int              `json:"index"`
	Check       string           `json:"check"`
	Severity    finding.Severity `json:"severity"`
	Confidence  float64          `json:"confidence"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
}

// Classifier is the external classification-model collaborator. Responses
// must be idempotent for identical input within one scan. Tests inject a
// fake; production uses the OpenAI implementation.
type Classifier interface {
	Model() string
	Classify(ctx context.Context, batch []capability.Descriptor) ([]Verdict, error)
}

// UnavailableError reports that heuristic analysis could not complete.
// It is non-fatal: the scan proceeds on static and cross-origin findings
// alone, and the report marks the heuristic stage as skipped.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("heuristic analyzer unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Heuristic batches capability descriptors to a classification model with
// per-batch timeout, bounded retry, and a shared rate limit on the
// external service.
type Heuristic struct {
	classifier Classifier
	batchSize  int
	timeout    time.Duration
	retryCfg   retry.Config
	limiter    *rate.Limiter
	enabled    func(check string) bool
	logger     *logging.Logger
}

// HeuristicOptions configures a Heuristic analyzer.
type HeuristicOptions struct {
	Classifier Classifier
	BatchSize  int
	Timeout    time.Duration
	Retry      retry.Config
	// Limiter bounds global throughput to the classification service and
	// is shared across all concurrent server scans.
	Limiter *rate.Limiter
	// Enabled filters verdicts by check name; nil keeps everything.
	Enabled func(check string) bool
	Logger  *logging.Logger
}

// NewHeuristic creates the analyzer.
func NewHeuristic(opts HeuristicOptions) *Heuristic {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 8
	}
	return &Heuristic{
		classifier: opts.Classifier,
		batchSize:  batch,
		timeout:    opts.Timeout,
		retryCfg:   opts.Retry,
		limiter:    opts.Limiter,
		enabled:    opts.Enabled,
		logger:     opts.Logger,
	}
}

// Analyze classifies the capability set in batches. It returns whatever
// findings were produced plus a *UnavailableError if any batch ultimately
// failed, so the caller can mark the stage as degraded without discarding
// partial results.
func (h *Heuristic) Analyze(ctx context.Context, caps *capability.Set) ([]finding.Finding, error) {
	items := caps.Items()
	var findings []finding.Finding
	var failures []error

	for start := 0; start < len(items); start += h.batchSize {
		end := min(start+h.batchSize, len(items))
		batch := items[start:end]

		verdicts, err := h.classifyBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return findings, ctx.Err()
			}
			h.logger.Warning("Heuristic batch %d-%d failed: %v", start, end-1, err)
			failures = append(failures, err)
			continue
		}
		findings = append(findings, h.toFindings(batch, verdicts)...)
	}

	if len(failures) > 0 {
		return findings, &UnavailableError{Err: errors.Join(failures...)}
	}
	return findings, nil
}

// classifyBatch runs one classification call with rate limiting, per-call
// timeout, and bounded backoff. Non-transient rejections stop the retry
// loop immediately.
func (h *Heuristic) classifyBatch(ctx context.Context, batch []capability.Descriptor) ([]Verdict, error) {
	var verdicts []Verdict
	err := retry.Do(ctx, h.retryCfg, func() error {
		if h.limiter != nil {
			if err := h.limiter.Wait(ctx); err != nil {
				return retry.Stop(err)
			}
		}

		callCtx := ctx
		if h.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, h.timeout)
			defer cancel()
		}

		v, err := h.classifier.Classify(callCtx, batch)
		if err != nil {
			if !isTransient(err) {
				return retry.Stop(err)
			}
			return err
		}
		verdicts = v
		return nil
	})
	return verdicts, err
}

func (h *Heuristic) toFindings(batch []capability.Descriptor, verdicts []Verdict) []finding.Finding {
	var out []finding.Finding
	for _, v := range verdicts {
		if v.Index < 0 || v.Index >= len(batch) {
			h.logger.WarningVerbose("Classifier returned out-of-range index %d, dropping verdict", v.Index)
			continue
		}
		if !v.Severity.IsValid() {
			h.logger.WarningVerbose("Classifier returned unknown severity %q, dropping verdict", v.Severity)
			continue
		}
		if h.enabled != nil && !h.enabled(v.Check) {
			continue
		}
		confidence := v.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		out = append(out, finding.Finding{
			Capabilities: []capability.Key{batch[v.Index].Key()},
			Analyzer:     finding.AnalyzerHeuristic,
			RuleID:       h.classifier.Model(),
			Check:        v.Check,
			Severity:     v.Severity,
			Confidence:   confidence,
			Title:        v.Title,
			Description:  v.Description,
		})
	}
	return out
}

// isTransient reports whether a classification failure is worth retrying:
// network-level errors, rate limiting, and server-side failures are;
// malformed-request rejections are not.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	// Errors below the HTTP layer (dial, reset) arrive unwrapped.
	return true
}
