// Package scanner coordinates a scan: it negotiates a session per target,
// discovers the capability set, fans out to the analyzers, and aggregates
// their findings into a report. Targets are scanned concurrently on a
// bounded worker pool; one target's failure never aborts its siblings.
package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcpscout/mcpscout/internal/analyzer"
	"github.com/mcpscout/mcpscout/internal/config"
	"github.com/mcpscout/mcpscout/internal/finding"
	"github.com/mcpscout/mcpscout/internal/logging"
	"github.com/mcpscout/mcpscout/internal/transport"
)

// State tracks one target's progress through the scan pipeline.
type State int

const (
	StatePending State = iota
	StateNegotiating
	StateDiscovering
	StateAnalyzing
	StateAggregating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateNegotiating:
		return "negotiating"
	case StateDiscovering:
		return "discovering"
	case StateAnalyzing:
		return "analyzing"
	case StateAggregating:
		return "aggregating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// session is the scanner's view of a negotiated connection.
// *transport.Session implements it; tests inject fakes.
type session interface {
	capabilitySource
	Info() transport.ServerInfo
	Transport() transport.Kind
	Close()
}

// dialer produces sessions. Production wraps *transport.Negotiator.
type dialer interface {
	Connect(ctx context.Context, target transport.Target) (session, error)
}

// negotiatorDialer adapts the concrete negotiator to the dialer seam.
type negotiatorDialer struct {
	n *transport.Negotiator
}

func (d negotiatorDialer) Connect(ctx context.Context, target transport.Target) (session, error) {
	sess, err := d.n.Connect(ctx, target)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Orchestrator is the top-level scan coordinator.
type Orchestrator struct {
	cfg         *config.Config
	dial        dialer
	discoverer  *Discoverer
	static      *analyzer.StaticEngine
	heuristic   *analyzer.Heuristic
	crossOrigin *analyzer.CrossOrigin
	logger      *logging.Logger
}

// Options wires the orchestrator's collaborators. Heuristic may be nil
// when the analyzer is disabled; reports then mark the stage as skipped.
type Options struct {
	Config     *config.Config
	Negotiator *transport.Negotiator
	Discoverer *Discoverer
	Static     *analyzer.StaticEngine
	Heuristic  *analyzer.Heuristic
	Logger     *logging.Logger
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		cfg:         opts.Config,
		dial:        negotiatorDialer{n: opts.Negotiator},
		discoverer:  opts.Discoverer,
		static:      opts.Static,
		heuristic:   opts.Heuristic,
		crossOrigin: analyzer.NewCrossOrigin(),
		logger:      opts.Logger,
	}
}

// ScanAll scans every target concurrently over the worker pool and
// returns one report per target, in target order. It always returns a
// report for each target; expected failure modes surface in the report's
// outcome, never as an error.
func (o *Orchestrator) ScanAll(ctx context.Context, targets []transport.Target) []*finding.Report {
	reports := make([]*finding.Report, len(targets))
	pool := NewPool(o.cfg.Workers)

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			reports[i] = o.Scan(ctx, target)
		})
	}
	wg.Wait()
	pool.Close()
	return reports
}

// Scan runs the full pipeline for one target under the per-server
// wall-clock timeout.
func (o *Orchestrator) Scan(ctx context.Context, target transport.Target) *finding.Report {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ScanTimeout)
	defer cancel()

	report := &finding.Report{
		ScanID:    uuid.NewString(),
		Server:    finding.ServerInfo{Specifier: target.Specifier},
		StartedAt: time.Now(),
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
	}()

	state := StatePending

	// Negotiating.
	state = o.transition(target, state, StateNegotiating)
	sess, err := o.dial.Connect(ctx, target)
	if err != nil {
		return o.fail(target, state, report, reasonForConnectError(err))
	}
	defer sess.Close()

	info := sess.Info()
	report.Server.Name = info.Name
	report.Server.Version = info.Version
	report.Server.ProtocolVersion = info.ProtocolVersion
	report.Server.Transport = string(sess.Transport())

	// Discovering.
	state = o.transition(target, state, StateDiscovering)
	caps, partial := o.discoverer.Discover(ctx, sess)
	if partial != nil && caps.Len() == 0 {
		return o.fail(target, state, report, partial.Error())
	}
	report.Capabilities = caps.Items()
	o.logger.Info("Discovered %d capabilities on %s", caps.Len(), target.Specifier)

	// Analyzing. The capability set is immutable from here on, so the
	// analyzers run in parallel without locking.
	state = o.transition(target, state, StateAnalyzing)
	var (
		staticFindings []finding.Finding
		heurFindings   []finding.Finding
		heurErr        error
		chainFindings  []finding.Finding
		awg            sync.WaitGroup
	)
	awg.Add(1)
	go func() {
		defer awg.Done()
		staticFindings = o.static.Analyze(caps)
	}()
	if o.cfg.CheckEnabled(config.CheckCrossOrigin) {
		awg.Add(1)
		go func() {
			defer awg.Done()
			chainFindings = o.crossOrigin.Analyze(caps)
		}()
	}
	if o.heuristic != nil {
		awg.Add(1)
		go func() {
			defer awg.Done()
			heurFindings, heurErr = o.heuristic.Analyze(ctx, caps)
		}()
	} else {
		report.HeuristicSkipped = true
		report.HeuristicSkipReason = "heuristic analyzer disabled"
	}
	awg.Wait()

	if heurErr != nil {
		var unavail *analyzer.UnavailableError
		if errors.As(heurErr, &unavail) {
			report.HeuristicSkipped = true
			report.HeuristicSkipReason = unavail.Error()
			o.logger.Warning("Heuristic analysis degraded for %s: %v", target.Specifier, unavail)
		} else if ctx.Err() != nil {
			report.HeuristicSkipped = true
			report.HeuristicSkipReason = "heuristic analysis cancelled by scan timeout"
		} else {
			report.HeuristicSkipped = true
			report.HeuristicSkipReason = heurErr.Error()
		}
	}

	// Aggregating.
	state = o.transition(target, state, StateAggregating)
	report.Findings = finding.Aggregate(staticFindings, heurFindings, chainFindings)
	report.OverallSeverity = finding.OverallSeverity(report.Findings)

	switch {
	case partial != nil:
		report.Outcome = finding.OutcomePartialFailure
		report.Reason = partial.Error()
	case ctx.Err() != nil && report.HeuristicSkipped:
		report.Outcome = finding.OutcomePartialFailure
		report.Reason = "scan timeout during analysis"
	default:
		report.Outcome = finding.OutcomeSuccess
	}

	o.transition(target, state, StateDone)
	o.logger.Success("Scan of %s finished: %s, %d findings", target.Specifier, report.Outcome, len(report.Findings))
	return report
}

// fail finalizes a report for a terminal error. Failed reports carry zero
// findings by contract.
func (o *Orchestrator) fail(target transport.Target, from State, report *finding.Report, reason string) *finding.Report {
	o.transition(target, from, StateFailed)
	o.logger.Error("Scan of %s failed: %s", target.Specifier, reason)
	report.Outcome = finding.OutcomeFailed
	report.Reason = reason
	report.Capabilities = nil
	report.Findings = nil
	report.OverallSeverity = ""
	return report
}

func (o *Orchestrator) transition(target transport.Target, from, to State) State {
	o.logger.InfoVerbose("%s: %s -> %s", target.Specifier, from, to)
	return to
}

// reasonForConnectError maps negotiation errors onto report reasons.
func reasonForConnectError(err error) string {
	switch {
	case errors.Is(err, transport.ErrAuthRejected):
		return "authentication rejected: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "scan timed out during negotiation"
	default:
		var unavailable *transport.TransportUnavailableError
		if errors.As(err, &unavailable) {
			return unavailable.Error()
		}
		return "connection failed: " + err.Error()
	}
}

// Ensure the concrete session satisfies the scanner seam.
var _ session = (*transport.Session)(nil)
var _ capabilitySource = (*transport.Session)(nil)
