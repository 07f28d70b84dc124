// Package swap orchestrates quote, validation, execution and audit of a
// single cross-chain swap.
package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"relay-swap/pkg/audit"
	"relay-swap/pkg/bridge"
	"relay-swap/pkg/fee"
	"relay-swap/pkg/metrics"
	"relay-swap/pkg/safety"
	"relay-swap/pkg/types"
)

// Service runs swaps against one bridge and records every outcome
type Service struct {
	bridge bridge.Bridge
	audit  audit.Sink
	opts   Options
	logger *zap.Logger

	// assertSafe is safety.AssertSponsorSafe outside tests
	assertSafe func(*types.SwapResult, types.QuoteResult, float64) error
}

// NewService creates a swap service. sink receives exactly one entry per
// ExecuteSwap call that reaches a terminal state.
func NewService(b bridge.Bridge, sink audit.Sink, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		bridge: b,
		audit:  sink,
		opts:   opts.withDefaults(),
		logger: logger.With(zap.String("provider", b.Name())),

		assertSafe: safety.AssertSponsorSafe,
	}
}

// GetQuote requests a quote without validating or auditing it
func (s *Service) GetQuote(ctx context.Context, req types.SwapRequest) (*types.QuoteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.QuoteTimeout)
	defer cancel()

	start := time.Now()
	quote, err := s.bridge.GetQuote(ctx, req)
	metrics.QuoteDuration.WithLabelValues(s.bridge.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QuoteRequests.WithLabelValues(s.bridge.Name(), "error").Inc()
		return nil, err
	}
	if quote == nil {
		metrics.QuoteRequests.WithLabelValues(s.bridge.Name(), "error").Inc()
		return nil, errors.New("provider returned no quote")
	}
	metrics.QuoteRequests.WithLabelValues(s.bridge.Name(), "ok").Inc()
	return quote, nil
}

// ExecuteSwap quotes, validates and executes req, then audits the outcome.
// Rejections and execution failures are returned as unsuccessful results.
// The only error returned is a sponsor invariant fault, matching
// safety.ErrSponsorInvariant.
func (s *Service) ExecuteSwap(ctx context.Context, req types.SwapRequest) (*types.SwapResult, error) {
	r := &run{logger: s.logger, state: StateIdle}

	r.to(StateQuoting)
	quote, err := s.GetQuote(ctx, req)
	if err != nil {
		r.to(StateRejected)
		result := types.Failed("Quote failed: " + err.Error())
		s.reject(r, req, nil, result, "quote_failed")
		return result, nil
	}

	r.to(StateValidating)
	if err := safety.ValidateQuoteAndRequest(req, *quote, s.opts.checks()); err != nil {
		r.to(StateRejected)
		reason := "invalid"
		var rej *safety.Rejection
		if errors.As(err, &rej) {
			reason = string(rej.Reason)
		}
		result := types.Failed(err.Error())
		s.reject(r, req, quote, result, reason)
		return result, nil
	}

	// Recorded only. The executed output is not checked against it.
	minOutput := fee.ApplySlippage(quote.ExpectedOutput, req.SlippageTolerance)

	r.to(StateExecuting)
	result := s.execute(ctx, req)

	if !result.Success {
		r.to(StateFailed)
		result.UserFee = nil
		result.SponsorCost = nil
		metrics.SwapOutcomes.WithLabelValues(s.bridge.Name(), "failed").Inc()
	} else {
		r.to(StateSucceeded)
		result.UserFee = types.Float(quote.UserFee)
		result.SponsorCost = types.Float(quote.SponsorCost)

		if err := s.assertSafe(result, *quote, s.opts.SafetyMargin); err != nil {
			metrics.InvariantFaults.Inc()
			s.logger.Error("sponsor safety invariant violated",
				zap.Error(err),
				zap.String("txHash", result.TxHash),
				zap.Float64("userFee", quote.UserFee),
				zap.Float64("sponsorCost", quote.SponsorCost),
				zap.Float64("safetyMargin", s.opts.SafetyMargin))
			return nil, err
		}
		metrics.SwapOutcomes.WithLabelValues(s.bridge.Name(), "succeeded").Inc()
	}

	entry := audit.NewEntry(types.ActionExecuteSwap, req)
	entry.Result = snapshot(result)
	entry.Fee = types.Float(quote.UserFee)
	entry.SponsorCost = types.Float(quote.SponsorCost)
	entry.MinOutput = types.Float(minOutput)
	s.record(entry)
	r.to(StateAudited)

	return result, nil
}

// execute calls the bridge detached from caller cancellation and turns
// errors and panics into failed results
func (s *Service) execute(ctx context.Context, req types.SwapRequest) (result *types.SwapResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ExecuteTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("bridge execution panicked", zap.Any("panic", p))
			result = types.Failed(fmt.Sprint(p))
		}
	}()

	res, err := s.bridge.ExecuteSwap(ctx, req)
	if err != nil {
		return &types.SwapResult{Error: err.Error(), ErrorKind: string(bridge.KindOf(err))}
	}
	if res == nil {
		return types.Failed("bridge returned no result")
	}
	return res
}

func (s *Service) reject(r *run, req types.SwapRequest, quote *types.QuoteResult, result *types.SwapResult, reason string) {
	metrics.SwapRejections.WithLabelValues(reason).Inc()
	metrics.SwapOutcomes.WithLabelValues(s.bridge.Name(), "rejected").Inc()
	s.logger.Info("swap rejected",
		zap.String("reason", reason),
		zap.String("error", result.Error))

	entry := audit.NewEntry(types.ActionExecuteSwapRejected, req)
	entry.Result = snapshot(result)
	if quote != nil {
		entry.Fee = types.Float(quote.UserFee)
		entry.SponsorCost = types.Float(quote.SponsorCost)
	}
	s.record(entry)
	r.to(StateAudited)
}

// record appends to the audit sink. Failures never change the outcome.
func (s *Service) record(entry types.AuditLogEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(entry); err != nil {
		metrics.AuditAppendErrors.Inc()
		s.logger.Error("failed to append audit entry",
			zap.String("id", entry.ID),
			zap.String("action", string(entry.Action)),
			zap.Error(err))
	}
}

// snapshot copies a result so later changes by the caller do not reach the
// audit log
func snapshot(result *types.SwapResult) *types.SwapResult {
	c := *result
	if result.UserFee != nil {
		c.UserFee = types.Float(*result.UserFee)
	}
	if result.SponsorCost != nil {
		c.SponsorCost = types.Float(*result.SponsorCost)
	}
	return &c
}

// run tracks the state of one ExecuteSwap call
type run struct {
	logger *zap.Logger
	state  State
}

func (r *run) to(next State) {
	if !CanTransition(r.state, next) {
		r.logger.Error("illegal swap state transition",
			zap.Stringer("from", r.state),
			zap.Stringer("to", next))
	}
	r.logger.Debug("swap state",
		zap.Stringer("from", r.state),
		zap.Stringer("to", next))
	r.state = next
}
