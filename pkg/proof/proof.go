package proof

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"relay-swap/pkg/bridge"
	"relay-swap/pkg/bridge/relay"
	"relay-swap/pkg/chains"
	"relay-swap/pkg/executor"
	"relay-swap/pkg/tracker"
	"relay-swap/pkg/types"
)

const (
	DefaultFileName = "proof-solana-to-base.json"

	statusPollInterval = 2 * time.Second
	statusPollTimeout  = 60 * time.Second
)

// Document is the proof file written after a run
type Document struct {
	Timestamp          string               `json:"timestamp"`
	Description        string               `json:"description"`
	Request            types.SwapRequest    `json:"request"`
	Quote              *relay.QuoteResponse `json:"quote"`
	RequestID          string               `json:"requestId"`
	VerificationURL    string               `json:"verificationUrl"`
	Status             *string              `json:"status"`
	StatusRecordedAt   string               `json:"statusRecordedAt,omitempty"`
	DepositTxSignature string               `json:"depositTxSignature,omitempty"`
	Instructions       []string             `json:"instructions"`
}

// Depositor signs and sends the Solana deposit transaction
type Depositor interface {
	bridge.Executor
	CheckBalance(ctx context.Context, fromToken string, amount float64) error
	PublicKey() solana.PublicKey
}

var _ Depositor = (*executor.SolanaExecutor)(nil)

// Runner drives the proof flow against Relay
type Runner struct {
	client     relay.API
	baseURL    string
	depositor  Depositor
	outputFile string
	logger     *zap.Logger

	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewRunner creates a runner. depositor may be nil, in which case the proof
// only carries the quote and signing guidance.
func NewRunner(client relay.API, baseURL string, depositor Depositor, outputFile string, logger *zap.Logger) *Runner {
	if outputFile == "" {
		outputFile = DefaultFileName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		client:       client,
		baseURL:      baseURL,
		depositor:    depositor,
		outputFile:   outputFile,
		logger:       logger,
		pollInterval: statusPollInterval,
		pollTimeout:  statusPollTimeout,
	}
}

// OutputFile returns the proof file path
func (r *Runner) OutputFile() string {
	return r.outputFile
}

// Run quotes the request, sends the deposit when a depositor is configured
// and writes the proof document
func (r *Runner) Run(ctx context.Context, req types.SwapRequest) (*Document, error) {
	quote, err := r.client.GetQuote(ctx, relay.ToQuoteRequest(req, chains.USDCDecimals))
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	requestID := quote.RequestIDOrStep()
	doc := &Document{
		Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
		Description:     fmt.Sprintf("Cross-chain swap proof: Solana → chain %s (Relay)", req.ToChain),
		Request:         req,
		Quote:           quote,
		RequestID:       requestID,
		VerificationURL: relay.StatusURL(r.baseURL, requestID),
		Instructions:    []string{},
	}

	if r.depositor != nil && len(quote.Steps) > 0 && quote.Steps[0].Kind == relay.StepKindTransaction {
		r.deposit(ctx, req, quote, doc)
	}

	if doc.DepositTxSignature == "" {
		doc.Instructions = append(doc.Instructions,
			"Set SOLANA_PRIVATE_KEY (base58) to sign and send the deposit inline, or execute quote.steps[0] with your wallet.",
			fmt.Sprintf("Then run: relay-swap proof status %s --poll", requestID),
		)
	}

	if err := writeJSON(r.outputFile, doc); err != nil {
		return doc, err
	}
	r.logger.Info("Proof written",
		zap.String("file", r.outputFile),
		zap.String("request_id", requestID),
		zap.String("verification_url", doc.VerificationURL),
	)
	return doc, nil
}

func (r *Runner) deposit(ctx context.Context, req types.SwapRequest, quote *relay.QuoteResponse, doc *Document) {
	payload, err := relay.FirstTransactionPayload(quote)
	if err != nil {
		r.logger.Warn("Skipped inline send", zap.Error(err))
		return
	}

	if err := r.depositor.CheckBalance(ctx, req.FromToken, req.Amount); err != nil {
		if bridge.KindOf(err) == bridge.KindInsufficientFunds {
			doc.Instructions = append(doc.Instructions, err.Error()+". Fund and re-run, or sign in Phantom.")
			r.logger.Warn("Insufficient SOL for inline send", zap.Error(err))
			return
		}
		r.recordSendError(err, doc)
		return
	}

	if signer := r.depositor.PublicKey().String(); signer != req.UserAddress {
		r.logger.Warn("Signing key does not match request user",
			zap.String("signer", signer),
			zap.String("user", req.UserAddress),
		)
	}

	sig, err := r.depositor.Submit(ctx, payload)
	if err != nil {
		r.recordSendError(err, doc)
		return
	}

	doc.DepositTxSignature = sig
	doc.Instructions = []string{"Deposit transaction sent and confirmed.", "Signature: " + sig}
	r.logger.Info("Deposit sent", zap.String("signature", sig))
}

func (r *Runner) recordSendError(err error, doc *Document) {
	var execErr *bridge.ExecutionError
	if errors.As(err, &execErr) && execErr.Code == executor.JupiterInsufficientFunds {
		r.logger.Error("Inline deposit send failed: Jupiter 0x1788 (InsufficientFunds)", zap.Error(err))
		doc.Instructions = append(doc.Instructions, "Inline send failed: Jupiter 0x1788 – try in Phantom with proof file or get a fresh quote.")
		return
	}
	r.logger.Error("Inline deposit send failed",
		zap.String("kind", string(bridge.KindOf(err))),
		zap.Error(err),
	)
	doc.Instructions = append(doc.Instructions, "Inline send failed: "+err.Error())
}

// RecordStatus fetches the status of requestID, polling until it is terminal
// when poll is set, and stores it in the proof file. A missing proof file is
// not an error; the status is still returned.
func (r *Runner) RecordStatus(ctx context.Context, requestID string, poll bool, onUpdate func(*types.StatusUpdate)) (*types.StatusUpdate, bool, error) {
	fetcher := statusFetcher{client: r.client}

	var (
		update *types.StatusUpdate
		err    error
	)
	if poll {
		update, err = tracker.Watch(ctx, fetcher, requestID, tracker.Options{
			Interval: r.pollInterval,
			Timeout:  r.pollTimeout,
		}, onUpdate)
		if errors.Is(err, tracker.ErrTimeout) && update != nil {
			err = nil
		}
	} else {
		update, err = fetcher.GetStatus(ctx, requestID)
		if err == nil && onUpdate != nil {
			onUpdate(update)
		}
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch status: %w", err)
	}

	written, err := r.storeStatus(update.Status)
	return update, written, err
}

func (r *Runner) storeStatus(status string) (bool, error) {
	data, err := os.ReadFile(r.outputFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read proof file: %w", err)
	}

	// Unknown fields are preserved as written
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("failed to unmarshal proof file: %w", err)
	}

	statusJSON, err := json.Marshal(status)
	if err != nil {
		return false, err
	}
	recordedAt, err := json.Marshal(time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, err
	}
	doc["status"] = statusJSON
	doc["statusRecordedAt"] = recordedAt

	if err := writeJSON(r.outputFile, doc); err != nil {
		return false, err
	}
	return true, nil
}

type statusFetcher struct {
	client relay.API
}

func (f statusFetcher) GetStatus(ctx context.Context, requestID string) (*types.StatusUpdate, error) {
	res, err := f.client.GetStatus(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return relay.ToStatusUpdate(requestID, res), nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal proof: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write proof file: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
