// Package oneclick adapts the NEAR Intents 1Click API to the bridge interface
package oneclick

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"go.uber.org/zap"

	"relay-swap/pkg/metrics"
)

const (
	swapTypeExactInput = "EXACT_INPUT"
	// defaultSlippageBps is 1%
	defaultSlippageBps = 100
	quoteDeadline      = 24 * time.Hour
)

// Token is a token supported by 1Click
type Token struct {
	Symbol          string `json:"symbol"`
	Blockchain      string `json:"blockchain"`
	AssetID         string `json:"assetId"`
	ContractAddress string `json:"contractAddress,omitempty"`
	Decimals        int32  `json:"decimals"`
}

// QuoteParams are the inputs of a 1Click quote
type QuoteParams struct {
	Dry              bool
	OriginAsset      string
	DestinationAsset string
	Amount           string // Smallest units of the origin asset
	RefundTo         string
	Recipient        string
	// SlippageBps of 0 uses the 1% default
	SlippageBps int64
}

// Quote is the subset of a 1Click quote the bridge uses
type Quote struct {
	DepositAddress  string  `json:"depositAddress,omitempty"`
	DepositMemo     string  `json:"depositMemo,omitempty"`
	AmountIn        string  `json:"amountIn"`
	AmountOut       string  `json:"amountOut"`
	TimeEstimateSec float64 `json:"timeEstimate"`
}

// ExecutionStatus is the state of a swap keyed by its deposit address
type ExecutionStatus struct {
	Status              string    `json:"status"`
	UpdatedAt           time.Time `json:"updatedAt"`
	OriginTxHashes      []string  `json:"originTxHashes,omitempty"`
	DestinationTxHashes []string  `json:"destinationTxHashes,omitempty"`
	AmountIn            string    `json:"amountIn,omitempty"`
	AmountOut           string    `json:"amountOut,omitempty"`
}

// API is the set of 1Click operations the bridge depends on
type API interface {
	GetTokens(ctx context.Context) ([]Token, error)
	GetQuote(ctx context.Context, params QuoteParams) (*Quote, error)
	GetExecutionStatus(ctx context.Context, depositAddress string) (*ExecutionStatus, error)
	SubmitDepositTx(ctx context.Context, depositAddress, txHash string) error
}

// Client wraps the 1Click SDK
type Client struct {
	client   *oneclick.APIClient
	jwtToken string
	logger   *zap.Logger
}

var _ API = (*Client)(nil)

// NewClient creates a 1Click client. An empty baseURL keeps the SDK default.
func NewClient(jwtToken, baseURL string, logger *zap.Logger) *Client {
	config := oneclick.NewConfiguration()
	if baseURL != "" {
		config.Servers = oneclick.ServerConfigurations{{URL: strings.TrimSuffix(baseURL, "/")}}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		client:   oneclick.NewAPIClient(config),
		jwtToken: jwtToken,
		logger:   logger,
	}
}

func (c *Client) authContext(ctx context.Context) context.Context {
	if c.jwtToken == "" {
		return ctx
	}
	return context.WithValue(ctx, oneclick.ContextAccessToken, c.jwtToken)
}

// GetTokens retrieves all supported tokens
func (c *Client) GetTokens(ctx context.Context) ([]Token, error) {
	resp, httpResp, err := c.client.OneClickAPI.GetTokens(c.authContext(ctx)).Execute()
	if err != nil {
		record("tokens", httpResp, err)
		return nil, apiError("get tokens", httpResp, err)
	}
	defer httpResp.Body.Close()
	record("tokens", httpResp, nil)

	tokens := make([]Token, 0, len(resp))
	for _, t := range resp {
		tokens = append(tokens, Token{
			Symbol:          t.GetSymbol(),
			Blockchain:      t.GetBlockchain(),
			AssetID:         t.GetAssetId(),
			ContractAddress: t.GetContractAddress(),
			Decimals:        int32(t.GetDecimals()),
		})
	}
	return tokens, nil
}

// GetQuote requests a quote. Non-dry quotes reserve a deposit address.
func (c *Client) GetQuote(ctx context.Context, params QuoteParams) (*Quote, error) {
	refundTo := params.RefundTo
	if refundTo == "" {
		refundTo = params.Recipient
	}

	slippage := params.SlippageBps
	if slippage <= 0 {
		slippage = defaultSlippageBps
	}

	quoteReq := oneclick.NewQuoteRequest(
		params.Dry,
		swapTypeExactInput,
		float32(slippage),
		params.OriginAsset,
		"ORIGIN_CHAIN",
		params.DestinationAsset,
		params.Amount,
		refundTo,
		"ORIGIN_CHAIN",
		params.Recipient,
		"DESTINATION_CHAIN",
		time.Now().Add(quoteDeadline),
	)

	resp, httpResp, err := c.client.OneClickAPI.GetQuote(c.authContext(ctx)).QuoteRequest(*quoteReq).Execute()
	if err != nil {
		record("quote", httpResp, err)
		return nil, apiError("get quote", httpResp, err)
	}
	defer httpResp.Body.Close()
	record("quote", httpResp, nil)

	if resp == nil {
		return nil, fmt.Errorf("empty quote response")
	}

	q := resp.GetQuote()
	return &Quote{
		DepositAddress:  q.GetDepositAddress(),
		DepositMemo:     q.GetDepositMemo(),
		AmountIn:        q.GetAmountInFormatted(),
		AmountOut:       q.GetAmountOutFormatted(),
		TimeEstimateSec: float64(q.GetTimeEstimate()),
	}, nil
}

// GetExecutionStatus checks the execution status of a swap
func (c *Client) GetExecutionStatus(ctx context.Context, depositAddress string) (*ExecutionStatus, error) {
	resp, httpResp, err := c.client.OneClickAPI.GetExecutionStatus(c.authContext(ctx)).DepositAddress(depositAddress).Execute()
	if err != nil {
		record("status", httpResp, err)
		return nil, apiError("get status", httpResp, err)
	}
	defer httpResp.Body.Close()
	record("status", httpResp, nil)

	details := resp.GetSwapDetails()
	status := &ExecutionStatus{
		Status:    resp.GetStatus(),
		UpdatedAt: resp.GetUpdatedAt(),
		AmountIn:  details.GetAmountInFormatted(),
		AmountOut: details.GetAmountOutFormatted(),
	}
	for _, tx := range details.GetOriginChainTxHashes() {
		if h := tx.GetHash(); h != "" {
			status.OriginTxHashes = append(status.OriginTxHashes, h)
		}
	}
	for _, tx := range details.GetDestinationChainTxHashes() {
		if h := tx.GetHash(); h != "" {
			status.DestinationTxHashes = append(status.DestinationTxHashes, h)
		}
	}
	return status, nil
}

// SubmitDepositTx notifies 1Click of the deposit transaction hash
func (c *Client) SubmitDepositTx(ctx context.Context, depositAddress, txHash string) error {
	req := oneclick.NewSubmitDepositTxRequest(depositAddress, txHash)

	_, httpResp, err := c.client.OneClickAPI.SubmitDepositTx(c.authContext(ctx)).SubmitDepositTxRequest(*req).Execute()
	if err != nil {
		record("deposit", httpResp, err)
		return apiError("submit deposit", httpResp, err)
	}
	defer httpResp.Body.Close()
	record("deposit", httpResp, nil)

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		return fmt.Errorf("1Click returned status code %d", httpResp.StatusCode)
	}
	return nil
}

func record(endpoint string, httpResp *http.Response, err error) {
	status := "ok"
	if httpResp != nil && (httpResp.StatusCode < 200 || httpResp.StatusCode >= 300) {
		status = fmt.Sprintf("%d", httpResp.StatusCode)
	} else if err != nil {
		status = "error"
	}
	metrics.ProviderRequests.WithLabelValues("oneclick", endpoint, status).Inc()
}

// apiError extracts the API's message from an error response when there is one
func apiError(op string, httpResp *http.Response, err error) error {
	if httpResp == nil {
		return fmt.Errorf("1Click %s failed: %w", op, err)
	}
	defer httpResp.Body.Close()

	body, readErr := io.ReadAll(httpResp.Body)
	if readErr != nil || len(body) == 0 {
		return fmt.Errorf("1Click %s failed (status %d): %w", op, httpResp.StatusCode, err)
	}
	return fmt.Errorf("1Click %s failed (status %d): %s", op, httpResp.StatusCode, errorMessage(body))
}

func errorMessage(body []byte) string {
	var resp map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return string(body)
	}
	if message, ok := resp["message"].(string); ok {
		return message
	}
	if errs, ok := resp["errors"]; ok {
		return fmt.Sprintf("%v", errs)
	}
	return string(body)
}
