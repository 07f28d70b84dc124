package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relay-swap/config"
	"relay-swap/pkg/audit"
	"relay-swap/pkg/bridge"
	"relay-swap/pkg/bridge/oneclick"
	"relay-swap/pkg/bridge/relay"
	"relay-swap/pkg/executor"
	"relay-swap/pkg/logger"
	"relay-swap/pkg/swap"
)

// app holds everything a command needs, built from the loaded config
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	router   *executor.Router
	auditLog *audit.FileLog
	bridge   bridge.Bridge
	status   bridge.StatusFetcher
	service  *swap.Service

	relayClient *relay.Client
	oneClick    *oneclick.Bridge
}

// newApp loads config and wires the provider selected by it. With withExec
// unset no signing keys are loaded.
func newApp(cmd *cobra.Command, withExec bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	log, err := logger.New(level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log, router: executor.NewRouter(log)}

	if withExec {
		if a.router, err = executor.NewRouterFromConfig(cfg, log); err != nil {
			return nil, err
		}
	}

	if a.auditLog, err = audit.NewFileLog(cfg.Audit.File); err != nil {
		return nil, err
	}

	var exec bridge.Executor
	if !a.router.Empty() {
		exec = a.router
	}

	switch cfg.Provider {
	case config.ProviderOneClick:
		client := oneclick.NewClient(cfg.OneClick.JWTToken, cfg.OneClick.BaseURL, log)
		a.oneClick = oneclick.NewBridge(oneclick.BridgeConfig{
			Client:       client,
			SafetyMargin: cfg.Safety.SafetyMargin,
			MinUserFee:   cfg.Safety.MinUserFee,
			DepositCost:  cfg.OneClick.DepositCost,
			Executor:     exec,
		}, log)
		a.bridge = a.oneClick
		a.status = a.oneClick
	case config.ProviderRelay:
		a.relayClient = relay.NewClient(relay.Config{
			BaseURL:        cfg.Relay.BaseURL,
			APIKey:         cfg.Relay.APIKey,
			Timeout:        cfg.Relay.Timeout,
			RequestsPerSec: cfg.Relay.RequestsPerSec,
		}, log)
		rb := relay.NewBridge(relay.BridgeConfig{
			Client: a.relayClient,
			Policy: relay.FeePolicy{
				SafetyMargin: cfg.Safety.SafetyMargin,
				MinUserFee:   cfg.Safety.MinUserFee,
			},
			OriginDecimals: cfg.Relay.OriginDecimals,
			Executor:       exec,
		}, log)
		a.bridge = rb
		a.status = rb
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	sink := audit.Tee(a.auditLog, audit.NewLoggingSink(log))
	opts := swap.DefaultOptions()
	opts.SafetyMargin = cfg.Safety.SafetyMargin
	opts.MaxSlippageTolerance = cfg.Safety.MaxSlippageTolerance
	opts.QuoteTimeout = cfg.Safety.QuoteTimeout
	opts.ExecuteTimeout = cfg.Safety.ExecuteTimeout
	a.service = swap.NewService(a.bridge, sink, opts, log)

	return a, nil
}

// Close releases executor connections and flushes the logger
func (a *app) Close() {
	a.router.Close()
	_ = a.logger.Sync()
}
