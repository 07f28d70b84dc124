package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relay-swap/pkg/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the swap API over HTTP",
	Long: `Serve quoting, swapping, status and the audit log over HTTP, with
Prometheus metrics on /metrics.

Routes:
  GET  /health
  GET  /metrics
  POST /api/v1/quote
  POST /api/v1/swap
  GET  /api/v1/status/:requestId
  GET  /api/v1/audit?limit=n`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg.Server
	if serveHost != "" {
		cfg.Host = serveHost
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("Starting server",
		zap.String("provider", a.bridge.Name()),
		zap.Int64s("executor_chains", a.router.Chains()),
		zap.String("audit_file", a.auditLog.Path()),
	)
	return server.New(cfg, a.service, a.auditLog, a.status, a.logger).Run(ctx)
}
