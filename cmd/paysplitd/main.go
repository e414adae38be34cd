// paysplitd serves the invoice split and settlement API.
package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paysplit/paysplit"
	"github.com/paysplit/paysplit/config"
	"github.com/paysplit/paysplit/extract"
	"github.com/paysplit/paysplit/http"
	"github.com/paysplit/paysplit/internal/logger"
	"github.com/paysplit/paysplit/ledger/evm"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "paysplitd",
	Short:   "Invoice split and settlement service",
	Long:    "paysplitd validates multi-recipient invoices, records them on an EVM invoice registry, and drives the approve-then-pay settlement flow.",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Setup(cfg.Log); err != nil {
		return err
	}
	log := logger.WithComponent("paysplitd")

	ledgerCfg, err := cfg.Chain.LedgerConfig()
	if err != nil {
		return err
	}
	ledger, err := evm.NewClient(ledgerCfg)
	if err != nil {
		return err
	}

	calcOpts := []paysplit.CalculatorOption{}
	if cfg.Split.Tolerance > 0 {
		calcOpts = append(calcOpts, paysplit.WithTolerance(cfg.Split.Tolerance))
	}
	if cfg.Split.TieBreak == "largest-share" {
		calcOpts = append(calcOpts, paysplit.WithTieBreak(paysplit.TieBreakLargestShare))
	}
	calc := paysplit.NewSplitCalculator(calcOpts...)
	validator := paysplit.NewInvoiceValidator(paysplit.ValidatorConfig{Tolerance: cfg.Split.Tolerance}, calc)
	orch := paysplit.NewOrchestrator(ledger, calc)

	var extractSvc *extract.Service
	if cfg.Extractor.APIKey != "" {
		client := extract.NewClient(extract.Config{
			APIKey:      cfg.Extractor.APIKey,
			BaseURL:     cfg.Extractor.BaseURL,
			Model:       cfg.Extractor.Model,
			Temperature: cfg.Extractor.Temperature,
		})
		extractSvc = extract.NewService(client, validator)
	} else {
		log.Warn().Msg("extractor api key not set, free-text invoice creation disabled")
	}

	api := http.NewServer(orch, ledger, extractSvc, validator)
	server := &nethttp.Server{
		Addr:    cfg.HTTP.Addr(),
		Handler: api.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("payer", ledger.Payer()).Msg("listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
