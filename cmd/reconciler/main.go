package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apihttp "fiscal-reconciliation/internal/api/http"
	"fiscal-reconciliation/internal/config"
	"fiscal-reconciliation/internal/gateway"
	"fiscal-reconciliation/internal/metrics"
	"fiscal-reconciliation/internal/usecase"
)

// app carries the global flags and the wiring shared by every subcommand.
type app struct {
	configPath string
	input      string
	field      string
	verbose    bool

	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	uc       *usecase.AnalysisUseCase
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "reconciler",
		Short: "Fiscal production reconciliation against a decline-curve forecast",
		Long: `reconciler compares reported monthly oil and gas production of a field
with an exponential decline forecast fitted to the same series, prices the
variance and flags months that breach the governance threshold.

Without --input a deterministic synthetic series is analysed.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (defaults to $"+config.EnvConfigPath+")")
	root.PersistentFlags().StringVar(&a.input, "input", "", "PPRS production CSV; synthetic data when empty")
	root.PersistentFlags().StringVar(&a.field, "field", "", "reporting unit to select from the CSV")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newAnalyzeCmd(a), newSweepCmd(a), newForecastCmd(a), newServeCmd(a))
	return root
}

// init loads configuration and wires the use case. A logger set by the
// caller is kept.
func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger == nil {
		zcfg := zap.NewProductionConfig()
		if a.verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		a.logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	var source usecase.SeriesSource
	if a.input != "" {
		source = gateway.NewCSVSeriesSource(a.input, a.field)
	} else {
		source = gateway.NewSyntheticSource(cfg.Synthetic)
	}

	a.registry = prometheus.NewRegistry()
	a.uc = usecase.NewAnalysisUseCase(source, cfg, a.logger, metrics.New(a.registry))
	a.logger.Debug("reconciler configured",
		zap.String("source", source.Identity()),
		zap.Float64("price_per_unit", cfg.PricePerUnit),
		zap.Float64("threshold_pct", cfg.GovernanceThresholdPct),
	)
	return nil
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		price    float64
		xlsxPath string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the reconciliation and print the JSON report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("price") {
				price = a.cfg.PricePerUnit
			}
			report, err := a.uc.Analyze(cmd.Context(), price)
			if err != nil {
				return fmt.Errorf("reconciliation failed: %w", err)
			}
			if xlsxPath != "" {
				if err := gateway.WriteReportXLSX(xlsxPath, report); err != nil {
					return err
				}
				a.logger.Info("workbook written", zap.String("path", xlsxPath), zap.String("run_id", report.RunID))
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().Float64Var(&price, "price", 0, "price per BOE (defaults to price_per_unit)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the report as an XLSX workbook")
	return cmd
}

func newSweepCmd(a *app) *cobra.Command {
	var prices []float64
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Print total revenue exposure across candidate prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("prices") {
				prices = a.cfg.SensitivityPrices
			}
			points, err := a.uc.Sweep(cmd.Context(), prices)
			if err != nil {
				return fmt.Errorf("sensitivity sweep failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), points)
		},
	}
	cmd.Flags().Float64SliceVar(&prices, "prices", nil, "comma-separated prices (defaults to sensitivity_prices)")
	return cmd
}

func newForecastCmd(a *app) *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project the fitted decline curve past the last reported month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if months <= 0 {
				return fmt.Errorf("--months must be positive, got %d", months)
			}
			points, err := a.uc.Forecast(cmd.Context(), months)
			if err != nil {
				return fmt.Errorf("forecast failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), points)
		},
	}
	cmd.Flags().IntVar(&months, "months", 12, "number of months to project")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reconciliation API and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func (a *app) serve(ctx context.Context, addr string) error {
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	router := apihttp.NewRouter(a.uc, apihttp.Defaults{
		Price:  a.cfg.PricePerUnit,
		Prices: a.cfg.SensitivityPrices,
	}, a.registry, a.logger)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func printJSON(w io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate JSON report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}
