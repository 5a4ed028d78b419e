package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/backend"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/codec"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/config"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/logging"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/orchestrator"
)

// #region flags

var (
	configPath  string
	logLevel    string
	metricsAddr string
	jsonOut     bool
	cycleTTL    time.Duration
	serveAddr   string

	cfg    config.Config
	logger *zap.Logger
)

// #endregion

// #region commands

var rootCmd = &cobra.Command{
	Use:           "crew",
	Short:         "Activate the crew on an input and check the answers against each other",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if metricsAddr != "" {
			cfg.Metrics.Addr = metricsAddr
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate [input...]",
	Short: "Run one activation cycle and print the report",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
			report, err := runCycle(ctx, rt, strings.Join(args, " "))
			if report != nil {
				if perr := printReport(report); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Read inputs from stdin and activate the crew on each",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
			fmt.Printf("Crew ready. %d personas | mode=%s | memory=%s\n",
				rt.pipeline.Roster().Len(), cfg.Activation.Mode, cfg.Memory.Driver)
			fmt.Println("Type an input (or 'quit' to exit):")

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				input := strings.TrimSpace(scanner.Text())
				if input == "" {
					continue
				}
				if input == "quit" || input == "exit" {
					break
				}
				report, err := runCycle(ctx, rt, input)
				if report != nil {
					if perr := printReport(report); perr != nil {
						return perr
					}
				}
				if err != nil {
					logger.Warn("cycle error", zap.Error(err))
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
			return scanner.Err()
		})
	},
}

var serveCodecCmd = &cobra.Command{
	Use:   "serve-codec",
	Short: "Serve backend selection and invocation over gRPC for remote controllers",
	RunE: func(cmd *cobra.Command, args []string) error {
		roster, err := cfg.Roster()
		if err != nil {
			return err
		}
		router, closers, err := buildRouter(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			for _, c := range closers {
				_ = c()
			}
		}()
		// Requests addressed to this host carry the codec prefix; answer them from scripts.
		router.Register(backend.PrefixCodec, backend.NewScriptedInvoker(cfg.Backends.Scripts))

		lis, err := net.Listen("tcp", serveAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", serveAddr, err)
		}
		srv := grpc.NewServer()
		codec.RegisterBackendServer(srv, backend.NewHeuristicSelector(roster, cfg.Routes()), router)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			srv.GracefulStop()
		}()
		logger.Info("serving codec backend", zap.String("addr", lis.Addr().String()))
		return srv.Serve(lis)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "crew.yaml", "Path to the YAML config (missing file means defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	rootCmd.PersistentFlags().DurationVar(&cycleTTL, "cycle-timeout", 2*time.Minute, "Upper bound for one activation cycle")

	activateCmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	replCmd.Flags().BoolVar(&jsonOut, "json", false, "Print each report as JSON")
	serveCodecCmd.Flags().StringVar(&serveAddr, "addr", ":50051", "Listen address")

	rootCmd.AddCommand(activateCmd, replCmd, serveCodecCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// #endregion

// #region run

func withRuntime(parent context.Context, fn func(context.Context, *runtime) error) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, stopMetrics, err := startMetrics(cfg.Metrics.Addr, logger)
	if err != nil {
		return err
	}
	defer func() { _ = stopMetrics() }()

	rt, err := buildRuntime(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()
	return fn(ctx, rt)
}

func runCycle(ctx context.Context, rt *runtime, input string) (*orchestrator.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, cycleTTL)
	defer cancel()
	report, err := rt.pipeline.ActivateAndAnalyze(ctx, input)
	if errors.Is(err, crew.ErrInsufficientPerspectives) {
		logger.Warn("not enough perspectives to analyze", zap.Error(err))
		return report, nil
	}
	return report, err
}

// #endregion

// #region output

func printReport(r *orchestrator.Report) error {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	act := r.Activation
	fmt.Printf("\n[%s] mode=%s success=%d failure=%d avg_conf=%.2f (%s)\n",
		act.CycleID, act.Mode, act.SuccessCount, act.FailureCount, act.AverageConfidence, act.Duration.Round(time.Millisecond))
	for _, e := range act.Errors {
		fmt.Printf("  error: %s\n", e)
	}
	if len(r.Analyses) == 0 {
		return nil
	}

	fmt.Printf("\nConsensus (%s, agreement %.2f, confidence %.2f):\n%s\n\n",
		r.Consensus.DominantPersona, r.Consensus.AgreementScore, r.Consensus.Confidence, r.Consensus.Response)

	fmt.Printf("%-18s| %9s| %-9s| %s\n", "Persona", "Deviation", "Severity", "Flagged")
	fmt.Printf("%-18s+%10s+%-10s+%s\n", "------------------", "----------", "----------", "--------")
	for _, a := range r.Analyses {
		flag := ""
		if a.Hallucinated {
			flag = "YES"
		}
		fmt.Printf("%-18s| %9.3f| %-9s| %s\n", a.PersonaID, a.DeviationScore, a.Severity, flag)
	}
	fmt.Printf("\nHealth: %.2f (%d flagged)\n", r.OverallHealth, r.HallucinationCount)
	for _, a := range r.Flagged() {
		fmt.Printf("\n%s\n", a.LearningNote)
	}
	return nil
}

// #endregion
