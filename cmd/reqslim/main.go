package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/usestring/reqslim/internal/config"
	"github.com/usestring/reqslim/internal/logging"
	"github.com/usestring/reqslim/internal/message"
	"github.com/usestring/reqslim/internal/minimize"
	"github.com/usestring/reqslim/internal/probe"
	"github.com/usestring/reqslim/internal/report"
	"github.com/usestring/reqslim/internal/transport"
)

const (
	exitUsage    = 1
	exitBaseline = 2
)

// errBaseline marks a failed baseline probe so main can map it to its own
// exit code after deferred cleanup has run.
var errBaseline = errors.New("baseline probe failed")

var (
	host     string
	port     uint16
	useTLS   bool
	filePath string
	asJSON   bool
	jqExpr   string
)

var rootCmd = &cobra.Command{
	Use:   "reqslim",
	Short: "Minimize a captured HTTP request against a live server",
	Long: `reqslim replays a captured HTTP request with one element removed at a
time and keeps only the removals whose responses still match the original
response fingerprint. The result is the smallest request that behaves like
the capture: everything else was browser or proxy noise.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&host, "host", "", "Target host")
	rootCmd.Flags().Uint16VarP(&port, "port", "p", 80, "Target port")
	rootCmd.Flags().BoolVar(&useTLS, "tls", false, "Probe over TLS (any certificate is trusted)")
	rootCmd.Flags().StringVarP(&filePath, "file", "f", "", "Path to the captured raw request")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "Emit a machine-readable JSON summary")
	rootCmd.Flags().StringVar(&jqExpr, "jq", "", "Filter the JSON summary with a jq expression (implies --json)")

	rootCmd.MarkFlagRequired("host")
	rootCmd.MarkFlagRequired("file")
}

func run(ctx context.Context) error {
	cfg := config.Load()
	cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer cleanup()

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading capture: %w", err)
	}
	base := message.Parse(string(raw))

	target := transport.Target{Host: host, Port: port, TLS: useTLS}
	cache, err := probe.NewCache(cfg.ProbeCacheMaxItems)
	if err != nil {
		return fmt.Errorf("creating probe cache: %w", err)
	}
	prober := probe.New(transport.New(cfg.ConnectTimeout, cfg.ReadTimeout), cache)

	baseline, err := prober.Baseline(ctx, target, base)
	if err != nil {
		slog.Error("baseline probe failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", errBaseline, err)
	}

	engine := minimize.NewEngine(prober)
	minimized, results := engine.Minimize(ctx, target, base, baseline)

	// Final reference probe of the minimized request. Best effort: the
	// minimization already holds even if this one fails.
	final, err := prober.Probe(ctx, target, minimized.Serialize())
	if err != nil {
		slog.Warn("final re-probe failed", slog.String("error", err.Error()))
	}

	summary := report.Build(target, base, minimized, baseline, final, results)
	if asJSON || jqExpr != "" {
		return summary.RenderJSON(os.Stdout, jqExpr)
	}
	summary.Render(os.Stdout)
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errBaseline) {
			os.Exit(exitBaseline)
		}
		os.Exit(exitUsage)
	}
}
