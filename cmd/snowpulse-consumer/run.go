package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/snowpulse/internal/aggregate"
	"github.com/tinytelemetry/snowpulse/internal/broker"
	"github.com/tinytelemetry/snowpulse/internal/consume"
	"github.com/tinytelemetry/snowpulse/internal/httpserver"
	"github.com/tinytelemetry/snowpulse/internal/store"
)

// Exit codes for operational tooling. Startup failures are the only fatal
// path; once consuming, per-record failures never end the process.
const (
	exitOK                = 0
	exitStoreInit         = 1
	exitBrokerUnreachable = 11
	exitConsumerInit      = 12
	exitTopicMissing      = 13
)

// runConsumer verifies the broker, joins the topic, and processes events
// until interrupted. It returns the process exit code.
func runConsumer(cfg appConfig) int {
	cleanupLogger := configureRuntimeLogger("consumer.log")
	defer cleanupLogger()

	gateway := broker.NewGateway(cfg.BrokerAddress)

	verifyCtx, verifyCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer verifyCancel()

	if err := gateway.Probe(verifyCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: broker verification failed: %v\n", err)
		return exitBrokerUnreachable
	}

	exists, err := gateway.TopicExists(verifyCtx, cfg.Topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: topic check failed: %v\n", err)
		return exitBrokerUnreachable
	}
	if !exists {
		fmt.Fprintf(os.Stderr, "Error: topic %q does not exist\n", cfg.Topic)
		return exitTopicMissing
	}

	sub, err := gateway.Subscribe(cfg.Topic, cfg.GroupID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not create consumer: %v\n", err)
		return exitConsumerInit
	}

	// Fresh store per run: any prior file is deleted and the schema recreated.
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		_ = sub.Close()
		fmt.Fprintf(os.Stderr, "Error: store initialization failed: %v\n", err)
		return exitStoreInit
	}
	defer st.Close()

	agg := aggregate.New()
	loop := consume.NewLoop(sub, st, agg)

	var api *httpserver.Server
	if cfg.APIEnabled {
		api = httpserver.NewServer(cfg.APIAddr, agg, loop, st)
		if err := api.Start(); err != nil {
			_ = sub.Close()
			fmt.Fprintf(os.Stderr, "Error: failed to start API server: %v\n", err)
			return exitConsumerInit
		}
		defer api.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	printStartupBanner(cfg)

	g, gctx := errgroup.WithContext(ctx)

	// The consumption loop: transforms, aggregates, and persists each
	// delivered event sequentially.
	g.Go(func() error {
		return loop.Run(gctx)
	})

	// Periodic snapshot reporting, on the externally driven cadence.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.snapshotInterval())
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				logSnapshot(agg.Snapshot(), loop.Stats())
			}
		}
	})

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: consumer stopped: %v\n", err)
		return exitConsumerInit
	}

	signal.Stop(sigCh)
	logSnapshot(agg.Snapshot(), loop.Stats())
	log.Printf("consumer: shut down cleanly")
	return exitOK
}

// logSnapshot writes one line summarizing average sentiment per category.
func logSnapshot(snap map[string]float64, stats consume.Stats) {
	if len(snap) == 0 {
		log.Printf("snapshot: no categories yet (processed=%d malformed=%d failed=%d)",
			stats.Processed, stats.Malformed, stats.Failed)
		return
	}

	categories := make([]string, 0, len(snap))
	for c := range snap {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		parts = append(parts, fmt.Sprintf("%s=%.2f", c, snap[c]))
	}
	log.Printf("snapshot: %s (processed=%d malformed=%d failed=%d)",
		strings.Join(parts, " "), stats.Processed, stats.Malformed, stats.Failed)
}

func configureRuntimeLogger(filename string) func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "snowpulse")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	f, err := os.OpenFile(filepath.Join(logDir, filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	var lines []string
	lines = append(lines, "")
	lines = append(lines, bold.Render("    snowpulse consumer")+" "+dim.Render("v"+version))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  Broker         %s", check, cyan.Render(cfg.BrokerAddress)))
	lines = append(lines, fmt.Sprintf("    %s  Topic          %s", check, cyan.Render(cfg.Topic)))
	lines = append(lines, fmt.Sprintf("    %s  Group          %s", check, cyan.Render(cfg.GroupID)))
	lines = append(lines, fmt.Sprintf("    %s  Store          %s", check, dim.Render(shortenPath(cfg.StorePath))))
	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
