package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/snowpulse/internal/broker"
	"github.com/tinytelemetry/snowpulse/internal/generate"
	"github.com/tinytelemetry/snowpulse/internal/journal"
	"github.com/tinytelemetry/snowpulse/internal/produce"
)

// runProducer starts the paced dual-sink emission loop.
func runProducer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger("producer.log")
	defer cleanupLogger()

	// The journal is the durability floor: failure to open it ends the run.
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	gateway := broker.NewGateway(cfg.BrokerAddress)
	producer := produce.New(
		generate.New(),
		j,
		gateway,
		gateway.NewPublisher(cfg.Topic),
		produce.Config{
			Topic:      cfg.Topic,
			Interval:   cfg.interval(),
			ProbeEvery: cfg.ProbeEvery,
		},
	)
	defer func() {
		if err := producer.Close(); err != nil {
			log.Printf("producer close: %v", err)
		}
	}()

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

	verifyCtx, verifyCancel := context.WithTimeout(ctx, 10*time.Second)
	health := producer.VerifyBroker(verifyCtx)
	verifyCancel()

	printStartupBanner(cfg, health)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return producer.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	signal.Stop(sigCh)
	log.Printf("producer: shut down cleanly, %d emitted, %d published", producer.Emitted(), producer.Published())
	return nil
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

func printStartupBanner(cfg appConfig, health produce.HealthState) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	warn := red.Render("●")

	brokerLine := fmt.Sprintf("    %s  Broker         %s", check, cyan.Render(cfg.BrokerAddress))
	if health != produce.HealthConnected {
		brokerLine = fmt.Sprintf("    %s  Broker         %s", warn, dim.Render(cfg.BrokerAddress+" (journal-only)"))
	}

	var lines []string
	lines = append(lines, "")
	lines = append(lines, bold.Render("    snowpulse producer")+" "+dim.Render("v"+version))
	lines = append(lines, "")
	lines = append(lines, brokerLine)
	lines = append(lines, fmt.Sprintf("    %s  Topic          %s", check, cyan.Render(cfg.Topic)))
	lines = append(lines, fmt.Sprintf("    %s  Journal        %s", check, dim.Render(shortenPath(cfg.JournalPath))))
	lines = append(lines, fmt.Sprintf("    %s  Interval       %s", check, dim.Render(cfg.interval().String())))
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
