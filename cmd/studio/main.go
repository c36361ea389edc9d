// Package main provides the studio binary entry point.
// Studio is a conversational product-design service: an avatar
// interviews the user about a repetitive workflow and builds a live
// workflow diagram from streamed tool calls while they talk.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/toolforge/studio/chat"
	"github.com/toolforge/studio/config"
	"github.com/toolforge/studio/diagram"
	"github.com/toolforge/studio/imagegen"
	"github.com/toolforge/studio/interview"
	"github.com/toolforge/studio/llm"
	"github.com/toolforge/studio/mock"
	"github.com/toolforge/studio/observability"
	"github.com/toolforge/studio/persona"
	"github.com/toolforge/studio/server"
	"github.com/toolforge/studio/session"
	"github.com/toolforge/studio/speech"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "studio"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Conversational product-design service",
		Long: `Studio runs a guided product-design interview. An avatar persona
asks about a repetitive workflow and, while the user answers, streams
tool calls that assemble a workflow diagram node by node.

The serve command exposes the chat stream over HTTP; the demo command
plays a full scripted interview in the terminal.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(demoCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func configureLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func serveCmd() *cobra.Command {
	var (
		configPath string
		listen     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat stream over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides config)")

	return cmd
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}
	return config.NewLoader(slog.Default()).Load()
}

func runServe(cfg *config.Config) error {
	printBanner()

	ctx := context.Background()
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	// Persona scripts, with optional hot-reloaded overrides
	library, err := buildLibrary(cfg)
	if err != nil {
		return fmt.Errorf("load persona scripts: %w", err)
	}
	if cfg.Persona.ScriptDir != "" {
		go func() {
			if err := library.Watch(signalCtx); err != nil {
				slog.Error("Script watcher stopped", "error", err)
			}
		}()
	}

	registerProviders(cfg, library)

	provider := llm.GetProvider(cfg.Provider.Name)
	if provider == nil {
		return fmt.Errorf("unknown provider %q (available: %s)",
			cfg.Provider.Name, strings.Join(llm.ListProviders(), ", "))
	}

	metrics := observability.NewCollector(cfg.Metrics.Namespace)

	opts := []server.Option{
		server.WithMetrics(metrics),
		server.WithStreamTimeout(cfg.Provider.Timeout),
	}

	// Session persistence over NATS, when configured
	if cfg.NATS.URL != "" {
		store, closeNATS, err := connectSessions(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeNATS()
		opts = append(opts, server.WithSessionReader(store))
	}

	srv := server.New(provider, opts...)

	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Studio listening",
			"addr", cfg.Server.Listen,
			"provider", provider.Name(),
			"version", Version)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-signalCtx.Done():
	}

	slog.Info("Received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down HTTP server", "error", err)
	}

	slog.Info("Studio shutdown complete")
	return nil
}

func buildLibrary(cfg *config.Config) (*persona.Library, error) {
	var opts []persona.LibraryOption
	if cfg.Persona.ScriptDir != "" {
		opts = append(opts, persona.WithScriptDir(cfg.Persona.ScriptDir))
	}
	return persona.NewLibrary(opts...)
}

// registerProviders wires every provider the config can select.
func registerProviders(cfg *config.Config, library *persona.Library) {
	llm.RegisterProvider(mock.NewEngine(library,
		mock.WithDelays(cfg.Mock.WordDelayMin, cfg.Mock.WordDelayMax, cfg.Mock.ToolDelay)))

	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		client := llm.NewAnthropicClient()
		llm.RegisterProvider(llm.NewRetryProvider(client, llm.DefaultRetryConfig(), slog.Default()))
	}
}

func connectSessions(ctx context.Context, cfg *config.Config) (*session.Store, func(), error) {
	slog.Info("Connecting to NATS", "url", cfg.NATS.URL)
	conn, err := nats.Connect(cfg.NATS.URL,
		nats.Name(appName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, nil, wrapNATSError(err, cfg.NATS.URL)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}

	store, err := session.NewStore(ctx, js, session.WithSessionTTL(cfg.NATS.SessionTTL))
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("initialize session store: %w", err)
	}

	closeNATS := func() {
		_ = conn.Drain()
		conn.Close()
	}
	return store, closeNATS, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or leave nats.url empty to run without session persistence.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}

func demoCmd() *cobra.Command {
	var (
		personaKey string
		userName   string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Play a scripted interview in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), personaKey, userName)
		},
	}

	cmd.Flags().StringVar(&personaKey, "persona", string(persona.DefaultKey), "Avatar persona (oracle, spark, forge, flow)")
	cmd.Flags().StringVar(&userName, "name", "Demo User", "Name used in the opening message")

	return cmd
}

// runDemo drives a complete scripted interview: greeting, then each
// turn answered with the avatar's first suggestion, printing replies
// and the growing diagram.
func runDemo(ctx context.Context, personaKey, userName string) error {
	printBanner()

	library, err := persona.NewLibrary()
	if err != nil {
		return fmt.Errorf("load persona scripts: %w", err)
	}
	engine := mock.NewEngine(library)

	tracker := interview.NewTracker()
	tracker.UpdateProfile(interview.ProfileUpdate{
		Name:       &userName,
		PainPoints: []string{"manual weekly demand forecasting"},
	})

	orch := chat.New(engine,
		chat.WithPersona(persona.Key(personaKey)),
		chat.WithTracker(tracker),
		chat.WithImageGenerator(imagegen.Nop{}),
		chat.WithSpeechNotifier(speech.Nop{}),
	)

	p := orch.Persona()
	fmt.Printf("%s %s — %s\n\n", p.Emoji, p.Name, p.Trait)

	if err := orch.SendGreeting(ctx); err != nil {
		return fmt.Errorf("greeting: %w", err)
	}
	printLastReply(orch, p.Name)

	for turn := 0; turn < 4; turn++ {
		suggestions := orch.Log().Suggestions()
		if len(suggestions) == 0 {
			break
		}
		answer := suggestions[0]
		fmt.Printf("%s> %s\n\n", userName, answer)

		if err := orch.SendMessage(ctx, answer, ""); err != nil {
			return fmt.Errorf("turn %d: %w", turn+1, err)
		}
		printLastReply(orch, p.Name)
	}

	// Reveal timers run on the wall clock; give the last batch a moment.
	time.Sleep(time.Second)
	printDiagram(orch.Diagram())
	fmt.Printf("\nInterview stage: %s\n", orch.Tracker().Stage())
	return nil
}

func printLastReply(orch *chat.Orchestrator, name string) {
	msgs := orch.Log().Messages()
	if len(msgs) == 0 {
		return
	}
	fmt.Printf("%s> %s\n\n", name, msgs[len(msgs)-1].Content)
}

func printDiagram(store *diagram.Store) {
	nodes := store.Nodes()
	conns := store.Connections()
	fmt.Printf("Workflow diagram: %d nodes, %d connections\n", len(nodes), len(conns))
	for _, n := range nodes {
		fmt.Printf("  %s %-12s [%s] %s\n", n.Icon, n.ID, n.Type, n.Label)
	}
	for _, c := range conns {
		fmt.Printf("  %s -> %s\n", c.From, c.To)
	}
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║             Studio v" + Version + "                      ║")
	fmt.Println("║      Conversational Product Design            ║")
	fmt.Println("╚═══════════════════════════════════════════════╝")
}
