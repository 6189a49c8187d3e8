// Package main provides the Proctor entrypoint: browser-driven test runs
// supervised by a computer-use model, either as a one-shot CLI run or as a
// websocket server for interactive clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entrhq/proctor/pkg/author"
	"github.com/entrhq/proctor/pkg/browser"
	"github.com/entrhq/proctor/pkg/config"
	"github.com/entrhq/proctor/pkg/llm/openai"
	"github.com/entrhq/proctor/pkg/llm/responses"
	"github.com/entrhq/proctor/pkg/logging"
	"github.com/entrhq/proctor/pkg/oracle"
	"github.com/entrhq/proctor/pkg/reviewer"
	"github.com/entrhq/proctor/pkg/runner"
	"github.com/entrhq/proctor/pkg/server"
	"github.com/entrhq/proctor/pkg/types"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigFile  string
	Task        string
	URL         string
	Serve       bool
	Headless    bool
	NoLogin     bool
	Timeout     time.Duration
	ShowVersion bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("Proctor v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
		os.Exit(1)
	}
	cancel()
}

func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&cli.Task, "task", "", "Test case description (required unless -serve)")
	flag.StringVar(&cli.URL, "url", "", "URL of the application under test (required unless -serve)")
	flag.BoolVar(&cli.Serve, "serve", false, "Run the websocket server instead of a one-shot test")
	flag.BoolVar(&cli.Headless, "headless", false, "Run the browser without a visible window")
	flag.BoolVar(&cli.NoLogin, "no-login", false, "Author steps without a login flow")
	flag.DurationVar(&cli.Timeout, "timeout", 15*time.Minute, "Run timeout (one-shot mode)")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Proctor - Supervised Browser Test Agent\n\n")
		fmt.Fprintf(os.Stderr, "Usage: proctor [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Run a single test case\n")
		fmt.Fprintf(os.Stderr, "  proctor -task \"Add a product to the cart and check out\" -url https://shop.example\n\n")
		fmt.Fprintf(os.Stderr, "  # Serve websocket clients\n")
		fmt.Fprintf(os.Stderr, "  proctor -serve\n\n")
	}

	flag.Parse()
	return cli
}

func run(ctx context.Context, cli *CLIConfig) error {
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return err
	}
	if cli.Headless {
		cfg.Headless = true
	}

	log, err := logging.NewLogger("proctor")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	apiOpts := []responses.ClientOption{}
	if cfg.BaseURL != "" {
		apiOpts = append(apiOpts, responses.WithBaseURL(cfg.BaseURL))
	}
	api, err := responses.NewClient(cfg.APIKey, apiOpts...)
	if err != nil {
		return fmt.Errorf("failed to create responses client: %w", err)
	}

	providerOpts := []openai.ProviderOption{openai.WithModel(cfg.AuthorModel)}
	if cfg.BaseURL != "" {
		providerOpts = append(providerOpts, openai.WithBaseURL(cfg.BaseURL))
	}
	provider, err := openai.NewProvider(cfg.APIKey, providerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}

	oracleClient := oracle.New(api, log,
		oracle.WithModel(cfg.DecisionModel),
		oracle.WithDisplaySize(cfg.DisplayWidth, cfg.DisplayHeight),
		oracle.WithEnvInstructions(cfg.EnvInstructions),
	)
	executor := browser.NewExecutor(log)

	newReviewer := func() *reviewer.Agent {
		return reviewer.New(api, reviewer.NewFSStore(cfg.EvidenceDir), log,
			reviewer.WithModel(cfg.ReviewModel),
			reviewer.WithChaining(cfg.ChainReviewResponses),
		)
	}

	if cli.Serve {
		return serve(&cfg, provider, oracleClient, executor, newReviewer, log)
	}

	if cli.Task == "" || cli.URL == "" {
		return fmt.Errorf("-task and -url are required (or use -serve)")
	}
	if cli.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cli.Timeout)
		defer cancel()
	}
	return runOnce(ctx, cli, &cfg, provider, oracleClient, executor, newReviewer, log)
}

// runOnce authors, verifies, and executes a single test case.
func runOnce(ctx context.Context, cli *CLIConfig, cfg *config.Config, provider *openai.Provider, oracleClient *oracle.Client, executor *browser.Executor, newReviewer func() *reviewer.Agent, log *logging.Logger) error {
	authoring := author.New(provider, log, author.WithLoginFlow(!cli.NoLogin))
	checklist, err := authoring.Author(ctx, cli.Task+" URL: "+cli.URL)
	if err != nil {
		return err
	}
	checklistJSON, err := checklist.JSON()
	if err != nil {
		return err
	}
	fmt.Println("Task steps created:")
	for _, step := range checklist.Steps {
		fmt.Printf("  Step %d: %s\n", step.Number, step.Instructions)
	}

	review := newReviewer()
	defer review.Close()
	if _, err := review.Initialize(ctx, "INSTRUCTIONS:\n"+string(checklistJSON)); err != nil {
		return err
	}

	emitter := types.EmitterFunc(func(event types.RunEvent) {
		if event.Name == types.EventMessage {
			fmt.Println(event.Text)
		}
	})

	r := runner.New(cfg, oracleClient, review, executor, emitter, log)

	var script string
	for _, step := range checklist.Steps {
		script += fmt.Sprintf("Step %d: %s\n", step.Number, step.Instructions)
	}

	status, err := r.Run(ctx, script, cli.URL)
	if err != nil {
		return err
	}
	fmt.Printf("Run finished: %s\n", status)
	if status == types.StatusFail {
		os.Exit(1)
	}
	return nil
}

// serve exposes runs to websocket clients, one run per connection.
func serve(cfg *config.Config, provider *openai.Provider, oracleClient *oracle.Client, executor *browser.Executor, newReviewer func() *reviewer.Agent, log *logging.Logger) error {
	deps := server.Deps{
		NewAuthor: func(loginRequired bool) server.Author {
			return author.New(provider, log, author.WithLoginFlow(loginRequired))
		},
		NewSession: func(emitter types.Emitter) (server.Run, server.Initializer, error) {
			review := newReviewer()
			r := runner.New(cfg, oracleClient, review, executor, emitter, log)
			return r, review, nil
		},
	}

	srv := server.New(deps, log)
	log.Infof("listening on %s", cfg.ListenAddr)
	fmt.Printf("Proctor server listening on %s\n", cfg.ListenAddr)
	return http.ListenAndServe(cfg.ListenAddr, srv.Handler())
}
