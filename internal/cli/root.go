package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/contractscan/internal/config"
	"github.com/pendergraft/contractscan/internal/logging"
	"github.com/pendergraft/contractscan/internal/metrics"
	"github.com/pendergraft/contractscan/internal/ratelimit"
	"github.com/pendergraft/contractscan/pkg/client"
	"github.com/pendergraft/contractscan/pkg/smartcontract"
)

var (
	cfgFile     string
	server      string
	apiKey      string
	timeout     time.Duration
	logLevel    string
	logFormat   string
	rateLimit   float64
	metricsFile string

	cliVersion = "dev"
	logger     = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

// Execute runs the CLI
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	cliVersion = version

	rootCmd := &cobra.Command{
		Use:           "contractscan",
		Short:         "Smart contract explorer CLI",
		Long:          `contractscan looks up smart contracts on a block explorer, fetches their ABIs and submits source code for verification.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupRuntime()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return flushMetrics()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: contractscan.toml or cs.toml)")
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "explorer API URL (default from config)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "request timeout (default 30s)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default warn)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (default text)")
	rootCmd.PersistentFlags().Float64Var(&rateLimit, "rate-limit", 0, "maximum requests per second to the explorer (0 = unlimited)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	// Add subcommands
	rootCmd.AddCommand(createContractCmd())
	rootCmd.AddCommand(createAuthCmd())
	rootCmd.AddCommand(createConfigCmd())

	return rootCmd
}

// setupRuntime configures logging and metrics from flags and environment
func setupRuntime() error {
	env, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := env.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	format := env.Logging.Format
	if logFormat != "" {
		format = logFormat
	}
	logger = logging.New(level, format, os.Stderr)

	if metricsFile == "" {
		metricsFile = env.Metrics.Textfile
	}
	metrics.Init(env.Metrics.Enabled || metricsFile != "", "contractscan")

	return nil
}

func flushMetrics() error {
	if metricsFile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(metricsFile); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	logger.Debug("metrics written", "path", metricsFile)
	return nil
}

// environment loads the environment configuration. A load failure is reported
// and the built-in defaults are used; setupRuntime has already rejected it for
// commands run through the root command.
func environment() *config.Config {
	env, err := config.Load()
	if err != nil {
		logger.Warn("failed to load environment config", "error", err)
		return &config.Config{}
	}
	return env
}

// newSmartContractClient builds the smart contract client and its transport stack.
// The returned function releases background resources.
func newSmartContractClient() (*smartcontract.Client, func()) {
	env := environment()

	limits := env.RateLimit
	if rateLimit > 0 {
		limits.Enabled = true
		limits.RequestsPerSecond = rateLimit
	}

	rt, stop := ratelimit.RoundTripper(ratelimit.Config{
		Enabled:           limits.Enabled,
		RequestsPerSecond: limits.RequestsPerSecond,
		BurstSize:         limits.BurstSize,
		CleanupMinutes:    limits.CleanupMinutes,
	}, http.DefaultTransport)
	rt = logging.RoundTripper(logger, rt)
	rt = metrics.RoundTripper(rt)

	httpClient := &http.Client{
		Timeout:   getTimeout(),
		Transport: rt,
	}

	c := client.New(getServer(), getAPIKey(),
		client.WithHTTPClient(httpClient),
		client.WithLogger(logger),
		client.WithUserAgent("contractscan/"+cliVersion),
	)

	return smartcontract.New(metrics.InstrumentTransport(c)), stop
}

// getServer returns the server URL from flag, env, config file, or default
func getServer() string {
	// 1. Command line flag
	if server != "" {
		return server
	}

	// 2. Environment variable
	if env := environment(); env.API.Server != "" {
		return env.API.Server
	}

	// 3. Project config file (TOML)
	if project := loadProjectConfigSilent(); project != nil && project.Server != "" {
		return project.Server
	}

	// 4. Global config (~/.contractscan/config.yaml)
	if global := loadGlobalConfig(); global != nil && global.Server != "" {
		return global.Server
	}

	// 5. Default
	return config.DefaultServer
}

// getAPIKey returns the API key from flag, env, or credentials file
func getAPIKey() string {
	// 1. Command line flag
	if apiKey != "" {
		return apiKey
	}

	// 2. Environment variable
	if env := environment(); env.API.APIKey != "" {
		return env.API.APIKey
	}

	// 3. Credentials file (keyed by server URL)
	if cred := getCredential(getServer()); cred != "" {
		return cred
	}

	return ""
}

// getTimeout returns the request timeout from flag, env, or default
func getTimeout() time.Duration {
	if timeout > 0 {
		return timeout
	}
	if env := environment(); env.API.Timeout > 0 {
		return env.API.Timeout
	}
	return client.DefaultTimeout
}
