package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pendergraft/contractscan/internal/config"
)

// projectConfigFiles is the search order for project config files
var projectConfigFiles = []string{"contractscan.toml", "cs.toml"}

// ProjectConfig is the project-level TOML configuration
type ProjectConfig struct {
	Server string         `toml:"server"`
	Verify VerifyDefaults `toml:"verify,omitempty"`
}

// VerifyDefaults are compiler settings applied to `contract verify` when the
// matching flag is not given
type VerifyDefaults struct {
	Compiler  string `toml:"compiler,omitempty"`
	EVM       string `toml:"evm,omitempty"`
	Optimizer bool   `toml:"optimizer,omitempty"`
	Runs      int    `toml:"runs,omitempty"`
	ViaIR     bool   `toml:"via_ir,omitempty"`
}

// ServerConfig is the global server configuration (stored in ~/.contractscan/config.yaml)
type ServerConfig struct {
	Server string `yaml:"server"`
}

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var serverURL string
	var compiler string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create a contractscan.toml configuration file in the current directory.

This file stores project-specific settings like the explorer URL and the
compiler settings used when submitting source code for verification.

EXAMPLES:
  # Create config with default server
  contractscan config init

  # Create config for a specific explorer
  contractscan config init --server https://explorer.example.com/api

  # Pin the compiler used for verification
  contractscan config init --compiler v0.8.19+commit.7dd6d404

  # Overwrite existing config
  contractscan config init --force
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), serverURL, compiler, force)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", config.DefaultServer, "explorer API URL")
	cmd.Flags().StringVar(&compiler, "compiler", "", "full compiler version for verification")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current config",
		Long: `Display the current configuration.

Shows the local project config (contractscan.toml), the global config from
~/.contractscan/config.yaml and the stored credentials.

EXAMPLES:
  contractscan config show
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}

	return cmd
}

func runConfigInit(out io.Writer, serverURL, compiler string, force bool) error {
	configPath := "contractscan.toml"

	// Check if any config file already exists
	for _, name := range projectConfigFiles {
		if _, err := os.Stat(name); err == nil && !force {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", name)
		}
	}

	compilerLine := "# compiler = \"v0.8.19+commit.7dd6d404\""
	if compiler != "" {
		compilerLine = fmt.Sprintf("compiler = %q", compiler)
	}

	content := fmt.Sprintf(`# contractscan project configuration

server = %q

# Defaults for 'contractscan contract verify'; flags override them
[verify]
%s
# evm = "paris"
optimizer = true
runs = 200
# via_ir = false
`, serverURL, compilerLine)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(out, "Created %s\n", configPath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Server: %s\n", serverURL)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Edit %s to customize settings\n", configPath)
	fmt.Fprintln(out, "  2. Run 'contractscan auth login' to authenticate")
	fmt.Fprintln(out, "  3. Run 'contractscan contract verify <address> --source <file>' to verify a contract")

	return nil
}

func runConfigShow(out io.Writer) error {
	fmt.Fprintln(out, "Configuration sources (in order of precedence):")
	fmt.Fprintln(out)

	// 1. Command line flags
	fmt.Fprintln(out, "1. Command line flags")
	fmt.Fprintln(out, "   --server, --api-key, --config")
	fmt.Fprintln(out)

	// 2. Environment variables
	fmt.Fprintln(out, "2. Environment variables")
	for _, name := range []string{"CONTRACTSCAN_SERVER", "CONTRACTSCAN_API_KEY"} {
		value := os.Getenv(name)
		switch {
		case value == "":
			fmt.Fprintf(out, "   %s=(not set)\n", name)
		case name == "CONTRACTSCAN_API_KEY":
			fmt.Fprintf(out, "   %s=%s\n", name, maskAPIKey(value))
		default:
			fmt.Fprintf(out, "   %s=%s\n", name, value)
		}
	}
	fmt.Fprintln(out)

	// 3. Local project config
	fmt.Fprintln(out, "3. Local project config (contractscan.toml or cs.toml)")
	projectConfig, configPath, err := loadProjectConfig()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(out, "   (not found)")
		} else {
			fmt.Fprintf(out, "   Error: %v\n", err)
		}
	} else {
		fmt.Fprintf(out, "   Loaded from: %s\n", configPath)
		if projectConfig.Server != "" {
			fmt.Fprintf(out, "   server: %s\n", projectConfig.Server)
		}
		v := projectConfig.Verify
		if v.Compiler != "" {
			fmt.Fprintf(out, "   verify.compiler: %s\n", v.Compiler)
		}
		if v.EVM != "" {
			fmt.Fprintf(out, "   verify.evm: %s\n", v.EVM)
		}
		if v.Optimizer {
			fmt.Fprintf(out, "   verify.optimizer: true (runs: %d)\n", v.Runs)
		}
		if v.ViaIR {
			fmt.Fprintln(out, "   verify.via_ir: true")
		}
	}
	fmt.Fprintln(out)

	// 4. Global config
	fmt.Fprintln(out, "4. Global config (~/.contractscan/config.yaml)")
	if global := loadGlobalConfig(); global != nil && global.Server != "" {
		fmt.Fprintf(out, "   server: %s\n", global.Server)
	} else {
		fmt.Fprintln(out, "   (not found)")
	}
	fmt.Fprintln(out)

	// 5. Credentials
	fmt.Fprintln(out, "5. Credentials (~/.contractscan/credentials)")
	creds, err := loadCredentials()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(out, "   (not found)")
		} else {
			fmt.Fprintf(out, "   Error: %v\n", err)
		}
	} else if len(creds.Servers) == 0 {
		fmt.Fprintln(out, "   (no credentials stored)")
	} else {
		for _, serverURL := range sortedServers(creds) {
			fmt.Fprintf(out, "   %s: %s\n", serverURL, maskAPIKey(creds.Servers[serverURL].APIKey))
		}
	}
	fmt.Fprintln(out)

	// Effective config
	fmt.Fprintln(out, "Effective configuration:")
	fmt.Fprintf(out, "   Server:  %s\n", getServer())
	if key := getAPIKey(); key != "" {
		fmt.Fprintf(out, "   API Key: %s\n", maskAPIKey(key))
	} else {
		fmt.Fprintln(out, "   API Key: (not set)")
	}
	fmt.Fprintf(out, "   Timeout: %s\n", getTimeout())

	return nil
}

// loadProjectConfig loads the project config from the first matching config file.
// Returns the config, the path it was loaded from, and an error.
func loadProjectConfig() (*ProjectConfig, string, error) {
	// If --config flag was provided, use that directly
	if cfgFile != "" {
		config, err := loadProjectConfigFromPath(cfgFile)
		if err != nil {
			return nil, cfgFile, err
		}
		return config, cfgFile, nil
	}

	// Search for config files in order
	for _, name := range projectConfigFiles {
		if _, err := os.Stat(name); err == nil {
			config, err := loadProjectConfigFromPath(name)
			if err != nil {
				return nil, name, err
			}
			return config, name, nil
		}
	}
	return nil, "", os.ErrNotExist
}

// loadProjectConfigFromPath loads a project config from a specific path
func loadProjectConfigFromPath(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config ProjectConfig
	if _, err := toml.Decode(string(data), &config); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}

	return &config, nil
}

// loadProjectConfigSilent loads the project config without returning errors for missing files.
// Returns nil if the file doesn't exist; parse failures are reported as a warning.
func loadProjectConfigSilent() *ProjectConfig {
	config, path, err := loadProjectConfig()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Warn("failed to load project config", "path", path, "error", err)
		return nil
	}
	return config
}

// loadGlobalConfig reads ~/.contractscan/config.yaml, returning nil when it is absent or unreadable
func loadGlobalConfig() *ServerConfig {
	data, err := os.ReadFile(filepath.Join(credentialsDir(), "config.yaml"))
	if err != nil {
		return nil
	}

	var global ServerConfig
	if err := yaml.Unmarshal(data, &global); err != nil {
		logger.Warn("failed to parse global config", "error", err)
		return nil
	}
	return &global
}
