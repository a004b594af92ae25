package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/pendergraft/contractscan/pkg/client"
	"github.com/pendergraft/contractscan/pkg/smartcontract"
)

// Credentials stores API keys per server
type Credentials struct {
	Servers map[string]ServerCredential `yaml:"servers"`
}

// ServerCredential stores credentials for a single server
type ServerCredential struct {
	APIKey string `yaml:"api_key"`
	Name   string `yaml:"name,omitempty"` // Optional name/description
}

// probeAddress is looked up to check a key; the explorer need not know it
const probeAddress = "0x0000000000000000000000000000000000000000"

func createAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
	}

	cmd.AddCommand(createAuthLoginCmd())
	cmd.AddCommand(createAuthLogoutCmd())
	cmd.AddCommand(createAuthStatusCmd())

	return cmd
}

func createAuthLoginCmd() *cobra.Command {
	var serverFlag string
	var apiKeyFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with an explorer",
		Long: `Save API key credentials for an explorer API.

The API key is stored in ~/.contractscan/credentials with secure file permissions.

EXAMPLES:
  # Interactive login (prompts for API key)
  contractscan auth login

  # Login to a specific explorer
  contractscan auth login --server https://explorer.example.com/api

  # Non-interactive login (for CI)
  contractscan auth login --api-key $CONTRACTSCAN_API_KEY
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd.Context(), cmd.OutOrStdout(), serverFlag, apiKeyFlag)
		},
	}

	cmd.Flags().StringVar(&serverFlag, "server", "", "explorer API URL (default from config)")
	cmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key (prompts if not provided)")

	return cmd
}

func createAuthLogoutCmd() *cobra.Command {
	var serverFlag string
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear credentials",
		Long: `Remove saved credentials for an explorer.

EXAMPLES:
  # Logout from default explorer
  contractscan auth logout

  # Logout from a specific explorer
  contractscan auth logout --server https://explorer.example.com/api

  # Clear all credentials
  contractscan auth logout --all
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout(cmd.OutOrStdout(), serverFlag, allFlag)
		},
	}

	cmd.Flags().StringVar(&serverFlag, "server", "", "explorer API URL (default from config)")
	cmd.Flags().BoolVar(&allFlag, "all", false, "clear all credentials")

	return cmd
}

func createAuthStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long: `Show current authentication status for all configured explorers.

EXAMPLES:
  contractscan auth status
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd.OutOrStdout())
		},
	}

	return cmd
}

func runAuthLogin(ctx context.Context, out io.Writer, serverURL, apiKeyInput string) error {
	// Determine server
	if serverURL == "" {
		serverURL = getServer()
	}

	// Get API key
	apiKey := apiKeyInput
	if apiKey == "" {
		fmt.Fprintf(out, "Enter API key for %s: ", serverURL)

		// Try to read password without echo
		stdinFd := int(os.Stdin.Fd())
		if term.IsTerminal(stdinFd) {
			byteKey, err := term.ReadPassword(stdinFd)
			fmt.Fprintln(out) // New line after password input
			if err != nil {
				return fmt.Errorf("failed to read API key: %w", err)
			}
			apiKey = string(byteKey)
		} else {
			// Non-terminal, read from stdin
			reader := bufio.NewReader(os.Stdin)
			key, err := reader.ReadString('\n')
			if err != nil && err != io.EOF {
				return fmt.Errorf("failed to read API key: %w", err)
			}
			apiKey = strings.TrimSpace(key)
		}
	}

	if apiKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	fmt.Fprintf(out, "Validating credentials with %s...\n", serverURL)
	valid, err := validateAPIKey(contextOrBackground(ctx), serverURL, apiKey)
	if err != nil {
		return fmt.Errorf("failed to validate credentials: %w", err)
	}
	if !valid {
		return fmt.Errorf("invalid API key")
	}

	if err := saveCredential(serverURL, apiKey); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintf(out, "✅ Authenticated to %s (key: %s)\n", serverURL, maskAPIKey(apiKey))
	fmt.Fprintf(out, "   Credentials saved to %s\n", credentialsFilePath())

	return nil
}

func runAuthLogout(out io.Writer, serverURL string, all bool) error {
	if all {
		path := credentialsFilePath()
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove credentials: %w", err)
		}
		fmt.Fprintln(out, "✅ All credentials cleared")
		return nil
	}

	if serverURL == "" {
		serverURL = getServer()
	}

	creds, err := loadCredentials()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(out, "No credentials found for %s\n", serverURL)
			return nil
		}
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	if _, exists := creds.Servers[serverURL]; !exists {
		fmt.Fprintf(out, "No credentials found for %s\n", serverURL)
		return nil
	}

	delete(creds.Servers, serverURL)

	if err := writeCredentials(creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintf(out, "✅ Logged out from %s\n", serverURL)
	return nil
}

func runAuthStatus(out io.Writer) error {
	creds, err := loadCredentials()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	if creds == nil || len(creds.Servers) == 0 {
		fmt.Fprintln(out, "Not authenticated to any explorers")
		fmt.Fprintln(out, "\nRun 'contractscan auth login' to authenticate")
		return nil
	}

	fmt.Fprintln(out, "Authenticated explorers:")
	for _, serverURL := range sortedServers(creds) {
		cred := creds.Servers[serverURL]
		masked := maskAPIKey(cred.APIKey)
		if cred.Name != "" {
			fmt.Fprintf(out, "  • %s (%s, key: %s)\n", serverURL, cred.Name, masked)
		} else {
			fmt.Fprintf(out, "  • %s (key: %s)\n", serverURL, masked)
		}
	}

	return nil
}

// Credential file helpers

func credentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".contractscan"
	}
	return filepath.Join(home, ".contractscan")
}

func credentialsFilePath() string {
	return filepath.Join(credentialsDir(), "credentials")
}

func loadCredentials() (*Credentials, error) {
	data, err := os.ReadFile(credentialsFilePath())
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	if creds.Servers == nil {
		creds.Servers = make(map[string]ServerCredential)
	}

	return &creds, nil
}

func writeCredentials(creds *Credentials) error {
	if err := os.MkdirAll(credentialsDir(), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}

	return os.WriteFile(credentialsFilePath(), data, 0600)
}

func saveCredential(serverURL, apiKey string) error {
	creds, err := loadCredentials()
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		creds = &Credentials{Servers: make(map[string]ServerCredential)}
	}

	creds.Servers[serverURL] = ServerCredential{APIKey: apiKey}
	return writeCredentials(creds)
}

func getCredential(serverURL string) string {
	creds, err := loadCredentials()
	if err != nil {
		return ""
	}
	if cred, ok := creds.Servers[serverURL]; ok {
		return cred.APIKey
	}
	return ""
}

func sortedServers(creds *Credentials) []string {
	servers := make([]string, 0, len(creds.Servers))
	for s := range creds.Servers {
		servers = append(servers, s)
	}
	sort.Strings(servers)
	return servers
}

// validateAPIKey reads the ABI of the zero address with the key. A 401 or 403
// means the key was rejected; a 404 means the request got past authentication.
// Any other error status is returned, since it says nothing about the key.
func validateAPIKey(ctx context.Context, serverURL, apiKey string) (bool, error) {
	c := client.New(serverURL, apiKey,
		client.WithLogger(logger),
		client.WithUserAgent("contractscan/"+cliVersion),
	)

	_, err := smartcontract.New(c).GetAbiByAddress(ctx, probeAddress)
	if err == nil {
		return true, nil
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return false, err
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, nil
	case http.StatusNotFound:
		return true, nil
	default:
		return false, err
	}
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
