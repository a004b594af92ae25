package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pendergraft/contractscan/internal/abiview"
	"github.com/pendergraft/contractscan/internal/validation"
	"github.com/pendergraft/contractscan/pkg/smartcontract"
)

func createContractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contract",
		Aliases: []string{"sc"},
		Short:   "Smart contract commands",
	}

	cmd.AddCommand(createContractGetCmd())
	cmd.AddCommand(createContractAbiCmd())
	cmd.AddCommand(createContractVerifyCmd())

	return cmd
}

func createContractGetCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "get <address>",
		Short: "Show a smart contract",
		Long: `Fetch a smart contract from the explorer by address.

EXAMPLES:
  contractscan contract get 0x1234567890abcdef1234567890abcdef12345678

  # Print the response exactly as returned
  contractscan contract get 0x1234...5678 --raw
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContractGet(cmd.Context(), cmd.OutOrStdout(), args[0], raw)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the response without formatting")

	return cmd
}

func createContractAbiCmd() *cobra.Command {
	var output string
	var summary bool

	cmd := &cobra.Command{
		Use:   "abi <address>",
		Short: "Fetch a contract ABI",
		Long: `Fetch the ABI of a verified smart contract.

EXAMPLES:
  # Print the ABI
  contractscan contract abi 0x1234...5678

  # Save the ABI to a file
  contractscan contract abi 0x1234...5678 -o Token.abi.json

  # List functions, events and errors with their selectors
  contractscan contract abi 0x1234...5678 --summary
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContractAbi(cmd.Context(), cmd.OutOrStdout(), args[0], output, summary)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the ABI to this file")
	cmd.Flags().BoolVar(&summary, "summary", false, "print a summary instead of the ABI JSON")

	return cmd
}

// verifyOptions holds the flags of `contract verify`
type verifyOptions struct {
	source          string
	abiFile         string
	compiler        string
	compilerVersion string
	optimizer       bool
	runs            int
	singleFile      bool
	libs            []string
	evm             string
	viaIR           bool

	// set when the flag was given explicitly
	optimizerSet  bool
	runsSet       bool
	singleFileSet bool
	viaIRSet      bool
}

func createContractVerifyCmd() *cobra.Command {
	var opts verifyOptions

	cmd := &cobra.Command{
		Use:   "verify <address>",
		Short: "Submit source code for verification",
		Long: `Submit contract source code to the explorer for verification.

Compiler settings not given as flags are taken from the [verify] table of
contractscan.toml. When only --compiler is given, the plain version is
derived from it (v0.8.19+commit.7dd6d404 -> 0.8.19).

Sources ending in .json are treated as standard JSON input and sent with
isSingleFile=false unless --single-file is given.

EXAMPLES:
  # Verify a flattened contract
  contractscan contract verify 0x1234...5678 --source Token.sol \
    --compiler v0.8.19+commit.7dd6d404 --optimizer --runs 200

  # Verify with linked libraries
  contractscan contract verify 0x1234...5678 --source Vault.sol \
    --compiler v0.8.19+commit.7dd6d404 --lib SafeMath=0xabc...def

  # Read the source from stdin
  cat Token.sol | contractscan contract verify 0x1234...5678 --source -
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			opts.optimizerSet = flags.Changed("optimizer")
			opts.runsSet = flags.Changed("runs")
			opts.singleFileSet = flags.Changed("single-file")
			opts.viaIRSet = flags.Changed("via-ir")
			return runContractVerify(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.source, "source", "", "source file, or - for stdin (required)")
	cmd.Flags().StringVar(&opts.abiFile, "abi", "", "ABI file (a bare ABI array or a build artifact)")
	cmd.Flags().StringVar(&opts.compiler, "compiler", "", "full compiler version, e.g. v0.8.19+commit.7dd6d404")
	cmd.Flags().StringVar(&opts.compilerVersion, "compiler-version", "", "plain compiler version (derived from --compiler if omitted)")
	cmd.Flags().BoolVar(&opts.optimizer, "optimizer", false, "optimizer was enabled")
	cmd.Flags().IntVar(&opts.runs, "runs", 200, "optimizer runs")
	cmd.Flags().BoolVar(&opts.singleFile, "single-file", true, "source is a single flattened file")
	cmd.Flags().StringArrayVar(&opts.libs, "lib", nil, "linked library as Name=address (repeatable)")
	cmd.Flags().StringVar(&opts.evm, "evm", "", "EVM version, e.g. paris")
	cmd.Flags().BoolVar(&opts.viaIR, "via-ir", false, "compiled with the IR pipeline")

	return cmd
}

func runContractGet(ctx context.Context, out io.Writer, address string, raw bool) error {
	warnAddress(address)

	sc, stop := newSmartContractClient()
	defer stop()

	res, err := sc.GetOneByAddress(contextOrBackground(ctx), address)
	if err != nil {
		return fmt.Errorf("failed to get contract: %w", err)
	}

	if raw {
		_, err := fmt.Fprintln(out, string(res))
		return err
	}
	return writeIndented(out, res)
}

func runContractAbi(ctx context.Context, out io.Writer, address, output string, summary bool) error {
	warnAddress(address)

	sc, stop := newSmartContractClient()
	defer stop()

	res, err := sc.GetAbiByAddress(contextOrBackground(ctx), address)
	if err != nil {
		return fmt.Errorf("failed to get ABI: %w", err)
	}

	abiJSON, err := abiview.Extract(res)
	if err != nil {
		return fmt.Errorf("failed to read ABI: %w", err)
	}

	if output != "" {
		var buf bytes.Buffer
		if err := json.Indent(&buf, abiJSON, "", "  "); err != nil {
			return fmt.Errorf("failed to format ABI: %w", err)
		}
		buf.WriteByte('\n')
		if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write ABI: %w", err)
		}
		fmt.Fprintf(out, "✅ ABI written to %s\n", output)
		if !summary {
			return nil
		}
	}

	if summary {
		s, err := abiview.Summarize(abiJSON)
		if err != nil {
			return fmt.Errorf("failed to parse ABI: %w", err)
		}
		return s.Write(out)
	}

	return writeIndented(out, abiJSON)
}

func runContractVerify(ctx context.Context, in io.Reader, out io.Writer, address string, opts verifyOptions) error {
	warnAddress(address)

	req, err := buildVerificationRequest(in, opts)
	if err != nil {
		return err
	}

	logger.Debug("submitting verification",
		"address", address,
		"version", req.Version,
		"optimizer", req.Optimizer,
		"single_file", req.IsSingleFile,
		"libraries", validation.LibraryNames(req.Libs),
	)

	sc, stop := newSmartContractClient()
	defer stop()

	fmt.Fprintf(out, "Submitting %s for verification (compiler %s)...\n", address, displayVersion(req))

	res, err := sc.VerifySourceCode(contextOrBackground(ctx), address, req)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	fmt.Fprintln(out, "✅ Verification submitted")
	if len(res) == 0 {
		return nil
	}
	return writeIndented(out, res)
}

// buildVerificationRequest assembles the request from flags and project defaults
func buildVerificationRequest(in io.Reader, opts verifyOptions) (smartcontract.VerificationRequest, error) {
	var req smartcontract.VerificationRequest

	if opts.source == "" {
		return req, fmt.Errorf("--source is required")
	}
	source, err := readInput(in, opts.source)
	if err != nil {
		return req, fmt.Errorf("failed to read source: %w", err)
	}
	if strings.TrimSpace(source) == "" {
		return req, fmt.Errorf("source %s is empty", opts.source)
	}
	req.SourceCode = source

	if opts.abiFile != "" {
		data, err := os.ReadFile(opts.abiFile)
		if err != nil {
			return req, fmt.Errorf("failed to read ABI: %w", err)
		}
		abiJSON, err := abiview.Extract(data)
		if err != nil {
			return req, fmt.Errorf("failed to read ABI from %s: %w", opts.abiFile, err)
		}
		req.ABI = string(abiJSON)
	}

	defaults := VerifyDefaults{}
	if project := loadProjectConfigSilent(); project != nil {
		defaults = project.Verify
	}

	req.VersionFullName = opts.compiler
	if req.VersionFullName == "" {
		req.VersionFullName = defaults.Compiler
	}
	req.Version = opts.compilerVersion
	if req.Version == "" && req.VersionFullName != "" {
		v, err := validation.CompilerVersion(req.VersionFullName)
		if err != nil {
			return req, err
		}
		req.Version = v
	}
	if req.Version != "" && validation.IsPrerelease(req.Version) {
		logger.Warn("verifying with a prerelease compiler", "version", req.Version)
	}

	req.Optimizer = opts.optimizer
	if !opts.optimizerSet {
		req.Optimizer = opts.optimizer || defaults.Optimizer
	}
	req.OptimizerRuns = opts.runs
	if !opts.runsSet && defaults.Runs > 0 {
		req.OptimizerRuns = defaults.Runs
	}

	req.IsSingleFile = opts.singleFile
	if !opts.singleFileSet {
		req.IsSingleFile = !strings.EqualFold(filepath.Ext(opts.source), ".json")
	}

	libs, err := validation.ParseLibraries(opts.libs)
	if err != nil {
		return req, err
	}
	req.Libs = libs

	req.EVM = opts.evm
	if req.EVM == "" {
		req.EVM = defaults.EVM
	}

	req.ViaIR = opts.viaIR
	if !opts.viaIRSet {
		req.ViaIR = opts.viaIR || defaults.ViaIR
	}

	return req, nil
}

func readInput(in io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(in)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func displayVersion(req smartcontract.VerificationRequest) string {
	switch {
	case req.VersionFullName != "":
		return req.VersionFullName
	case req.Version != "":
		return req.Version
	default:
		return "unspecified"
	}
}

// warnAddress flags addresses the explorer is likely to reject; the request is still sent
func warnAddress(address string) {
	if err := validation.ValidateAddress(address); err != nil {
		logger.Warn("address looks malformed", "address", address, "error", err)
	}
}

func writeIndented(out io.Writer, data json.RawMessage) error {
	if len(data) == 0 {
		_, err := fmt.Fprintln(out, "null")
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		// Not JSON; print as received
		_, err := fmt.Fprintln(out, string(data))
		return err
	}
	buf.WriteByte('\n')
	_, err := out.Write(buf.Bytes())
	return err
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
