// Cameron Code is a thin terminal wrapper around the Claude CLI: it picks an
// Anthropic-compatible provider, spawns the CLI with the right environment,
// audits every tool call, and renders the conversation in a chat TUI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cameroncode/cameroncode/internal/claude"
	"github.com/cameroncode/cameroncode/internal/logging"
	"github.com/cameroncode/cameroncode/internal/provider"
	"github.com/cameroncode/cameroncode/internal/tools"
)

// version is the CLI build version.
const version = "0.1.0"

// options holds the root command's flags.
type options struct {
	// Provider names the registry entry used for the session.
	Provider string
	// APIKey authenticates against the provider endpoint.
	APIKey string
	// Model overrides the provider's default model.
	Model string
	// CWD is the session working directory.
	CWD string
	// MaxTurns caps the number of assistant/tool turns.
	MaxTurns int
	// PermissionMode configures tool approval behavior.
	PermissionMode string
	// AllowedTools restricts tool usage to a whitelist.
	AllowedTools string
	// SettingSources limits which Claude settings sources load.
	SettingSources []string
	// Env entries (KEY=VALUE) override anything the provider configured.
	Env []string
	// Print enables non-interactive mode: one prompt, one response.
	Print bool
	// Verbose enables debug logging.
	Verbose bool
	// Version prints the CLI version.
	Version bool
}

func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "cameron [prompt]",
		Short: "Cameron Code - a provider-aware Claude CLI wrapper",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Version {
				fmt.Println(version)
				return nil
			}
			setup(opts)
			return runRoot(cmd.Context(), opts, args)
		},
	}
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.SilenceUsage = true

	applyFlags(rootCmd.Flags(), opts)

	rootCmd.AddCommand(providersCommand())
	rootCmd.AddCommand(currentCommand())
	rootCmd.AddCommand(mcpServeCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// applyFlags defines the root command's flag surface.
func applyFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVar(&opts.Provider, "provider", "anthropic", "Provider to route the session through")
	flags.StringVar(&opts.APIKey, "api-key", "", "API key for the selected provider")
	flags.StringVar(&opts.Model, "model", "", "Model override for the current session")
	flags.StringVar(&opts.CWD, "cwd", ".", "Session working directory")
	flags.IntVar(&opts.MaxTurns, "max-turns", 20, "Maximum number of turns")
	flags.StringVar(&opts.PermissionMode, "permission-mode", "", "Permission mode")
	flags.StringVar(&opts.AllowedTools, "allowed-tools", "", "Comma-separated allowed tools list")
	flags.StringSliceVar(&opts.SettingSources, "setting-sources", []string{"user", "project"}, "Setting sources to load")
	flags.StringArrayVar(&opts.Env, "env", nil, "Extra environment overrides (KEY=VALUE, repeatable)")
	flags.BoolVarP(&opts.Print, "print", "p", false, "Print the response and exit")
	flags.BoolVar(&opts.Verbose, "verbose", false, "Verbose output")
	flags.BoolVarP(&opts.Version, "version", "v", false, "Output the version number")
}

// setup performs process-level initialization shared by all commands that
// create sessions: .env loading, logging, user-defined providers.
func setup(opts *options) {
	_ = godotenv.Load()

	level := logging.InfoLevel
	if opts.Verbose {
		level = logging.DebugLevel
	}
	logging.Init(logging.Config{Level: level, Pretty: true})

	loadUserProviders()
}

// loadUserProviders registers providers from ~/.cameron/providers.yaml when
// the file exists. A broken file is reported but never fatal.
func loadUserProviders() {
	extras, err := provider.LoadExtraProviders("")
	if err != nil {
		if !errors.Is(err, provider.ErrExtraProvidersMissing) {
			logging.Logger.Warn().Err(err).Msg("skipping extra providers file")
		}
		return
	}
	for _, cfg := range extras {
		if err := provider.RegisterExtra(cfg); err != nil {
			logging.Logger.Warn().Err(err).Str("provider", cfg.Name).Msg("skipping extra provider")
		}
	}
}

// runRoot starts a session and hands it to print mode or the interactive TUI.
func runRoot(ctx context.Context, opts *options, args []string) error {
	sessionOpts, err := buildSessionOptions(opts)
	if err != nil {
		return err
	}

	client := claude.NewClient(sessionOpts, logging.Logger)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	if opts.Print {
		return runPrint(ctx, client, strings.Join(args, " "))
	}
	return runTUI(client, strings.Join(args, " "))
}

// buildSessionOptions resolves the provider and layers the remaining CLI
// flags on top of the resolved session options.
func buildSessionOptions(opts *options) (claude.Options, error) {
	envOverrides, err := parseEnvPairs(opts.Env)
	if err != nil {
		return claude.Options{}, err
	}

	sessionOpts, err := provider.NewOptionsForProvider(opts.Provider, provider.SessionRequest{
		APIKey:         opts.APIKey,
		Model:          opts.Model,
		CWD:            opts.CWD,
		SettingSources: opts.SettingSources,
		Env:            envOverrides,
	})
	if err != nil {
		return claude.Options{}, err
	}

	sessionOpts.MaxTurns = opts.MaxTurns
	sessionOpts.PermissionMode = opts.PermissionMode
	if opts.AllowedTools != "" {
		sessionOpts.AllowedTools = strings.Split(opts.AllowedTools, ",")
	}
	sessionOpts.MCPServers = map[string]claude.MCPServerConfig{
		"cameron": cameronServerConfig(),
	}
	return sessionOpts, nil
}

// cameronServerConfig points the CLI back at this binary's MCP tool server.
func cameronServerConfig() claude.MCPServerConfig {
	command, err := os.Executable()
	if err != nil {
		command = "cameron"
	}
	return claude.MCPServerConfig{Command: command, Args: []string{"mcp-serve"}}
}

// parseEnvPairs validates repeatable KEY=VALUE flags into a map.
func parseEnvPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --env entry %q, want KEY=VALUE", pair)
		}
		env[key] = value
	}
	return env, nil
}

// runPrint executes one prompt non-interactively and prints the response.
func runPrint(ctx context.Context, client *claude.Client, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return errors.New("print mode needs a prompt argument")
	}
	if err := client.Query(prompt); err != nil {
		return err
	}

	for message := range client.ReceiveResponse(ctx) {
		switch typed := message.(type) {
		case claude.AssistantMessage:
			for _, block := range typed.Content {
				if text, ok := block.(claude.TextBlock); ok {
					fmt.Println(text.Text)
				}
			}
		case claude.ResultMessage:
			if typed.IsError {
				return fmt.Errorf("session failed: %s", typed.Result)
			}
			logging.Logger.Debug().
				Int("turns", typed.NumTurns).
				Float64("cost_usd", typed.TotalCostUSD).
				Int("audit_records", len(client.AuditLog())).
				Msg("session complete")
		}
	}
	return client.Err()
}

// mcpServeCommand runs the MCP tool server over stdio. The external CLI
// launches it as a subprocess; it is not meant to be invoked by hand.
func mcpServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "mcp-serve",
		Short:  "Serve Cameron's MCP tools over stdio",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tools.ServeStdio()
		},
	}
}
