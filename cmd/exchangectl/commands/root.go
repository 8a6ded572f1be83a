// Package commands implements the CLI commands for the exchangectl client.
package commands

import (
	"fmt"
	"time"

	"github.com/hydrosim/exchange/internal/cli/output"
	"github.com/hydrosim/exchange/pkg/apiclient"
	"github.com/hydrosim/exchange/pkg/session"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Persistent flag values, synced before every command runs.
var (
	serverURL      string
	outputFormat   string
	requestTimeout time.Duration
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "exchangectl",
	Short: "Exchange Control - data exchange broker client",
	Long: `exchangectl is the command-line client for the exchange broker.

Use this tool to create and join coupling sessions, move float64 payloads
through per-variable slots, and inspect readiness flags through the broker
REST API.

Session ids are the comma-joined form returned by "exchangectl create":
  <source>,<destination>,<initiator>,<invitee>,<client-id>

Use "exchangectl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "Broker URL")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 30*time.Second, "HTTP request timeout")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(recvCmd)
	rootCmd.AddCommand(flagCmd)
	rootCmd.AddCommand(flagsCmd)
	rootCmd.AddCommand(sizeCmd)
	rootCmd.AddCommand(endCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// getClient returns an API client configured from the persistent flags.
func getClient() *apiclient.Client {
	return apiclient.NewWithTimeout(serverURL, requestTimeout)
}

// getOutputFormat parses the --output flag.
func getOutputFormat() (output.Format, error) {
	return output.ParseFormat(outputFormat)
}

// parseSessionArg parses the positional session id argument.
func parseSessionArg(arg string) (session.ID, error) {
	id, err := session.ParseID(arg)
	if err != nil {
		return session.ID{}, fmt.Errorf("invalid session id: %w", err)
	}
	return id, nil
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}
