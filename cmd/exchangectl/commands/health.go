package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hydrosim/exchange/internal/cli/health"
	"github.com/hydrosim/exchange/internal/cli/output"
	"github.com/hydrosim/exchange/internal/cli/timeutil"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show broker status",
	Long: `Check the broker health endpoint and display status, uptime and the
live session count.

Examples:
  # Check the broker at the default address
  exchangectl health

  # Output as JSON
  exchangectl health -o json`,
	RunE: runHealth,
}

// BrokerStatus represents the broker status for display.
type BrokerStatus struct {
	Server    string `json:"server" yaml:"server"`
	Status    string `json:"status" yaml:"status"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
	Service   string `json:"service,omitempty" yaml:"service,omitempty"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Sessions  int    `json:"sessions" yaml:"sessions"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	status := BrokerStatus{
		Server:  serverURL,
		Status:  "unreachable",
		Healthy: false,
	}

	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		status.Error = err.Error()
	} else {
		defer func() { _ = resp.Body.Close() }()

		var healthResp health.Response
		if err := json.NewDecoder(resp.Body).Decode(&healthResp); err == nil {
			status.Status = healthResp.Status
			status.Healthy = healthResp.Status == "healthy"
			status.Service = healthResp.Data.Service
			status.StartedAt = healthResp.Data.StartedAt
			status.Uptime = healthResp.Data.Uptime
			if healthResp.Error != "" {
				status.Error = healthResp.Error
			}
		} else {
			status.Status = "unknown"
			status.Error = "Failed to parse health response"
		}
	}

	// The readiness probe carries the session count.
	if status.Healthy {
		if readyResp, err := client.Get(serverURL + "/health/ready"); err == nil {
			defer func() { _ = readyResp.Body.Close() }()
			var ready health.Response
			if json.NewDecoder(readyResp.Body).Decode(&ready) == nil {
				status.Sessions = ready.Data.Sessions
			}
		}
	}

	format, err := getOutputFormat()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printHealthTable(status)
	}

	return nil
}

func printHealthTable(status BrokerStatus) {
	fmt.Println()
	fmt.Println("Exchange Broker Status")
	fmt.Println("======================")
	fmt.Println()
	fmt.Printf("  Server:     %s\n", status.Server)

	if status.Healthy {
		fmt.Printf("  Status:     \033[32m● %s\033[0m\n", status.Status)
	} else if status.Status == "unreachable" {
		fmt.Printf("  Status:     \033[31m○ %s\033[0m\n", status.Status)
	} else {
		fmt.Printf("  Status:     \033[33m● %s\033[0m\n", status.Status)
	}

	if status.Service != "" {
		fmt.Printf("  Service:    %s\n", status.Service)
	}
	if status.StartedAt != "" {
		fmt.Printf("  Started:    %s\n", timeutil.FormatTime(status.StartedAt))
	}
	if status.Uptime != "" {
		fmt.Printf("  Uptime:     %s\n", timeutil.FormatUptime(status.Uptime))
	}
	if status.Healthy {
		fmt.Printf("  Sessions:   %d\n", status.Sessions)
	}
	if status.Error != "" {
		fmt.Printf("  Error:      %s\n", status.Error)
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
