package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hydrosim/exchange/internal/cli/output"
	"github.com/spf13/cobra"
)

var sendOpts struct {
	varID      int
	values     string
	retries    int
	retryDelay time.Duration
}

var sendCmd = &cobra.Command{
	Use:   "send <session-id>",
	Short: "Send a payload into a variable's slot",
	Long: `Upload a float64 payload into the variable's slot.

The slot must be empty (flag 0). With --retries greater than 1 the flag is
polled with a fixed delay until the consumer drains the previous payload.

Examples:
  exchangectl send <session-id> --var 1 --values 1.5,2.5,3.5
  exchangectl send <session-id> --var 1 --values 1.5,2.5 --retries 10 --retry-delay 500ms`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	id, err := parseSessionArg(args[0])
	if err != nil {
		return err
	}

	values, err := parseValues(sendOpts.values)
	if err != nil {
		return err
	}

	client := getClient()

	if sendOpts.retries > 1 {
		if client.SendDataWithRetries(id, sendOpts.varID, values, sendOpts.retries, sendOpts.retryDelay) != 1 {
			return fmt.Errorf("send failed after %d attempts", sendOpts.retries)
		}
	} else if err := client.SendData(id, sendOpts.varID, values); err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}

	fmt.Printf("Sent %d values to variable %d\n", len(values), sendOpts.varID)
	return nil
}

var recvOpts struct {
	varID      int
	retries    int
	retryDelay time.Duration
}

var recvCmd = &cobra.Command{
	Use:   "recv <session-id>",
	Short: "Receive a payload from a variable's slot",
	Long: `Drain the variable's slot and print the payload.

The slot must hold a payload (flag 1). With --retries greater than 1 the
flag is polled with a fixed delay until the producer stores one.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecv,
}

func runRecv(cmd *cobra.Command, args []string) error {
	id, err := parseSessionArg(args[0])
	if err != nil {
		return err
	}

	client := getClient()

	var values []float64
	if recvOpts.retries > 1 {
		ok, recvd := client.ReceiveDataWithRetries(id, recvOpts.varID, recvOpts.retries, recvOpts.retryDelay)
		if ok != 1 {
			return fmt.Errorf("receive failed after %d attempts", recvOpts.retries)
		}
		values = recvd
	} else {
		values, err = client.ReceiveData(id, recvOpts.varID)
		if err != nil {
			return fmt.Errorf("failed to receive data: %w", err)
		}
	}

	format, err := getOutputFormat()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, values)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, values)
	default:
		fmt.Println(formatValues(values))
		return nil
	}
}

// parseValues parses a comma-separated float64 list. An empty string is a
// valid zero-length payload.
func parseValues(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []float64{}, nil
	}

	parts := strings.Split(s, ",")
	values := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: not a float", part)
		}
		values[i] = v
	}
	return values, nil
}

// formatValues renders a payload as a comma-separated list.
func formatValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func init() {
	sendCmd.Flags().IntVar(&sendOpts.varID, "var", 0, "Variable id")
	sendCmd.Flags().StringVar(&sendOpts.values, "values", "", "Comma-separated float64 payload")
	sendCmd.Flags().IntVar(&sendOpts.retries, "retries", 1, "Number of attempts while the slot is occupied")
	sendCmd.Flags().DurationVar(&sendOpts.retryDelay, "retry-delay", time.Second, "Delay between attempts")
	_ = sendCmd.MarkFlagRequired("var")
	_ = sendCmd.MarkFlagRequired("values")

	recvCmd.Flags().IntVar(&recvOpts.varID, "var", 0, "Variable id")
	recvCmd.Flags().IntVar(&recvOpts.retries, "retries", 1, "Number of attempts while the slot is empty")
	recvCmd.Flags().DurationVar(&recvOpts.retryDelay, "retry-delay", time.Second, "Delay between attempts")
	_ = recvCmd.MarkFlagRequired("var")
}
