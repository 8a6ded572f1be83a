package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/hydrosim/exchange/internal/cli/output"
	"github.com/hydrosim/exchange/pkg/session"
	"github.com/spf13/cobra"
)

var createOpts struct {
	source      int
	destination int
	initiator   int
	invitee     int
	inputVars   []int
	inputSizes  []int
	outputVars  []int
	outputSizes []int
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new coupling session",
	Long: `Create a new coupling session on the broker.

The broker mints an opaque client id and returns the full session id. Pass
the returned id to the other commands and share it with the invitee so it
can join.

Variable ids and sizes are positionally paired: the first --input-size
belongs to the first --input-var, and so on.

Examples:
  # Two variables flowing each way
  exchangectl create --source 2001 --destination 2005 \
    --initiator 35 --invitee 38 \
    --input-var 1 --input-size 50 \
    --output-var 4 --output-size 50`,
	RunE: runCreate,
}

// sessionResult is the printable outcome of create, join and end.
type sessionResult struct {
	Status    string `json:"status" yaml:"status"`
	SessionID string `json:"session_id" yaml:"session_id"`
}

func runCreate(cmd *cobra.Command, args []string) error {
	data := &session.Data{
		SourceModelID:       createOpts.source,
		DestinationModelID:  createOpts.destination,
		InitiatorID:         createOpts.initiator,
		InviteeID:           createOpts.invitee,
		InputVariablesID:    createOpts.inputVars,
		InputVariablesSize:  createOpts.inputSizes,
		OutputVariablesID:   createOpts.outputVars,
		OutputVariablesSize: createOpts.outputSizes,
	}

	id, err := getClient().CreateSession(data)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return printSessionResult(sessionResult{
		Status:    session.StatusCreated.String(),
		SessionID: id.String(),
	})
}

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show the session's lifecycle status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	id, err := parseSessionArg(args[0])
	if err != nil {
		return err
	}

	status, err := getClient().GetSessionStatus(id)
	if err != nil {
		return fmt.Errorf("failed to get session status: %w", err)
	}

	format, err := getOutputFormat()
	if err != nil {
		return err
	}

	result := struct {
		Status     int    `json:"status" yaml:"status"`
		StatusName string `json:"status_name" yaml:"status_name"`
	}{int(status), status.String()}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, result)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, result)
	default:
		fmt.Printf("%d (%s)\n", result.Status, result.StatusName)
		return nil
	}
}

var joinOpts struct {
	invitee    int
	retries    int
	retryDelay time.Duration
}

var joinCmd = &cobra.Command{
	Use:   "join <session-id>",
	Short: "Join a session as the invitee",
	Long: `Join a session as the invitee, activating it.

With --retries greater than 1 the join is retried with a fixed delay until
it succeeds, the session turns out to be already active, or the attempts
are exhausted.`,
	Args: cobra.ExactArgs(1),
	RunE: runJoin,
}

func runJoin(cmd *cobra.Command, args []string) error {
	id, err := parseSessionArg(args[0])
	if err != nil {
		return err
	}

	client := getClient()

	if joinOpts.retries > 1 {
		status := client.JoinSessionWithRetries(id, joinOpts.invitee, joinOpts.retries, joinOpts.retryDelay)
		switch status {
		case session.StatusCreated:
			return printSessionResult(sessionResult{Status: "joined", SessionID: id.String()})
		case session.StatusError:
			return fmt.Errorf("session already has a joined participant")
		default:
			return fmt.Errorf("join failed after %d attempts", joinOpts.retries)
		}
	}

	if err := client.JoinSession(id, joinOpts.invitee); err != nil {
		return fmt.Errorf("failed to join session: %w", err)
	}
	return printSessionResult(sessionResult{Status: "joined", SessionID: id.String()})
}

var endOpts struct {
	user int
}

var endCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "Request the end of a session",
	Long: `Record an end request for one participant.

The first participant's request moves the session to partial end and clears
that participant's slots; once both participants have requested an end the
session is deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnd,
}

func runEnd(cmd *cobra.Command, args []string) error {
	id, err := parseSessionArg(args[0])
	if err != nil {
		return err
	}

	status, err := getClient().EndSession(id, endOpts.user)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	return printSessionResult(sessionResult{
		Status:    status.String(),
		SessionID: id.String(),
	})
}

// printSessionResult renders a session lifecycle outcome in the selected format.
func printSessionResult(result sessionResult) error {
	format, err := getOutputFormat()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, result)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, result)
	default:
		return output.SimpleTable(os.Stdout, [][2]string{
			{"Status", result.Status},
			{"Session", result.SessionID},
		})
	}
}

func init() {
	createCmd.Flags().IntVar(&createOpts.source, "source", 0, "Source model id")
	createCmd.Flags().IntVar(&createOpts.destination, "destination", 0, "Destination model id")
	createCmd.Flags().IntVar(&createOpts.initiator, "initiator", 0, "Initiator user id")
	createCmd.Flags().IntVar(&createOpts.invitee, "invitee", 0, "Invitee user id")
	createCmd.Flags().IntSliceVar(&createOpts.inputVars, "input-var", nil, "Input variable id (repeatable)")
	createCmd.Flags().IntSliceVar(&createOpts.inputSizes, "input-size", nil, "Input variable size (repeatable, pairs with --input-var)")
	createCmd.Flags().IntSliceVar(&createOpts.outputVars, "output-var", nil, "Output variable id (repeatable)")
	createCmd.Flags().IntSliceVar(&createOpts.outputSizes, "output-size", nil, "Output variable size (repeatable, pairs with --output-var)")
	_ = createCmd.MarkFlagRequired("source")
	_ = createCmd.MarkFlagRequired("destination")
	_ = createCmd.MarkFlagRequired("initiator")
	_ = createCmd.MarkFlagRequired("invitee")

	joinCmd.Flags().IntVar(&joinOpts.invitee, "invitee", 0, "Invitee user id")
	joinCmd.Flags().IntVar(&joinOpts.retries, "retries", 1, "Number of join attempts")
	joinCmd.Flags().DurationVar(&joinOpts.retryDelay, "retry-delay", time.Second, "Delay between attempts")
	_ = joinCmd.MarkFlagRequired("invitee")

	endCmd.Flags().IntVar(&endOpts.user, "user", 0, "Requesting participant's user id")
	_ = endCmd.MarkFlagRequired("user")
}
