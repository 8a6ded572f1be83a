package commands

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/hydrosim/exchange/internal/cli/output"
	"github.com/spf13/cobra"
)

var flagVarID int

var flagCmd = &cobra.Command{
	Use:   "flag <session-id>",
	Short: "Show one variable's readiness flag",
	Long: `Read the readiness flag of a single variable.

A flag of 1 means the slot holds a payload ready to receive; 0 means the
slot is empty and ready to send into.`,
	Args: cobra.ExactArgs(1),
	RunE: runFlag,
}

func runFlag(cmd *cobra.Command, args []string) error {
	id, err := parseSessionArg(args[0])
	if err != nil {
		return err
	}

	flag, err := getClient().GetVariableFlag(id, flagVarID)
	if err != nil {
		return fmt.Errorf("failed to get variable flag: %w", err)
	}

	return printVarResult(struct {
		VarID      int `json:"var_id" yaml:"var_id"`
		FlagStatus int `json:"flag_status" yaml:"flag_status"`
	}{flagVarID, flag}, flag)
}

var sizeVarID int

var sizeCmd = &cobra.Command{
	Use:   "size <session-id>",
	Short: "Show one variable's declared size",
	Args:  cobra.ExactArgs(1),
	RunE:  runSize,
}

func runSize(cmd *cobra.Command, args []string) error {
	id, err := parseSessionArg(args[0])
	if err != nil {
		return err
	}

	size, err := getClient().GetVariableSize(id, sizeVarID)
	if err != nil {
		return fmt.Errorf("failed to get variable size: %w", err)
	}

	return printVarResult(struct {
		VarID int `json:"var_id" yaml:"var_id"`
		Size  int `json:"size" yaml:"size"`
	}{sizeVarID, size}, size)
}

// printVarResult prints a single-variable lookup: the bare value for table
// format, the full response for structured formats.
func printVarResult(result any, value int) error {
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
		fmt.Println(value)
		return nil
	}
}

var flagsCmd = &cobra.Command{
	Use:   "flags <session-id>",
	Short: "Show the session's full flag table",
	Long: `List the readiness flag of every variable in the session.

Examples:
  # Show flags as table
  exchangectl flags <session-id>

  # Show flags as JSON
  exchangectl flags <session-id> -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runFlags,
}

func runFlags(cmd *cobra.Command, args []string) error {
	id, err := parseSessionArg(args[0])
	if err != nil {
		return err
	}

	flags, err := getClient().GetFlags(id)
	if err != nil {
		return fmt.Errorf("failed to get flags: %w", err)
	}

	format, err := getOutputFormat()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, flags)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, flags)
	default:
		varIDs := make([]int, 0, len(flags))
		for varID := range flags {
			varIDs = append(varIDs, varID)
		}
		sort.Ints(varIDs)

		table := output.NewTableData("Variable", "Flag")
		for _, varID := range varIDs {
			table.AddRow(strconv.Itoa(varID), strconv.Itoa(flags[varID]))
		}
		return output.PrintTable(os.Stdout, table)
	}
}

func init() {
	flagCmd.Flags().IntVar(&flagVarID, "var", 0, "Variable id")
	_ = flagCmd.MarkFlagRequired("var")

	sizeCmd.Flags().IntVar(&sizeVarID, "var", 0, "Variable id")
	_ = sizeCmd.MarkFlagRequired("var")
}
