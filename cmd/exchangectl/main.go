// exchangectl is the command-line client for the exchange broker.
package main

import (
	"os"

	"github.com/hydrosim/exchange/cmd/exchangectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
