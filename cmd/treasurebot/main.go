// Package main provides the entry point for the treasurebot CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/treasurebot/cmd/treasurebot/cmd"
	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, boterrors.FormatForCLI(err))
		os.Exit(1)
	}
}
