// laneqc - QC gate engine for synthetic training dataset lanes

package main

import (
	"os"

	"github.com/dino-ds/laneqc/internal/cli"
)

func main() {
	if err := cli.Execute(os.Args[1:]); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
