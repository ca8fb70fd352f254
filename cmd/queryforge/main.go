package main

import (
	"context"
	"os"

	"github.com/queryforge/queryforge-cli/internal/cmd"
)

// Seams for tests; main itself never exits through any other path.
var (
	executeCmd  = cmd.Execute
	mapExitCode = cmd.ExitCode
	terminate   = os.Exit
)

func run(args []string) int {
	err := executeCmd(context.Background(), args)
	if err == nil {
		return 0
	}
	return mapExitCode(err)
}

func main() {
	terminate(run(os.Args[1:]))
}
