package main

import (
	"fmt"
	"os"

	deployercmd "github.com/deployer-cli/deployer/pkg/deployer/cmd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := deployercmd.NewRootCommand(deployercmd.DefaultConfig())
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
