package main

import (
	"fmt"
	"os"

	"github.com/nitro-repo/nitro-repo/pkg/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
