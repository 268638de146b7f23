package main

import (
	"os"

	"github.com/scicomp/clusterstor-tools/internal/cli"
)

//nolint:gochecknoglobals
var Version string

func main() {
	cmd := cli.NewRootCommand()
	cmd.Version = Version

	os.Exit(cli.Execute(cmd, os.Args[1:]))
}
