package main

import (
	"os"

	"github.com/apk-analysis/apk-fingerprint-go/internal/cli"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cli.Version = Version
	cli.BuildTime = BuildTime
	cli.GitCommit = GitCommit
	os.Exit(cli.Execute())
}
