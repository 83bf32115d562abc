package main

import (
	"fmt"
	"os"

	"health-report-agent/internal/cli"
)

func main() {
	if err := cli.NewReportCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
