package main

import (
	"context"
	"fmt"
	"os"
)

// Version information set at build time.
var version = "dev"

func main() {
	cmd := newRootCmd()
	cmd.Version = version
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
