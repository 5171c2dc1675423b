package main

import (
	"context"
	"fmt"
	"os"

	"codefold/pkg/commands"
)

func main() {
	ctx := context.Background()
	if err := commands.NewRootCommand(ctx).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
