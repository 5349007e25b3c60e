package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aura-systems/aura/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aurad",
		Short: "Aura daemon",
		Long:  "Aura daemon for running the knowledge base API server and ingestion worker",
	}

	rootCmd.AddCommand(cli.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
