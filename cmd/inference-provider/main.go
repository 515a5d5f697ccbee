package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wamli/inference-provider/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:     "inference-provider",
	Short:   "Run the ML inference provider",
	Long:    "inference-provider hosts a model zoo, fetches model bundles from an OCI registry, and dispatches tensor predictions to a pluggable inference engine.",
	Version: fmt.Sprintf("gitVersion=%s, gitCommit=%s", version.GitVersion, version.GitCommit),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(CreateProviderCommand(NewServeCommand()))
}
