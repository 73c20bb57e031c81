package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiURL string = "http://localhost:8787"
	output string = "text" // "text" or "json"
)

var rootCmd = &cobra.Command{
	Use:   "devconnect",
	Short: "DevConnect CLI - Inspect and administer a DevConnect backend",
	Long: `DevConnect CLI provides command-line access to a running DevConnect
backend: check its health, look up profiles, and run account scrubs.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "API server URL")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(scrubCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
