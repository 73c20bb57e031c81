package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend health",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(apiURL + "/health")
		if err != nil {
			return fmt.Errorf("failed to reach backend: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("backend unhealthy (status %d): %s", resp.StatusCode, body)
		}

		if output == "json" {
			fmt.Println(string(body))
			return nil
		}

		var health struct {
			Status    string `json:"status"`
			Timestamp string `json:"timestamp"`
			Service   string `json:"service"`
		}
		if err := json.Unmarshal(body, &health); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		fmt.Printf("Service: %s\n", health.Service)
		fmt.Printf("Status:  %s\n", health.Status)
		fmt.Printf("Time:    %s\n", health.Timestamp)
		return nil
	},
}
