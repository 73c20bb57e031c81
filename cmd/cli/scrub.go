package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var scrubYes bool

var scrubCmd = &cobra.Command{
	Use:   "scrub <uid>",
	Short: "Remove every reference to a departed account",
	Long: `Remove a departed account and every reference to it: follow edges,
likes, authored comments, posts, and projects. The scrub is convergent,
so a failed run is retried by running it again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid := args[0]
		if !scrubYes {
			return fmt.Errorf("refusing to scrub %q without --yes", uid)
		}
		return runScrub(uid)
	},
}

func init() {
	scrubCmd.Flags().BoolVar(&scrubYes, "yes", false, "Confirm the irreversible scrub")
}

func runScrub(uid string) error {
	payload, err := json.Marshal(map[string]string{"uid": uid})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := http.Post(apiURL+"/delete-user-references", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scrub failed (status %d): %s", resp.StatusCode, body)
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var result struct {
		Message string `json:"message"`
		Removed struct {
			Follows      int64 `json:"follows"`
			PostLikes    int64 `json:"postLikes"`
			CommentLikes int64 `json:"commentLikes"`
			Comments     int64 `json:"comments"`
			Posts        int64 `json:"posts"`
			Projects     int64 `json:"projects"`
			Profile      int64 `json:"profile"`
		} `json:"removed"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Println(result.Message)
	fmt.Printf("  follows:       %d\n", result.Removed.Follows)
	fmt.Printf("  post likes:    %d\n", result.Removed.PostLikes)
	fmt.Printf("  comment likes: %d\n", result.Removed.CommentLikes)
	fmt.Printf("  comments:      %d\n", result.Removed.Comments)
	fmt.Printf("  posts:         %d\n", result.Removed.Posts)
	fmt.Printf("  projects:      %d\n", result.Removed.Projects)
	fmt.Printf("  profile:       %d\n", result.Removed.Profile)
	return nil
}
