package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile <uid>",
	Short: "Look up a profile by uid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getProfile(args[0])
	},
}

func getProfile(uid string) error {
	resp, err := http.Get(apiURL + "/get-userData?uid=" + url.QueryEscape(uid))
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, body)
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	var profile struct {
		UID       string   `json:"uid"`
		Username  string   `json:"username"`
		FirstName string   `json:"firstName"`
		LastName  string   `json:"lastName"`
		JobTitle  string   `json:"jobTitle"`
		Company   string   `json:"company"`
		Location  string   `json:"location"`
		Skills    []string `json:"skills"`
		Followers []string `json:"followers"`
		Following []string `json:"following"`
		Posts     []string `json:"posts"`
		Projects  []string `json:"projects"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if profile.UID == "" {
		fmt.Printf("No profile found for uid %q\n", uid)
		return nil
	}

	fmt.Printf("Profile:   %s (%s %s)\n", profile.Username, profile.FirstName, profile.LastName)
	if profile.JobTitle != "" || profile.Company != "" {
		fmt.Printf("Role:      %s at %s\n", profile.JobTitle, profile.Company)
	}
	if profile.Location != "" {
		fmt.Printf("Location:  %s\n", profile.Location)
	}
	if len(profile.Skills) > 0 {
		fmt.Printf("Skills:    %s\n", strings.Join(profile.Skills, ", "))
	}
	fmt.Printf("Followers: %d\n", len(profile.Followers))
	fmt.Printf("Following: %d\n", len(profile.Following))
	fmt.Printf("Posts:     %d\n", len(profile.Posts))
	fmt.Printf("Projects:  %d\n", len(profile.Projects))
	return nil
}
