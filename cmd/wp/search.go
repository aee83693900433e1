package main

import (
	"context"
	"strings"

	"github.com/groblegark/warmpath/internal/client"
	"github.com/groblegark/warmpath/internal/model"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:     "search",
	Short:   "Find paths to people matching criteria",
	GroupID: "search",
}

var searchRunCmd = &cobra.Command{
	Use:   "run <owner> <query...>",
	Short: "Run a path search (e.g. 'company:Initech role:engineer')",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner := args[0]
		query := strings.Join(args[1:], " ")

		maxDepth, _ := cmd.Flags().GetInt("max-depth")
		maxResults, _ := cmd.Flags().GetInt("max-results")
		minConfidence, _ := cmd.Flags().GetInt("min-confidence")
		noContacts, _ := cmd.Flags().GetBool("no-contacts")

		cfg := model.DefaultSearchConfig()
		if cmd.Flags().Changed("max-depth") {
			cfg.MaxDepth = maxDepth
		}
		if cmd.Flags().Changed("max-results") {
			cfg.MaxResults = maxResults
		}
		cfg.MinConfidence = minConfidence
		cfg.IncludeContacts = !noContacts

		req, err := wpClient.RunSearch(context.Background(), &client.RunSearchRequest{
			OwnerID: owner,
			Query:   query,
			Config:  &cfg,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(req)
			return nil
		}
		printSearchResult(req)
		return nil
	},
}

var searchShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a search and its results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := wpClient.GetSearch(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(req)
			return nil
		}
		printSearchResult(req)
		return nil
	},
}

var searchListCmd = &cobra.Command{
	Use:   "list <owner>",
	Short: "List recent searches for an owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		reqs, err := wpClient.ListSearches(context.Background(), args[0], limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(reqs)
			return nil
		}
		printSearchList(reqs)
		return nil
	},
}

func init() {
	searchRunCmd.Flags().Int("max-depth", 3, "maximum path length in hops")
	searchRunCmd.Flags().Int("max-results", 10, "maximum number of results")
	searchRunCmd.Flags().Int("min-confidence", 0, "drop results below this confidence")
	searchRunCmd.Flags().Bool("no-contacts", false, "exclude unregistered contacts as targets")

	searchListCmd.Flags().Int("limit", 0, "maximum searches to list")

	searchCmd.AddCommand(searchRunCmd)
	searchCmd.AddCommand(searchShowCmd)
	searchCmd.AddCommand(searchListCmd)
}
