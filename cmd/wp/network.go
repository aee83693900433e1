package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/groblegark/warmpath/internal/client"
	"github.com/spf13/cobra"
)

var networkCmd = &cobra.Command{
	Use:     "network",
	Short:   "Manage an owner's relationship network",
	GroupID: "network",
}

var networkImportCmd = &cobra.Command{
	Use:   "import <owner> <file>",
	Short: "Import a network from a JSON file (replaces the existing network)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, file := args[0], args[1]

		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		var req client.ImportNetworkRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("parsing %s: %w", file, err)
		}

		resp, err := wpClient.ImportNetwork(context.Background(), owner, &req)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(resp)
			return nil
		}
		fmt.Printf("imported %d nodes and %d connections for %s\n", resp.Nodes, resp.Connections, owner)
		return nil
	},
}

var networkMapCmd = &cobra.Command{
	Use:   "map <owner>",
	Short: "Show an owner's network map with stats",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := wpClient.GetNetworkMap(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(m)
			return nil
		}
		printNetworkMap(m)
		return nil
	},
}

var networkConnectCmd = &cobra.Command{
	Use:   "connect <owner>",
	Short: "Create a connection between two nodes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		connType, _ := cmd.Flags().GetString("type")
		mutual, _ := cmd.Flags().GetBool("mutual")

		req := &client.CreateConnectionRequest{
			FromNodeID: from,
			ToNodeID:   to,
			Type:       connType,
			IsMutual:   mutual,
		}
		if cmd.Flags().Changed("strength") {
			strength, _ := cmd.Flags().GetInt("strength")
			req.Strength = &strength
		}

		conn, err := wpClient.CreateConnection(context.Background(), args[0], req)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(conn)
			return nil
		}
		fmt.Printf("connection %s created (strength %d)\n", conn.ID, conn.Strength)
		return nil
	},
}

var networkDeactivateCmd = &cobra.Command{
	Use:   "deactivate <owner> <connection-id>",
	Short: "Deactivate a connection (soft delete)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wpClient.DeactivateConnection(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("connection %s deactivated\n", args[1])
		return nil
	},
}

var networkRecalcCmd = &cobra.Command{
	Use:   "recalc <owner>",
	Short: "Rescore all connection strengths for an owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		updated, err := wpClient.RecalculateStrengths(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%d connections rescored\n", updated)
		return nil
	},
}

func init() {
	networkConnectCmd.Flags().String("from", "", "source node ID")
	networkConnectCmd.Flags().String("to", "", "destination node ID")
	networkConnectCmd.Flags().String("type", "other", "connection type (friend, colleague, family, schoolmate, business, other)")
	networkConnectCmd.Flags().Bool("mutual", false, "connection is traversable in both directions")
	networkConnectCmd.Flags().Int("strength", 0, "explicit strength (omit to let the server score it)")
	_ = networkConnectCmd.MarkFlagRequired("from")
	_ = networkConnectCmd.MarkFlagRequired("to")

	networkCmd.AddCommand(networkImportCmd)
	networkCmd.AddCommand(networkMapCmd)
	networkCmd.AddCommand(networkConnectCmd)
	networkCmd.AddCommand(networkDeactivateCmd)
	networkCmd.AddCommand(networkRecalcCmd)
}
