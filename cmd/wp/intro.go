package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/groblegark/warmpath/internal/client"
	"github.com/spf13/cobra"
)

var introCmd = &cobra.Command{
	Use:     "intro",
	Short:   "Manage consent-gated introduction flows",
	GroupID: "intro",
}

var introStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start an introduction along a path of user IDs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		requester, _ := cmd.Flags().GetString("requester")
		pathArg, _ := cmd.Flags().GetString("path")
		target, _ := cmd.Flags().GetString("target")
		searchID, _ := cmd.Flags().GetString("search")
		message, _ := cmd.Flags().GetString("message")

		var path []string
		for _, p := range strings.Split(pathArg, ",") {
			if p = strings.TrimSpace(p); p != "" {
				path = append(path, p)
			}
		}

		flow, err := wpClient.StartIntroduction(context.Background(), &client.StartIntroductionRequest{
			RequesterID:   requester,
			TargetNodeID:  target,
			PathRequestID: searchID,
			Path:          path,
			Message:       message,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(flow)
			return nil
		}
		printFlow(flow)
		return nil
	},
}

var introShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an introduction flow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flow, err := wpClient.GetIntroduction(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(flow)
			return nil
		}
		printFlow(flow)
		return nil
	},
}

var introListCmd = &cobra.Command{
	Use:   "list <user>",
	Short: "List introductions a user requested or appears in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flows, err := wpClient.ListIntroductions(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(flows)
			return nil
		}
		printFlowList(flows)
		return nil
	},
}

var introRespondCmd = &cobra.Command{
	Use:   "respond <id>",
	Short: "Accept or decline the current step of a flow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		step, _ := cmd.Flags().GetInt("step")
		responder, _ := cmd.Flags().GetString("as")
		decline, _ := cmd.Flags().GetBool("decline")
		message, _ := cmd.Flags().GetString("message")

		status := "accepted"
		if decline {
			status = "declined"
		}

		flow, err := wpClient.RespondToStep(context.Background(), args[0], &client.RespondRequest{
			StepNumber:  step,
			ResponderID: responder,
			Status:      status,
			Message:     message,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(flow)
			return nil
		}
		printFlow(flow)
		return nil
	},
}

var introCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel an introduction (requester only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requester, _ := cmd.Flags().GetString("as")
		flow, err := wpClient.CancelIntroduction(context.Background(), args[0], requester)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(flow)
			return nil
		}
		fmt.Printf("introduction %s cancelled\n", flow.ID)
		return nil
	},
}

func init() {
	introStartCmd.Flags().String("requester", "", "requesting user ID")
	introStartCmd.Flags().String("path", "", "comma-separated user IDs, starting with the requester")
	introStartCmd.Flags().String("target", "", "target node ID from a search result")
	introStartCmd.Flags().String("search", "", "originating search ID")
	introStartCmd.Flags().String("message", "", "message forwarded with the first step")
	_ = introStartCmd.MarkFlagRequired("requester")
	_ = introStartCmd.MarkFlagRequired("path")

	introRespondCmd.Flags().Int("step", 0, "step number being answered")
	introRespondCmd.Flags().String("as", "", "responding user ID")
	introRespondCmd.Flags().Bool("decline", false, "decline instead of accept")
	introRespondCmd.Flags().String("message", "", "optional response message")
	_ = introRespondCmd.MarkFlagRequired("as")

	introCancelCmd.Flags().String("as", "", "requesting user ID")
	_ = introCancelCmd.MarkFlagRequired("as")

	introCmd.AddCommand(introStartCmd)
	introCmd.AddCommand(introShowCmd)
	introCmd.AddCommand(introListCmd)
	introCmd.AddCommand(introRespondCmd)
	introCmd.AddCommand(introCancelCmd)
}
