package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:     "sweep",
	Short:   "Run one expiry and reminder pass now",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wpClient.Sweep(context.Background()); err != nil {
			return err
		}
		fmt.Println("sweep complete")
		return nil
	},
}
