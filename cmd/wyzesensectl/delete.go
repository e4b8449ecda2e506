package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <mac>",
	Short: "Unpair a sensor by its hex-encoded MAC",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openSession(nil)
		if err != nil {
			return fmt.Errorf("open dongle: %w", err)
		}
		defer h.Stop()

		ok, err := h.Delete(args[0])
		if err != nil {
			return fmt.Errorf("delete %s: %w", args[0], err)
		}
		if !ok {
			return fmt.Errorf("dongle refused to unpair %s", args[0])
		}
		fmt.Printf("Unpaired %s\n", args[0])
		return nil
	},
}
