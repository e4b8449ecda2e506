package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sensors paired with the dongle",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openSession(nil)
		if err != nil {
			return fmt.Errorf("open dongle: %w", err)
		}
		defer h.Stop()

		macs, err := h.List()
		if err != nil {
			return fmt.Errorf("list sensors: %w", err)
		}

		if len(macs) == 0 {
			fmt.Println("No sensors paired.")
			return nil
		}
		for _, mac := range macs {
			fmt.Println(mac)
		}
		return nil
	},
}
