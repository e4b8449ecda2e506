package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Put the dongle into pairing mode and wait for a new sensor",
	Long:  "Put the dongle into pairing mode and wait for a new sensor. Use --scan-timeout to change how long it waits.",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openSession(nil)
		if err != nil {
			return fmt.Errorf("open dongle: %w", err)
		}
		defer h.Stop()

		fmt.Println("Scanning for a new sensor, press the pairing button now...")
		result, err := h.Scan(0) // 0 defers to the resolved --scan-timeout
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if result == nil {
			return fmt.Errorf("no sensor found within the scan window")
		}
		fmt.Printf("Paired sensor %s (type=%d, version=%d)\n", result.MAC, result.Type, result.Version)
		return nil
	},
}
