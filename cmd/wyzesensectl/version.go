package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print wyzesensectl's version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wyzesensectl %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
	},
}
