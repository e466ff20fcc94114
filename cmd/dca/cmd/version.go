package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dca version %s\n", version)
		fmt.Println("Weekly ETF dollar-cost averaging for the KIS broker")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
