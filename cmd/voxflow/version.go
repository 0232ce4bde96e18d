package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxflow/voxflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of voxflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("voxflow version %s\n", voxflow.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
