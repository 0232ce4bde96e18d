package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "voxflow",
	Short: "voxflow runs parameterized volumetric preprocessing sweeps",
	Long: `voxflow expands a preprocessing pipeline (skull strip, smooth) over
every combination of configured parameter values and runs the resulting
branches, each into its own output directory.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}
