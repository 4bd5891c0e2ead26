package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "patient-directory",
		Short:        "Patient directory API server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Directory containing config.yaml")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(fetchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configPaths(cmd *cobra.Command) []string {
	dir, _ := cmd.Flags().GetString("config")
	if dir == "" {
		return nil
	}
	return []string{dir}
}
