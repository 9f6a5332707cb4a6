/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hal-workflow",
	Short: "Process workflow approval API server",
	Long: `HAL Workflow is a REST API server for multi-step, multi-actor
process approval. It manages workflow definitions, process instances,
document sign-off ledgers, branch connectors and query recirculation.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCmd 返回根命令
func GetRootCmd() *cobra.Command {
	return rootCmd
}
