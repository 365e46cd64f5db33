package cmd

import (
	"clipwave/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the ClipWave HTTP server",
	Long:  `Start the ClipWave catalog server, serving the track feed, upload slots and play counting API.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
