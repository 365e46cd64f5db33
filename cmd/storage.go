package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"clipwave/config"
	"clipwave/storage"

	"github.com/spf13/cobra"
)

var (
	storagePrefix string
	storageStats  bool
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect the audio object store",
	Long:  `Check MinIO connectivity and list or summarize the stored audio objects. Useful for spotting orphaned uploads that were never registered as tracks.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MinIO: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		gateway, err := storage.NewMinioGateway(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to MinIO: %v", err)
		}
		fmt.Println("MinIO connection successful!")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if storageStats {
			stats, err := gateway.Stats(ctx, storagePrefix)
			if err != nil {
				log.Fatalf("Failed to get bucket stats: %v", err)
			}
			fmt.Printf("Objects: %d\n", stats.TotalObjects)
			fmt.Printf("Total size: %.2f MB\n", float64(stats.TotalSize)/1024/1024)
			if !stats.LastModified.IsZero() {
				fmt.Printf("Last modified: %s\n", stats.LastModified.Format(time.RFC3339))
			}
			return
		}

		if err := gateway.ListObjects(ctx, storagePrefix); err != nil {
			log.Fatalf("Failed to list objects: %v", err)
		}
	},
}

func init() {
	storageCmd.Flags().StringVarP(&storagePrefix, "prefix", "p", "audio/", "object key prefix to inspect")
	storageCmd.Flags().BoolVarP(&storageStats, "stats", "s", false, "print bucket statistics instead of listing objects")
	rootCmd.AddCommand(storageCmd)
}
