package cmd

import (
	"fmt"
	"log"

	"duetfm/config"
	"duetfm/storage"

	"github.com/spf13/cobra"
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Check the MinIO connection and buckets",
	Long:  `Connect to MinIO with the configured credentials and make sure the audio and cover buckets exist.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MinIO: %s (ssl=%v)\n", cfg.MinioEndpoint, cfg.MinioUseSSL)

		if _, err := storage.NewMinioStore(cfg); err != nil {
			log.Fatalf("Failed to connect to MinIO: %v", err)
		}
		fmt.Printf("Buckets %q and %q ready.\n", storage.BucketAudio, storage.BucketCovers)
		fmt.Println("MinIO connection OK.")
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
}
