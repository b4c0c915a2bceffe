package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
)

var (
	backupBucket   string
	backupEndpoint string
	backupKey      string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Upload the blog database to S3-compatible storage",
	Long: `Backup uploads the blog's database file to an S3-compatible bucket.
Credentials come from S3_ACCESS_KEY_ID / S3_SECRET_ACCESS_KEY (for example
via .env), falling back to the default AWS credential chain.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if backupBucket == "" {
			return fmt.Errorf("--bucket is required")
		}

		ctx := context.Background()

		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion("auto"),
		}
		if id := os.Getenv("S3_ACCESS_KEY_ID"); id != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(id, os.Getenv("S3_SECRET_ACCESS_KEY"), ""),
			))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return fmt.Errorf("initializing S3 client: %w", err)
		}

		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if backupEndpoint != "" {
				o.BaseEndpoint = aws.String(backupEndpoint)
			}
		})

		dbPath := cfg.DBPath()
		file, err := os.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer file.Close()

		key := backupKey
		if key == "" {
			key = filepath.Base(dbPath)
		}

		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(backupBucket),
			Key:    aws.String(key),
			Body:   file,
		})
		if err != nil {
			return fmt.Errorf("uploading backup: %w", err)
		}

		fmt.Println(okStyle.Render("Uploaded ") + dbPath +
			dimStyle.Render(" -> s3://"+backupBucket+"/"+key))
		return nil
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupBucket, "bucket", "", "Destination bucket")
	backupCmd.Flags().StringVar(&backupEndpoint, "endpoint", "", "Custom S3 endpoint (e.g. R2/MinIO)")
	backupCmd.Flags().StringVar(&backupKey, "key", "", "Object key (defaults to the database file name)")

	rootCmd.AddCommand(backupCmd)
}
