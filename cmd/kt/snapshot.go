package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/groblegark/ktasks/internal/export"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export the board as JSONL to stdout, a file, or S3",
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")
		bucket, _ := cmd.Flags().GetString("s3-bucket")
		key, _ := cmd.Flags().GetString("s3-key")
		region, _ := cmd.Flags().GetString("s3-region")
		endpoint, _ := cmd.Flags().GetString("s3-endpoint")
		ctx := context.Background()

		if bucket != "" {
			dest, err := export.NewS3Destination(ctx, bucket, key, region, endpoint)
			if err != nil {
				fatal(err)
			}
			var buf bytes.Buffer
			if err := export.ExportJSONL(ctx, backing, &buf); err != nil {
				fatal(err)
			}
			if err := dest.Write(ctx, buf.Bytes()); err != nil {
				fatal(err)
			}
			fmt.Printf("Uploaded %d bytes to s3://%s/%s\n", buf.Len(), bucket, key)
			return nil
		}

		out := os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				fatal(err)
			}
			defer f.Close()
			out = f
		}
		if err := export.ExportJSONL(ctx, backing, out); err != nil {
			fatal(err)
		}
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringP("out", "o", "", "write to a file instead of stdout")
	snapshotCmd.Flags().String("s3-bucket", "", "upload to this S3 bucket")
	snapshotCmd.Flags().String("s3-key", "ktasks/board.jsonl", "S3 object key")
	snapshotCmd.Flags().String("s3-region", "us-east-1", "S3 region")
	snapshotCmd.Flags().String("s3-endpoint", "", "custom S3 endpoint (MinIO etc.)")
}
