package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"careerquiz/archive"
	"careerquiz/config"
	"careerquiz/report"

	"github.com/spf13/cobra"
)

type reportUploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// newUploader is swapped out in tests.
var newUploader = func(ctx context.Context, cfg config.S3Config) (reportUploader, error) {
	return archive.NewS3Uploader(ctx, cfg)
}

func newExportCmd() *cobra.Command {
	var (
		out   string
		toS3  bool
		s3Key string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all results as CSV",
		Long:  "Export all results as CSV to stdout, to a file with --out, or to the configured S3 bucket with --s3 or --s3-key.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			attempts, err := a.db.Results().All(ctx)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := report.WriteCSV(&buf, attempts); err != nil {
				return err
			}

			if toS3 || s3Key != "" {
				if !a.cfg.S3.Enabled() {
					return errors.New("s3 bucket is not configured")
				}
				if s3Key == "" {
					s3Key = archive.ReportKey(time.Now().UTC())
				}
				up, err := newUploader(ctx, a.cfg.S3)
				if err != nil {
					return err
				}
				key, err := up.Upload(ctx, s3Key, &buf, "text/csv")
				if err != nil {
					return err
				}
				a.log.InfoContext(ctx, "report uploaded", "bucket", a.cfg.S3.Bucket, "key", key, "results", len(attempts))
				fmt.Fprintf(cmd.OutOrStdout(), "s3://%s/%s\n", a.cfg.S3.Bucket, key)
				return nil
			}

			if out == "" || out == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o600); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			a.log.InfoContext(ctx, "report written", "path", out, "results", len(attempts))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the CSV to this file instead of stdout")
	cmd.Flags().BoolVar(&toS3, "s3", false, "Upload the CSV to the configured S3 bucket under a generated key")
	cmd.Flags().StringVar(&s3Key, "s3-key", "", "Upload the CSV to the configured S3 bucket under this key")
	return cmd
}
