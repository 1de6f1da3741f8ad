package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

// UploadOptions configures the upload command
type UploadOptions struct {
	APIURL         string        `mapstructure:"api-url"`
	User           string        `mapstructure:"user"`
	InternalSecret string        `mapstructure:"internal-secret"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// UploadResult is the API's reply to a CSV import
type UploadResult struct {
	Message    string `json:"message"`
	BatchID    string `json:"batchId"`
	EventCount int    `json:"eventCount"`
	Inserted   int    `json:"inserted"`
}

type apiError struct {
	Error string `json:"error"`
}

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file.csv>",
		Short: "Upload a CSV of demand events to the forecaster API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts UploadOptions
			if err := loadOptions(cmd.Flags(), &opts); err != nil {
				return err
			}

			body, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			res, err := NewUploader(opts).Upload(body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: batch %s, %d events, %d new\n",
				res.Message, res.BatchID, res.EventCount, res.Inserted)
			return nil
		},
	}

	cmd.Flags().String("api-url", "http://localhost:8080", "Forecaster API base URL")
	cmd.Flags().String("user", "", `Caller as X-User JSON, e.g. {"id":"ops","role":"admin"}`)
	cmd.Flags().String("internal-secret", "", "X-Internal-Service secret; skips API rate limits")
	cmd.Flags().Duration("timeout", 2*time.Minute, "Request timeout")
	return cmd
}

// Uploader posts CSV files to /api/v1/demand/upload
type Uploader struct {
	client *resty.Client
}

// NewUploader creates an API client for CSV uploads
func NewUploader(opts UploadOptions) *Uploader {
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.APIURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")

	if opts.User != "" {
		client.SetHeader("X-User", opts.User)
	}
	if opts.InternalSecret != "" {
		client.SetHeader("X-Internal-Service", opts.InternalSecret)
	}
	return &Uploader{client: client}
}

// Upload sends body as text/csv. Imports are all-or-nothing, so a failed
// request is not retried.
func (u *Uploader) Upload(body []byte) (*UploadResult, error) {
	var result UploadResult
	var failure apiError

	resp, err := u.client.R().
		SetHeader("Content-Type", "text/csv").
		SetBody(body).
		SetResult(&result).
		SetError(&failure).
		Post("/api/v1/demand/upload")
	if err != nil {
		return nil, fmt.Errorf("failed to call forecaster API: %w", err)
	}

	if resp.IsError() {
		msg := failure.Error
		if msg == "" {
			msg = strings.TrimSpace(string(resp.Body()))
		}
		return nil, fmt.Errorf("upload rejected (%d): %s", resp.StatusCode(), msg)
	}
	return &result, nil
}
