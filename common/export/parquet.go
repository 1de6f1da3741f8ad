package export

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/lucsky/cuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tableturn/forecaster/common/models"
)

// ParquetSink writes one parquet file per export, locally or to S3 when a
// bucket is configured
type ParquetSink struct {
	dir      string
	bucket   string
	prefix   string
	uploader Uploader
}

// NewParquetSink creates a parquet sink. uploader may be nil for local output.
func NewParquetSink(dir, bucket, prefix string, uploader Uploader) *ParquetSink {
	return &ParquetSink{dir: dir, bucket: bucket, prefix: prefix, uploader: uploader}
}

func (s *ParquetSink) Name() string { return SinkParquet }

// objectName is unique per export: location/timestamp-cuid.ext
func objectName(locationID, ext string) string {
	return fmt.Sprintf("%s/%s-%s.%s", locationID, time.Now().UTC().Format("20060102T150405"), cuid.New(), ext)
}

func (s *ParquetSink) Write(ctx context.Context, locationID string, plan []models.PlanRecord) (string, error) {
	name := objectName(locationID, "parquet")

	var fw source.ParquetFile
	var dest string
	if s.uploader != nil && s.bucket != "" {
		key := path.Join(s.prefix, name)
		fw = newObjectFile(ctx, s.uploader, s.bucket, key)
		dest = fmt.Sprintf("s3://%s/%s", s.bucket, key)
	} else {
		dest = filepath.Join(s.dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return "", fmt.Errorf("failed to create output dir: %w", err)
		}
		var err error
		fw, err = local.NewLocalFileWriter(dest)
		if err != nil {
			return "", fmt.Errorf("failed to create local file writer: %w", err)
		}
	}

	pw, err := writer.NewParquetWriter(fw, new(models.ParquetPlanRecord), 4)
	if err != nil {
		fw.Close()
		return "", fmt.Errorf("failed to create parquet writer: %w", err)
	}

	for _, rec := range plan {
		if err := pw.Write(rec.ToParquet(locationID)); err != nil {
			fw.Close()
			return "", fmt.Errorf("failed to write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return "", fmt.Errorf("failed to finish parquet file: %w", err)
	}
	if err := fw.Close(); err != nil {
		return "", fmt.Errorf("failed to close parquet file: %w", err)
	}
	return dest, nil
}

func (s *ParquetSink) Close() error { return nil }
