// Package export writes staffing plans to downstream consumers.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tableturn/forecaster/common/config"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/metrics"
	"github.com/tableturn/forecaster/common/models"
)

const (
	SinkConsole = "console"
	SinkKafka   = "kafka"
	SinkParquet = "parquet"
	SinkXLSX    = "xlsx"
)

// ErrUnknownSink is returned for a sink name New does not know
var ErrUnknownSink = errors.New("unknown export sink")

// Sink receives a location's plan. Write returns where the plan went.
type Sink interface {
	Name() string
	Write(ctx context.Context, locationID string, plan []models.PlanRecord) (string, error)
	Close() error
}

// New builds the sink named by name, falling back to cfg.Sink when name is empty
func New(ctx context.Context, name string, cfg config.ExportConfig, log *logger.Logger) (Sink, error) {
	if name == "" {
		name = cfg.Sink
	}

	switch name {
	case SinkConsole, "":
		return NewConsoleSink(os.Stdout), nil
	case SinkKafka:
		return NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	case SinkParquet:
		if cfg.S3Bucket != "" {
			uploader, err := NewS3Uploader(ctx, cfg.AWSRegion)
			if err != nil {
				return nil, err
			}
			return NewParquetSink(cfg.OutputDir, cfg.S3Bucket, cfg.S3Prefix, uploader), nil
		}
		return NewParquetSink(cfg.OutputDir, "", "", nil), nil
	case SinkXLSX:
		return NewXLSXSink(cfg.OutputDir), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSink, name)
	}
}

// Export writes plan through sink and records the exported row count
func Export(ctx context.Context, sink Sink, locationID string, plan []models.PlanRecord) (string, error) {
	dest, err := sink.Write(ctx, locationID, plan)
	if err != nil {
		return "", fmt.Errorf("failed to export plan to %s: %w", sink.Name(), err)
	}
	metrics.ExportedRecords.WithLabelValues(sink.Name()).Add(float64(len(plan)))
	return dest, nil
}
