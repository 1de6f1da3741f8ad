package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tableturn/forecaster/common/config"
	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/models"
)

func samplePlan() []models.PlanRecord {
	base := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)
	return []models.PlanRecord{
		{Timestamp: base, GuestCount: 20, OrderCount: 10, Revenue: 300, Hosts: 1, Servers: 5, Kitchen: 1, Confidence: models.ConfidenceHigh},
		{Timestamp: base.Add(time.Hour), GuestCount: 40, OrderCount: 10, Revenue: 500, Hosts: 2, Servers: 8, Kitchen: 1, Confidence: models.ConfidenceMedium},
	}
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)

	dest, err := Export(context.Background(), sink, "loc-1", samplePlan())
	require.NoError(t, err)
	assert.Equal(t, "stdout", dest)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "loc-1", first["locationId"])
	assert.Equal(t, float64(5), first["servers"])
	assert.Equal(t, "high", first["confidence"])
	assert.Equal(t, "2024-01-08T12:00:00Z", first["timestamp"])
}

func TestWorkbookBytes(t *testing.T) {
	raw, err := WorkbookBytes("loc-1", samplePlan())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{planSheet}, f.GetSheetList())

	rows, err := f.GetRows(planSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, PlanHeader, rows[0])
	assert.Equal(t, "2024-01-08 12:00 UTC", rows[1][0])
	assert.Equal(t, "8", rows[2][5])
	assert.Equal(t, "medium", rows[2][7])
}

func TestXLSXSink(t *testing.T) {
	dir := t.TempDir()
	sink := NewXLSXSink(dir)

	dest, err := sink.Write(context.Background(), "loc-1", samplePlan())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dest, filepath.Join(dir, "loc-1")))
	assert.Equal(t, ".xlsx", filepath.Ext(dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestParquetSink_Local(t *testing.T) {
	dir := t.TempDir()
	sink := NewParquetSink(dir, "", "", nil)

	dest, err := sink.Write(context.Background(), "loc-1", samplePlan())
	require.NoError(t, err)

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("PAR1")))
	assert.True(t, bytes.HasSuffix(raw, []byte("PAR1")))
}

type recordingUploader struct {
	bucket, key string
	body        []byte
}

func (u *recordingUploader) Upload(ctx context.Context, bucket, key string, body []byte) error {
	u.bucket, u.key, u.body = bucket, key, append([]byte(nil), body...)
	return nil
}

func TestParquetSink_ObjectStorage(t *testing.T) {
	up := &recordingUploader{}
	sink := NewParquetSink("", "plans-bucket", "plans", up)

	dest, err := sink.Write(context.Background(), "loc-1", samplePlan())
	require.NoError(t, err)

	assert.Equal(t, "plans-bucket", up.bucket)
	assert.True(t, strings.HasPrefix(up.key, "plans/loc-1/"))
	assert.Equal(t, "s3://plans-bucket/"+up.key, dest)
	assert.True(t, bytes.HasPrefix(up.body, []byte("PAR1")))
}

func TestKafkaSink(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndSucceed()

	sink := NewKafkaSinkWithProducer(producer, "staffing_plans", logger.Discard())
	dest, err := sink.Write(context.Background(), "loc-1", samplePlan())
	require.NoError(t, err)
	assert.Equal(t, "kafka://staffing_plans", dest)
	require.NoError(t, sink.Close())
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	cfg := config.ExportConfig{Sink: SinkConsole, OutputDir: t.TempDir()}

	s, err := New(ctx, "", cfg, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, SinkConsole, s.Name())

	s, err = New(ctx, SinkXLSX, cfg, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, SinkXLSX, s.Name())

	s, err = New(ctx, SinkParquet, cfg, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, SinkParquet, s.Name())

	_, err = New(ctx, "fax", cfg, logger.Discard())
	assert.ErrorIs(t, err, ErrUnknownSink)
}
