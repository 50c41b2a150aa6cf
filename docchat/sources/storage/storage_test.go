package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"docchat/docchat/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewLocalSink(dir)

	loc, err := sink.SaveSummary(context.Background(), "../DocAI_Session_1_Summary.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "DocAI_Session_1_Summary.pdf"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
}

func TestSummaryKey(t *testing.T) {
	assert.Equal(t, "summaries/Summary_3.pdf", summaryKey("Summary_3.pdf"))
	assert.Equal(t, "summaries/x.pdf", summaryKey("a/../../x.pdf"))
}

// Runs against a real server only when one is configured.
func TestMinIOSink_RoundTrip(t *testing.T) {
	cfg := config.LoadConfig()
	if !cfg.UsesMinIO() {
		t.Skip("MINIO_ENDPOINT not set")
	}
	ctx := context.Background()
	sink, err := NewMinIOSink(ctx, cfg)
	require.NoError(t, err)

	loc, err := sink.SaveSummary(ctx, "test_summary.pdf", []byte("%PDF-test"))
	require.NoError(t, err)
	assert.Equal(t, "s3://"+cfg.MinIOBucket+"/summaries/test_summary.pdf", loc)

	data, err := sink.GetSummary(ctx, "test_summary.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-test", string(data))
}
