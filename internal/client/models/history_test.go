package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryID_AcceptsStringAndNumber(t *testing.T) {
	var fromString, fromNumber EntryID
	require.NoError(t, json.Unmarshal([]byte(`"65f1c2"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`42`), &fromNumber))

	assert.Equal(t, EntryID("65f1c2"), fromString)
	assert.Equal(t, EntryID("42"), fromNumber)

	var bad EntryID
	require.Error(t, json.Unmarshal([]byte(`{"x":1}`), &bad))
}

func TestTimestamp_Layouts(t *testing.T) {
	want := time.Date(2025, 3, 1, 10, 15, 30, 123456000, time.UTC)

	for _, in := range []string{
		`"2025-03-01T10:15:30.123456"`,
		`"2025-03-01T10:15:30.123456Z"`,
		`"2025-03-01T12:15:30.123456+02:00"`,
	} {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		assert.True(t, want.Equal(ts.Time), "%s decoded to %s", in, ts.Time)
	}

	var zero Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &zero))
	assert.True(t, zero.IsZero())

	var bad Timestamp
	require.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestHistoryEntry_DecodesServicePayload(t *testing.T) {
	payload := `{
		"id": "65f1c2aa",
		"original_filename": "scan.png",
		"processed_filename": "ocr_scan.png.pdf",
		"file_size": 2048,
		"file_type": "image/png",
		"processing_status": "completed",
		"processing_time": 3.5,
		"created_at": "2025-03-01T10:15:30",
		"download_count": 2
	}`

	var e HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(payload), &e))

	assert.Equal(t, EntryID("65f1c2aa"), e.ID)
	assert.Equal(t, "ocr_scan.png.pdf", e.ProcessedFilename)
	assert.Equal(t, int64(2048), e.FileSize)
	require.NotNil(t, e.ProcessingTime)
	assert.InDelta(t, 3.5, *e.ProcessingTime, 1e-9)
	assert.Equal(t, 2025, e.CreatedAt.Year())
	assert.Equal(t, 2, e.DownloadCount)
}

func TestJob_IsDone(t *testing.T) {
	assert.False(t, Job{Status: JobStatusIdle}.IsDone())
	assert.False(t, Job{Status: JobStatusProcessing}.IsDone())
	assert.True(t, Job{Status: JobStatusCompleted}.IsDone())
	assert.True(t, Job{Status: JobStatusFailed}.IsDone())
}
