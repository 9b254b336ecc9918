package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EntryID identifies a processed file. The service may encode it as a JSON
// string (object id) or a number; both decode to the same textual form.
type EntryID string

func (id *EntryID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = EntryID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("entry id must be a string or number: %w", err)
	}
	*id = EntryID(n.String())
	return nil
}

func (id EntryID) String() string { return string(id) }

// Timestamp decodes RFC 3339 as well as the zone-less ISO 8601 form the
// service emits for naive UTC datetimes ("2025-03-01T10:15:30.123456").
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// HistoryEntry is one row of GET /history.
type HistoryEntry struct {
	ID                EntryID   `json:"id"`
	OriginalFilename  string    `json:"original_filename"`
	ProcessedFilename string    `json:"processed_filename"`
	FileSize          int64     `json:"file_size"`
	FileType          string    `json:"file_type,omitempty"`
	ProcessingStatus  string    `json:"processing_status,omitempty"`
	ProcessingTime    *float64  `json:"processing_time,omitempty"`
	CreatedAt         Timestamp `json:"created_at"`
	DownloadCount     int       `json:"download_count"`
}
