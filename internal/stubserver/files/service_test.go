package files

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/ocrdesk/internal/logging"
)

func newService() *Service {
	return NewService(NewMemoryRepository(), NewMemoryArtifacts(), logging.Nop())
}

func TestArtifactName(t *testing.T) {
	tests := map[string]string{
		"scan.pdf":   "ocr_scan.pdf",
		"photo.png":  "ocr_photo.png.pdf",
		"SCAN.PDF":   "ocr_SCAN.PDF.pdf",
		"a b.jpeg":   "ocr_a b.jpeg.pdf",
		"report.pdf": "ocr_report.pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, ArtifactName(in), in)
	}
}

func TestProcess_RejectsUnsupportedTypes(t *testing.T) {
	s := newService()
	for _, name := range []string{"notes.txt", "archive.pdf.zip", "", "noext"} {
		_, err := s.Process(context.Background(), "", name, "text/plain", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrUnsupportedType, name)
	}
}

func TestProcess_AnonymousKeepsNoHistory(t *testing.T) {
	ctx := context.Background()
	s := newService()

	res, err := s.Process(ctx, "", "scan.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "/download/ocr_scan.pdf", res.DownloadURL)
	assert.Equal(t, "ocr_scan.pdf", res.Filename)
	assert.NotEmpty(t, res.Message)

	data, err := s.Open(ctx, "", "ocr_scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	list, err := s.History(ctx, "", 0, 20)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProcess_StripsClientPath(t *testing.T) {
	s := newService()
	res, err := s.Process(context.Background(), "", `C:\Users\me\scan.pdf`, "application/pdf", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "ocr_scan.pdf", res.Filename)
}

func TestHistory_NewestFirstAndPaged(t *testing.T) {
	ctx := context.Background()
	s := newService()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		_, err := s.Process(ctx, "u1", name, "application/pdf", strings.NewReader(name))
		require.NoError(t, err)
	}
	_, err := s.Process(ctx, "u2", "other.pdf", "application/pdf", strings.NewReader("x"))
	require.NoError(t, err)

	list, err := s.History(ctx, "u1", 0, 20)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c.pdf", list[0].OriginalFilename)
	assert.Equal(t, "a.pdf", list[2].OriginalFilename)
	assert.Equal(t, int64(5), list[0].FileSize)
	assert.Equal(t, StatusCompleted, list[0].ProcessingStatus)

	page, err := s.History(ctx, "u1", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b.pdf", page[0].OriginalFilename)

	empty, err := s.History(ctx, "u1", 10, 20)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOpen_CountsDownloads(t *testing.T) {
	ctx := context.Background()
	s := newService()
	_, err := s.Process(ctx, "u1", "scan.pdf", "application/pdf", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = s.Open(ctx, "u1", "ocr_scan.pdf")
	require.NoError(t, err)
	_, err = s.Open(ctx, "u1", "ocr_scan.pdf")
	require.NoError(t, err)

	list, err := s.History(ctx, "u1", 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, list[0].DownloadCount)

	_, err = s.Open(ctx, "u1", "ocr_missing.pdf")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newService()
	_, err := s.Process(ctx, "u1", "scan.pdf", "application/pdf", strings.NewReader("x"))
	require.NoError(t, err)
	list, err := s.History(ctx, "u1", 0, 20)
	require.NoError(t, err)
	id := list[0].ID

	assert.ErrorIs(t, s.Delete(ctx, "u2", id), ErrFileNotFound, "other users cannot delete it")
	require.NoError(t, s.Delete(ctx, "u1", id))
	assert.ErrorIs(t, s.Delete(ctx, "u1", id), ErrFileNotFound)

	_, err = s.Open(ctx, "u1", "ocr_scan.pdf")
	assert.ErrorIs(t, err, ErrArtifactNotFound, "unreferenced artifact is removed")
}

func TestDelete_KeepsSharedArtifact(t *testing.T) {
	ctx := context.Background()
	s := newService()
	for range 2 {
		_, err := s.Process(ctx, "u1", "scan.pdf", "application/pdf", strings.NewReader("x"))
		require.NoError(t, err)
	}
	list, err := s.History(ctx, "u1", 0, 20)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, s.Delete(ctx, "u1", list[0].ID))
	_, err = s.Open(ctx, "u1", "ocr_scan.pdf")
	assert.NoError(t, err)
}
