// Package files implements the document side of the reference service:
// accepting uploads, producing artifacts and keeping per-user history.
// No OCR happens; the artifact is a copy of the upload.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/ocrdesk/internal/logging"
)

// Error texts match what the original service answers.
var (
	ErrUnsupportedType  = errors.New("Chỉ hỗ trợ file PDF, PNG, JPG, JPEG")
	ErrArtifactNotFound = errors.New("File không tồn tại")
	ErrFileNotFound     = errors.New("File not found")
)

const (
	StatusCompleted = "completed"
	processedPrefix = "ocr_"
	successMessage  = "Xử lý file thành công"
)

var acceptedExtensions = []string{".pdf", ".png", ".jpg", ".jpeg"}

// Result is the answer to a successful upload.
type Result struct {
	Message     string
	DownloadURL string
	Filename    string
}

type Service struct {
	repo      Repository
	artifacts ArtifactStore
	log       logging.Logger
	now       func() time.Time
}

func NewService(repo Repository, artifacts ArtifactStore, log logging.Logger) *Service {
	return &Service{
		repo:      repo,
		artifacts: artifacts,
		log:       log.With("module", "files"),
		now:       time.Now,
	}
}

// ArtifactName derives the processed file name: "ocr_" + the upload's base
// name, with ".pdf" appended unless it already ends that way.
func ArtifactName(original string) string {
	name := processedPrefix + original
	if !strings.HasSuffix(name, ".pdf") {
		name += ".pdf"
	}
	return name
}

func baseName(filename string) string {
	return path.Base(strings.ReplaceAll(filename, "\\", "/"))
}

func accepted(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range acceptedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Process stores the upload as an artifact. When userID is set, a history
// record is kept for that user.
func (s *Service) Process(ctx context.Context, userID, filename, contentType string, body io.Reader) (*Result, error) {
	original := baseName(filename)
	if original == "" || original == "." || original == "/" || !accepted(original) {
		return nil, ErrUnsupportedType
	}

	start := s.now()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	name := ArtifactName(original)
	if err := s.artifacts.Put(ctx, name, data); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	if userID != "" {
		f := &File{
			ID:                uuid.NewString(),
			UserID:            userID,
			OriginalFilename:  original,
			ProcessedFilename: name,
			FileSize:          int64(len(data)),
			FileType:          contentType,
			ProcessingStatus:  StatusCompleted,
			ProcessingTime:    s.now().Sub(start).Seconds(),
			CreatedAt:         s.now().UTC(),
		}
		if err := s.repo.Create(ctx, f); err != nil {
			return nil, fmt.Errorf("record history: %w", err)
		}
	}

	s.log.Info(ctx, "file processed", "file", original, "artifact", name, "size", len(data), "user_id", userID)
	return &Result{Message: successMessage, DownloadURL: "/download/" + name, Filename: name}, nil
}

// Open returns the artifact bytes and counts the download against the
// caller's history when userID is set.
func (s *Service) Open(ctx context.Context, userID, name string) ([]byte, error) {
	data, err := s.artifacts.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if userID != "" {
		if err := s.repo.IncrementDownloads(ctx, userID, name); err != nil {
			s.log.Warn(ctx, "count download failed", "file", name, "error", err)
		}
	}
	return data, nil
}

func (s *Service) History(ctx context.Context, userID string, skip, limit int) ([]File, error) {
	return s.repo.ListByUser(ctx, userID, skip, limit)
}

// Delete removes the caller's record id. Records of other users are
// reported as missing. The artifact goes when nothing references it.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	f, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if f.UserID != userID {
		return ErrFileNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	refs, err := s.repo.ReferencedBy(ctx, f.ProcessedFilename)
	if err == nil && refs == 0 {
		if err := s.artifacts.Delete(ctx, f.ProcessedFilename); err != nil {
			s.log.Warn(ctx, "delete artifact failed", "file", f.ProcessedFilename, "error", err)
		}
	}

	s.log.Info(ctx, "file deleted", "id", id, "user_id", userID)
	return nil
}
