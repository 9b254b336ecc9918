package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/ocrdesk/internal/client/models"
	"github.com/dmitrijs2005/ocrdesk/internal/logging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// maxPageCountBytes bounds how much of a PDF is read to count its pages.
const maxPageCountBytes = 64 << 20

// OpenSourceFile describes the file at path for SelectFile. The content
// type comes from the extension, or from sniffing the first bytes when the
// extension is unknown. PDFs get a page count when pdfcpu can read them.
func OpenSourceFile(ctx context.Context, log logging.Logger, path string) (*models.SourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	contentType, err := detectContentType(path)
	if err != nil {
		return nil, err
	}

	file := &models.SourceFile{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: contentType,
		Open:        func() (io.ReadCloser, error) { return os.Open(path) },
	}

	if contentType == "application/pdf" && info.Size() <= maxPageCountBytes {
		file.PageCount = pdfPageCount(ctx, log, path)
	}
	return file, nil
}

func detectContentType(path string) (string, error) {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return normalizeContentType(ct), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return normalizeContentType(http.DetectContentType(head[:n])), nil
}

func pdfPageCount(ctx context.Context, log logging.Logger, path string) *int {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		if log != nil {
			log.Warn(ctx, "failed to extract PDF page count", "file", path, "error", err)
		}
		return nil
	}
	return &count
}

// normalizeContentType lowercases and drops parameters ("; charset=...").
func normalizeContentType(ct string) string {
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
