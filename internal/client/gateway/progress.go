package gateway

import (
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// ProgressFunc receives the number of payload bytes handed to the
// transport so far and the expected total (0 when unknown).
type ProgressFunc func(sent, total int64)

// FilePart describes the single file of a multipart upload.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Body        io.Reader
	Size        int64
}

type countingReader struct {
	r        io.Reader
	sent     int64
	total    int64
	progress ProgressFunc
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.sent += int64(n)
		if c.progress != nil {
			c.progress(c.sent, c.total)
		}
	}
	return n, err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody streams part as a multipart/form-data body. The returned
// reader must be fully consumed or closed.
func multipartBody(part FilePart, progress ProgressFunc) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+quoteEscaper.Replace(part.Field)+
			`"; filename="`+quoteEscaper.Replace(part.Filename)+`"`)
		ct := part.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		w, err := mw.CreatePart(h)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}

		src := &countingReader{r: part.Body, total: part.Size, progress: progress}
		if _, err := io.Copy(w, src); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	return pr, mw.FormDataContentType()
}
