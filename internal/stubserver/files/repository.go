package files

import (
	"context"
	"sort"
	"sync"
	"time"
)

// File is one processing record owned by a user.
type File struct {
	ID                string
	UserID            string
	OriginalFilename  string
	ProcessedFilename string
	FileSize          int64
	FileType          string
	ProcessingStatus  string
	ProcessingTime    float64
	CreatedAt         time.Time
	DownloadCount     int
}

type Repository interface {
	Create(ctx context.Context, f *File) error
	ListByUser(ctx context.Context, userID string, skip, limit int) ([]File, error)
	Get(ctx context.Context, id string) (*File, error)
	Delete(ctx context.Context, id string) error
	IncrementDownloads(ctx context.Context, userID, processedFilename string) error
	// ReferencedBy reports how many records point at processedFilename.
	ReferencedBy(ctx context.Context, processedFilename string) (int, error)
}

// ArtifactStore keeps processed documents by name.
type ArtifactStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

type MemoryRepository struct {
	mu    sync.RWMutex
	files map[string]File
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{files: make(map[string]File)}
}

func (r *MemoryRepository) Create(ctx context.Context, f *File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[f.ID] = *f
	return nil
}

// ListByUser returns the user's records, newest first.
func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, skip, limit int) ([]File, error) {
	r.mu.RLock()
	out := make([]File, 0)
	for _, f := range r.files {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if skip >= len(out) {
		return []File{}, nil
	}
	out = out[skip:]
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[id]
	if !ok {
		return nil, ErrFileNotFound
	}
	return &f, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return ErrFileNotFound
	}
	delete(r.files, id)
	return nil
}

func (r *MemoryRepository) IncrementDownloads(ctx context.Context, userID, processedFilename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, f := range r.files {
		if f.UserID == userID && f.ProcessedFilename == processedFilename {
			f.DownloadCount++
			r.files[id] = f
		}
	}
	return nil
}

func (r *MemoryRepository) ReferencedBy(ctx context.Context, processedFilename string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, f := range r.files {
		if f.ProcessedFilename == processedFilename {
			n++
		}
	}
	return n, nil
}

type MemoryArtifacts struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ ArtifactStore = (*MemoryArtifacts)(nil)

func NewMemoryArtifacts() *MemoryArtifacts {
	return &MemoryArtifacts{data: make(map[string][]byte)}
}

func (m *MemoryArtifacts) Put(ctx context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = data
	return nil
}

func (m *MemoryArtifacts) Get(ctx context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[name]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return b, nil
}

func (m *MemoryArtifacts) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
	return nil
}
