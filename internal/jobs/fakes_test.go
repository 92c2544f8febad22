package jobs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/hmreg/catalog-reconciler/internal/core/domain"
	"github.com/hmreg/catalog-reconciler/internal/core/services/reconciliation"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/cache"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/storage"
	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

type fakeLister struct {
	files []domain.CatalogFile
	err   error
}

func (f *fakeLister) PendingFiles(ctx context.Context, limit int) ([]domain.CatalogFile, error) {
	return f.files, f.err
}

// fakeQueue rejects a second task for the same payload, like asynq.Unique
type fakeQueue struct {
	seen  map[string]bool
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.seen == nil {
		q.seen = make(map[string]bool)
	}
	key := string(task.Payload())
	if q.seen[key] {
		return nil, asynq.ErrDuplicateTask
	}
	q.seen[key] = true
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Queue: "catalog"}, nil
}

type fakeRunner struct {
	report *reconciliation.Report
	err    error
	calls  []uuid.UUID
}

func (r *fakeRunner) RunScheduled(ctx context.Context, fileID uuid.UUID) (*reconciliation.Report, error) {
	r.calls = append(r.calls, fileID)
	return r.report, r.err
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		l.mu.Unlock()
		return cache.ErrLockHeld
	}
	l.held[key] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()
	return fn(ctx)
}

type fakeSink struct {
	values map[string]interface{}
}

func (s *fakeSink) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.values == nil {
		s.values = make(map[string]interface{})
	}
	s.values[key] = value
	return nil
}

type memoryFileStore struct {
	content map[string][]byte
}

func newMemoryFileStore() *memoryFileStore {
	return &memoryFileStore{content: make(map[string][]byte)}
}

func (m *memoryFileStore) Save(ctx context.Context, fileID string, filename string, reader io.Reader) (*storage.FileMetadata, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	path := fileID + "/" + filename
	m.content[path] = data
	return &storage.FileMetadata{
		ID:           fileID,
		OriginalName: filename,
		StoredPath:   path,
		Size:         int64(len(data)),
		Hash:         hex.EncodeToString(sum[:]),
	}, nil
}

func (m *memoryFileStore) Delete(ctx context.Context, fileID string) error {
	for path := range m.content {
		if len(path) > len(fileID) && path[:len(fileID)+1] == fileID+"/" {
			delete(m.content, path)
		}
	}
	return nil
}

func (m *memoryFileStore) Open(ctx context.Context, storedPath string) (io.ReadCloser, error) {
	data, ok := m.content[storedPath]
	if !ok {
		return nil, apperrors.NotFound("stored catalog file", storedPath)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type memoryRegistry struct {
	files []domain.CatalogFile
}

func (m *memoryRegistry) Create(ctx context.Context, file *domain.CatalogFile) error {
	m.files = append(m.files, *file)
	return nil
}

func (m *memoryRegistry) FindByHash(ctx context.Context, hash string) (*domain.CatalogFile, error) {
	for _, f := range m.files {
		if f.FileHash == hash {
			f := f
			return &f, nil
		}
	}
	return nil, nil
}
