package blogs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultKey is the storage key holding the serialized collection.
const DefaultKey = "blogs"

// Store persists the whole collection under a single key. There is no partial
// update: callers read the full collection, modify it and write it back.
// Concurrent writers are last-write-wins.
type Store interface {
	Load(ctx context.Context) ([]Blog, error)
	SaveAll(ctx context.Context, records []Blog) error
}

// Pinger is implemented by stores that can check their backend cheaply.
type Pinger interface {
	Ping(ctx context.Context) error
}

// decodeRecords turns a stored payload into records. A missing or malformed
// payload yields an empty collection; the view must always be renderable.
func decodeRecords(logger *slog.Logger, key string, data []byte) []Blog {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []Blog{}
	}
	var records []Blog
	if err := json.Unmarshal(data, &records); err != nil {
		logger.Warn("discarding malformed blog collection", "key", key, "error", err)
		return []Blog{}
	}
	if records == nil {
		return []Blog{}
	}
	return records
}

func encodeRecords(records []Blog) ([]byte, error) {
	if records == nil {
		records = []Blog{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode blogs: %w", err)
	}
	return data, nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the serialized collection in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	data   []byte
	logger *slog.Logger
}

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{logger: loggerOrDefault(logger)}
}

func (s *MemoryStore) Load(_ context.Context) ([]Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decodeRecords(s.logger, DefaultKey, s.data), nil
}

func (s *MemoryStore) SaveAll(_ context.Context, records []Blog) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// SetRaw replaces the stored payload verbatim.
func (s *MemoryStore) SetRaw(data []byte) {
	s.mu.Lock()
	s.data = append([]byte(nil), data...)
	s.mu.Unlock()
}

// Raw returns a copy of the stored payload.
func (s *MemoryStore) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
