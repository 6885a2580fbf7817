package blogs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jeremyjsx/blogdesk/internal/storage"
)

var _ Store = (*ObjectStore)(nil)

// ObjectStore keeps the collection as a single JSON object in a bucket.
type ObjectStore struct {
	objects storage.Storage
	key     string
	logger  *slog.Logger
}

func NewObjectStore(objects storage.Storage, key string, logger *slog.Logger) *ObjectStore {
	if key == "" {
		key = DefaultKey + ".json"
	}
	return &ObjectStore{objects: objects, key: key, logger: loggerOrDefault(logger)}
}

func (s *ObjectStore) Load(ctx context.Context) ([]Blog, error) {
	body, err := s.objects.Download(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return []Blog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("download %q: %w", s.key, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", s.key, err)
	}
	return decodeRecords(s.logger, s.key, data), nil
}

func (s *ObjectStore) SaveAll(ctx context.Context, records []Blog) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	if err := s.objects.Upload(ctx, s.key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("upload %q: %w", s.key, err)
	}
	return nil
}

func (s *ObjectStore) Ping(ctx context.Context) error {
	_, err := s.objects.Exists(ctx, s.key)
	return err
}
