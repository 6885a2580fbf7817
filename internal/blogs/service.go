package blogs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyjsx/blogdesk/internal/events"
)

// Service serializes every read-modify-write of the collection. Writers in
// other processes sharing the backend still race: last write wins.
type Service struct {
	mu        sync.Mutex
	store     Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() (string, error)
	seed      []Blog
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests that move time forward.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithSeed makes every load refill an empty store with seed.
func WithSeed(seed []Blog) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: events.NoopPublisher{},
		logger:    slog.Default(),
		now:       time.Now,
		newID:     newBlogID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newBlogID returns a time-ordered token so ids sort by creation.
func newBlogID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Load reads the full collection and purges expired soft deletes, writing the
// collection back only when something was purged.
func (s *Service) Load(ctx context.Context) ([]Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Service) load(ctx context.Context) ([]Blog, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load blogs: %w", err)
	}
	if len(records) == 0 && len(s.seed) > 0 {
		return s.writeSeed(ctx, s.seed)
	}
	survivors, purged := PurgeExpired(records, s.now())
	if !purged {
		return records, nil
	}
	if err := s.store.SaveAll(ctx, survivors); err != nil {
		return nil, fmt.Errorf("save purged blogs: %w", err)
	}
	kept := make(map[string]struct{}, len(survivors))
	for _, b := range survivors {
		kept[b.ID] = struct{}{}
	}
	for _, b := range records {
		if _, ok := kept[b.ID]; !ok {
			s.publish(ctx, events.TypeBlogPurged, b)
		}
	}
	s.logger.Info("purged expired blogs", "count", len(records)-len(survivors))
	return survivors, nil
}

// Seed persists seed when the store holds no records. It reports whether the
// seed was written.
func (s *Service) Seed(ctx context.Context, seed []Blog) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load blogs: %w", err)
	}
	if len(records) > 0 || len(seed) == 0 {
		return false, nil
	}
	if _, err := s.writeSeed(ctx, seed); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) writeSeed(ctx context.Context, seed []Blog) ([]Blog, error) {
	records := make([]Blog, len(seed))
	copy(records, seed)
	if err := s.store.SaveAll(ctx, records); err != nil {
		return nil, fmt.Errorf("save seed: %w", err)
	}
	s.logger.Info("seeded empty blog store", "count", len(records))
	return records, nil
}

func (s *Service) Dashboard(ctx context.Context) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(records), nil
}

func (s *Service) List(ctx context.Context, c Criteria, page int) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return Page{}, err
	}
	return List(records, c, page), nil
}

// Get returns the active record with the given id.
func (s *Service) Get(ctx context.Context, id string) (Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return Blog{}, err
	}
	i := indexActive(records, id)
	if i < 0 {
		return Blog{}, ErrNotFound
	}
	return records[i], nil
}

func (s *Service) Create(ctx context.Context, b Blog) (Blog, error) {
	id, err := s.newID()
	if err != nil {
		return Blog{}, fmt.Errorf("generate id: %w", err)
	}
	b.ID = id
	b.CreatedAt = s.now().UTC()
	b.DeletedAt = time.Time{}
	if errs := b.Validate(); len(errs) > 0 {
		return Blog{}, &ValidationError{Fields: errs}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return Blog{}, err
	}
	updated := make([]Blog, 0, len(records)+1)
	updated = append(updated, records...)
	updated = append(updated, b)
	if err := s.store.SaveAll(ctx, updated); err != nil {
		return Blog{}, fmt.Errorf("save blogs: %w", err)
	}

	s.publish(ctx, events.TypeBlogCreated, b)
	if b.Status == Published {
		s.publish(ctx, events.TypeBlogPublished, b)
	}
	return b, nil
}

// Update replaces the active record carrying b.ID. ID and CreatedAt always
// come from the stored record.
func (s *Service) Update(ctx context.Context, b Blog) (Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return Blog{}, err
	}
	i := indexActive(records, b.ID)
	if i < 0 {
		return Blog{}, ErrNotFound
	}
	prev := records[i]
	b.CreatedAt = prev.CreatedAt
	b.DeletedAt = time.Time{}
	if errs := b.Validate(); len(errs) > 0 {
		return Blog{}, &ValidationError{Fields: errs}
	}

	updated := make([]Blog, len(records))
	copy(updated, records)
	updated[i] = b
	if err := s.store.SaveAll(ctx, updated); err != nil {
		return Blog{}, fmt.Errorf("save blogs: %w", err)
	}

	s.publish(ctx, events.TypeBlogUpdated, b)
	if prev.Status != Published && b.Status == Published {
		s.publish(ctx, events.TypeBlogPublished, b)
	}
	return b, nil
}

// Delete soft-deletes the active record with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexActive(records, id)
	if i < 0 {
		return ErrNotFound
	}
	deleted := records[i]
	if err := s.store.SaveAll(ctx, SoftDelete(records, id, s.now().UTC())); err != nil {
		return fmt.Errorf("save blogs: %w", err)
	}
	s.publish(ctx, events.TypeBlogDeleted, deleted)
	return nil
}

func indexActive(records []Blog, id string) int {
	for i, b := range records {
		if b.ID == id && b.Active() {
			return i
		}
	}
	return -1
}

func (s *Service) publish(ctx context.Context, eventType string, b Blog) {
	e := events.NewBlogEvent(eventType, events.BlogPayload{
		BlogID:   b.ID,
		Title:    b.Title,
		Category: string(b.Category),
		Status:   string(b.Status),
	})
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish event failed", "type", eventType, "blog_id", b.ID, "error", err)
	}
}
