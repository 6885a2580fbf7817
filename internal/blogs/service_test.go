package blogs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeremyjsx/blogdesk/internal/events"
)

type mockStore struct {
	load    func(ctx context.Context) ([]Blog, error)
	saveAll func(ctx context.Context, records []Blog) error
}

func (m *mockStore) Load(ctx context.Context) ([]Blog, error) {
	if m.load != nil {
		return m.load(ctx)
	}
	return []Blog{}, nil
}

func (m *mockStore) SaveAll(ctx context.Context, records []Blog) error {
	if m.saveAll != nil {
		return m.saveAll(ctx, records)
	}
	return nil
}

type mockPublisher struct {
	published []events.BlogEvent
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, e events.BlogEvent) error {
	m.published = append(m.published, e)
	return m.err
}

func (m *mockPublisher) types() []string {
	out := make([]string, len(m.published))
	for i, e := range m.published {
		out[i] = e.Type
	}
	return out
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(store Store) (*Service, *mockPublisher, *clock) {
	pub := &mockPublisher{}
	clk := &clock{now: baseTime}
	svc := NewService(store,
		WithPublisher(pub),
		WithClock(clk.Now),
		WithLogger(discardLogger),
	)
	return svc, pub, clk
}

func newBlogInput(title string, category Category, status Status) Blog {
	return Blog{
		Title:       title,
		Description: "about " + title,
		Category:    category,
		Status:      status,
		Author:      "Grace",
		PublishDate: "2024-05-02",
	}
}

func TestService_Load(t *testing.T) {
	t.Run("purges expired and re-persists", func(t *testing.T) {
		ctx := context.Background()
		expired := testBlog("gone", "Gone")
		expired.DeletedAt = baseTime.Add(-8 * 24 * time.Hour)
		kept := testBlog("kept", "Kept")
		var saved []Blog
		saves := 0
		store := &mockStore{
			load: func(context.Context) ([]Blog, error) { return []Blog{expired, kept}, nil },
			saveAll: func(_ context.Context, records []Blog) error {
				saves++
				saved = records
				return nil
			},
		}
		svc, pub, _ := newTestService(store)
		got, err := svc.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		equalIDs(t, got, "kept")
		if saves != 1 {
			t.Errorf("saves = %d", saves)
		}
		equalIDs(t, saved, "kept")
		if len(pub.published) != 1 || pub.published[0].Type != events.TypeBlogPurged || pub.published[0].Payload.BlogID != "gone" {
			t.Errorf("events %+v", pub.published)
		}
	})

	t.Run("no write when nothing purged", func(t *testing.T) {
		store := &mockStore{
			load: func(context.Context) ([]Blog, error) { return numbered(2), nil },
			saveAll: func(context.Context, []Blog) error {
				t.Error("SaveAll should not be called")
				return nil
			},
		}
		svc, _, _ := newTestService(store)
		if _, err := svc.Load(context.Background()); err != nil {
			t.Fatalf("Load: %v", err)
		}
	})

	t.Run("store error", func(t *testing.T) {
		store := &mockStore{load: func(context.Context) ([]Blog, error) { return nil, errors.New("disk gone") }}
		svc, _, _ := newTestService(store)
		_, err := svc.Load(context.Background())
		if err == nil || !strings.Contains(err.Error(), "load blogs") {
			t.Errorf("got err %v", err)
		}
	})
}

func TestService_Seed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(discardLogger)
	svc, _, _ := newTestService(store)

	seeded, err := svc.Seed(ctx, numbered(3))
	if err != nil || !seeded {
		t.Fatalf("Seed = %v, %v", seeded, err)
	}
	seeded, err = svc.Seed(ctx, numbered(5))
	if err != nil || seeded {
		t.Fatalf("second Seed = %v, %v", seeded, err)
	}
	got, _ := store.Load(ctx)
	if len(got) != 3 {
		t.Errorf("got %d records after seeding twice", len(got))
	}
}

func TestService_Create(t *testing.T) {
	t.Run("assigns id and createdAt and appends", func(t *testing.T) {
		ctx := context.Background()
		store := NewMemoryStore(discardLogger)
		_ = store.SaveAll(ctx, numbered(2))
		svc, pub, _ := newTestService(store)

		in := newBlogInput("Fresh", Tech, Draft)
		in.ID = "client-chosen"
		got, err := svc.Create(ctx, in)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if got.ID == "" || got.ID == "client-chosen" {
			t.Errorf("ID = %q", got.ID)
		}
		if !got.CreatedAt.Equal(baseTime) {
			t.Errorf("CreatedAt = %v", got.CreatedAt)
		}
		all, _ := store.Load(ctx)
		if len(all) != 3 || all[2].ID != got.ID {
			t.Errorf("stored ids %v", ids(all))
		}
		if types := pub.types(); len(types) != 1 || types[0] != events.TypeBlogCreated {
			t.Errorf("events %v", types)
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		ctx := context.Background()
		svc, _, _ := newTestService(NewMemoryStore(discardLogger))
		seen := map[string]bool{}
		for i := 0; i < 20; i++ {
			b, err := svc.Create(ctx, newBlogInput("Post", Tech, Draft))
			if err != nil {
				t.Fatal(err)
			}
			if seen[b.ID] {
				t.Fatalf("duplicate id %s", b.ID)
			}
			seen[b.ID] = true
		}
	})

	t.Run("published create emits published event", func(t *testing.T) {
		svc, pub, _ := newTestService(NewMemoryStore(discardLogger))
		if _, err := svc.Create(context.Background(), newBlogInput("Live", Business, Published)); err != nil {
			t.Fatal(err)
		}
		types := pub.types()
		if len(types) != 2 || types[1] != events.TypeBlogPublished {
			t.Errorf("events %v", types)
		}
	})

	t.Run("validation error", func(t *testing.T) {
		svc, _, _ := newTestService(&mockStore{saveAll: func(context.Context, []Blog) error {
			t.Error("invalid blog must not be saved")
			return nil
		}})
		_, err := svc.Create(context.Background(), Blog{Category: Tech, Status: Draft})
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Fields["title"] == "" {
			t.Errorf("got err %v", err)
		}
	})

	t.Run("publish failure does not fail create", func(t *testing.T) {
		svc, pub, _ := newTestService(NewMemoryStore(discardLogger))
		pub.err = errors.New("broker down")
		if _, err := svc.Create(context.Background(), newBlogInput("X", Tech, Draft)); err != nil {
			t.Errorf("Create: %v", err)
		}
	})

	t.Run("save error", func(t *testing.T) {
		svc, _, _ := newTestService(&mockStore{saveAll: func(context.Context, []Blog) error {
			return errors.New("quota exceeded")
		}})
		_, err := svc.Create(context.Background(), newBlogInput("X", Tech, Draft))
		if err == nil || !strings.Contains(err.Error(), "save blogs") {
			t.Errorf("got err %v", err)
		}
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	records := numbered(2)
	records[1].DeletedAt = baseTime
	store := NewMemoryStore(discardLogger)
	_ = store.SaveAll(ctx, records)
	svc, _, _ := newTestService(store)

	got, err := svc.Get(ctx, "b01")
	if err != nil || got.ID != "b01" {
		t.Errorf("Get(b01) = %+v, %v", got, err)
	}
	if _, err := svc.Get(ctx, "b02"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted record: got err %v", err)
	}
	if _, err := svc.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing record: got err %v", err)
	}
}

func TestService_Update(t *testing.T) {
	t.Run("keeps id and createdAt", func(t *testing.T) {
		ctx := context.Background()
		store := NewMemoryStore(discardLogger)
		_ = store.SaveAll(ctx, numbered(2))
		svc, pub, _ := newTestService(store)

		edit := testBlog("b02", "Renamed")
		edit.CreatedAt = baseTime.Add(99 * time.Hour)
		edit.Status = Published
		got, err := svc.Update(ctx, edit)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if !got.CreatedAt.Equal(baseTime) {
			t.Errorf("CreatedAt changed to %v", got.CreatedAt)
		}
		all, _ := store.Load(ctx)
		if all[1].Title != "Renamed" || all[0].Title != "Post 1" {
			t.Errorf("stored %+v", all)
		}
		types := pub.types()
		if len(types) != 2 || types[0] != events.TypeBlogUpdated || types[1] != events.TypeBlogPublished {
			t.Errorf("events %v", types)
		}
	})

	t.Run("deleted record is not found", func(t *testing.T) {
		ctx := context.Background()
		records := numbered(1)
		records[0].DeletedAt = baseTime
		store := NewMemoryStore(discardLogger)
		_ = store.SaveAll(ctx, records)
		svc, _, _ := newTestService(store)
		_, err := svc.Update(ctx, testBlog("b01", "Back from the dead"))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("got err %v", err)
		}
	})

	t.Run("invalid edit", func(t *testing.T) {
		ctx := context.Background()
		store := NewMemoryStore(discardLogger)
		_ = store.SaveAll(ctx, numbered(1))
		svc, _, _ := newTestService(store)
		edit := testBlog("b01", "")
		_, err := svc.Update(ctx, edit)
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("got err %v", err)
		}
	})
}

func TestService_Delete(t *testing.T) {
	t.Run("soft deletes", func(t *testing.T) {
		ctx := context.Background()
		store := NewMemoryStore(discardLogger)
		_ = store.SaveAll(ctx, numbered(2))
		svc, pub, _ := newTestService(store)

		if err := svc.Delete(ctx, "b01"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		all, _ := store.Load(ctx)
		if len(all) != 2 || all[0].Active() || !all[0].DeletedAt.Equal(baseTime) {
			t.Errorf("stored %+v", all)
		}
		if types := pub.types(); len(types) != 1 || types[0] != events.TypeBlogDeleted {
			t.Errorf("events %v", types)
		}
	})

	t.Run("twice is not found", func(t *testing.T) {
		ctx := context.Background()
		store := NewMemoryStore(discardLogger)
		_ = store.SaveAll(ctx, numbered(1))
		svc, _, _ := newTestService(store)
		if err := svc.Delete(ctx, "b01"); err != nil {
			t.Fatal(err)
		}
		if err := svc.Delete(ctx, "b01"); !errors.Is(err, ErrNotFound) {
			t.Errorf("got err %v", err)
		}
	})
}

func TestService_DeletedNeverListed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(discardLogger)
	_ = store.SaveAll(ctx, numbered(6))
	svc, _, _ := newTestService(store)
	if err := svc.Delete(ctx, "b03"); err != nil {
		t.Fatal(err)
	}

	page, err := svc.List(ctx, Criteria{Search: "post 3"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 0 {
		t.Errorf("search found deleted record: %v", ids(page.Blogs))
	}
	all, _ := svc.List(ctx, Criteria{}, 1)
	for _, b := range all.Blogs {
		if b.ID == "b03" {
			t.Error("deleted record listed")
		}
	}
	summary, _ := svc.Dashboard(ctx)
	for _, b := range summary.Recent {
		if b.ID == "b03" {
			t.Error("deleted record in recent")
		}
	}
	if summary.Deleted != 1 || summary.Total != 6 {
		t.Errorf("summary %+v", summary)
	}
}

func TestService_CreateDesignDraftScenario(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(discardLogger)
	seed, err := SeedData()
	if err != nil {
		t.Fatal(err)
	}
	_ = store.SaveAll(ctx, seed)
	svc, _, _ := newTestService(store)

	before, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	created, err := svc.Create(ctx, newBlogInput("Grid Systems", Design, Draft))
	if err != nil {
		t.Fatal(err)
	}

	page, err := svc.List(ctx, Criteria{Category: Design}, 1)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, b := range page.Blogs {
		if b.ID == created.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("created blog missing from Design filter: %v", ids(page.Blogs))
	}

	after, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if after.Drafts != before.Drafts+1 || after.Published != before.Published {
		t.Errorf("before %+v after %+v", before, after)
	}
	if after.Recent[0].ID != created.ID {
		t.Errorf("newest blog should lead recent, got %s", after.Recent[0].ID)
	}
}

func TestService_SoftDeleteThenPurgeScenario(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	svc, pub, clk := newTestService(store)

	b, err := svc.Create(ctx, newBlogInput("Short lived", Tech, Draft))
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, b.ID); err != nil {
		t.Fatal(err)
	}

	clk.Advance(6 * 24 * time.Hour)
	if _, err := svc.Load(ctx); err != nil {
		t.Fatal(err)
	}
	raw, _ := store.Load(ctx)
	if len(raw) != 1 {
		t.Fatalf("record purged too early: %v", ids(raw))
	}

	clk.Advance(2 * 24 * time.Hour)
	if _, err := svc.Dashboard(ctx); err != nil {
		t.Fatal(err)
	}
	raw, err = store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 0 {
		t.Errorf("record still persisted after 8 days: %v", ids(raw))
	}
	last := pub.published[len(pub.published)-1]
	if last.Type != events.TypeBlogPurged || last.Payload.BlogID != b.ID {
		t.Errorf("last event %+v", last)
	}
}

// slowStore widens the gap between a load and the save that follows it.
type slowStore struct {
	*MemoryStore
	delay time.Duration
}

func (s *slowStore) Load(ctx context.Context) ([]Blog, error) {
	time.Sleep(s.delay)
	return s.MemoryStore.Load(ctx)
}

func TestService_ConcurrentMutationsKeepEveryWrite(t *testing.T) {
	ctx := context.Background()
	store := &slowStore{MemoryStore: NewMemoryStore(discardLogger), delay: time.Millisecond}
	_ = store.SaveAll(ctx, numbered(10))
	svc, _, _ := newTestService(store)

	const creates = 50
	var wg sync.WaitGroup
	errs := make(chan error, creates+5)
	created := make(chan string, creates)
	for i := 0; i < creates; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := svc.Create(ctx, newBlogInput(fmt.Sprintf("Concurrent %d", i), Tech, Draft))
			if err != nil {
				errs <- err
				return
			}
			created <- b.ID
		}(i)
	}
	for _, id := range []string{"b01", "b02", "b03", "b04", "b05"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := svc.Delete(ctx, id); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	close(created)
	for err := range errs {
		t.Errorf("concurrent mutation: %v", err)
	}

	all, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 10+creates {
		t.Fatalf("persisted %d records, want %d", len(all), 10+creates)
	}
	byID := make(map[string]Blog, len(all))
	for _, b := range all {
		byID[b.ID] = b
	}
	for id := range created {
		if _, ok := byID[id]; !ok {
			t.Errorf("acknowledged create %s was lost", id)
		}
	}
	for _, id := range []string{"b01", "b02", "b03", "b04", "b05"} {
		if byID[id].Active() {
			t.Errorf("acknowledged delete of %s was lost", id)
		}
	}
}

func TestService_WithSeed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(discardLogger)
	clk := &clock{now: baseTime}
	svc := NewService(store, WithSeed(numbered(2)), WithClock(clk.Now), WithLogger(discardLogger))

	got, err := svc.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	equalIDs(t, got, "b01", "b02")

	for _, id := range []string{"b01", "b02"} {
		if err := svc.Delete(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	clk.Advance(RetentionPeriod)
	page, err := svc.List(ctx, Criteria{}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 0 {
		t.Errorf("purge should leave nothing active, got %d", page.Total)
	}

	got, err = svc.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	equalIDs(t, got, "b01", "b02")
	if !got[0].Active() {
		t.Error("reseeded record should be active")
	}
}
