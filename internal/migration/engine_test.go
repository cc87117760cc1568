package migration_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"geomigrate/internal/location"
	"geomigrate/internal/logging"
	"geomigrate/internal/migration"
	"geomigrate/internal/reupload"
	"geomigrate/internal/services"
	"geomigrate/internal/settings"
	"geomigrate/internal/testsupport"
)

type fakeProvider struct {
	mu       sync.Mutex
	coords   map[string]location.Coordinates
	notFound map[string]bool
	failing  map[string]bool
	lookups  []string
}

func (p *fakeProvider) Lookup(_ context.Context, localID string) (location.Coordinates, error) {
	p.mu.Lock()
	p.lookups = append(p.lookups, localID)
	p.mu.Unlock()

	if p.failing[localID] {
		return location.Coordinates{}, services.Wrap(services.ErrTransient, "location", "lookup", "induced failure", nil)
	}
	if p.notFound[localID] {
		return location.Coordinates{}, services.Wrap(services.ErrNotFound, "location", "lookup", "asset gone", nil)
	}
	return p.coords[localID], nil
}

type collectMarker struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (m *collectMarker) MarkForReUpload(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	batch := make([]string, len(ids))
	copy(batch, ids)
	m.batches = append(m.batches, batch)
	return nil
}

func (m *collectMarker) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, batch := range m.batches {
		out = append(out, batch...)
	}
	return out
}

type countingCatalog struct {
	mu    sync.Mutex
	ids   []string
	calls int
}

func (c *countingCatalog) MissingLocationBackedUp(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out, nil
}

func (c *countingCatalog) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestRunClassifiesAndDrains(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	settingsStore := testsupport.MustOpenSettings(t, cfg)
	stagingStore := testsupport.MustOpenStaging(t, cfg)
	ctx := context.Background()

	catalogSource := &countingCatalog{ids: []string{"a", "b", "c"}}
	provider := &fakeProvider{
		coords:   map[string]location.Coordinates{"a": {Latitude: 1.0, Longitude: 2.0}, "b": {}},
		notFound: map[string]bool{"c": true},
	}
	marker := reupload.NewQueueMarker(stagingStore, logging.NewNop())

	engine := migration.New(settingsStore, stagingStore, catalogSource, provider, marker, logging.NewNop(),
		migration.WithPageSize(2))

	if engine.IsComplete(ctx) {
		t.Fatal("expected migration incomplete before run")
	}
	engine.Run(ctx)

	if !engine.IsComplete(ctx) {
		t.Fatal("expected migration complete after run")
	}
	count, err := stagingStore.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected drained staging queue, got %d", count)
	}

	pending, err := stagingStore.PendingReuploads(ctx)
	if err != nil {
		t.Fatalf("PendingReuploads failed: %v", err)
	}
	if len(pending) != 1 || pending[0] != "a" {
		t.Fatalf("expected only a marked for re-upload, got %v", pending)
	}

	importDone, err := settingsStore.GetBool(ctx, settings.KeyLocalImportDone)
	if err != nil || !importDone {
		t.Fatalf("expected import flag set, got %v err=%v", importDone, err)
	}
}

func TestSecondRunSkipsCatalogQuery(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	settingsStore := testsupport.MustOpenSettings(t, cfg)
	stagingStore := testsupport.MustOpenStaging(t, cfg)
	ctx := context.Background()

	catalogSource := &countingCatalog{ids: []string{"a"}}
	provider := &fakeProvider{coords: map[string]location.Coordinates{"a": {Latitude: 1}}}
	engine := migration.New(settingsStore, stagingStore, catalogSource, provider, nil, logging.NewNop())

	engine.Run(ctx)
	engine.Run(ctx)

	if got := catalogSource.callCount(); got != 1 {
		t.Fatalf("expected exactly one catalog query across runs, got %d", got)
	}
	if !engine.IsComplete(ctx) {
		t.Fatal("expected migration complete")
	}
}

func TestLookupFailureSkipsIDWithoutAbortingRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	settingsStore := testsupport.MustOpenSettings(t, cfg)
	stagingStore := testsupport.MustOpenStaging(t, cfg)
	ctx := context.Background()

	catalogSource := &countingCatalog{ids: []string{"bad", "good"}}
	provider := &fakeProvider{
		coords:  map[string]location.Coordinates{"good": {Longitude: 3}},
		failing: map[string]bool{"bad": true},
	}
	marker := &collectMarker{}
	engine := migration.New(settingsStore, stagingStore, catalogSource, provider, marker, logging.NewNop())

	engine.Run(ctx)

	if !engine.IsComplete(ctx) {
		t.Fatal("expected run to complete despite lookup failure")
	}
	forwarded := marker.all()
	if len(forwarded) != 1 || forwarded[0] != "good" {
		t.Fatalf("expected only good forwarded, got %v", forwarded)
	}
	count, err := stagingStore.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected failed ID deleted with its page, %d left", count)
	}
}

func TestZeroCoordinatesNeverForwarded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	settingsStore := testsupport.MustOpenSettings(t, cfg)
	stagingStore := testsupport.MustOpenStaging(t, cfg)
	ctx := context.Background()

	catalogSource := &countingCatalog{ids: []string{"zero"}}
	provider := &fakeProvider{coords: map[string]location.Coordinates{"zero": {}}}
	marker := &collectMarker{}
	engine := migration.New(settingsStore, stagingStore, catalogSource, provider, marker, logging.NewNop())

	engine.Run(ctx)

	if forwarded := marker.all(); len(forwarded) != 0 {
		t.Fatalf("expected nothing forwarded for (0,0), got %v", forwarded)
	}
	if !engine.IsComplete(ctx) {
		t.Fatal("expected migration complete")
	}
}

func TestMarkerFailureLeavesPageStagedForRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	settingsStore := testsupport.MustOpenSettings(t, cfg)
	stagingStore := testsupport.MustOpenStaging(t, cfg)
	ctx := context.Background()

	catalogSource := &countingCatalog{ids: []string{"a"}}
	provider := &fakeProvider{coords: map[string]location.Coordinates{"a": {Latitude: 5}}}
	marker := &collectMarker{err: errors.New("downstream offline")}
	engine := migration.New(settingsStore, stagingStore, catalogSource, provider, marker, logging.NewNop())

	engine.Run(ctx)

	if engine.IsComplete(ctx) {
		t.Fatal("expected run to fail while marker is broken")
	}
	count, err := stagingStore.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected page left staged after marker failure, got %d", count)
	}

	marker.mu.Lock()
	marker.err = nil
	marker.mu.Unlock()
	engine.Run(ctx)

	if !engine.IsComplete(ctx) {
		t.Fatal("expected retry run to complete")
	}
	if forwarded := marker.all(); len(forwarded) != 1 || forwarded[0] != "a" {
		t.Fatalf("expected a forwarded on retry, got %v", forwarded)
	}
	if got := catalogSource.callCount(); got != 1 {
		t.Fatalf("expected import phase to run once, catalog queried %d times", got)
	}
}

// gatedCatalog blocks the import phase until released so a test can hold a
// run in flight.
type gatedCatalog struct {
	countingCatalog
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *gatedCatalog) MissingLocationBackedUp(ctx context.Context) ([]string, error) {
	c.once.Do(func() {
		close(c.entered)
		<-c.release
	})
	return c.countingCatalog.MissingLocationBackedUp(ctx)
}

func TestConcurrentRunsCoalesce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	settingsStore := testsupport.MustOpenSettings(t, cfg)
	stagingStore := testsupport.MustOpenStaging(t, cfg)
	ctx := context.Background()

	catalogSource := &gatedCatalog{
		countingCatalog: countingCatalog{ids: []string{"a"}},
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	provider := &fakeProvider{coords: map[string]location.Coordinates{"a": {Latitude: 1}}}
	engine := migration.New(settingsStore, stagingStore, catalogSource, provider, nil, logging.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.Run(ctx)
	}()

	select {
	case <-catalogSource.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never reached the catalog query")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.Run(ctx)
	}()

	close(catalogSource.release)
	wg.Wait()

	if got := catalogSource.callCount(); got != 1 {
		t.Fatalf("expected a single physical run, catalog queried %d times", got)
	}
	if !engine.IsComplete(ctx) {
		t.Fatal("expected both callers to observe completion")
	}

	// The guard coalesces only overlapping callers; a later call runs fresh.
	engine.Run(ctx)
	if got := catalogSource.callCount(); got != 1 {
		t.Fatalf("fresh run should skip import via the durable flag, catalog queried %d times", got)
	}
}

func TestWaitingCallerHonorsContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	settingsStore := testsupport.MustOpenSettings(t, cfg)
	stagingStore := testsupport.MustOpenStaging(t, cfg)

	catalogSource := &gatedCatalog{
		countingCatalog: countingCatalog{ids: nil},
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	provider := &fakeProvider{}
	engine := migration.New(settingsStore, stagingStore, catalogSource, provider, nil, logging.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.Run(context.Background())
	}()

	select {
	case <-catalogSource.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("run never reached the catalog query")
	}

	waitCtx, cancel := context.WithCancel(context.Background())
	returned := make(chan struct{})
	go func() {
		engine.Run(waitCtx)
		close(returned)
	}()

	cancel()
	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("waiting caller did not return after context cancellation")
	}

	close(catalogSource.release)
	wg.Wait()
}
