package engine

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/omni-pm/omni/internal/testutil"
	"github.com/omni-pm/omni/pkg/backend"
	"github.com/omni-pm/omni/pkg/core"
	"github.com/omni-pm/omni/pkg/resolve"
)

// fakeBackend serves canned metadata and records how often it is queried.
type fakeBackend struct {
	mu       sync.Mutex
	records  map[string]core.PackageRecord // by package name
	searches int
	installs int
	removes  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{records: make(map[string]core.PackageRecord)}
}

func (b *fakeBackend) add(name, version string, installed bool) {
	b.records[name] = core.PackageRecord{
		Ref:       core.PackageRef{Name: name, Backend: "fake"},
		Version:   version,
		Installed: installed,
	}
}

func (b *fakeBackend) Name() string                   { return "fake" }
func (b *fakeBackend) Available(context.Context) bool { return true }

func (b *fakeBackend) Search(ctx context.Context, query string) ([]core.PackageRecord, error) {
	b.mu.Lock()
	b.searches++
	b.mu.Unlock()

	var out []core.PackageRecord
	for name, r := range b.records {
		if name == query {
			r.FetchedAt = time.Now()
			out = append(out, r)
		}
	}
	return out, nil
}

func (b *fakeBackend) Info(ctx context.Context, name string) (*core.PackageRecord, error) {
	r, ok := b.records[name]
	if !ok {
		return nil, backend.ErrNotAvailable
	}
	r.FetchedAt = time.Now()
	return &r, nil
}

func (b *fakeBackend) Install(ctx context.Context, ref core.PackageRef, version string) (*backend.OperationOutcome, error) {
	b.mu.Lock()
	b.installs++
	b.mu.Unlock()
	return &backend.OperationOutcome{
		Ref:        ref,
		Version:    version,
		Reversible: true,
		Undo:       &core.OperationStep{Kind: core.StepRemove, Target: ref},
	}, nil
}

func (b *fakeBackend) Remove(ctx context.Context, ref core.PackageRef) (*backend.OperationOutcome, error) {
	b.mu.Lock()
	b.removes++
	b.mu.Unlock()
	return &backend.OperationOutcome{Ref: ref}, nil
}

func (b *fakeBackend) QueryInstalled(ctx context.Context) ([]core.PackageRecord, error) {
	var out []core.PackageRecord
	for _, r := range b.records {
		if r.Installed {
			r.FetchedAt = time.Now()
			out = append(out, r)
		}
	}
	return out, nil
}

func (b *fakeBackend) searchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.searches
}

func testEngine(t *testing.T, b *fakeBackend) *Engine {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.StorePath = filepath.Join(t.TempDir(), "omni-test.db")
	cfg.RegistryPath = t.TempDir()
	cfg.BackendPriority = []string{"fake"}
	cfg.Elevation = map[string]core.ElevationPolicy{"fake": core.ElevateNever}

	eng, err := New(cfg, Options{
		Runner:   &testutil.FakeRunner{},
		Elevator: &testutil.FakeElevator{},
		Backends: backend.NewSet(b),
		Logger:   log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestSearchHitsCacheFirst(t *testing.T) {
	b := newFakeBackend()
	b.add("ripgrep", "14.1.0", false)
	eng := testEngine(t, b)

	fresh := core.PackageRecord{
		Ref:       core.PackageRef{Name: "ripgrep", Backend: "fake"},
		Version:   "14.1.0",
		FetchedAt: time.Now(),
	}
	if err := eng.Store().Put(fresh); err != nil {
		t.Fatal(err)
	}

	records, err := eng.Search(context.Background(), "ripgrep")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if b.searchCount() != 0 {
		t.Errorf("backend searched %d times despite fresh cache", b.searchCount())
	}
}

func TestSearchGoesLiveWhenStale(t *testing.T) {
	b := newFakeBackend()
	b.add("ripgrep", "14.1.0", false)
	eng := testEngine(t, b)

	stale := core.PackageRecord{
		Ref:       core.PackageRef{Name: "ripgrep", Backend: "fake"},
		Version:   "13.0.0",
		FetchedAt: time.Now().Add(-2 * time.Hour),
	}
	if err := eng.Store().Put(stale); err != nil {
		t.Fatal(err)
	}

	records, err := eng.Search(context.Background(), "ripgrep")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if b.searchCount() != 1 {
		t.Errorf("backend searched %d times, want 1 for stale cache", b.searchCount())
	}
	if len(records) != 1 || records[0].Version != "14.1.0" {
		t.Errorf("records = %v, want live result", records)
	}

	// The live result was written back; the next search is cache-only.
	if _, err := eng.Search(context.Background(), "ripgrep"); err != nil {
		t.Fatal(err)
	}
	if b.searchCount() != 1 {
		t.Errorf("backend searched again despite refreshed cache")
	}
}

func TestSearchDegradesToStaleOnEmptyLiveResult(t *testing.T) {
	b := newFakeBackend() // knows nothing
	eng := testEngine(t, b)

	stale := core.PackageRecord{
		Ref:       core.PackageRef{Name: "ghost", Backend: "fake"},
		Version:   "1.0.0",
		FetchedAt: time.Now().Add(-2 * time.Hour),
	}
	if err := eng.Store().Put(stale); err != nil {
		t.Fatal(err)
	}

	records, err := eng.Search(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(records) != 1 || !records[0].Stale {
		t.Errorf("records = %+v, want the stale entry marked stale", records)
	}
}

func TestPlanAndExecuteInstalls(t *testing.T) {
	b := newFakeBackend()
	b.add("jq", "1.7.1", false)
	eng := testEngine(t, b)

	requests := []resolve.Request{{Name: "jq", Backend: "fake"}}
	result, err := eng.PlanAndExecute(context.Background(), requests, core.StepInstall)
	if err != nil {
		t.Fatalf("PlanAndExecute: %v", err)
	}
	if !result.Committed() {
		t.Fatalf("State = %s", result.State)
	}
	if b.installs != 1 {
		t.Errorf("installs = %d, want 1", b.installs)
	}

	entries, err := eng.AuditTrail(result.TxnID)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	if len(entries) == 0 {
		t.Error("committed transaction left no audit trail")
	}
}

func TestPlanAndExecuteAlreadySatisfied(t *testing.T) {
	b := newFakeBackend()
	b.add("jq", "1.7.1", true)
	eng := testEngine(t, b)

	requests := []resolve.Request{{Name: "jq", Backend: "fake"}}
	result, err := eng.PlanAndExecute(context.Background(), requests, core.StepInstall)
	if err != nil {
		t.Fatalf("idempotent install must not error: %v", err)
	}
	if !result.Committed() {
		t.Fatalf("State = %s, want committed no-op", result.State)
	}
	if len(result.Executed) != 0 {
		t.Errorf("Executed = %v, want nothing", result.Executed)
	}
	if b.installs != 0 {
		t.Errorf("installs = %d for an already satisfied request", b.installs)
	}
}

func TestPlanRefreshesStaleCache(t *testing.T) {
	b := newFakeBackend()
	b.add("jq", "1.7.1", false)
	eng := testEngine(t, b)

	// A stale cache row claims jq is installed; the backend disagrees.
	// Planning must trust the live answer, not the stale one.
	stale := core.PackageRecord{
		Ref:       core.PackageRef{Name: "jq", Backend: "fake"},
		Version:   "1.7.1",
		Installed: true,
		FetchedAt: time.Now().Add(-2 * time.Hour),
	}
	if err := eng.Store().Put(stale); err != nil {
		t.Fatal(err)
	}

	requests := []resolve.Request{{Name: "jq", Backend: "fake"}}
	result, err := eng.PlanAndExecute(context.Background(), requests, core.StepInstall)
	if err != nil {
		t.Fatalf("PlanAndExecute: %v", err)
	}
	if b.installs != 1 {
		t.Errorf("installs = %d; stale cache must not elide the step", b.installs)
	}
	if !result.Committed() {
		t.Errorf("State = %s", result.State)
	}
}

func TestList(t *testing.T) {
	b := newFakeBackend()
	b.add("jq", "1.7.1", true)
	b.add("ripgrep", "14.1.0", false)
	eng := testEngine(t, b)

	records, err := eng.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Ref.Name != "jq" {
		t.Errorf("records = %v, want only installed jq", records)
	}
}

func TestPlatform(t *testing.T) {
	b := newFakeBackend()
	eng := testEngine(t, b)

	p, err := eng.Platform(context.Background())
	if err != nil {
		t.Fatalf("Platform: %v", err)
	}
	if len(p.Available) != 1 || p.Available[0] != "fake" {
		t.Errorf("Available = %v, want [fake]", p.Available)
	}
	if p.Preferred != "fake" {
		t.Errorf("Preferred = %q, want the only available backend", p.Preferred)
	}
}

func TestHistory(t *testing.T) {
	b := newFakeBackend()
	b.add("jq", "1.7.1", false)
	eng := testEngine(t, b)

	requests := []resolve.Request{{Name: "jq", Backend: "fake"}}
	if _, err := eng.PlanAndExecute(context.Background(), requests, core.StepInstall); err != nil {
		t.Fatal(err)
	}

	entries, err := eng.History(10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) == 0 {
		t.Error("history empty after a transaction")
	}
}
