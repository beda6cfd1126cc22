package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cornell/internal/formatter"
	"cornell/internal/models"
	"cornell/internal/store"
)

// fakeStores is an in-memory implementation of the store interfaces the
// orchestrator touches.
type fakeStores struct {
	mu       sync.Mutex
	docs     map[string][]*models.Document
	clusters map[string]*models.Cluster
	notes    map[string][]*models.Note
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		docs:     make(map[string][]*models.Document),
		clusters: make(map[string]*models.Cluster),
		notes:    make(map[string][]*models.Note),
	}
}

func (f *fakeStores) CreateDocument(ctx context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.SessionID] = append(f.docs[doc.SessionID], doc)
	return nil
}

func (f *fakeStores) ListDocumentsBySession(ctx context.Context, sessionID string) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[sessionID], nil
}

func (f *fakeStores) ExtractedDocumentsBySession(ctx context.Context, sessionID string) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Document
	for _, d := range f.docs[sessionID] {
		if d.Status == models.DocumentStatusExtracted {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStores) CreateCluster(ctx context.Context, c *models.Cluster) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clusters[c.ID] = c
	return nil
}

func (f *fakeStores) GetCluster(ctx context.Context, id string) (*models.Cluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clusters[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStores) ListClustersBySession(ctx context.Context, sessionID string) ([]*models.Cluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Cluster
	for _, c := range f.clusters {
		if c.SessionID == sessionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStores) UpdateCluster(ctx context.Context, c *models.Cluster) error { return nil }
func (f *fakeStores) DeleteCluster(ctx context.Context, id string) error        { return nil }

func (f *fakeStores) CreateNote(ctx context.Context, note *models.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[note.ClusterID] = append(f.notes[note.ClusterID], note)
	return nil
}

func (f *fakeStores) GetNote(ctx context.Context, id string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ns := range f.notes {
		for _, n := range ns {
			if n.ID == id {
				return n, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStores) DeleteNotesByCluster(ctx context.Context, clusterID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.notes, clusterID)
	return nil
}

func (f *fakeStores) LatestNoteByCluster(ctx context.Context, clusterID string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ns := f.notes[clusterID]
	if len(ns) == 0 {
		return nil, store.ErrNotFound
	}
	return ns[len(ns)-1], nil
}

func (f *fakeStores) notesFor(clusterID string) []*models.Note {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Note{}, f.notes[clusterID]...)
}

// fakeGenerator returns canned output per cluster title and tracks how many
// calls are in flight at once.
type fakeGenerator struct {
	failTitles map[string]error
	inFlight   atomic.Int32
	maxSeen    atomic.Int32
	delay      time.Duration
}

func (g *fakeGenerator) GenerateNote(ctx context.Context, topicTitle, sourceContent string, opts models.PromptOptions) (string, error) {
	cur := g.inFlight.Add(1)
	for {
		max := g.maxSeen.Load()
		if cur <= max || g.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.inFlight.Add(-1)

	if err, ok := g.failTitles[topicTitle]; ok {
		return "", err
	}
	return fmt.Sprintf("[!cornell] %s\nbody from %d chars\n[!summary]\nsum\n[!ad-libitum]- More\nextra",
		topicTitle, len(sourceContent)), nil
}

func seedSession(t *testing.T, stores *fakeStores, sessionID string, clusterTitles ...string) []string {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, stores.CreateDocument(ctx, &models.Document{
		ID: "d1", SessionID: sessionID, Filename: "a.md",
		ExtractedText: "alpha source text", Status: models.DocumentStatusExtracted,
	}))
	require.NoError(t, stores.CreateDocument(ctx, &models.Document{
		ID: "d2", SessionID: sessionID, Filename: "b.md",
		ExtractedText: "beta source text", Status: models.DocumentStatusExtracted,
	}))

	var ids []string
	for i, title := range clusterTitles {
		id := fmt.Sprintf("cluster-%d", i+1)
		require.NoError(t, stores.CreateCluster(ctx, &models.Cluster{
			ID: id, SessionID: sessionID, Title: title,
		}))
		ids = append(ids, id)
	}
	return ids
}

func newTestOrchestrator(stores *fakeStores, gen GenerationService, registry *TaskRegistry, gate *ConcurrencyGate) *GenerationOrchestrator {
	return NewGenerationOrchestrator(OrchestratorDeps{
		Documents:      stores,
		Clusters:       stores,
		Notes:          stores,
		Generator:      gen,
		Formatter:      formatter.NewNoteFormatter(),
		Gate:           gate,
		Registry:       registry,
		RateLimitDelay: time.Millisecond,
		MinOutputChars: 1,
	})
}

func TestOrchestrator_AllClustersSucceed(t *testing.T) {
	stores := newFakeStores()
	ids := seedSession(t, stores, "s1", "Topic A", "Topic B", "Topic C")
	registry := NewTaskRegistry()
	registry.Create("t1", len(ids))

	o := newTestOrchestrator(stores, &fakeGenerator{}, registry, NewConcurrencyGate(2))

	err := o.Run(context.Background(), GenerationParams{
		TaskID:     "t1",
		SessionID:  "s1",
		ClusterIDs: ids,
		Options:    models.DefaultPromptOptions(),
	})
	require.NoError(t, err)

	status, ok := registry.Status("t1")
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusCompleted, status.Status)
	assert.Equal(t, ids, status.CompletedClusters)
	assert.Empty(t, status.FailedClusters)
	assert.InDelta(t, 1.0, status.Progress, 1e-9)
	assert.Empty(t, status.CurrentCluster)

	for _, id := range ids {
		notes := stores.notesFor(id)
		require.Len(t, notes, 1)
		assert.Equal(t, models.NoteStatusGenerated, notes[0].Status)
		assert.Contains(t, notes[0].MarkdownContent, "> [!cornell]")
	}
}

func TestOrchestrator_PerClusterFaultIsolation(t *testing.T) {
	stores := newFakeStores()
	ids := seedSession(t, stores, "s1", "Good One", "Bad One", "Good Two")
	registry := NewTaskRegistry()
	registry.Create("t1", len(ids))

	gen := &fakeGenerator{failTitles: map[string]error{
		"Bad One": errors.New("upstream exploded"),
	}}
	o := newTestOrchestrator(stores, gen, registry, NewConcurrencyGate(2))

	err := o.Run(context.Background(), GenerationParams{
		TaskID:     "t1",
		SessionID:  "s1",
		ClusterIDs: ids,
		Options:    models.DefaultPromptOptions(),
	})
	require.NoError(t, err, "per-cluster failures must not fail the task")

	status, _ := registry.Status("t1")
	assert.Equal(t, models.TaskStatusCompleted, status.Status)
	assert.Equal(t, []string{ids[0], ids[2]}, status.CompletedClusters)
	assert.Equal(t, []string{ids[1]}, status.FailedClusters)

	// Every cluster has exactly one outcome.
	assert.Len(t, append(status.CompletedClusters, status.FailedClusters...), len(ids))

	failed := stores.notesFor(ids[1])
	require.Len(t, failed, 1)
	assert.Equal(t, models.NoteStatusFailed, failed[0].Status)
	assert.Contains(t, failed[0].MarkdownContent, "# Generation Failed")
	assert.Contains(t, failed[0].MarkdownContent, "upstream exploded")
}

func TestOrchestrator_UnknownClusterSkipped(t *testing.T) {
	stores := newFakeStores()
	ids := seedSession(t, stores, "s1", "Topic A")
	registry := NewTaskRegistry()
	clusterIDs := append(ids, "no-such-cluster")
	registry.Create("t1", len(clusterIDs))

	o := newTestOrchestrator(stores, &fakeGenerator{}, registry, NewConcurrencyGate(1))

	err := o.Run(context.Background(), GenerationParams{
		TaskID:     "t1",
		SessionID:  "s1",
		ClusterIDs: clusterIDs,
		Options:    models.DefaultPromptOptions(),
	})
	require.NoError(t, err)

	status, _ := registry.Status("t1")
	assert.Equal(t, models.TaskStatusCompleted, status.Status)
	assert.Equal(t, []string{"no-such-cluster"}, status.FailedClusters)

	// No failure note for a cluster that does not exist.
	assert.Empty(t, stores.notesFor("no-such-cluster"))
}

func TestOrchestrator_RegenerationReplacesNote(t *testing.T) {
	stores := newFakeStores()
	ids := seedSession(t, stores, "s1", "Topic A")
	registry := NewTaskRegistry()

	o := newTestOrchestrator(stores, &fakeGenerator{}, registry, NewConcurrencyGate(1))

	for _, taskID := range []string{"run-1", "run-2"} {
		registry.Create(taskID, len(ids))
		require.NoError(t, o.Run(context.Background(), GenerationParams{
			TaskID:     taskID,
			SessionID:  "s1",
			ClusterIDs: ids,
			Options:    models.DefaultPromptOptions(),
		}))
	}

	notes := stores.notesFor(ids[0])
	require.Len(t, notes, 1, "regeneration must replace, not accumulate")
}

func TestOrchestrator_GateBoundsConcurrentTasks(t *testing.T) {
	stores := newFakeStores()
	ids := seedSession(t, stores, "s1", "Topic A", "Topic B", "Topic C")
	registry := NewTaskRegistry()
	gate := NewConcurrencyGate(1)
	gen := &fakeGenerator{delay: 5 * time.Millisecond}

	o := newTestOrchestrator(stores, gen, registry, gate)

	var wg sync.WaitGroup
	for _, taskID := range []string{"t1", "t2"} {
		registry.Create(taskID, len(ids))
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, o.Run(context.Background(), GenerationParams{
				TaskID:     id,
				SessionID:  "s1",
				ClusterIDs: ids,
				Options:    models.DefaultPromptOptions(),
			}))
		}(taskID)
	}
	wg.Wait()

	assert.LessOrEqual(t, gen.maxSeen.Load(), int32(1),
		"gate of size 1 must never admit concurrent generation calls")
}

func TestOrchestrator_RateLimitPacing(t *testing.T) {
	stores := newFakeStores()
	ids := seedSession(t, stores, "s1", "Good One", "Bad One", "Good Two")
	registry := NewTaskRegistry()
	registry.Create("t1", len(ids))

	gen := &fakeGenerator{failTitles: map[string]error{
		"Bad One": errors.New("upstream exploded"),
	}}
	o := NewGenerationOrchestrator(OrchestratorDeps{
		Documents:      stores,
		Clusters:       stores,
		Notes:          stores,
		Generator:      gen,
		Formatter:      formatter.NewNoteFormatter(),
		Gate:           NewConcurrencyGate(2),
		Registry:       registry,
		RateLimitDelay: 80 * time.Millisecond,
		MinOutputChars: 1,
	})

	start := time.Now()
	require.NoError(t, o.Run(context.Background(), GenerationParams{
		TaskID:           "t1",
		SessionID:        "s1",
		ClusterIDs:       ids,
		Options:          models.DefaultPromptOptions(),
		RateLimitEnabled: true,
	}))
	elapsed := time.Since(start)

	// Delay after the first (success) and second (failure) clusters, none
	// after the last: exactly two pauses.
	assert.GreaterOrEqual(t, elapsed, 160*time.Millisecond)
	assert.Less(t, elapsed, 240*time.Millisecond)

	status, _ := registry.Status("t1")
	assert.Equal(t, models.TaskStatusCompleted, status.Status)
}

func TestOrchestrator_ZeroDelayDisablesPacing(t *testing.T) {
	stores := newFakeStores()
	ids := seedSession(t, stores, "s1", "Topic A", "Topic B", "Topic C")
	registry := NewTaskRegistry()
	registry.Create("t1", len(ids))

	o := NewGenerationOrchestrator(OrchestratorDeps{
		Documents:      stores,
		Clusters:       stores,
		Notes:          stores,
		Generator:      &fakeGenerator{},
		Formatter:      formatter.NewNoteFormatter(),
		Gate:           NewConcurrencyGate(2),
		Registry:       registry,
		MinOutputChars: 1,
	})

	start := time.Now()
	require.NoError(t, o.Run(context.Background(), GenerationParams{
		TaskID:           "t1",
		SessionID:        "s1",
		ClusterIDs:       ids,
		Options:          models.DefaultPromptOptions(),
		RateLimitEnabled: true,
	}))

	assert.Less(t, time.Since(start), 50*time.Millisecond,
		"a zero delay must not pace the run even with rate limiting enabled")
}

func TestOrchestrator_CancelDuringPause(t *testing.T) {
	stores := newFakeStores()
	ids := seedSession(t, stores, "s1", "Topic A", "Topic B")
	registry := NewTaskRegistry()
	registry.Create("t1", len(ids))

	o := NewGenerationOrchestrator(OrchestratorDeps{
		Documents:      stores,
		Clusters:       stores,
		Notes:          stores,
		Generator:      &fakeGenerator{},
		Formatter:      formatter.NewNoteFormatter(),
		Gate:           NewConcurrencyGate(1),
		Registry:       registry,
		RateLimitDelay: 500 * time.Millisecond,
		MinOutputChars: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := o.Run(ctx, GenerationParams{
		TaskID:           "t1",
		SessionID:        "s1",
		ClusterIDs:       ids,
		Options:          models.DefaultPromptOptions(),
		RateLimitEnabled: true,
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The first cluster's outcome survives; the interrupted pause is a
	// whole-task fault.
	status, _ := registry.Status("t1")
	assert.Equal(t, models.TaskStatusFailed, status.Status)
	assert.Equal(t, []string{ids[0]}, status.CompletedClusters)
	assert.Empty(t, status.FailedClusters)
}

func TestOrchestrator_CancellationFailsTask(t *testing.T) {
	stores := newFakeStores()
	ids := seedSession(t, stores, "s1", "Topic A", "Topic B")
	registry := NewTaskRegistry()
	registry.Create("t1", len(ids))

	gate := NewConcurrencyGate(1)
	// Hold the only slot so the orchestrator blocks on Acquire.
	require.NoError(t, gate.Acquire(context.Background()))
	defer gate.Release()

	o := newTestOrchestrator(stores, &fakeGenerator{}, registry, gate)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.Run(ctx, GenerationParams{
		TaskID:     "t1",
		SessionID:  "s1",
		ClusterIDs: ids,
		Options:    models.DefaultPromptOptions(),
	})
	require.Error(t, err)

	status, _ := registry.Status("t1")
	assert.Equal(t, models.TaskStatusFailed, status.Status)
}

func TestOrchestrator_SourceTruncation(t *testing.T) {
	stores := newFakeStores()
	ctx := context.Background()
	require.NoError(t, stores.CreateDocument(ctx, &models.Document{
		ID: "d1", SessionID: "s1", Filename: "big.md",
		ExtractedText: strings.Repeat("x", 500), Status: models.DocumentStatusExtracted,
	}))
	require.NoError(t, stores.CreateCluster(ctx, &models.Cluster{
		ID: "c1", SessionID: "s1", Title: "Big Topic",
	}))

	registry := NewTaskRegistry()
	registry.Create("t1", 1)

	var seenLen int
	gen := generatorFunc(func(ctx context.Context, title, source string, opts models.PromptOptions) (string, error) {
		seenLen = len(source)
		return "[!cornell] x\n[!summary]\ny\n[!ad-libitum]\nz", nil
	})

	o := NewGenerationOrchestrator(OrchestratorDeps{
		Documents:      stores,
		Clusters:       stores,
		Notes:          stores,
		Generator:      gen,
		Gate:           NewConcurrencyGate(1),
		Registry:       registry,
		MaxSourceChars: 100,
		MinOutputChars: 1,
		RateLimitDelay: time.Millisecond,
	})

	require.NoError(t, o.Run(ctx, GenerationParams{
		TaskID:     "t1",
		SessionID:  "s1",
		ClusterIDs: []string{"c1"},
		Options:    models.DefaultPromptOptions(),
	}))
	assert.Equal(t, 100, seenLen)
}

type generatorFunc func(ctx context.Context, topicTitle, sourceContent string, opts models.PromptOptions) (string, error)

func (f generatorFunc) GenerateNote(ctx context.Context, topicTitle, sourceContent string, opts models.PromptOptions) (string, error) {
	return f(ctx, topicTitle, sourceContent, opts)
}
