package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"cornell/internal/formatter"
	"cornell/internal/models"
	"cornell/internal/store"
)

// Defaults for the generation loop.
const (
	DefaultMaxSourceChars = 30000
	DefaultMinOutputChars = 100
)

// GenerationParams describes one generation task.
type GenerationParams struct {
	TaskID           string
	SessionID        string
	ClusterIDs       []string
	Options          models.PromptOptions
	RateLimitEnabled bool
}

// OrchestratorDeps wires the orchestrator's collaborators.
type OrchestratorDeps struct {
	Documents store.DocumentStore
	Clusters  store.ClusterStore
	Notes     store.NoteStore
	Generator GenerationService
	Formatter *formatter.NoteFormatter
	Gate      *ConcurrencyGate
	Registry  *TaskRegistry

	// RateLimitDelay of zero disables pacing even when a task enables
	// rate limiting. The char limits fall back to the package defaults
	// when left zero.
	RateLimitDelay time.Duration
	MaxSourceChars int
	MinOutputChars int
}

// GenerationOrchestrator runs generation tasks: one cluster at a time per
// task, remote calls bounded process-wide by the shared gate, per-cluster
// failures isolated so the rest of the task proceeds.
type GenerationOrchestrator struct {
	deps OrchestratorDeps
}

func NewGenerationOrchestrator(deps OrchestratorDeps) *GenerationOrchestrator {
	if deps.MaxSourceChars <= 0 {
		deps.MaxSourceChars = DefaultMaxSourceChars
	}
	if deps.MinOutputChars <= 0 {
		deps.MinOutputChars = DefaultMinOutputChars
	}
	if deps.Formatter == nil {
		deps.Formatter = formatter.NewNoteFormatter()
	}
	return &GenerationOrchestrator{deps: deps}
}

// Run executes one generation task to completion. The returned error covers
// whole-task faults only (document loading, context cancellation); a cluster
// that fails to generate is recorded on the tracker and in a failed note,
// never returned.
func (o *GenerationOrchestrator) Run(ctx context.Context, p GenerationParams) error {
	tracker, ok := o.deps.Registry.Lookup(p.TaskID)
	if !ok {
		tracker = o.deps.Registry.Create(p.TaskID, len(p.ClusterIDs))
	}
	tracker.MarkProcessing()

	documents, err := o.loadDocuments(ctx, p.SessionID)
	if err != nil {
		tracker.MarkFailed()
		return fmt.Errorf("load session documents: %w", err)
	}

	for i, clusterID := range p.ClusterIDs {
		if err := o.deps.Gate.Acquire(ctx); err != nil {
			tracker.MarkFailed()
			return fmt.Errorf("acquire generation slot: %w", err)
		}

		tracker.SetCurrentCluster(clusterID)

		cluster, err := o.deps.Clusters.GetCluster(ctx, clusterID)
		if err != nil {
			log.WithFields(log.Fields{
				"task_id": p.TaskID,
				"cluster": clusterID,
			}).Warnf("Skipping unknown cluster: %v", err)
			tracker.RecordFailed(clusterID)
			o.deps.Gate.Release()
			continue
		}

		err = func() error {
			defer o.deps.Gate.Release()
			return o.generateForCluster(ctx, cluster, documents, p.Options)
		}()
		if err != nil {
			log.WithFields(log.Fields{
				"task_id": p.TaskID,
				"cluster": clusterID,
				"title":   cluster.Title,
			}).Errorf("Note generation failed: %v", err)
			o.saveFailureNote(ctx, clusterID, err)
			tracker.RecordFailed(clusterID)
		} else {
			tracker.RecordCompleted(clusterID)
		}

		if p.RateLimitEnabled && o.deps.RateLimitDelay > 0 && i < len(p.ClusterIDs)-1 {
			if err := o.pause(ctx); err != nil {
				tracker.MarkFailed()
				return err
			}
		}
	}

	tracker.MarkCompleted()
	return nil
}

// sessionDocuments holds the extracted text of a session's documents keyed
// by filename, preserving store order for unmapped clusters.
type sessionDocuments struct {
	order []string
	texts map[string]string
}

func (o *GenerationOrchestrator) loadDocuments(ctx context.Context, sessionID string) (*sessionDocuments, error) {
	docs, err := o.deps.Documents.ExtractedDocumentsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sd := &sessionDocuments{texts: make(map[string]string, len(docs))}
	for _, d := range docs {
		sd.texts[d.Filename] = d.ExtractedText
		sd.order = append(sd.order, d.Filename)
	}
	return sd, nil
}

// generateForCluster performs steps 4 through 8 of a cluster's lifecycle:
// clear prior notes, assemble and truncate the source, call the model,
// normalize, and persist.
func (o *GenerationOrchestrator) generateForCluster(ctx context.Context, cluster *models.Cluster, documents *sessionDocuments, opts models.PromptOptions) error {
	if err := o.deps.Notes.DeleteNotesByCluster(ctx, cluster.ID); err != nil {
		return fmt.Errorf("clear prior notes: %w", err)
	}

	source := assembleSource(cluster, documents)
	source = truncateRunes(source, o.deps.MaxSourceChars)

	markdown, err := o.deps.Generator.GenerateNote(ctx, cluster.Title, source, opts)
	if err != nil {
		return err
	}

	if len(strings.TrimSpace(markdown)) < o.deps.MinOutputChars {
		return fmt.Errorf("generated note too short (%d chars, need %d)", len(strings.TrimSpace(markdown)), o.deps.MinOutputChars)
	}

	if opts.UseDefault {
		markdown = o.deps.Formatter.FormatNote(markdown)
	}
	if ok, issues := o.deps.Formatter.ValidateFormat(markdown); !ok {
		log.WithFields(log.Fields{
			"cluster": cluster.ID,
			"title":   cluster.Title,
		}).Warnf("Format issues in generated note: %v", issues)
	}

	note := &models.Note{
		ID:              uuid.NewString(),
		ClusterID:       cluster.ID,
		MarkdownContent: markdown,
		Status:          models.NoteStatusGenerated,
		CreatedAt:       time.Now().UTC(),
	}
	if err := o.deps.Notes.CreateNote(ctx, note); err != nil {
		return fmt.Errorf("save note: %w", err)
	}
	return nil
}

// saveFailureNote records a placeholder note so the failure is visible in
// the notes listing, not just in task status.
func (o *GenerationOrchestrator) saveFailureNote(ctx context.Context, clusterID string, cause error) {
	note := &models.Note{
		ID:              uuid.NewString(),
		ClusterID:       clusterID,
		MarkdownContent: fmt.Sprintf("# Generation Failed\n\nError: %v", cause),
		Status:          models.NoteStatusFailed,
		CreatedAt:       time.Now().UTC(),
	}
	if err := o.deps.Notes.CreateNote(ctx, note); err != nil {
		log.Errorf("Failed to save failure note for cluster %s: %v", clusterID, err)
	}
}

// pause sleeps for the rate-limit delay, returning early if ctx is done.
func (o *GenerationOrchestrator) pause(ctx context.Context) error {
	timer := time.NewTimer(o.deps.RateLimitDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// assembleSource concatenates the cluster's mapped documents in mapping
// order; a cluster without a mapping uses every extracted document in the
// session.
func assembleSource(cluster *models.Cluster, documents *sessionDocuments) string {
	var parts []string
	if len(cluster.SourceMapping) > 0 {
		for _, name := range cluster.SourceMapping {
			if text, ok := documents.texts[name]; ok {
				parts = append(parts, text)
			}
		}
	} else {
		for _, name := range documents.order {
			parts = append(parts, documents.texts[name])
		}
	}
	return strings.Join(parts, "\n\n")
}

// truncateRunes cuts s to at most max runes without splitting a rune.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
