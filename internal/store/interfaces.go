package store

import (
	"context"

	"cornell/internal/models"
)

// SessionStore persists study sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, limit, offset int) ([]*models.Session, error)
	UpdateSessionStatus(ctx context.Context, id, status string) error
}

// DocumentStore persists uploaded source documents and their extracted text.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	ListDocumentsBySession(ctx context.Context, sessionID string) ([]*models.Document, error)
	// ExtractedDocumentsBySession returns only documents whose text
	// extraction succeeded, in filename order.
	ExtractedDocumentsBySession(ctx context.Context, sessionID string) ([]*models.Document, error)
}

// ClusterStore persists topic clusters within a session.
type ClusterStore interface {
	CreateCluster(ctx context.Context, cluster *models.Cluster) error
	GetCluster(ctx context.Context, id string) (*models.Cluster, error)
	ListClustersBySession(ctx context.Context, sessionID string) ([]*models.Cluster, error)
	UpdateCluster(ctx context.Context, cluster *models.Cluster) error
	DeleteCluster(ctx context.Context, id string) error
}

// NoteStore persists generated notes. A cluster holds at most the notes of
// its most recent generation run; regeneration deletes before it writes.
type NoteStore interface {
	CreateNote(ctx context.Context, note *models.Note) error
	GetNote(ctx context.Context, id string) (*models.Note, error)
	DeleteNotesByCluster(ctx context.Context, clusterID string) error
	LatestNoteByCluster(ctx context.Context, clusterID string) (*models.Note, error)
}
