package primary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cornell/internal/models"
	"cornell/internal/store"
)

var _ store.NoteStore = (*StoreImpl)(nil)

func (s *StoreImpl) CreateNote(ctx context.Context, note *models.Note) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, cluster_id, markdown_content, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		note.ID, note.ClusterID, note.MarkdownContent, note.Status, note.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

func (s *StoreImpl) GetNote(ctx context.Context, id string) (*models.Note, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, cluster_id, markdown_content, status, created_at FROM notes WHERE id = ?`, id)

	var note models.Note
	err := row.Scan(&note.ID, &note.ClusterID, &note.MarkdownContent, &note.Status, &note.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return &note, nil
}

func (s *StoreImpl) DeleteNotesByCluster(ctx context.Context, clusterID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE cluster_id = ?`, clusterID)
	if err != nil {
		return fmt.Errorf("delete notes for cluster: %w", err)
	}
	return nil
}

func (s *StoreImpl) LatestNoteByCluster(ctx context.Context, clusterID string) (*models.Note, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, cluster_id, markdown_content, status, created_at
		 FROM notes WHERE cluster_id = ? ORDER BY created_at DESC LIMIT 1`, clusterID)

	var note models.Note
	err := row.Scan(&note.ID, &note.ClusterID, &note.MarkdownContent, &note.Status, &note.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest note for cluster: %w", err)
	}
	return &note, nil
}
