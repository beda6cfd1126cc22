package primary

import (
	"context"
	"database/sql"
	"fmt"

	"cornell/internal/models"
	"cornell/internal/store"
)

var _ store.DocumentStore = (*StoreImpl)(nil)

func (s *StoreImpl) CreateDocument(ctx context.Context, doc *models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	defer tx.Rollback()

	// Filenames key cluster source mappings, so a session cannot hold the
	// same filename twice.
	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE session_id = ? AND filename = ?`,
		doc.SessionID, doc.Filename).Scan(&existing)
	if err != nil {
		return fmt.Errorf("check duplicate document: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("document %q: %w", doc.Filename, store.ErrDuplicate)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, session_id, filename, extracted_text, status, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.SessionID, doc.Filename, doc.ExtractedText, doc.Status, doc.ErrorMessage, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET document_count = document_count + 1 WHERE id = ?`, doc.SessionID)
	if err != nil {
		return fmt.Errorf("update session document count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *StoreImpl) ListDocumentsBySession(ctx context.Context, sessionID string) ([]*models.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT id, session_id, filename, extracted_text, status, error_message, created_at
		 FROM documents WHERE session_id = ? ORDER BY filename`, sessionID)
}

func (s *StoreImpl) ExtractedDocumentsBySession(ctx context.Context, sessionID string) ([]*models.Document, error) {
	return s.queryDocuments(ctx,
		`SELECT id, session_id, filename, extracted_text, status, error_message, created_at
		 FROM documents WHERE session_id = ? AND status = ? ORDER BY filename`,
		sessionID, models.DocumentStatusExtracted)
}

func (s *StoreImpl) queryDocuments(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(rows *sql.Rows) (*models.Document, error) {
	var doc models.Document
	err := rows.Scan(&doc.ID, &doc.SessionID, &doc.Filename, &doc.ExtractedText,
		&doc.Status, &doc.ErrorMessage, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}
