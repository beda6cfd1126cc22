package primary

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cornell/internal/models"
	"cornell/internal/store"
)

var _ store.ClusterStore = (*StoreImpl)(nil)

func (s *StoreImpl) CreateCluster(ctx context.Context, cluster *models.Cluster) error {
	mapping, err := encodeSourceMapping(cluster.SourceMapping)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO clusters (id, session_id, title, source_mapping, order_index, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cluster.ID, cluster.SessionID, cluster.Title, mapping, cluster.OrderIndex, cluster.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create cluster: %w", err)
	}
	return nil
}

func (s *StoreImpl) GetCluster(ctx context.Context, id string) (*models.Cluster, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, title, source_mapping, order_index, created_at
		 FROM clusters WHERE id = ?`, id)

	cluster, err := scanCluster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cluster: %w", err)
	}
	return cluster, nil
}

func (s *StoreImpl) ListClustersBySession(ctx context.Context, sessionID string) ([]*models.Cluster, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, title, source_mapping, order_index, created_at
		 FROM clusters WHERE session_id = ? ORDER BY order_index, created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}
	defer rows.Close()

	var clusters []*models.Cluster
	for rows.Next() {
		cluster, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		clusters = append(clusters, cluster)
	}
	return clusters, rows.Err()
}

func (s *StoreImpl) UpdateCluster(ctx context.Context, cluster *models.Cluster) error {
	mapping, err := encodeSourceMapping(cluster.SourceMapping)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE clusters SET title = ?, source_mapping = ?, order_index = ? WHERE id = ?`,
		cluster.Title, mapping, cluster.OrderIndex, cluster.ID,
	)
	if err != nil {
		return fmt.Errorf("update cluster: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *StoreImpl) DeleteCluster(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clusters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete cluster: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCluster(row rowScanner) (*models.Cluster, error) {
	var cluster models.Cluster
	var mapping string
	err := row.Scan(&cluster.ID, &cluster.SessionID, &cluster.Title, &mapping,
		&cluster.OrderIndex, &cluster.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mapping), &cluster.SourceMapping); err != nil {
		return nil, fmt.Errorf("decode source mapping: %w", err)
	}
	return &cluster, nil
}

func encodeSourceMapping(mapping []string) (string, error) {
	if mapping == nil {
		mapping = []string{}
	}
	data, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("encode source mapping: %w", err)
	}
	return string(data), nil
}
