package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ultramynd/notesync/internal/types"
)

const embeddingSourceColumns = `
	t.takeaway_id, t.user_id, t.content, t.category_id, t.source_id,
	c.category_name, s.source_name, t.created_at, t.updated_at
	FROM takeaways t
	LEFT JOIN categories c ON c.category_id = t.category_id AND c.user_id = t.user_id
	LEFT JOIN sources s ON s.source_id = t.source_id AND s.user_id = t.user_id`

// LoadEmbeddingSources returns the live takeaways among ids together with
// their category and source names.
func (s *SQLStore) LoadEmbeddingSources(ctx context.Context, ownerID string, takeawayIDs []string) ([]types.EmbeddingSource, error) {
	if len(takeawayIDs) == 0 {
		return []types.EmbeddingSource{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(takeawayIDs)), ", ")
	query := `SELECT ` + embeddingSourceColumns + `
		WHERE t.user_id = ? AND t.is_deleted = ? AND t.takeaway_id IN (` + placeholders + `)
		ORDER BY t.updated_at`

	args := make([]any, 0, len(takeawayIDs)+2)
	args = append(args, ownerID, false)
	for _, id := range takeawayIDs {
		args = append(args, id)
	}

	return s.queryEmbeddingSources(ctx, query, args...)
}

// GetStaleEmbeddings returns live takeaways, across owners, whose embedding
// is missing or older than the takeaway. Rows marked failed for the current
// version are not returned.
func (s *SQLStore) GetStaleEmbeddings(ctx context.Context, limit int) ([]types.EmbeddingSource, error) {
	query := `SELECT ` + embeddingSourceColumns + `
		LEFT JOIN takeaway_embeddings e ON e.takeaway_id = t.takeaway_id
		WHERE t.is_deleted = ? AND (e.takeaway_id IS NULL OR e.source_updated_at < t.updated_at)
		ORDER BY t.updated_at
		LIMIT ?`
	return s.queryEmbeddingSources(ctx, query, false, limit)
}

func (s *SQLStore) queryEmbeddingSources(ctx context.Context, query string, args ...any) ([]types.EmbeddingSource, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query embedding sources: %w", err)
	}
	defer rows.Close()

	out := make([]types.EmbeddingSource, 0)
	for rows.Next() {
		var src types.EmbeddingSource
		var sourceID, categoryName, sourceName sql.NullString
		var created, updated dbTime
		if err := rows.Scan(
			&src.TakeawayID, &src.OwnerID, &src.Content, &src.CategoryID, &sourceID,
			&categoryName, &sourceName, &created, &updated,
		); err != nil {
			return nil, fmt.Errorf("scan embedding source: %w", err)
		}
		src.SourceID = sourceID.String
		src.CategoryName = categoryName.String
		src.SourceName = sourceName.String
		src.CreatedAt = created.ptr()
		src.UpdatedAt = updated.Time
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embedding sources: %w", err)
	}
	return out, nil
}

// SaveEmbedding stores the vector for a takeaway. An embedding built from an
// older takeaway version never replaces a newer one.
func (s *SQLStore) SaveEmbedding(ctx context.Context, e types.TakeawayEmbedding) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode embedding metadata: %w", err)
	}
	return s.upsertEmbedding(ctx, e.OwnerID, e.TakeawayID, packEmbedding(e.Embedding), e.Content, e.Model,
		string(meta), types.EmbeddingStatusComplete, e.SourceUpdatedAt)
}

// MarkEmbeddingFailed records that the given takeaway version could not be
// embedded so the sweep stops picking it up until the takeaway changes.
func (s *SQLStore) MarkEmbeddingFailed(ctx context.Context, ownerID, takeawayID string, sourceUpdatedAt time.Time) error {
	return s.upsertEmbedding(ctx, ownerID, takeawayID, nil, "", "", "{}", types.EmbeddingStatusFailed, sourceUpdatedAt)
}

func (s *SQLStore) upsertEmbedding(ctx context.Context, ownerID, takeawayID string, vec []byte, content, model, meta, status string, sourceUpdatedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO takeaway_embeddings
			(takeaway_id, id, user_id, embedding, content, model, metadata, status, source_updated_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (takeaway_id) DO UPDATE SET
			embedding = excluded.embedding,
			content = excluded.content,
			model = excluded.model,
			metadata = excluded.metadata,
			status = excluded.status,
			source_updated_at = excluded.source_updated_at,
			updated_at = excluded.updated_at
		WHERE takeaway_embeddings.user_id = excluded.user_id
			AND takeaway_embeddings.source_updated_at <= excluded.source_updated_at
	`),
		takeawayID, uuid.NewString(), ownerID, vec, content, model, meta, status,
		s.dialect.timeArg(sourceUpdatedAt), s.dialect.timeArg(s.nowUTC()),
	)
	if err != nil {
		return fmt.Errorf("upsert embedding %s: %w", takeawayID, err)
	}
	return nil
}

// GetEmbedding returns the stored embedding row for a takeaway and its status.
func (s *SQLStore) GetEmbedding(ctx context.Context, takeawayID string) (*types.TakeawayEmbedding, string, error) {
	var e types.TakeawayEmbedding
	var vec []byte
	var meta, status string
	var sourceUpdated dbTime

	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT takeaway_id, user_id, embedding, content, model, metadata, status, source_updated_at
		FROM takeaway_embeddings WHERE takeaway_id = ?
	`), takeawayID).Scan(&e.TakeawayID, &e.OwnerID, &vec, &e.Content, &e.Model, &meta, &status, &sourceUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get embedding: %w", err)
	}

	if len(vec) > 0 {
		e.Embedding = unpackEmbedding(vec)
	}
	if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
		return nil, "", fmt.Errorf("parse embedding metadata: %w", err)
	}
	e.SourceUpdatedAt = sourceUpdated.Time
	return &e, status, nil
}

func packEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func unpackEmbedding(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
