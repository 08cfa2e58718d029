package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ultramynd/notesync/internal/types"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// entityTable describes how one entity kind maps onto its table.
// Every entity table has the layout
//
//	<key>, user_id, <fields...>, is_deleted, created_at, updated_at
//
// and the generic merge and read helpers build their SQL from it.
type entityTable[T any] struct {
	kind   types.EntityKind
	key    string
	fields []string
	// row returns the key, field values, tombstone flag and timestamp of a record.
	row func(T) (key string, fields []any, deleted bool, updatedAt time.Time)
	// scan reads "<key>, user_id, <fields...>, is_deleted, updated_at".
	scan func(rowScanner) (T, error)
}

func (t entityTable[T]) table() string {
	return string(t.kind)
}

func (t entityTable[T]) upsertSQL() string {
	cols := append([]string{t.key, "user_id"}, t.fields...)
	cols = append(cols, "is_deleted", "created_at", "updated_at")

	sets := make([]string, 0, len(t.fields)+2)
	for _, f := range t.fields {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", f, f))
	}
	sets = append(sets, "is_deleted = excluded.is_deleted", "updated_at = excluded.updated_at")

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s WHERE %s.user_id = excluded.user_id",
		t.table(),
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		t.key,
		strings.Join(sets, ", "),
		t.table(),
	)
}

func (t entityTable[T]) selectSinceSQL() string {
	cols := append([]string{t.key, "user_id"}, t.fields...)
	cols = append(cols, "is_deleted", "updated_at")
	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE user_id = ? AND updated_at > ? ORDER BY updated_at, %s",
		strings.Join(cols, ", "), t.table(), t.key,
	)
}

// mergeRows upserts a batch in a single transaction. The last record for
// a key wins. A key owned by someone else aborts the batch with
// ErrOwnerConflict.
func mergeRows[T any](ctx context.Context, s *SQLStore, t entityTable[T], ownerID string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}

	now := s.nowUTC()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.q(t.upsertSQL()))
		if err != nil {
			return fmt.Errorf("prepare %s upsert: %w", t.kind, err)
		}
		defer stmt.Close()

		for _, r := range rows {
			key, fields, deleted, updatedAt := t.row(r)
			if updatedAt.IsZero() {
				updatedAt = now
			}

			args := make([]any, 0, len(fields)+5)
			args = append(args, key, ownerID)
			args = append(args, fields...)
			args = append(args, deleted, s.dialect.timeArg(now), s.dialect.timeArg(updatedAt))

			res, err := stmt.ExecContext(ctx, args...)
			if err != nil {
				return fmt.Errorf("upsert %s %s: %w", t.kind, key, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("upsert %s %s: rows affected: %w", t.kind, key, err)
			}
			if n == 0 {
				return fmt.Errorf("upsert %s %s: %w", t.kind, key, ErrOwnerConflict)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("batch merged",
		"action", "merge",
		"entity", string(t.kind),
		"owner_id", ownerID,
		"count", len(rows),
	)
	return nil
}

// readSince returns the owner's rows with updated_at strictly after since.
func readSince[T any](ctx context.Context, s *SQLStore, t entityTable[T], ownerID string, since time.Time) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, s.q(t.selectSinceSQL()), ownerID, s.dialect.timeArg(since))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.kind, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.kind, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.kind, err)
	}
	return out, nil
}

var tagTable = entityTable[types.Tag]{
	kind:   types.KindTag,
	key:    "tag_id",
	fields: []string{"tag_name"},
	row: func(r types.Tag) (string, []any, bool, time.Time) {
		return r.ID, []any{r.Name}, r.IsDeleted, r.UpdatedAt
	},
	scan: func(sc rowScanner) (types.Tag, error) {
		var r types.Tag
		var updated dbTime
		err := sc.Scan(&r.ID, &r.OwnerID, &r.Name, &r.IsDeleted, &updated)
		r.UpdatedAt = updated.Time
		return r, err
	},
}

var categoryTable = entityTable[types.Category]{
	kind:   types.KindCategory,
	key:    "category_id",
	fields: []string{"category_name"},
	row: func(r types.Category) (string, []any, bool, time.Time) {
		return r.ID, []any{r.Name}, r.IsDeleted, r.UpdatedAt
	},
	scan: func(sc rowScanner) (types.Category, error) {
		var r types.Category
		var updated dbTime
		err := sc.Scan(&r.ID, &r.OwnerID, &r.Name, &r.IsDeleted, &updated)
		r.UpdatedAt = updated.Time
		return r, err
	},
}

var sourceTable = entityTable[types.Source]{
	kind:   types.KindSource,
	key:    "source_id",
	fields: []string{"category_id", "source_name"},
	row: func(r types.Source) (string, []any, bool, time.Time) {
		return r.ID, []any{r.CategoryID, r.Name}, r.IsDeleted, r.UpdatedAt
	},
	scan: func(sc rowScanner) (types.Source, error) {
		var r types.Source
		var updated dbTime
		err := sc.Scan(&r.ID, &r.OwnerID, &r.CategoryID, &r.Name, &r.IsDeleted, &updated)
		r.UpdatedAt = updated.Time
		return r, err
	},
}

var takeawayTable = entityTable[types.Takeaway]{
	kind:   types.KindTakeaway,
	key:    "takeaway_id",
	fields: []string{"category_id", "source_id", "content"},
	row: func(r types.Takeaway) (string, []any, bool, time.Time) {
		var sourceID any
		if r.SourceID != nil && *r.SourceID != "" {
			sourceID = *r.SourceID
		}
		return r.ID, []any{r.CategoryID, sourceID, r.Content}, r.IsDeleted, r.UpdatedAt
	},
	scan: func(sc rowScanner) (types.Takeaway, error) {
		var r types.Takeaway
		var sourceID sql.NullString
		var updated dbTime
		err := sc.Scan(&r.ID, &r.OwnerID, &r.CategoryID, &sourceID, &r.Content, &r.IsDeleted, &updated)
		if sourceID.Valid {
			r.SourceID = &sourceID.String
		}
		r.UpdatedAt = updated.Time
		return r, err
	},
}

var takeawayTagTable = entityTable[types.TakeawayTag]{
	kind:   types.KindTakeawayTag,
	key:    "takeaway_tag_id",
	fields: []string{"takeaway_id", "tag_id"},
	row: func(r types.TakeawayTag) (string, []any, bool, time.Time) {
		return r.ID, []any{r.TakeawayID, r.TagID}, r.IsDeleted, r.UpdatedAt
	},
	scan: func(sc rowScanner) (types.TakeawayTag, error) {
		var r types.TakeawayTag
		var updated dbTime
		err := sc.Scan(&r.ID, &r.OwnerID, &r.TakeawayID, &r.TagID, &r.IsDeleted, &updated)
		r.UpdatedAt = updated.Time
		return r, err
	},
}

func (s *SQLStore) MergeTags(ctx context.Context, ownerID string, rows []types.Tag) error {
	return mergeRows(ctx, s, tagTable, ownerID, rows)
}

func (s *SQLStore) MergeCategories(ctx context.Context, ownerID string, rows []types.Category) error {
	return mergeRows(ctx, s, categoryTable, ownerID, rows)
}

func (s *SQLStore) MergeSources(ctx context.Context, ownerID string, rows []types.Source) error {
	return mergeRows(ctx, s, sourceTable, ownerID, rows)
}

func (s *SQLStore) MergeTakeaways(ctx context.Context, ownerID string, rows []types.Takeaway) error {
	return mergeRows(ctx, s, takeawayTable, ownerID, rows)
}

func (s *SQLStore) MergeTakeawayTags(ctx context.Context, ownerID string, rows []types.TakeawayTag) error {
	return mergeRows(ctx, s, takeawayTagTable, ownerID, rows)
}

func (s *SQLStore) TagsSince(ctx context.Context, ownerID string, since time.Time) ([]types.Tag, error) {
	return readSince(ctx, s, tagTable, ownerID, since)
}

func (s *SQLStore) CategoriesSince(ctx context.Context, ownerID string, since time.Time) ([]types.Category, error) {
	return readSince(ctx, s, categoryTable, ownerID, since)
}

func (s *SQLStore) SourcesSince(ctx context.Context, ownerID string, since time.Time) ([]types.Source, error) {
	return readSince(ctx, s, sourceTable, ownerID, since)
}

func (s *SQLStore) TakeawaysSince(ctx context.Context, ownerID string, since time.Time) ([]types.Takeaway, error) {
	return readSince(ctx, s, takeawayTable, ownerID, since)
}

func (s *SQLStore) TakeawayTagsSince(ctx context.Context, ownerID string, since time.Time) ([]types.TakeawayTag, error) {
	return readSince(ctx, s, takeawayTagTable, ownerID, since)
}
