package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/nitishxyz/chainhook/internal/core/domain"
)

// CatalogRepo implements storage.CatalogRepository using PostgreSQL.
type CatalogRepo struct {
	db *DB
}

// NewCatalogRepo creates a new PostgreSQL catalog repository.
func NewCatalogRepo(db *DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// ListIndexTypes returns the index type catalog.
func (r *CatalogRepo) ListIndexTypes(ctx context.Context) ([]*domain.IndexType, error) {
	query := `SELECT id, name, description, created_at FROM index_types ORDER BY id`
	var types []*domain.IndexType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("failed to list index types: %w", err)
	}
	return types, nil
}

type templateRow struct {
	ID            string         `db:"id"`
	IndexTypeID   string         `db:"index_type_id"`
	SchemaVersion string         `db:"schema_version"`
	CreationSQL   string         `db:"creation_sql"`
	IndexesSQL    pq.StringArray `db:"indexes_sql"`
	CreatedAt     time.Time      `db:"created_at"`
}

// GetTemplateForType returns the newest template for an index type, or nil
// when the type has none. Versions are compared numerically per dotted
// segment; a lexical sort would rank 1.9.0 above 1.10.0.
func (r *CatalogRepo) GetTemplateForType(ctx context.Context, indexTypeID string) (*domain.SchemaTemplate, error) {
	var rows []templateRow
	query := `
		SELECT id, index_type_id, schema_version, creation_sql, indexes_sql, created_at
		FROM schema_templates
		WHERE index_type_id = $1
	`
	if err := r.db.SelectContext(ctx, &rows, query, indexTypeID); err != nil {
		return nil, fmt.Errorf("failed to get schema template: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	newest := rows[0]
	for _, row := range rows[1:] {
		if newerVersion(row.SchemaVersion, newest.SchemaVersion) {
			newest = row
		}
	}

	return &domain.SchemaTemplate{
		ID:            newest.ID,
		IndexTypeID:   newest.IndexTypeID,
		SchemaVersion: newest.SchemaVersion,
		CreationSQL:   newest.CreationSQL,
		IndexesSQL:    []string(newest.IndexesSQL),
		CreatedAt:     newest.CreatedAt,
	}, nil
}

// newerVersion reports whether version a is newer than b. Dotted segments
// are compared as integers; non-numeric segments fall back to a string
// comparison for that segment.
func newerVersion(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var sa, sb string
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}
		na, errA := strconv.Atoi(sa)
		nb, errB := strconv.Atoi(sb)
		if errA == nil && errB == nil {
			if na != nb {
				return na > nb
			}
			continue
		}
		if sa != sb {
			return sa > sb
		}
	}
	return false
}

// Seed upserts the built-in catalog, leaving existing rows untouched.
func (r *CatalogRepo) Seed(
	ctx context.Context,
	types []domain.IndexType,
	templates []domain.SchemaTemplate,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range types {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO index_types (id, name, description)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING
		`, t.ID, t.Name, t.Description)
		if err != nil {
			return fmt.Errorf("failed to seed index type %s: %w", t.ID, err)
		}
	}

	for _, tpl := range templates {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO schema_templates (id, index_type_id, schema_version, creation_sql, indexes_sql)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, tpl.ID, tpl.IndexTypeID, tpl.SchemaVersion, tpl.CreationSQL, pq.Array(tpl.IndexesSQL))
		if err != nil {
			return fmt.Errorf("failed to seed schema template %s: %w", tpl.ID, err)
		}
	}

	return tx.Commit()
}
