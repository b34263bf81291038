package domain

import "time"

// IndexType is a static catalog entry describing one indexable category.
// Its ID doubles as the category string (e.g. "TRANSFER", "SWAP").
type IndexType struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// SchemaTemplate is the versioned SQL associated with an index type:
// one CREATE TABLE statement plus an ordered list of CREATE INDEX statements,
// all parameterized by {schema} and {table_name} placeholders.
type SchemaTemplate struct {
	ID            string    `db:"id"`
	IndexTypeID   string    `db:"index_type_id"`
	SchemaVersion string    `db:"schema_version"`
	CreationSQL   string    `db:"creation_sql"`
	IndexesSQL    []string  `db:"-"`
	CreatedAt     time.Time `db:"created_at"`
}
