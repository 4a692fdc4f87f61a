package dictionary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the dictionary_rules table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
//
// The unique constraint on (incorrect, correct) makes concurrent learners
// idempotent: two requests racing to insert the same rule both succeed, and
// only one row is written.
const Schema = `
CREATE TABLE IF NOT EXISTS dictionary_rules (
    id         BIGSERIAL PRIMARY KEY,
    incorrect  TEXT NOT NULL,
    correct    TEXT NOT NULL,
    category   TEXT NOT NULL DEFAULT '自動学習',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (incorrect, correct)
);
CREATE INDEX IF NOT EXISTS idx_dictionary_rules_incorrect ON dictionary_rules(incorrect);
CREATE INDEX IF NOT EXISTS idx_dictionary_rules_created_at ON dictionary_rules(created_at DESC);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// dictionary_rules table and indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("dictionary: migrate: %w", err)
	}
	return nil
}

// ListAll implements [Store.ListAll].
func (s *PostgresStore) ListAll(ctx context.Context) ([]Rule, error) {
	const query = `
		SELECT id, incorrect, correct, category, created_at
		FROM dictionary_rules
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dictionary: list: %w", err)
	}
	return scanRules(rows, "list")
}

// FindByIncorrect implements [Store.FindByIncorrect].
func (s *PostgresStore) FindByIncorrect(ctx context.Context, text string) ([]Rule, error) {
	const query = `
		SELECT id, incorrect, correct, category, created_at
		FROM dictionary_rules
		WHERE incorrect = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query, text)
	if err != nil {
		return nil, fmt.Errorf("dictionary: find %q: %w", text, err)
	}
	return scanRules(rows, "find")
}

// Search implements [Store.Search] using a case-insensitive substring match
// over both sides of the rule.
func (s *PostgresStore) Search(ctx context.Context, query string) ([]Rule, error) {
	const sql = `
		SELECT id, incorrect, correct, category, created_at
		FROM dictionary_rules
		WHERE $1 = '' OR incorrect ILIKE $2 OR correct ILIKE $2
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, sql, query, "%"+escapeLike(query)+"%")
	if err != nil {
		return nil, fmt.Errorf("dictionary: search %q: %w", query, err)
	}
	return scanRules(rows, "search")
}

// InsertMany implements [Store.InsertMany]. All rules are written in a
// single multi-row INSERT so the batch succeeds or fails as a whole.
// ON CONFLICT DO NOTHING keeps concurrent duplicate submissions idempotent;
// only the rows actually inserted are returned.
func (s *PostgresStore) InsertMany(ctx context.Context, rules []Rule) ([]Rule, error) {
	if len(rules) == 0 {
		return nil, nil
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`INSERT INTO dictionary_rules (incorrect, correct, category) VALUES `)
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		category := r.Category
		if category == "" {
			category = CategoryAutoLearned
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d)", len(args)+1, len(args)+2, len(args)+3)
		args = append(args, strings.TrimSpace(r.Incorrect), strings.TrimSpace(r.Correct), category)
	}
	sb.WriteString(` ON CONFLICT (incorrect, correct) DO NOTHING
		RETURNING id, incorrect, correct, category, created_at`)

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("dictionary: insert: %w", err)
	}
	return scanRules(rows, "insert")
}

// scanRules drains rows into a []Rule, closing them when done.
func scanRules(rows pgx.Rows, op string) ([]Rule, error) {
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.ID, &r.Incorrect, &r.Correct, &r.Category, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("dictionary: %s scan: %w", op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dictionary: %s: %w", op, err)
	}
	return out, nil
}

// escapeLike escapes LIKE wildcards so user queries match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// IsDuplicateKeyError checks whether a PostgreSQL error is a
// unique-violation (SQLSTATE 23505).
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
