package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/elum-utils/toxicity/lexicon"
)

const (
	KindTerm    = "term"
	KindPattern = "pattern"

	defaultTable = "toxicity_lexicon"
)

// SQLSource reads category records from a generic SQL table. Each row holds
// one term or pattern; weight and color repeat on every row of a category.
type SQLSource struct {
	db     *sql.DB
	table  string
	dollar bool
}

// NewSQLSource creates a source over *sql.DB. driverName selects the
// placeholder style: "pgx" and "postgres" use $n, everything else uses ?.
func NewSQLSource(db *sql.DB, driverName, table string) (*SQLSource, error) {
	if db == nil {
		return nil, errors.New("source: db is nil")
	}
	if strings.TrimSpace(table) == "" {
		table = defaultTable
	}
	switch strings.ToLower(driverName) {
	case "pgx", "postgres", "postgresql":
		return &SQLSource{db: db, table: table, dollar: true}, nil
	}
	return &SQLSource{db: db, table: table}, nil
}

// EnsureSchema creates table if missing.
func (s *SQLSource) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	category TEXT NOT NULL,
	kind TEXT NOT NULL,
	value TEXT NOT NULL,
	weight DOUBLE PRECISION NOT NULL,
	color TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL DEFAULT 0,
	ord INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (category, kind, value)
)`, s.table)
	_, err := s.db.ExecContext(ctx, q)
	return err
}

// Seed writes specs in order. Rows that already exist are left untouched.
func (s *SQLSource) Seed(ctx context.Context, specs []lexicon.Spec) error {
	q := fmt.Sprintf(`INSERT INTO %s (category, kind, value, weight, color, position, ord) VALUES (%s)`,
		s.table, s.placeholders(7))
	for pos, spec := range specs {
		ord := 0
		insert := func(kind, value string) error {
			_, err := s.db.ExecContext(ctx, q, spec.Name, kind, value, spec.Weight, spec.Color, pos, ord)
			ord++
			if err == nil || isDuplicate(err) {
				return nil
			}
			return fmt.Errorf("source: seed %s/%s: %w", spec.Name, value, err)
		}
		for _, term := range spec.Terms {
			if err := insert(KindTerm, term); err != nil {
				return err
			}
		}
		for _, pattern := range spec.Patterns {
			if err := insert(KindPattern, pattern); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SQLSource) Categories(ctx context.Context) ([]lexicon.Spec, error) {
	q := fmt.Sprintf(`SELECT category, kind, value, weight, color FROM %s ORDER BY position, ord`, s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]lexicon.Spec, 0, 16)
	index := make(map[string]int)
	for rows.Next() {
		var (
			category, kind, value, color string
			weight                       float64
		)
		if scanErr := rows.Scan(&category, &kind, &value, &weight, &color); scanErr != nil {
			return nil, scanErr
		}
		i, ok := index[category]
		if !ok {
			i = len(out)
			index[category] = i
			out = append(out, lexicon.Spec{Name: category, Weight: weight, Color: color})
		}
		spec := &out[i]
		if spec.Weight != weight || spec.Color != color {
			return nil, fmt.Errorf("%w: category %q has conflicting weight or color", lexicon.ErrMalformed, category)
		}
		switch kind {
		case KindTerm:
			spec.Terms = append(spec.Terms, value)
		case KindPattern:
			spec.Patterns = append(spec.Patterns, value)
		default:
			return nil, fmt.Errorf("%w: category %q has unknown kind %q", lexicon.ErrMalformed, category, kind)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLSource) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if s.dollar {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

func isDuplicate(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
