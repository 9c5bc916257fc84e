package source

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/elum-utils/toxicity/lexicon"
)

func TestMemorySource(t *testing.T) {
	m := NewMemorySource(lexicon.Spec{Name: "insults", Terms: []string{"idiot"}, Weight: 0.5})
	m.Put(lexicon.Spec{Name: "spam", Terms: []string{"buy now"}, Weight: 0.3})
	m.Put(lexicon.Spec{Name: "insults", Terms: []string{"idiot", "moron"}, Weight: 0.5})

	specs, err := m.Categories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 2 || specs[0].Name != "insults" || len(specs[0].Terms) != 2 {
		t.Fatalf("unexpected specs: %+v", specs)
	}
	specs[0].Terms[0] = "changed"
	again, _ := m.Categories(context.Background())
	if again[0].Terms[0] != "idiot" {
		t.Fatalf("Categories must return a copy")
	}
}

func TestLoad(t *testing.T) {
	lex, err := Load(context.Background(), NewMemorySource(lexicon.DefaultSpecs()...))
	if err != nil {
		t.Fatal(err)
	}
	if lex.Len() != len(lexicon.DefaultSpecs()) {
		t.Fatalf("unexpected lexicon size: %d", lex.Len())
	}
	if _, err := Load(context.Background(), nil); err == nil {
		t.Fatalf("expected nil source error")
	}
	_, err = Load(context.Background(), NewMemorySource(lexicon.Spec{Name: "x", Weight: 2, Terms: []string{"a"}}))
	if !errors.Is(err, lexicon.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	if _, err := NewFileSource(" "); err == nil {
		t.Fatalf("expected empty path error")
	}
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	doc := "categories:\n  - name: threats\n    terms: [\"hurt you\"]\n    weight: 0.8\n    color: \"#8B0000\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := NewFileSource(path)
	if err != nil {
		t.Fatal(err)
	}
	lex, err := Load(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := lex.Lookup("threats"); !ok || c.Weight() != 0.8 {
		t.Fatalf("unexpected category: %+v ok=%v", c, ok)
	}

	missing, _ := NewFileSource(filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := missing.Categories(context.Background()); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestNewSQLSourceNilDB(t *testing.T) {
	if _, err := NewSQLSource(nil, "pgx", "t"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSQLSourceWithStubDriver(t *testing.T) {
	store := &stubStore{}
	db := openStub(t, "toxicity_stub_sql", store)

	s, err := NewSQLSource(db, "sqlite", "")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	specs := []lexicon.Spec{
		{Name: "insults", Terms: []string{"idiot", "moron"}, Weight: 0.5, Color: "#FF8C00"},
		{Name: "hate_speech", Patterns: []string{`\bhate\s+(?:you|them)\b`}, Weight: 0.6, Color: "#8B0000"},
	}
	if err := s.Seed(ctx, specs); err != nil {
		t.Fatal(err)
	}
	if err := s.Seed(ctx, specs); err != nil {
		t.Fatalf("reseeding must ignore duplicates: %v", err)
	}
	if len(store.rows) != 3 {
		t.Fatalf("unexpected row count: %d", len(store.rows))
	}
	if !strings.Contains(store.lastInsert, "?") || strings.Contains(store.lastInsert, "$1") {
		t.Fatalf("expected ? placeholders: %s", store.lastInsert)
	}

	got, err := s.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "insults" || got[1].Name != "hate_speech" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if strings.Join(got[0].Terms, ",") != "idiot,moron" || len(got[1].Patterns) != 1 || got[1].Weight != 0.6 {
		t.Fatalf("unexpected specs: %+v", got)
	}

	lex, err := Load(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if lex.Color("hate_speech") != "#8B0000" {
		t.Fatalf("unexpected color: %q", lex.Color("hate_speech"))
	}
}

func TestSQLSourceRejectsInconsistentRows(t *testing.T) {
	store := &stubStore{}
	db := openStub(t, "toxicity_stub_sql_bad", store)
	s, err := NewSQLSource(db, "pgx", "lexicon")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.Seed(ctx, []lexicon.Spec{{Name: "spam", Terms: []string{"buy now"}, Weight: 0.3}}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(store.lastInsert, "$7") {
		t.Fatalf("expected dollar placeholders: %s", store.lastInsert)
	}

	store.rows = append(store.rows, stubRow{category: "spam", kind: KindTerm, value: "click here", weight: 0.9, ord: 1})
	if _, err := s.Categories(ctx); !errors.Is(err, lexicon.ErrMalformed) {
		t.Fatalf("expected ErrMalformed for conflicting weight, got %v", err)
	}

	store.rows = []stubRow{{category: "spam", kind: "regex", value: "x", weight: 0.3}}
	if _, err := s.Categories(ctx); !errors.Is(err, lexicon.ErrMalformed) {
		t.Fatalf("expected ErrMalformed for unknown kind, got %v", err)
	}
}

func openStub(t *testing.T, name string, store *stubStore) *sql.DB {
	t.Helper()
	sql.Register(name, &stubDriver{store: store})
	db, err := sql.Open(name, "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type stubRow struct {
	category, kind, value, color string
	weight                       float64
	position, ord                int64
}

type stubStore struct {
	mu         sync.Mutex
	rows       []stubRow
	lastInsert string
}

type stubDriver struct{ store *stubStore }

type stubConn struct{ store *stubStore }

type stubRows struct {
	data []stubRow
	idx  int
}

type stubResult struct{}

func (d *stubDriver) Open(string) (driver.Conn, error) { return &stubConn{store: d.store}, nil }

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not used") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not used") }

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	q := strings.ToLower(query)
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	switch {
	case strings.Contains(q, "create table"):
		return stubResult{}, nil
	case strings.Contains(q, "insert"):
		c.store.lastInsert = query
		row := stubRow{
			category: fmt.Sprint(args[0].Value),
			kind:     fmt.Sprint(args[1].Value),
			value:    fmt.Sprint(args[2].Value),
			weight:   args[3].Value.(float64),
			color:    fmt.Sprint(args[4].Value),
			position: args[5].Value.(int64),
			ord:      args[6].Value.(int64),
		}
		for _, r := range c.store.rows {
			if r.category == row.category && r.kind == row.kind && r.value == row.value {
				return nil, errors.New("UNIQUE constraint failed")
			}
		}
		c.store.rows = append(c.store.rows, row)
		return stubResult{}, nil
	default:
		return nil, errors.New("unsupported exec")
	}
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(strings.ToLower(query), "order by position, ord") {
		return nil, errors.New("unsupported query")
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	out := append([]stubRow(nil), c.store.rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].position != out[j].position {
			return out[i].position < out[j].position
		}
		return out[i].ord < out[j].ord
	})
	return &stubRows{data: out}, nil
}

func (r *stubRows) Columns() []string { return []string{"category", "kind", "value", "weight", "color"} }
func (r *stubRows) Close() error      { return nil }
func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.data) {
		return io.EOF
	}
	row := r.data[r.idx]
	dest[0], dest[1], dest[2], dest[3], dest[4] = row.category, row.kind, row.value, row.weight, row.color
	r.idx++
	return nil
}

func (stubResult) LastInsertId() (int64, error) { return 0, nil }
func (stubResult) RowsAffected() (int64, error) { return 1, nil }

var _ driver.Driver = (*stubDriver)(nil)
var _ driver.Conn = (*stubConn)(nil)
var _ driver.ExecerContext = (*stubConn)(nil)
var _ driver.QueryerContext = (*stubConn)(nil)
var _ driver.Rows = (*stubRows)(nil)
