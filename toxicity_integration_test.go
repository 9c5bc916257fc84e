package toxicity_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/elum-utils/toxicity"
	"github.com/elum-utils/toxicity/adapters/classifier"
	"github.com/elum-utils/toxicity/adapters/logging"
	"github.com/elum-utils/toxicity/adapters/metrics"
	"github.com/elum-utils/toxicity/adapters/source"
	"github.com/elum-utils/toxicity/lexicon"
)

func TestScoreWithBuiltInLexicon(t *testing.T) {
	r := toxicity.Score("you are stupid")
	if !r.Toxic || r.Severity != toxicity.SeverityCritical {
		t.Fatalf("unexpected result: %+v", r)
	}
	if r := toxicity.Score("hi"); r.Score != 0 || r.Toxic {
		t.Fatalf("short text must be zero: %+v", r)
	}
}

func TestModerationPipeline_SQLLexiconAndModelService(t *testing.T) {
	registerSQLStub()
	db, err := sql.Open("toxicity_it_sql", "")
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	src, err := source.NewSQLSource(db, "sqlite", "")
	if err != nil {
		t.Fatalf("new sql source: %v", err)
	}
	if err := src.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := src.Seed(ctx, lexicon.DefaultSpecs()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	lex, err := source.Load(ctx, src)
	if err != nil {
		t.Fatalf("load lexicon: %v", err)
	}
	if lex.Len() != len(lexicon.DefaultSpecs()) {
		t.Fatalf("unexpected lexicon size: %d", lex.Len())
	}

	var textCalls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/api/detect/text":
			textCalls.Add(1)
			if strings.Contains(body["text"], "stupid") {
				_, _ = io.WriteString(w, `{"success":true,"isCyberbullying":true,"score":0.95,"model":"T5-classifier"}`)
				return
			}
			_, _ = io.WriteString(w, `{"success":true,"isCyberbullying":false,"score":0.9,"model":"T5-classifier"}`)
		case "/api/detect/image":
			_, _ = io.WriteString(w, `{"success":true,"isCyberbullying":true,"confidence":0.7,"model":"ConvNeXt-Tiny"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	model, err := classifier.New(classifier.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}
	logCore, logs := observer.New(zapcore.DebugLevel)

	cb := &callbackCounter{}
	f := toxicity.New(toxicity.Options{
		Lexicon:         lex,
		TextClassifier:  model,
		ImageClassifier: model,
		CallbackHandler: cb,
		Processed:       collector,
		Logger:          logging.Wrap(zap.New(logCore)),
	})
	defer f.Close()

	image := []byte{0x89, 'P', 'N', 'G'}
	contents := []toxicity.Content{
		{ID: "c1", User: 101, Text: "you are stupid"},
		{ID: "c2", User: 102, Text: "have a wonderful day"},
		{ID: "c3", User: 103, Text: "you are stupid", Image: image},
		{ID: "c4", User: 104, Image: image},
	}
	out, err := f.ProcessBatch(ctx, contents)
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}

	if !out[0].Toxic || out[0].Severity != toxicity.SeverityCritical || out[0].Rules == nil {
		t.Fatalf("unexpected c1: %+v", out[0])
	}
	if out[1].Toxic || out[1].Severity != toxicity.SeverityNone {
		t.Fatalf("unexpected c2: %+v", out[1])
	}
	if !out[2].Toxic || out[2].Score <= 0.8 || len(out[2].Combined.Modalities()) != 2 {
		t.Fatalf("unexpected c3: %+v", out[2])
	}
	if !out[3].Toxic || out[3].Severity != toxicity.SeverityHigh || out[3].Rules != nil {
		t.Fatalf("unexpected c4: %+v", out[3])
	}

	if cb.critical.Load() != 2 || cb.clean.Load() != 1 || cb.high.Load() != 1 {
		t.Fatalf("unexpected callbacks: clean=%d high=%d critical=%d", cb.clean.Load(), cb.high.Load(), cb.critical.Load())
	}
	if got := testutil.ToFloat64(collector.Moderations.WithLabelValues("critical", "true")); got != 2 {
		t.Fatalf("unexpected critical metric: %v", got)
	}
	before := textCalls.Load()
	if _, err := f.ProcessContent(ctx, contents[0]); err != nil {
		t.Fatalf("process: %v", err)
	}
	if textCalls.Load() != before {
		t.Fatalf("repeated text must hit the verdict cache")
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 0 {
		t.Fatalf("unexpected warnings: %+v", logs.FilterLevelExact(zapcore.WarnLevel).All())
	}
	if h := f.Health(); h.TextClassifier != "http" || h.Categories != lex.Len() {
		t.Fatalf("unexpected health: %+v", h)
	}
}

// Manual integration test against a running model service.
//
// Required env:
//
//	TOXICITY_IT_MODEL_URL (e.g. http://localhost:5000)
func TestModelServiceIntegration(t *testing.T) {
	loadDotEnv(".env")

	baseURL := strings.TrimSpace(os.Getenv("TOXICITY_IT_MODEL_URL"))
	if baseURL == "" {
		t.Skip("set TOXICITY_IT_MODEL_URL to run the model service integration test")
	}
	model, err := classifier.New(classifier.Options{
		BaseURL: baseURL,
		APIKey:  os.Getenv("TOXICITY_IT_MODEL_KEY"),
		Timeout: 20 * time.Second,
	})
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}

	f := toxicity.New(toxicity.Options{TextClassifier: model})
	defer f.Close()
	m, err := f.ProcessContent(context.Background(), toxicity.Content{ID: "it-1", Text: "you are stupid and ugly"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if m.Fallback {
		t.Skipf("model service unavailable in current environment")
	}
	if m.Score < 0 || m.Score > 1 || !m.Severity.Valid() {
		t.Fatalf("unexpected moderation: %+v", m)
	}
}

type callbackCounter struct {
	clean    atomic.Int64
	low      atomic.Int64
	medium   atomic.Int64
	high     atomic.Int64
	critical atomic.Int64
}

func (c *callbackCounter) OnClean(context.Context, toxicity.Event) error {
	c.clean.Add(1)
	return nil
}
func (c *callbackCounter) OnLow(context.Context, toxicity.Event) error {
	c.low.Add(1)
	return nil
}
func (c *callbackCounter) OnMedium(context.Context, toxicity.Event) error {
	c.medium.Add(1)
	return nil
}
func (c *callbackCounter) OnHigh(context.Context, toxicity.Event) error {
	c.high.Add(1)
	return nil
}
func (c *callbackCounter) OnCritical(context.Context, toxicity.Event) error {
	c.critical.Add(1)
	return nil
}

var sqlRegisterOnce sync.Once

func registerSQLStub() {
	sqlRegisterOnce.Do(func() {
		sql.Register("toxicity_it_sql", &sqlStubDriver{store: &sqlStubStore{}})
	})
}

type sqlStubRow struct {
	values   [5]driver.Value
	position int64
	ord      int64
}

type sqlStubStore struct {
	mu   sync.Mutex
	rows []sqlStubRow
	keys map[string]struct{}
}

type sqlStubDriver struct{ store *sqlStubStore }

type sqlStubConn struct{ store *sqlStubStore }

type sqlStubRows struct {
	data []sqlStubRow
	idx  int
}

type sqlStubResult struct{}

func (d *sqlStubDriver) Open(string) (driver.Conn, error) { return &sqlStubConn{store: d.store}, nil }

func (c *sqlStubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not used") }
func (c *sqlStubConn) Close() error                        { return nil }
func (c *sqlStubConn) Begin() (driver.Tx, error)           { return nil, fmt.Errorf("not used") }

func (c *sqlStubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	q := strings.ToLower(query)
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	switch {
	case strings.Contains(q, "create table"):
		return sqlStubResult{}, nil
	case strings.Contains(q, "insert"):
		key := fmt.Sprint(args[0].Value, "/", args[1].Value, "/", args[2].Value)
		if c.store.keys == nil {
			c.store.keys = make(map[string]struct{})
		}
		if _, exists := c.store.keys[key]; exists {
			return nil, fmt.Errorf("duplicate")
		}
		c.store.keys[key] = struct{}{}
		row := sqlStubRow{position: args[5].Value.(int64), ord: args[6].Value.(int64)}
		for i := range row.values {
			row.values[i] = args[i].Value
		}
		c.store.rows = append(c.store.rows, row)
		return sqlStubResult{}, nil
	default:
		return nil, fmt.Errorf("unsupported exec")
	}
}

func (c *sqlStubConn) QueryContext(context.Context, string, []driver.NamedValue) (driver.Rows, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	out := append([]sqlStubRow(nil), c.store.rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].position != out[j].position {
			return out[i].position < out[j].position
		}
		return out[i].ord < out[j].ord
	})
	return &sqlStubRows{data: out}, nil
}

func (r *sqlStubRows) Columns() []string {
	return []string{"category", "kind", "value", "weight", "color"}
}
func (r *sqlStubRows) Close() error { return nil }
func (r *sqlStubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.idx].values[:])
	r.idx++
	return nil
}

func (sqlStubResult) LastInsertId() (int64, error) { return 0, nil }
func (sqlStubResult) RowsAffected() (int64, error) { return 1, nil }

var _ driver.Driver = (*sqlStubDriver)(nil)
var _ driver.Conn = (*sqlStubConn)(nil)
var _ driver.ExecerContext = (*sqlStubConn)(nil)
var _ driver.QueryerContext = (*sqlStubConn)(nil)
var _ driver.Rows = (*sqlStubRows)(nil)

func loadDotEnv(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, strings.Trim(strings.TrimSpace(val), `"'`))
		}
	}
}
