package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/elum-utils/toxicity/adapters/classifier"
	"github.com/elum-utils/toxicity/adapters/logging"
	"github.com/elum-utils/toxicity/adapters/metrics"
	"github.com/elum-utils/toxicity/adapters/source"
	"github.com/elum-utils/toxicity/config"
	"github.com/elum-utils/toxicity/core"
	"github.com/elum-utils/toxicity/lexicon"
	"github.com/elum-utils/toxicity/scorer"
)

// app holds everything a command needs for one run.
type app struct {
	cfg      *config.Config
	core     *core.Core
	logger   *logging.ZapLogger
	registry *prometheus.Registry
	db       *sql.DB
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}

	lex, err := a.loadLexicon(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	collector, err := metrics.NewCollector(a.registry)
	if err != nil {
		a.Close()
		return nil, err
	}

	opt := core.Options{
		Lexicon: lex,
		Scorer: scorer.Options{
			DisableCaps:           cfg.Scorer.DisableCaps,
			DisablePunctuation:    cfg.Scorer.DisablePunctuation,
			DisableRepetition:     cfg.Scorer.DisableRepetition,
			DisablePersonalAttack: cfg.Scorer.DisablePersonalAttack,
			LexiconOnly:           cfg.Scorer.LexiconOnly,
		},
		Processed:     collector,
		Logger:        logger,
		MaxTextSize:   cfg.MaxTextSize,
		Workers:       cfg.Batch.Workers,
		CacheTTL:      cfg.Cache.TTL,
		CacheMaxBytes: cfg.Cache.MaxBytes,
		DisableCache:  cfg.Cache.Disabled,
	}
	if cfg.Classifier.BaseURL != "" {
		cl, err := classifier.New(classifier.Options{
			BaseURL: cfg.Classifier.BaseURL,
			APIKey:  cfg.Classifier.APIKey(),
			Timeout: cfg.Classifier.Timeout,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		if cfg.Classifier.Text {
			opt.TextClassifier = cl
		}
		if cfg.Classifier.Image {
			opt.ImageClassifier = cl
		}
	}
	a.core = core.New(opt)

	logger.Debug("toxicity ready", map[string]any{
		"categories": lex.Len(),
		"classifier": cfg.Classifier.BaseURL,
	})
	return a, nil
}

func (a *app) loadLexicon(ctx context.Context) (*lexicon.Lexicon, error) {
	lc := a.cfg.Lexicon
	switch {
	case lc.Path != "":
		src, err := source.NewFileSource(lc.Path)
		if err != nil {
			return nil, err
		}
		return source.Load(ctx, src)
	case lc.SQL.DSN != "":
		db, err := sql.Open(lc.SQL.Driver, lc.SQL.DSN)
		if err != nil {
			return nil, fmt.Errorf("open lexicon database: %w", err)
		}
		a.db = db
		src, err := source.NewSQLSource(db, lc.SQL.Driver, lc.SQL.Table)
		if err != nil {
			return nil, err
		}
		if lc.SQL.Seed {
			if err := src.EnsureSchema(ctx); err != nil {
				return nil, fmt.Errorf("ensure lexicon schema: %w", err)
			}
			if err := src.Seed(ctx, lexicon.DefaultSpecs()); err != nil {
				return nil, err
			}
		}
		return source.Load(ctx, src)
	default:
		return lexicon.Default()
	}
}

func (a *app) Close() {
	if a.core != nil {
		a.core.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.logger.Sync()
}
