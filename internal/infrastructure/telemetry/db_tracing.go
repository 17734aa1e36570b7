package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures GORM span instrumentation.
type DBTracingConfig struct {
	Enabled       bool
	DBName        string
	SlowQuery     time.Duration
	WithVariables bool // include bound values in db.statement; off in production
}

const queryStartKey = "telemetry:query_start"

// RegisterDBTracing installs the otelgorm plugin on db and adds callbacks that
// mark slow and failed statements on the active span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQuery <= 0 {
		cfg.SlowQuery = 200 * time.Millisecond
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.WithVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) { tx.InstanceSet(queryStartKey, time.Now()) }
	after := func(tx *gorm.DB) { annotateStatement(tx, cfg.SlowQuery) }

	cb := db.Callback()
	hooks := []struct {
		op       string
		register func(name string, before, after func(*gorm.DB)) error
	}{
		{"create", func(n string, b, a func(*gorm.DB)) error {
			if err := cb.Create().Before("gorm:create").Register(n+":before", b); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register(n+":after", a)
		}},
		{"query", func(n string, b, a func(*gorm.DB)) error {
			if err := cb.Query().Before("gorm:query").Register(n+":before", b); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register(n+":after", a)
		}},
		{"update", func(n string, b, a func(*gorm.DB)) error {
			if err := cb.Update().Before("gorm:update").Register(n+":before", b); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register(n+":after", a)
		}},
		{"delete", func(n string, b, a func(*gorm.DB)) error {
			if err := cb.Delete().Before("gorm:delete").Register(n+":before", b); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register(n+":after", a)
		}},
		{"raw", func(n string, b, a func(*gorm.DB)) error {
			if err := cb.Raw().Before("gorm:raw").Register(n+":before", b); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register(n+":after", a)
		}},
	}
	for _, h := range hooks {
		if err := h.register("telemetry:"+h.op, before, after); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.String("db_name", cfg.DBName),
		zap.Duration("slow_query_threshold", cfg.SlowQuery),
	)
	return nil
}

func annotateStatement(tx *gorm.DB, slow time.Duration) {
	if tx.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(tx.Statement.Context)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.RecordError(tx.Error)
		span.SetStatus(codes.Error, tx.Error.Error())
	}

	v, ok := tx.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	if start, ok := v.(time.Time); ok {
		if elapsed := time.Since(start); elapsed > slow {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
