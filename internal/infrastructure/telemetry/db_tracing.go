package telemetry

import (
	"errors"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds database tracing settings
type DBTracingConfig struct {
	Enabled bool
	// IncludeVariables puts bound query values into spans; keep off outside development
	IncludeVariables bool
	DBName           string
}

// RegisterDBTracing installs the otelgorm plugin and a callback that
// annotates spans with the table, affected rows and errors
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{}
	if cfg.DBName != "" {
		opts = append(opts, otelgorm.WithDBName(cfg.DBName))
	}
	if !cfg.IncludeVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	for _, reg := range []error{
		cb.Create().After("gorm:create").Register("telemetry:after_create", annotateSpan),
		cb.Query().After("gorm:query").Register("telemetry:after_query", annotateSpan),
		cb.Update().After("gorm:update").Register("telemetry:after_update", annotateSpan),
		cb.Delete().After("gorm:delete").Register("telemetry:after_delete", annotateSpan),
		cb.Row().After("gorm:row").Register("telemetry:after_row", annotateSpan),
		cb.Raw().After("gorm:raw").Register("telemetry:after_raw", annotateSpan),
	} {
		if reg != nil {
			return reg
		}
	}

	logger.Info("Database tracing enabled", zap.Bool("include_variables", cfg.IncludeVariables))
	return nil
}

func annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
}
