package telemetry

import (
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	dbSystemKey       = "db.system"
	dbTableKey        = "db.table"
	dbOperationKey    = "db.operation"
	dbStatementKey    = "db.statement"
	dbRowsAffectedKey = "db.rows_affected"
	interactionKey    = "huddle.interaction"

	spanInstanceKey = "huddle:span"
	maxStatementLen = 500
)

// interactionTables maps the tables written by user interactions to the
// kind recorded on their spans, matching the interactions_total labels.
var interactionTables = map[string]string{
	"posts":         "post",
	"post_likes":    "like",
	"comments":      "comment",
	"replies":       "reply",
	"follows":       "follow",
	"notifications": "notification",
	"chat_messages": "chat",
}

// InteractionForTable returns the interaction kind stored in table, if any
func InteractionForTable(table string) (string, bool) {
	kind, ok := interactionTables[table]
	return kind, ok
}

// GORMTracingPlugin returns a GORM plugin that opens a span per statement.
// dbSystem is the db.system attribute value, e.g. "postgres" or "sqlite".
// Spans on interaction tables also carry huddle.interaction.
func GORMTracingPlugin(dbSystem string) gorm.Plugin {
	return &tracingPlugin{
		tracer:   otel.Tracer("gorm"),
		dbSystem: dbSystem,
	}
}

type tracingPlugin struct {
	tracer   trace.Tracer
	dbSystem string
}

func (p *tracingPlugin) Name() string {
	return "huddle:tracing"
}

func (p *tracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Query().Before("gorm:query").Register("huddle:trace_query", p.start("SELECT")),
		cb.Query().After("gorm:query").Register("huddle:trace_query_end", p.end),
		cb.Create().Before("gorm:create").Register("huddle:trace_create", p.start("INSERT")),
		cb.Create().After("gorm:create").Register("huddle:trace_create_end", p.end),
		cb.Update().Before("gorm:update").Register("huddle:trace_update", p.start("UPDATE")),
		cb.Update().After("gorm:update").Register("huddle:trace_update_end", p.end),
		cb.Delete().Before("gorm:delete").Register("huddle:trace_delete", p.start("DELETE")),
		cb.Delete().After("gorm:delete").Register("huddle:trace_delete_end", p.end),
	)
}

func (p *tracingPlugin) start(operation string) func(*gorm.DB) {
	name := "db." + strings.ToLower(operation)
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		attrs := []attribute.KeyValue{
			attribute.String(dbSystemKey, p.dbSystem),
			attribute.String(dbTableKey, table),
			attribute.String(dbOperationKey, operation),
		}
		if kind, ok := InteractionForTable(table); ok {
			attrs = append(attrs, attribute.String(interactionKey, kind))
		}

		_, span := p.tracer.Start(ctx, name+" "+table, trace.WithAttributes(attrs...))
		db.InstanceSet(spanInstanceKey, span)
	}
}

func (p *tracingPlugin) end(db *gorm.DB) {
	raw, ok := db.InstanceGet(spanInstanceKey)
	if !ok {
		return
	}
	span, ok := raw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if sql := db.Statement.SQL.String(); sql != "" {
		if len(sql) > maxStatementLen {
			sql = sql[:maxStatementLen] + "... (truncated)"
		}
		span.SetAttributes(attribute.String(dbStatementKey, sql))
	}
	span.SetAttributes(attribute.Int64(dbRowsAffectedKey, db.RowsAffected))

	// A miss on First is routine for lookups, not a failed statement.
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
}
