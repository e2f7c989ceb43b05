package sql

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// Context carries everything ambient to one query's compilation and
// execution: cancellation (embeds context.Context, so every blocking
// Transaction call can honor it), a structured logger, and a root
// tracing span. The functional-options constructor mirrors the
// teacher's sql.NewContext(ctx, sql.WithRootSpan(...), ...) shape
// (enginetest/engine_test.go TestRootSpanFinish).
type Context struct {
	context.Context

	SessionID uuid.UUID
	logger    *logrus.Entry
	rootSpan  opentracing.Span
	tracer    opentracing.Tracer
	statsRoot string
	stats     StatsProvider
}

// ContextOption configures a Context at construction time.
type ContextOption func(*Context)

// WithLogger overrides the default logger.
func WithLogger(l *logrus.Entry) ContextOption {
	return func(c *Context) { c.logger = l }
}

// WithStatsRoot overrides the directory ANALYZE writes column meta
// files under (spec §6: "<stats_root>/<table_name>/<unix_seconds>/
// <column_id>"). Defaults to DefaultStatsRoot.
func WithStatsRoot(dir string) ContextOption {
	return func(c *Context) { c.statsRoot = dir }
}

// WithStatsProvider attaches the ANALYZE-backed estimator the hep
// optimizer's index-selection rules consult (spec §4.7). Leaving it
// unset (the default) degrades every rule to its stats-free
// first-match heuristic — never an error.
func WithStatsProvider(p StatsProvider) ContextOption {
	return func(c *Context) { c.stats = p }
}

// WithRootSpan attaches an already-started span as the query's root
// span; StartSpan parents new spans to it.
func WithRootSpan(span opentracing.Span) ContextOption {
	return func(c *Context) { c.rootSpan = span }
}

// WithTracer overrides the tracer StartSpan uses (a no-op tracer by
// default).
func WithTracer(t opentracing.Tracer) ContextOption {
	return func(c *Context) { c.tracer = t }
}

// NewContext builds a query Context, wrapping a stdlib context.Context
// for cancellation.
func NewContext(parent context.Context, opts ...ContextOption) *Context {
	c := &Context{
		Context:   parent,
		SessionID: uuid.NewV4(),
		logger:    logrus.NewEntry(logrus.StandardLogger()),
		tracer:    opentracing.NoopTracer{},
		statsRoot: DefaultStatsRoot,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewEmptyContext is the zero-configuration constructor tests reach
// for, matching sql.NewEmptyContext() in the teacher's test suite.
func NewEmptyContext() *Context {
	return NewContext(context.Background())
}

// Logger returns the structured logger for this query.
func (c *Context) Logger() *logrus.Entry { return c.logger }

// StartSpan starts a new span, parented to the context's root span
// when one was supplied. The executor and Engine.Query start no spans
// of their own.
func (c *Context) StartSpan(operationName string) opentracing.Span {
	if c.rootSpan != nil {
		return c.tracer.StartSpan(operationName, opentracing.ChildOf(c.rootSpan.Context()))
	}
	return c.tracer.StartSpan(operationName)
}

// RootSpan returns the query's root span, or nil.
func (c *Context) RootSpan() opentracing.Span { return c.rootSpan }

// StatsRoot returns the directory ANALYZE should write column meta
// files under.
func (c *Context) StatsRoot() string { return c.statsRoot }

// StatsProvider returns the optimizer's row-estimate source, or nil
// when none was configured.
func (c *Context) StatsProvider() StatsProvider { return c.stats }

// SetStatsProviderIfAbsent installs p as this Context's StatsProvider
// only when WithStatsProvider wasn't already supplied at construction.
// Engine.Query uses this to wire ANALYZE statistics from the
// statement's own transaction without overriding an explicit caller
// choice (and without needing the transaction to exist yet at
// NewContext time).
func (c *Context) SetStatsProviderIfAbsent(p StatsProvider) {
	if c.stats == nil {
		c.stats = p
	}
}

// DefaultStatsRoot is the column-meta directory used when no
// WithStatsRoot option overrides it, mirrored after
// original_source's DEFAULT_COLUMN_METAS_PATH ("fnck_sql_column_metas")
// but named for this project.
const DefaultStatsRoot = "talon_column_metas"
