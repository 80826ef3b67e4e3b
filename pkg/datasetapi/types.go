// Package datasetapi defines the authoring surface for plugin-contributed
// dataset templates: template manifests, parameter declarations, run
// requests/results, and the host-side runtime that binds templates to a
// store-backed environment.
package datasetapi

import (
	"context"
	"encoding/json"
	"time"
)

// Dialect names the query language a template is written in.
type Dialect string

const (
	// DialectSQL marks templates whose Query is SQL over the snapshot schema.
	DialectSQL Dialect = "sql"
	// DialectDSL marks templates whose Query is an engine-specific expression.
	DialectDSL Dialect = "dsl"
)

// Format identifies a materialisation format for dataset output.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Scope carries requestor identity and the survey visibility of a run.
type Scope struct {
	Requestor string   `json:"requestor"`
	Roles     []string `json:"roles,omitempty"`
	SurveyIDs []string `json:"survey_ids,omitempty"`
}

// Parameter declares one template input. Default and Example hold raw JSON so
// manifests stay serialisable; defaults are coerced with the same rules as
// supplied values.
type Parameter struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Required    bool            `json:"required"`
	Description string          `json:"description,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Example     json.RawMessage `json:"example,omitempty"`
	Default     json.RawMessage `json:"default,omitempty"`
}

// Column describes one output column of a template.
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description,omitempty"`
	Format      string `json:"format,omitempty"`
}

// Metadata carries descriptive template annotations.
type Metadata struct {
	Source          string            `json:"source,omitempty"`
	Documentation   string            `json:"documentation,omitempty"`
	RefreshInterval string            `json:"refresh_interval,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	Annotations     map[string]string `json:"annotations,omitempty"`
}

// Environment provides runtime dependencies to template binders: a read-only
// view of the survey store and the host clock. Binders compute diversity
// statistics with pkg/measure against the entities the store exposes.
type Environment struct {
	Store PersistentStore
	Now   func() time.Time
}

// Template is the manifest a plugin registers for one dataset.
type Template struct {
	Key           string
	Version       string
	Title         string
	Description   string
	Dialect       Dialect
	Query         string
	Parameters    []Parameter
	Columns       []Column
	Metadata      Metadata
	OutputFormats []Format
	Binder        Binder
}

// TemplateDescriptor is the serialisable projection of a registered template.
type TemplateDescriptor struct {
	Plugin        string      `json:"plugin"`
	Key           string      `json:"key"`
	Version       string      `json:"version"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Dialect       Dialect     `json:"dialect"`
	Query         string      `json:"query"`
	Parameters    []Parameter `json:"parameters"`
	Columns       []Column    `json:"columns"`
	Metadata      Metadata    `json:"metadata"`
	OutputFormats []Format    `json:"output_formats"`
	Slug          string      `json:"slug"`
}

// Row is one output record keyed by column name.
type Row = map[string]any

// RunRequest is handed to a bound runner for each execution.
type RunRequest struct {
	Template   TemplateDescriptor
	Parameters map[string]any
	Scope      Scope
}

// RunResult carries the rows a runner produced.
type RunResult struct {
	Schema      []Column       `json:"schema"`
	Rows        []Row          `json:"rows"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	Format      Format         `json:"format"`
}

// Runner executes a bound template.
type Runner func(context.Context, RunRequest) (RunResult, error)

// Binder resolves a template manifest into a runner against an environment.
type Binder func(Environment) (Runner, error)

// ParameterError reports one rejected template parameter.
type ParameterError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e ParameterError) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return e.Name + ": " + e.Message
}

// TemplateRuntime is the behavioral contract a host-side template exposes to
// schedulers and HTTP adapters.
type TemplateRuntime interface {
	Descriptor() TemplateDescriptor
	Slug() string
	SupportsFormat(Format) bool
	ValidateParameters(params map[string]any) (map[string]any, []ParameterError)
	Run(ctx context.Context, params map[string]any, scope Scope, format Format) (RunResult, []ParameterError, error)
}
