package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"biodivcore/internal/infra/persistence/memory"
	"biodivcore/pkg/datasetapi"
	"biodivcore/pkg/domain"
	"biodivcore/pkg/pluginapi"
)

// Service exposes transactional CRUD, bulk ingest, and diversity queries over
// a persistent store. Every write runs through the rules engine of the
// underlying store and is instrumented with logging, metrics, tracing, and
// audit entries.
type Service struct {
	store    domain.PersistentStore
	registry *PluginRegistry
	plugins  map[string]PluginMetadata

	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
}

// NewService constructs a service backed by the supplied store. When the
// store exposes a time source it becomes the service clock; options may
// override it.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:    store,
		registry: NewPluginRegistry(),
		plugins:  make(map[string]PluginMetadata),
		logger:   noopLogger{},
		audit:    noopAuditRecorder{},
		metrics:  noopMetricsRecorder{},
		tracer:   noopTracer{},
		clock:    ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	if provider, ok := store.(interface{ NowFunc() func() time.Time }); ok {
		if now := provider.NowFunc(); now != nil {
			s.clock = ClockFunc(now)
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

func (s *Service) now() time.Time {
	return s.clock.Now()
}

// runWrite executes fn in a store transaction under the named operation,
// recording trace span, metrics, log lines, and the audit entry.
func (s *Service) runWrite(ctx context.Context, operation string, fn func(domain.Transaction) error, entityID func() string) (Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	res, err := s.store.RunInTransaction(ctx, fn)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)

	id := ""
	if entityID != nil {
		id = entityID()
	}
	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "error", err)
		s.recordAuditError(ctx, operation, id, duration, err)
		return res, err
	}
	if n := len(res.Violations); n > 0 {
		s.logger.Warn("operation committed with violations", "operation", operation, "violations", n)
	} else {
		s.logger.Debug("operation committed", "operation", operation)
	}
	s.recordAuditSuccess(ctx, operation, id, duration)
	return res, nil
}

// CreateSurvey persists a new sampling campaign.
func (s *Service) CreateSurvey(ctx context.Context, survey Survey) (Survey, Result, error) {
	var created Survey
	res, err := s.runWrite(ctx, "create_survey", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateSurvey(survey)
		return err
	}, func() string { return created.ID })
	return created, res, err
}

// UpdateSurvey mutates a survey using the provided mutator.
func (s *Service) UpdateSurvey(ctx context.Context, id string, mutator func(*Survey) error) (Survey, Result, error) {
	var updated Survey
	res, err := s.runWrite(ctx, "update_survey", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateSurvey(id, mutator)
		return err
	}, func() string { return id })
	return updated, res, err
}

// DeleteSurvey removes a survey record.
func (s *Service) DeleteSurvey(ctx context.Context, id string) (Result, error) {
	return s.runWrite(ctx, "delete_survey", func(tx domain.Transaction) error {
		return tx.DeleteSurvey(id)
	}, func() string { return id })
}

// GetSurvey returns a survey by ID.
func (s *Service) GetSurvey(id string) (Survey, bool) {
	return s.store.GetSurvey(id)
}

// ListSurveys returns all surveys ordered by creation time.
func (s *Service) ListSurveys() []Survey {
	return s.store.ListSurveys()
}

// CreatePlot persists a new sample plot.
func (s *Service) CreatePlot(ctx context.Context, plot Plot) (Plot, Result, error) {
	var created Plot
	res, err := s.runWrite(ctx, "create_plot", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreatePlot(plot)
		return err
	}, func() string { return created.ID })
	return created, res, err
}

// UpdatePlot mutates a plot using the provided mutator.
func (s *Service) UpdatePlot(ctx context.Context, id string, mutator func(*Plot) error) (Plot, Result, error) {
	var updated Plot
	res, err := s.runWrite(ctx, "update_plot", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdatePlot(id, mutator)
		return err
	}, func() string { return id })
	return updated, res, err
}

// DeletePlot removes a plot record.
func (s *Service) DeletePlot(ctx context.Context, id string) (Result, error) {
	return s.runWrite(ctx, "delete_plot", func(tx domain.Transaction) error {
		return tx.DeletePlot(id)
	}, func() string { return id })
}

// GetPlot returns a plot by ID.
func (s *Service) GetPlot(id string) (Plot, bool) {
	return s.store.GetPlot(id)
}

// ListPlots returns all plots ordered by creation time.
func (s *Service) ListPlots() []Plot {
	return s.store.ListPlots()
}

// CreateTaxon persists a new taxon.
func (s *Service) CreateTaxon(ctx context.Context, taxon Taxon) (Taxon, Result, error) {
	var created Taxon
	res, err := s.runWrite(ctx, "create_taxon", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateTaxon(taxon)
		return err
	}, func() string { return created.ID })
	return created, res, err
}

// UpdateTaxon mutates a taxon using the provided mutator.
func (s *Service) UpdateTaxon(ctx context.Context, id string, mutator func(*Taxon) error) (Taxon, Result, error) {
	var updated Taxon
	res, err := s.runWrite(ctx, "update_taxon", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateTaxon(id, mutator)
		return err
	}, func() string { return id })
	return updated, res, err
}

// DeleteTaxon removes a taxon record.
func (s *Service) DeleteTaxon(ctx context.Context, id string) (Result, error) {
	return s.runWrite(ctx, "delete_taxon", func(tx domain.Transaction) error {
		return tx.DeleteTaxon(id)
	}, func() string { return id })
}

// GetTaxon returns a taxon by ID.
func (s *Service) GetTaxon(id string) (Taxon, bool) {
	return s.store.GetTaxon(id)
}

// ListTaxa returns all taxa ordered by creation time.
func (s *Service) ListTaxa() []Taxon {
	return s.store.ListTaxa()
}

// CreateObservation persists a new abundance observation.
func (s *Service) CreateObservation(ctx context.Context, observation Observation) (Observation, Result, error) {
	var created Observation
	res, err := s.runWrite(ctx, "create_observation", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateObservation(observation)
		return err
	}, func() string { return created.ID })
	return created, res, err
}

// UpdateObservation mutates an observation using the provided mutator.
func (s *Service) UpdateObservation(ctx context.Context, id string, mutator func(*Observation) error) (Observation, Result, error) {
	var updated Observation
	res, err := s.runWrite(ctx, "update_observation", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateObservation(id, mutator)
		return err
	}, func() string { return id })
	return updated, res, err
}

// DeleteObservation removes an observation record.
func (s *Service) DeleteObservation(ctx context.Context, id string) (Result, error) {
	return s.runWrite(ctx, "delete_observation", func(tx domain.Transaction) error {
		return tx.DeleteObservation(id)
	}, func() string { return id })
}

// GetObservation returns an observation by ID.
func (s *Service) GetObservation(id string) (Observation, bool) {
	return s.store.GetObservation(id)
}

// ListObservations returns all observations ordered by creation time.
func (s *Service) ListObservations() []Observation {
	return s.store.ListObservations()
}

// ObservationImport is one long-format record of a bulk ingest. Taxa are
// resolved by scientific name; unknown names create taxa with unknown origin.
type ObservationImport struct {
	PlotID         string
	ScientificName string
	Count          int
	ObservedAt     time.Time
	Recorder       string
	Attributes     map[string]any
}

// ImportObservations ingests a batch of observation records for one survey
// inside a single transaction. Every record must reference an existing plot.
func (s *Service) ImportObservations(ctx context.Context, surveyID string, records []ObservationImport) ([]Observation, Result, error) {
	var created []Observation
	res, err := s.runWrite(ctx, "import_observations", func(tx domain.Transaction) error {
		if _, ok := tx.FindSurvey(surveyID); !ok {
			return ErrNotFound{Entity: EntitySurvey, ID: surveyID}
		}
		created = make([]Observation, 0, len(records))
		for i, record := range records {
			name := strings.TrimSpace(record.ScientificName)
			if name == "" {
				return fmt.Errorf("import record %d is missing a scientific name", i)
			}
			if _, ok := tx.FindPlot(record.PlotID); !ok {
				return ErrNotFound{Entity: EntityPlot, ID: record.PlotID}
			}
			taxon, ok := tx.FindTaxonByName(name)
			if !ok {
				var err error
				taxon, err = tx.CreateTaxon(Taxon{ScientificName: name, Origin: OriginUnknown})
				if err != nil {
					return err
				}
			}
			observation, err := tx.CreateObservation(Observation{
				SurveyID:   surveyID,
				PlotID:     record.PlotID,
				TaxonID:    taxon.ID,
				Count:      record.Count,
				ObservedAt: record.ObservedAt,
				Recorder:   record.Recorder,
				Attributes: record.Attributes,
			})
			if err != nil {
				return err
			}
			created = append(created, observation)
		}
		return nil
	}, func() string { return surveyID })
	if err != nil {
		return nil, res, err
	}
	return created, res, nil
}

// ErrNotFound is returned when reference validation fails within transactional helpers.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InstallPlugin registers a plugin, wiring its rules into the active engine
// and binding its dataset templates against the service store.
func (s *Service) InstallPlugin(plugin pluginapi.Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	if s.plugins == nil {
		s.plugins = make(map[string]PluginMetadata)
	}
	name := plugin.Name()
	if _, ok := s.plugins[name]; ok {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", name)
	}

	s.registry.beginInstall(name)
	err := plugin.Register(s.registry)
	contrib := s.registry.finishInstall()
	if err != nil {
		s.registry.rollbackInstall(contrib)
		return PluginMetadata{}, err
	}

	env := DatasetEnvironment{Store: s.store, Now: s.clock.Now}
	for _, slug := range contrib.datasets {
		template, ok := s.registry.dataset(slug)
		if !ok {
			continue
		}
		if err := template.bind(env); err != nil {
			s.registry.rollbackInstall(contrib)
			return PluginMetadata{}, fmt.Errorf("bind dataset template %s: %w", slug, err)
		}
	}

	if provider, ok := s.store.(interface{ RulesEngine() *domain.RulesEngine }); ok {
		if engine := provider.RulesEngine(); engine != nil {
			for _, rule := range contrib.rules {
				engine.Register(rule)
			}
		}
	}

	meta := PluginMetadata{
		Name:    name,
		Version: plugin.Version(),
		Schemas: make(map[string]map[string]any, len(contrib.schemas)),
	}
	schemas := s.registry.Schemas()
	for _, entity := range contrib.schemas {
		if schema, ok := schemas[entity]; ok {
			meta.Schemas[entity] = schema
		}
	}
	for _, slug := range contrib.datasets {
		if template, ok := s.registry.dataset(slug); ok {
			meta.Datasets = append(meta.Datasets, template.Descriptor())
		}
	}
	datasetapi.SortTemplateDescriptors(meta.Datasets)

	s.plugins[name] = meta
	s.logger.Info("plugin installed", "plugin", name, "version", meta.Version, "datasets", len(meta.Datasets))
	return meta, nil
}

// RegisteredPlugins returns metadata describing installed plugins sorted by name.
func (s *Service) RegisteredPlugins() []PluginMetadata {
	out := make([]PluginMetadata, 0, len(s.plugins))
	for _, meta := range s.plugins {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DatasetTemplates returns all registered dataset templates sorted by key and version.
func (s *Service) DatasetTemplates() []DatasetTemplate {
	return s.registry.DatasetTemplates()
}

// DatasetTemplateDescriptors projects the registered templates for adapters
// that must not depend on core types.
func (s *Service) DatasetTemplateDescriptors() []datasetapi.TemplateDescriptor {
	templates := s.registry.DatasetTemplates()
	out := make([]datasetapi.TemplateDescriptor, 0, len(templates))
	for _, template := range templates {
		out = append(out, template.Descriptor())
	}
	datasetapi.SortTemplateDescriptors(out)
	return out
}

// ResolveDatasetTemplate returns the runtime for a registered template slug.
func (s *Service) ResolveDatasetTemplate(slug string) (datasetapi.TemplateRuntime, bool) {
	template, ok := s.registry.dataset(strings.TrimSpace(slug))
	if !ok {
		return nil, false
	}
	return newDatasetTemplateRuntime(template), true
}
