// Package testhelper hosts plugin test fixtures that reference domain types
// directly without tripping the plugin import restrictions. It builds survey
// entities and an in-memory store for exercising dataset template binders; it
// must never be imported by production plugin code.
package testhelper

import (
	"context"
	"time"

	"biodivcore/pkg/datasetapi"
	"biodivcore/pkg/domain"
)

// BaseFixture captures shared metadata for entity fixtures.
type BaseFixture struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (cfg BaseFixture) base() domain.Base {
	return domain.Base{ID: cfg.ID, CreatedAt: cfg.CreatedAt, UpdatedAt: cfg.UpdatedAt}
}

// SurveyConfig describes a survey fixture used in plugin tests.
type SurveyConfig struct {
	BaseFixture
	Code       string
	Name       string
	Region     string
	Protocol   string
	Season     string
	Attributes map[string]any
}

// PlotConfig describes a plot fixture used in plugin tests.
type PlotConfig struct {
	BaseFixture
	SurveyID   string
	Name       string
	Group      string
	X, Y       float64
	AreaM2     float64
	Effort     int
	Attributes map[string]any
}

// TaxonConfig describes a taxon fixture used in plugin tests.
type TaxonConfig struct {
	BaseFixture
	ScientificName string
	CommonName     string
	Rank           string
	Family         string
	Genus          string
	Origin         datasetapi.TaxonOrigin
	Attributes     map[string]any
}

// ObservationConfig describes an observation fixture used in plugin tests.
type ObservationConfig struct {
	BaseFixture
	SurveyID   string
	PlotID     string
	TaxonID    string
	Count      int
	ObservedAt time.Time
	Recorder   string
	Attributes map[string]any
}

// Survey builds a datasetapi.Survey from the config.
func Survey(cfg SurveyConfig) datasetapi.Survey {
	return domain.Survey{
		Base:       cfg.base(),
		Code:       cfg.Code,
		Name:       cfg.Name,
		Region:     cfg.Region,
		Protocol:   cfg.Protocol,
		Season:     cfg.Season,
		Attributes: cloneAttributes(cfg.Attributes),
	}
}

// Plot builds a datasetapi.Plot from the config.
func Plot(cfg PlotConfig) datasetapi.Plot {
	return domain.Plot{
		Base:       cfg.base(),
		SurveyID:   cfg.SurveyID,
		Name:       cfg.Name,
		Group:      cfg.Group,
		X:          cfg.X,
		Y:          cfg.Y,
		AreaM2:     cfg.AreaM2,
		Effort:     cfg.Effort,
		Attributes: cloneAttributes(cfg.Attributes),
	}
}

// Taxon builds a datasetapi.Taxon from the config. An unset origin defaults
// to unknown.
func Taxon(cfg TaxonConfig) datasetapi.Taxon {
	origin := cfg.Origin
	if origin == "" {
		origin = datasetapi.OriginUnknown
	}
	return domain.Taxon{
		Base:           cfg.base(),
		ScientificName: cfg.ScientificName,
		CommonName:     cfg.CommonName,
		Rank:           cfg.Rank,
		Family:         cfg.Family,
		Genus:          cfg.Genus,
		Origin:         origin,
		Attributes:     cloneAttributes(cfg.Attributes),
	}
}

// Observation builds a datasetapi.Observation from the config.
func Observation(cfg ObservationConfig) datasetapi.Observation {
	return domain.Observation{
		Base:       cfg.base(),
		SurveyID:   cfg.SurveyID,
		PlotID:     cfg.PlotID,
		TaxonID:    cfg.TaxonID,
		Count:      cfg.Count,
		ObservedAt: cfg.ObservedAt,
		Recorder:   cfg.Recorder,
		Attributes: cloneAttributes(cfg.Attributes),
	}
}

// cloneAttributes deep-copies an attribute map so fixtures stay isolated from
// later mutation of the config.
func cloneAttributes(attrs map[string]any) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = deepCloneAttr(v)
	}
	return out
}

func deepCloneAttr(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		if len(tv) == 0 {
			return map[string]any{}
		}
		m := make(map[string]any, len(tv))
		for k, vv := range tv {
			m[k] = deepCloneAttr(vv)
		}
		return m
	case []any:
		if len(tv) == 0 {
			return []any{}
		}
		s := make([]any, len(tv))
		for i, vv := range tv {
			s[i] = deepCloneAttr(vv)
		}
		return s
	case []string:
		if len(tv) == 0 {
			return []string{}
		}
		s := make([]string, len(tv))
		copy(s, tv)
		return s
	case []map[string]any:
		if len(tv) == 0 {
			return []map[string]any{}
		}
		s := make([]map[string]any, len(tv))
		for i, mv := range tv {
			if mv == nil {
				continue
			}
			s[i] = cloneAttributes(mv)
		}
		return s
	default:
		return v
	}
}

// Store is a read-only in-memory datasetapi.PersistentStore for binder tests.
type Store struct {
	surveys      []domain.Survey
	plots        []domain.Plot
	taxa         []domain.Taxon
	observations []domain.Observation
}

// NewStore builds a store over the given fixture entities.
func NewStore(surveys []datasetapi.Survey, plots []datasetapi.Plot, taxa []datasetapi.Taxon, observations []datasetapi.Observation) *Store {
	return &Store{
		surveys:      append([]domain.Survey(nil), surveys...),
		plots:        append([]domain.Plot(nil), plots...),
		taxa:         append([]domain.Taxon(nil), taxa...),
		observations: append([]domain.Observation(nil), observations...),
	}
}

var _ datasetapi.PersistentStore = (*Store)(nil)

// View invokes fn with a read-only snapshot view of the fixtures.
func (s *Store) View(_ context.Context, fn func(datasetapi.TransactionView) error) error {
	return fn(storeView{store: s})
}

// GetSurvey returns the survey with the given ID.
func (s *Store) GetSurvey(id string) (datasetapi.Survey, bool) {
	for _, survey := range s.surveys {
		if survey.ID == id {
			return survey, true
		}
	}
	return domain.Survey{}, false
}

// ListSurveys returns all survey fixtures.
func (s *Store) ListSurveys() []datasetapi.Survey {
	return append([]domain.Survey(nil), s.surveys...)
}

// GetPlot returns the plot with the given ID.
func (s *Store) GetPlot(id string) (datasetapi.Plot, bool) {
	for _, plot := range s.plots {
		if plot.ID == id {
			return plot, true
		}
	}
	return domain.Plot{}, false
}

// ListPlots returns all plot fixtures.
func (s *Store) ListPlots() []datasetapi.Plot {
	return append([]domain.Plot(nil), s.plots...)
}

// GetTaxon returns the taxon with the given ID.
func (s *Store) GetTaxon(id string) (datasetapi.Taxon, bool) {
	for _, taxon := range s.taxa {
		if taxon.ID == id {
			return taxon, true
		}
	}
	return domain.Taxon{}, false
}

// ListTaxa returns all taxon fixtures.
func (s *Store) ListTaxa() []datasetapi.Taxon {
	return append([]domain.Taxon(nil), s.taxa...)
}

// GetObservation returns the observation with the given ID.
func (s *Store) GetObservation(id string) (datasetapi.Observation, bool) {
	for _, observation := range s.observations {
		if observation.ID == id {
			return observation, true
		}
	}
	return domain.Observation{}, false
}

// ListObservations returns all observation fixtures.
func (s *Store) ListObservations() []datasetapi.Observation {
	return append([]domain.Observation(nil), s.observations...)
}

// storeView adapts a Store to the TransactionView read contract.
type storeView struct {
	store *Store
}

func (v storeView) ListSurveys() []domain.Survey           { return v.store.ListSurveys() }
func (v storeView) ListPlots() []domain.Plot               { return v.store.ListPlots() }
func (v storeView) ListTaxa() []domain.Taxon               { return v.store.ListTaxa() }
func (v storeView) ListObservations() []domain.Observation { return v.store.ListObservations() }

func (v storeView) FindSurvey(id string) (domain.Survey, bool) { return v.store.GetSurvey(id) }
func (v storeView) FindPlot(id string) (domain.Plot, bool)     { return v.store.GetPlot(id) }
func (v storeView) FindTaxon(id string) (domain.Taxon, bool)   { return v.store.GetTaxon(id) }
func (v storeView) FindObservation(id string) (domain.Observation, bool) {
	return v.store.GetObservation(id)
}

func (v storeView) FindTaxonByName(scientificName string) (domain.Taxon, bool) {
	for _, taxon := range v.store.taxa {
		if taxon.ScientificName == scientificName {
			return taxon, true
		}
	}
	return domain.Taxon{}, false
}
