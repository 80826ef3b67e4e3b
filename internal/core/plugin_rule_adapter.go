package core

import (
	"context"
	"time"

	"biodivcore/pkg/domain"
	"biodivcore/pkg/pluginapi"
)

func adaptPluginRule(rule pluginapi.Rule) domain.Rule {
	if rule == nil {
		return nil
	}
	return pluginRuleAdapter{impl: rule}
}

type pluginRuleAdapter struct {
	impl pluginapi.Rule
}

func (a pluginRuleAdapter) Name() string { return a.impl.Name() }

func (a pluginRuleAdapter) Evaluate(ctx context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	pluginView := adaptRuleView(view)
	pluginChanges := toPluginChanges(changes)
	res, err := a.impl.Evaluate(ctx, pluginView, pluginChanges)
	if err != nil {
		return domain.Result{}, err
	}
	return toDomainResult(res), nil
}

func adaptRuleView(view domain.RuleView) pluginapi.RuleView {
	if view == nil {
		return nil
	}
	return ruleViewAdapter{view: view}
}

type ruleViewAdapter struct {
	view domain.RuleView
}

func (a ruleViewAdapter) ListSurveys() []pluginapi.SurveyView {
	return newSurveyViews(a.view.ListSurveys())
}

func (a ruleViewAdapter) ListPlots() []pluginapi.PlotView {
	return newPlotViews(a.view.ListPlots())
}

func (a ruleViewAdapter) ListTaxa() []pluginapi.TaxonView {
	return newTaxonViews(a.view.ListTaxa())
}

func (a ruleViewAdapter) ListObservations() []pluginapi.ObservationView {
	return newObservationViews(a.view.ListObservations())
}

func (a ruleViewAdapter) FindSurvey(id string) (pluginapi.SurveyView, bool) {
	survey, ok := a.view.FindSurvey(id)
	if !ok {
		return nil, false
	}
	return newSurveyView(survey), true
}

func (a ruleViewAdapter) FindPlot(id string) (pluginapi.PlotView, bool) {
	plot, ok := a.view.FindPlot(id)
	if !ok {
		return nil, false
	}
	return newPlotView(plot), true
}

func (a ruleViewAdapter) FindTaxon(id string) (pluginapi.TaxonView, bool) {
	taxon, ok := a.view.FindTaxon(id)
	if !ok {
		return nil, false
	}
	return newTaxonView(taxon), true
}

func (a ruleViewAdapter) FindObservation(id string) (pluginapi.ObservationView, bool) {
	observation, ok := a.view.FindObservation(id)
	if !ok {
		return nil, false
	}
	return newObservationView(observation), true
}

// FindTaxonByName scans the snapshot for an exact scientific-name match. The
// domain view keys taxa by ID only, so this is a linear pass; rule evaluation
// operates on per-transaction snapshots where taxa counts stay small.
func (a ruleViewAdapter) FindTaxonByName(scientificName string) (pluginapi.TaxonView, bool) {
	if scientificName == "" {
		return nil, false
	}
	for _, taxon := range a.view.ListTaxa() {
		if taxon.ScientificName == scientificName {
			return newTaxonView(taxon), true
		}
	}
	return nil, false
}

type baseView struct {
	id        string
	createdAt time.Time
	updatedAt time.Time
}

func newBaseView(base domain.Base) baseView {
	return baseView{
		id:        base.ID,
		createdAt: base.CreatedAt,
		updatedAt: base.UpdatedAt,
	}
}

func (b baseView) ID() string           { return b.id }
func (b baseView) CreatedAt() time.Time { return b.createdAt }
func (b baseView) UpdatedAt() time.Time { return b.updatedAt }

type surveyView struct {
	baseView
	code       string
	name       string
	region     string
	protocol   string
	season     string
	attributes map[string]any
}

func newSurveyView(survey domain.Survey) surveyView {
	return surveyView{
		baseView:   newBaseView(survey.Base),
		code:       survey.Code,
		name:       survey.Name,
		region:     survey.Region,
		protocol:   survey.Protocol,
		season:     survey.Season,
		attributes: cloneAttributes(survey.Attributes),
	}
}

func (s surveyView) Code() string     { return s.code }
func (s surveyView) Name() string     { return s.name }
func (s surveyView) Region() string   { return s.region }
func (s surveyView) Protocol() string { return s.protocol }
func (s surveyView) Season() string   { return s.season }
func (s surveyView) Attributes() map[string]any {
	return cloneAttributes(s.attributes)
}

type plotView struct {
	baseView
	surveyID   string
	name       string
	group      string
	x, y       float64
	areaM2     float64
	effort     int
	attributes map[string]any
}

func newPlotView(plot domain.Plot) plotView {
	return plotView{
		baseView:   newBaseView(plot.Base),
		surveyID:   plot.SurveyID,
		name:       plot.Name,
		group:      plot.Group,
		x:          plot.X,
		y:          plot.Y,
		areaM2:     plot.AreaM2,
		effort:     plot.Effort,
		attributes: cloneAttributes(plot.Attributes),
	}
}

func (p plotView) SurveyID() string { return p.surveyID }
func (p plotView) Name() string     { return p.name }
func (p plotView) Group() string    { return p.group }
func (p plotView) Coordinates() (float64, float64) {
	return p.x, p.y
}
func (p plotView) AreaM2() float64 { return p.areaM2 }
func (p plotView) Effort() int     { return p.effort }
func (p plotView) Attributes() map[string]any {
	return cloneAttributes(p.attributes)
}
func (p plotView) HasGroup() bool { return p.group != "" }

type taxonView struct {
	baseView
	scientificName string
	commonName     string
	rank           string
	family         string
	genus          string
	origin         domain.TaxonOrigin
	attributes     map[string]any
}

func newTaxonView(taxon domain.Taxon) taxonView {
	return taxonView{
		baseView:       newBaseView(taxon.Base),
		scientificName: taxon.ScientificName,
		commonName:     taxon.CommonName,
		rank:           taxon.Rank,
		family:         taxon.Family,
		genus:          taxon.Genus,
		origin:         taxon.Origin,
		attributes:     cloneAttributes(taxon.Attributes),
	}
}

func (t taxonView) ScientificName() string { return t.scientificName }
func (t taxonView) CommonName() string     { return t.commonName }
func (t taxonView) Rank() string           { return t.rank }
func (t taxonView) Family() string         { return t.family }
func (t taxonView) Genus() string          { return t.genus }
func (t taxonView) Attributes() map[string]any {
	return cloneAttributes(t.attributes)
}

// Contextual origin accessors
func (t taxonView) GetOrigin() pluginapi.TaxonOriginRef {
	return pluginapi.ConvertTaxonOrigin(pluginapi.TaxonOrigin(t.origin))
}

func (t taxonView) IsInvasive() bool {
	return t.GetOrigin().IsInvasive()
}

func (t taxonView) IsNative() bool {
	return t.GetOrigin().IsNative()
}

type observationView struct {
	baseView
	surveyID   string
	plotID     string
	taxonID    string
	count      int
	observedAt time.Time
	recorder   string
	attributes map[string]any
}

func newObservationView(observation domain.Observation) observationView {
	return observationView{
		baseView:   newBaseView(observation.Base),
		surveyID:   observation.SurveyID,
		plotID:     observation.PlotID,
		taxonID:    observation.TaxonID,
		count:      observation.Count,
		observedAt: observation.ObservedAt,
		recorder:   observation.Recorder,
		attributes: cloneAttributes(observation.Attributes),
	}
}

func (o observationView) SurveyID() string      { return o.surveyID }
func (o observationView) PlotID() string        { return o.plotID }
func (o observationView) TaxonID() string       { return o.taxonID }
func (o observationView) Count() int            { return o.count }
func (o observationView) ObservedAt() time.Time { return o.observedAt }
func (o observationView) Recorder() string      { return o.recorder }
func (o observationView) Attributes() map[string]any {
	return cloneAttributes(o.attributes)
}

// Contextual abundance accessors
func (o observationView) GetAbundanceClass() pluginapi.AbundanceClassRef {
	return pluginapi.ClassifyCount(o.count)
}

func (o observationView) IsSingleton() bool {
	return pluginapi.NewAbundanceContext().Classes().Singleton().Equals(o.GetAbundanceClass())
}

func (o observationView) IsAbsent() bool {
	return o.GetAbundanceClass().IsAbsent()
}

func newSurveyViews(surveys []domain.Survey) []pluginapi.SurveyView {
	if len(surveys) == 0 {
		return nil
	}
	views := make([]pluginapi.SurveyView, len(surveys))
	for i, survey := range surveys {
		views[i] = newSurveyView(survey)
	}
	return views
}

func newPlotViews(plots []domain.Plot) []pluginapi.PlotView {
	if len(plots) == 0 {
		return nil
	}
	views := make([]pluginapi.PlotView, len(plots))
	for i, plot := range plots {
		views[i] = newPlotView(plot)
	}
	return views
}

func newTaxonViews(taxa []domain.Taxon) []pluginapi.TaxonView {
	if len(taxa) == 0 {
		return nil
	}
	views := make([]pluginapi.TaxonView, len(taxa))
	for i, taxon := range taxa {
		views[i] = newTaxonView(taxon)
	}
	return views
}

func newObservationViews(observations []domain.Observation) []pluginapi.ObservationView {
	if len(observations) == 0 {
		return nil
	}
	views := make([]pluginapi.ObservationView, len(observations))
	for i, observation := range observations {
		views[i] = newObservationView(observation)
	}
	return views
}

func toPluginChanges(changes []domain.Change) []pluginapi.Change {
	if len(changes) == 0 {
		return nil
	}
	converted := make([]pluginapi.Change, len(changes))
	for i, change := range changes {
		converted[i] = pluginapi.NewChange(
			pluginapi.ConvertEntityType(pluginapi.EntityType(change.Entity)),
			pluginapi.ConvertAction(pluginapi.Action(change.Action)),
			change.Before,
			change.After,
		)
	}
	return converted
}

func toDomainResult(res pluginapi.Result) domain.Result {
	pvs := res.Violations()
	if len(pvs) == 0 {
		return domain.Result{}
	}
	violations := make([]domain.Violation, len(pvs))
	for i, violation := range pvs {
		violations[i] = domain.Violation{
			Rule:     violation.Rule(),
			Severity: domain.Severity(violation.Severity()),
			Message:  violation.Message(),
			Entity:   domain.EntityType(violation.Entity()),
			EntityID: violation.EntityID(),
		}
	}
	return domain.Result{Violations: violations}
}

func cloneAttributes(attrs map[string]any) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = deepCloneAttribute(v)
	}
	return out
}

// deepCloneAttribute performs a best-effort recursive clone of common container
// shapes used in entity Attributes to harden immutability of projections:
//   - map[string]any
//   - []any
//   - []string
//   - []map[string]any
//
// Primitive values and unrecognized types are returned as-is. Cycles are not
// supported (the domain model is expected to be acyclic for attributes).
func deepCloneAttribute(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		if len(tv) == 0 {
			return map[string]any{}
		}
		m := make(map[string]any, len(tv))
		for k, vv := range tv {
			m[k] = deepCloneAttribute(vv)
		}
		return m
	case []any:
		if len(tv) == 0 {
			return []any{}
		}
		s := make([]any, len(tv))
		for i, vv := range tv {
			s[i] = deepCloneAttribute(vv)
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
