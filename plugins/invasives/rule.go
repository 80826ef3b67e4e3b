package invasives

import (
	"context"
	"fmt"
	"strings"

	"biodivcore/pkg/pluginapi"
)

const originConsistencyRuleName = "invasive-origin-consistency"

// originConsistencyRule warns when an invasive taxon is recorded under a
// survey protocol that excludes invasive species. Absence records pass: a
// zero count does not place the invader in the survey.
type originConsistencyRule struct{}

func (originConsistencyRule) Name() string { return originConsistencyRuleName }

func (originConsistencyRule) Evaluate(_ context.Context, view pluginapi.RuleView, _ []pluginapi.Change) (pluginapi.Result, error) {
	severities := pluginapi.NewSeverityContext()
	entities := pluginapi.NewEntityContext()
	result := pluginapi.NewResultBuilder()
	for _, observation := range view.ListObservations() {
		if observation.IsAbsent() {
			continue
		}
		taxon, ok := view.FindTaxon(observation.TaxonID())
		if !ok || !taxon.IsInvasive() {
			continue
		}
		survey, ok := view.FindSurvey(observation.SurveyID())
		if !ok || !protocolExcludesInvasives(survey) {
			continue
		}
		violation, err := pluginapi.NewViolationBuilder().
			WithRule(originConsistencyRuleName).
			WithSeverity(severities.Warn()).
			WithMessage(fmt.Sprintf("invasive taxon %s recorded under protocol %q which excludes invasives", taxon.ScientificName(), survey.Protocol())).
			WithEntity(entities.Observation()).
			WithEntityID(observation.ID()).
			Build()
		if err != nil {
			return pluginapi.Result{}, err
		}
		result.AddViolation(violation)
	}
	return result.Build(), nil
}

// protocolExcludesInvasives reports whether the survey restricts records to
// native taxa, via the excludes_invasives attribute or a native-only protocol
// name.
func protocolExcludesInvasives(survey pluginapi.SurveyView) bool {
	if flag, ok := survey.Attributes()["excludes_invasives"].(bool); ok && flag {
		return true
	}
	protocol := strings.ToLower(survey.Protocol())
	return strings.Contains(protocol, "native-only") || strings.Contains(protocol, "natives-only")
}
