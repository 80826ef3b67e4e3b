package core

import "biodivcore/pkg/domain"

type (
	// Rule aliases domain.Rule evaluated within a transaction boundary.
	Rule = domain.Rule
	// RuleView aliases the read-only evaluation view handed to rules.
	RuleView = domain.RuleView
	// RulesEngine aliases the domain rule orchestrator.
	RulesEngine = domain.RulesEngine
)

// NewRulesEngine constructs an empty engine instance.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set:
// referential integrity and non-negative counts block, data-quality checks
// (duplicate scientific names, non-positive plot effort) warn.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewObservationIntegrityRule())
	engine.Register(NewTaxonNameRule())
	engine.Register(NewPlotEffortRule())
	return engine
}
