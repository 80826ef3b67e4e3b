package core

import "biodivcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	TaxonOrigin        = domain.TaxonOrigin
	Severity           = domain.Severity
	Base               = domain.Base
	Survey             = domain.Survey
	Plot               = domain.Plot
	Taxon              = domain.Taxon
	Observation        = domain.Observation
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
)

const (
	EntitySurvey      = domain.EntitySurvey
	EntityPlot        = domain.EntityPlot
	EntityTaxon       = domain.EntityTaxon
	EntityObservation = domain.EntityObservation
)

const (
	OriginNative   = domain.OriginNative
	OriginInvasive = domain.OriginInvasive
	OriginUnknown  = domain.OriginUnknown
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
