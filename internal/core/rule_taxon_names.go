package core

import (
	"context"
	"fmt"

	"biodivcore/pkg/domain"
)

// NewTaxonNameRule returns the rule warning on duplicate scientific names.
// Duplicates merge silently during imports that resolve taxa by name, so a
// second record under the same binomial is almost always an ingest mistake.
func NewTaxonNameRule() domain.Rule {
	return taxonNameRule{}
}

type taxonNameRule struct{}

func (taxonNameRule) Name() string { return "taxon_name_unique" }

func (taxonNameRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	seen := make(map[string]string)
	res := domain.Result{}
	for _, taxon := range view.ListTaxa() {
		if taxon.ScientificName == "" {
			continue
		}
		if firstID, ok := seen[taxon.ScientificName]; ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "taxon_name_unique",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("taxon %s duplicates scientific name %q of taxon %s", taxon.ID, taxon.ScientificName, firstID),
				Entity:   domain.EntityTaxon,
				EntityID: taxon.ID,
			})
			continue
		}
		seen[taxon.ScientificName] = taxon.ID
	}
	return res, nil
}
