package invasives

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"biodivcore/pkg/datasetapi"
	"biodivcore/pkg/measure"
)

// impactTemplate contrasts diversity between the plot groups of one survey at
// alpha, gamma, and beta scales, in long format.
func impactTemplate() datasetapi.Template {
	return datasetapi.Template{
		Key:         "invasion-impact",
		Version:     "v1",
		Title:       "Invasion impact diversity contrast",
		Description: "Diversity indices per plot, per plot group, and as beta ratios for one survey, so invaded groups can be compared against uninvaded ones.",
		Dialect:     datasetapi.DialectDSL,
		Query:       "survey(survey_code).plots.groups().diversity(indices, effort)",
		Parameters: []datasetapi.Parameter{
			{Name: "survey_code", Type: "string", Required: true, Description: "Code of the survey to analyse"},
			{Name: "indices", Type: "string", Default: json.RawMessage(`"S,S_n,S_PIE"`), Description: "Comma-separated diversity indices to compute"},
			{Name: "effort", Type: "integer", Unit: "individuals", Default: json.RawMessage(`0`), Description: "Common effort for rarefied richness; zero selects the survey-wide minimum plot abundance"},
			{Name: "extrapolate", Type: "boolean", Default: json.RawMessage(`false`), Description: "Permit efforts beyond a plot's observed abundance"},
		},
		Columns: []datasetapi.Column{
			{Name: "scale", Type: "string", Description: "alpha, gamma, or beta"},
			{Name: "group", Type: "string", Description: "Plot group label"},
			{Name: "sample", Type: "string", Description: "Plot identifier, alpha records only"},
			{Name: "index", Type: "string", Description: "Diversity index"},
			{Name: "effort", Type: "integer", Unit: "individuals", Description: "Rarefaction effort, S_n records only"},
			{Name: "value", Type: "number", Description: "Computed index value"},
		},
		Metadata: datasetapi.Metadata{
			Source: "observations",
			Tags:   []string{"diversity", "invasion"},
		},
		OutputFormats: []datasetapi.Format{datasetapi.FormatJSON, datasetapi.FormatCSV},
		Binder:        bindImpact,
	}
}

func bindImpact(env datasetapi.Environment) (datasetapi.Runner, error) {
	if env.Store == nil {
		return nil, errors.New("invasion-impact requires a store-backed environment")
	}
	return func(ctx context.Context, req datasetapi.RunRequest) (datasetapi.RunResult, error) {
		code, _ := req.Parameters["survey_code"].(string)
		indices, err := parseIndices(req.Parameters)
		if err != nil {
			return datasetapi.RunResult{}, err
		}
		var opts measure.Options
		if effort, ok := req.Parameters["effort"].(int); ok {
			opts.Effort = effort
		}
		if extrapolate, ok := req.Parameters["extrapolate"].(bool); ok {
			opts.Extrapolate = extrapolate
		}

		var rows []datasetapi.Row
		metadata := map[string]any{"survey_code": code}
		err = env.Store.View(ctx, func(view datasetapi.TransactionView) error {
			survey, ok := findSurveyByCode(view, code)
			if !ok {
				return fmt.Errorf("survey %q not found", code)
			}
			if !scopeAllows(req.Scope, survey.ID) {
				metadata["survey_scope"] = req.Scope.SurveyIDs
				return nil
			}
			collection, err := surveyCollection(view, survey.ID)
			if err != nil {
				return err
			}
			metadata["survey_id"] = survey.ID
			metadata["plots"] = collection.Len()
			metadata["groups"] = collection.Groups()
			if collection.Len() == 0 {
				return nil
			}
			summary, err := measure.Aggregate(collection, indices, opts)
			if err != nil {
				return err
			}
			rows = summaryRows(summary)
			return nil
		})
		if err != nil {
			return datasetapi.RunResult{}, err
		}
		return datasetapi.RunResult{Rows: rows, Metadata: metadata, GeneratedAt: now(env)}, nil
	}, nil
}

// rarefactionTemplate emits per-plot individual-based rarefaction curves in
// long format so plots can be compared at any common effort.
func rarefactionTemplate() datasetapi.Template {
	return datasetapi.Template{
		Key:         "rarefaction-curves",
		Version:     "v1",
		Title:       "Per-plot rarefaction curves",
		Description: "Expected species richness for subsamples of 1..N individuals drawn from each plot of a survey.",
		Dialect:     datasetapi.DialectDSL,
		Query:       "survey(survey_code).plots.rarefy(step)",
		Parameters: []datasetapi.Parameter{
			{Name: "survey_code", Type: "string", Required: true, Description: "Code of the survey to analyse"},
			{Name: "step", Type: "integer", Unit: "individuals", Default: json.RawMessage(`1`), Description: "Emit every step-th subsample size; the terminal point at N is always included"},
		},
		Columns: []datasetapi.Column{
			{Name: "plot", Type: "string", Description: "Plot identifier"},
			{Name: "group", Type: "string", Description: "Plot group label"},
			{Name: "effort", Type: "integer", Unit: "individuals", Description: "Subsample size"},
			{Name: "expected_species", Type: "number", Description: "Expected richness at the subsample size"},
		},
		Metadata: datasetapi.Metadata{
			Source: "observations",
			Tags:   []string{"rarefaction", "invasion"},
		},
		OutputFormats: []datasetapi.Format{datasetapi.FormatJSON, datasetapi.FormatCSV},
		Binder:        bindRarefaction,
	}
}

func bindRarefaction(env datasetapi.Environment) (datasetapi.Runner, error) {
	if env.Store == nil {
		return nil, errors.New("rarefaction-curves requires a store-backed environment")
	}
	return func(ctx context.Context, req datasetapi.RunRequest) (datasetapi.RunResult, error) {
		code, _ := req.Parameters["survey_code"].(string)
		step := 1
		if v, ok := req.Parameters["step"].(int); ok && v > 0 {
			step = v
		}

		var rows []datasetapi.Row
		metadata := map[string]any{"survey_code": code, "step": step}
		err := env.Store.View(ctx, func(view datasetapi.TransactionView) error {
			survey, ok := findSurveyByCode(view, code)
			if !ok {
				return fmt.Errorf("survey %q not found", code)
			}
			if !scopeAllows(req.Scope, survey.ID) {
				metadata["survey_scope"] = req.Scope.SurveyIDs
				return nil
			}
			collection, err := surveyCollection(view, survey.ID)
			if err != nil {
				return err
			}
			metadata["survey_id"] = survey.ID
			metadata["plots"] = collection.Len()
			for _, sample := range collection.Samples() {
				if sample.Assemblage.N() == 0 {
					continue
				}
				curve, err := measure.Rarefy(sample.Assemblage)
				if err != nil {
					return fmt.Errorf("plot %s: %w", sample.ID, err)
				}
				rows = append(rows, curveRows(sample, curve, step)...)
			}
			return nil
		})
		if err != nil {
			return datasetapi.RunResult{}, err
		}
		return datasetapi.RunResult{Rows: rows, Metadata: metadata, GeneratedAt: now(env)}, nil
	}, nil
}

// surveyCollection assembles one sample per plot of the survey, keyed by plot
// identifier and labelled with the plot's group and coordinates. Observation
// counts are summed per scientific name.
func surveyCollection(view datasetapi.TransactionView, surveyID string) (measure.Collection, error) {
	taxa := make(map[string]datasetapi.Taxon)
	for _, taxon := range view.ListTaxa() {
		taxa[taxon.ID] = taxon
	}
	counts := make(map[string]map[string]int)
	for _, observation := range view.ListObservations() {
		if observation.SurveyID != surveyID {
			continue
		}
		taxon, ok := taxa[observation.TaxonID]
		if !ok {
			return measure.Collection{}, fmt.Errorf("observation %s references missing taxon %s", observation.ID, observation.TaxonID)
		}
		plot := counts[observation.PlotID]
		if plot == nil {
			plot = make(map[string]int)
			counts[observation.PlotID] = plot
		}
		plot[taxon.ScientificName] += observation.Count
	}
	var samples []measure.Sample
	for _, plot := range view.ListPlots() {
		if plot.SurveyID != surveyID {
			continue
		}
		assemblage, err := measure.New(counts[plot.ID])
		if err != nil {
			return measure.Collection{}, fmt.Errorf("plot %s: %w", plot.ID, err)
		}
		samples = append(samples, measure.Sample{
			ID:         plot.ID,
			Group:      plot.Group,
			X:          plot.X,
			Y:          plot.Y,
			Assemblage: assemblage,
		})
	}
	return measure.NewCollection(samples)
}

// summaryRows flattens an aggregation summary into long-format rows, alpha
// records first, then gamma, then beta.
func summaryRows(summary measure.Summary) []datasetapi.Row {
	records := make([]measure.Record, 0, len(summary.Alpha)+len(summary.Gamma)+len(summary.Beta))
	records = append(records, summary.Alpha...)
	records = append(records, summary.Gamma...)
	records = append(records, summary.Beta...)
	rows := make([]datasetapi.Row, len(records))
	for i, record := range records {
		rows[i] = datasetapi.Row{
			"scale":  string(record.Scale),
			"group":  record.Group,
			"sample": record.Sample,
			"index":  string(record.Index),
			"effort": record.Effort,
			"value":  record.Value,
		}
	}
	return rows
}

// curveRows samples a curve at every step-th subsample size and always closes
// with the terminal point at the plot's total abundance.
func curveRows(sample measure.Sample, curve measure.Curve, step int) []datasetapi.Row {
	values := curve.Values()
	total := len(values) - 1
	rows := make([]datasetapi.Row, 0, total/step+1)
	for n := step; n <= total; n += step {
		rows = append(rows, rarefactionRow(sample, n, values[n]))
	}
	if total%step != 0 {
		rows = append(rows, rarefactionRow(sample, total, values[total]))
	}
	return rows
}

func rarefactionRow(sample measure.Sample, effort int, expected float64) datasetapi.Row {
	return datasetapi.Row{
		"plot":             sample.ID,
		"group":            sample.Group,
		"effort":           effort,
		"expected_species": expected,
	}
}

// parseIndices resolves the comma-separated indices parameter.
func parseIndices(params map[string]any) ([]measure.Index, error) {
	spec, _ := params["indices"].(string)
	var indices []measure.Index
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		index, err := measure.ParseIndex(token)
		if err != nil {
			return nil, err
		}
		indices = append(indices, index)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("indices parameter %q names no index", spec)
	}
	return indices, nil
}

// findSurveyByCode resolves a survey by code, then by identifier.
func findSurveyByCode(view datasetapi.TransactionView, code string) (datasetapi.Survey, bool) {
	for _, survey := range view.ListSurveys() {
		if survey.Code == code {
			return survey, true
		}
	}
	return view.FindSurvey(code)
}

// scopeAllows reports whether the scope grants access to the survey. An empty
// scope is unrestricted.
func scopeAllows(scope datasetapi.Scope, surveyID string) bool {
	if len(scope.SurveyIDs) == 0 {
		return true
	}
	for _, id := range scope.SurveyIDs {
		if id == surveyID {
			return true
		}
	}
	return false
}

func now(env datasetapi.Environment) time.Time {
	if env.Now != nil {
		return env.Now()
	}
	return time.Now().UTC()
}
