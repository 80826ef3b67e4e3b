// Command survey-report computes diversity summaries or individual-based
// rarefaction curves from a site-by-species abundance CSV.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"biodivcore/internal/table"
	"biodivcore/pkg/measure"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	input       string
	output      string
	shape       string
	report      string
	indices     string
	format      string
	effort      int
	extrapolate bool
}

func cli(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("survey-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.input, "input", "-", "abundance CSV path, - for stdin")
	fs.StringVar(&opts.shape, "shape", "wide", "input shape: wide (site-by-species matrix) or long (sample,species,count records)")
	fs.StringVar(&opts.report, "report", "summary", "report to compute: summary or rarefaction")
	fs.StringVar(&opts.indices, "indices", "S,S_n,S_PIE", "comma-separated diversity indices for the summary report")
	fs.IntVar(&opts.effort, "effort", 0, "common effort for rarefied richness; 0 selects the minimum sample abundance")
	fs.BoolVar(&opts.extrapolate, "extrapolate", false, "permit efforts beyond a sample's observed abundance")
	fs.StringVar(&opts.format, "format", "csv", "output format: csv or json")
	fs.StringVar(&opts.output, "o", "-", "output path, - for stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := run(opts, stdin, stdout); err != nil {
		fmt.Fprintf(stderr, "survey-report: %v\n", err)
		return 1
	}
	return 0
}

func run(opts options, stdin io.Reader, stdout io.Writer) (err error) {
	switch opts.report {
	case "summary", "rarefaction":
	default:
		return fmt.Errorf("unknown report %q, expected summary or rarefaction", opts.report)
	}
	switch opts.format {
	case "csv", "json":
	default:
		return fmt.Errorf("unknown format %q, expected csv or json", opts.format)
	}

	collection, err := readCollection(opts, stdin)
	if err != nil {
		return err
	}

	if opts.output == "-" {
		return render(opts, collection, stdout)
	}
	file, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return render(opts, collection, file)
}

func readCollection(opts options, stdin io.Reader) (measure.Collection, error) {
	input := stdin
	if opts.input != "-" {
		file, err := os.Open(opts.input)
		if err != nil {
			return measure.Collection{}, fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = file.Close() }()
		input = file
	}

	switch opts.shape {
	case "wide":
		wide, err := table.ReadWideCSV(input)
		if err != nil {
			return measure.Collection{}, err
		}
		return wide.Collection()
	case "long":
		records, err := table.ReadLongCSV(input)
		if err != nil {
			return measure.Collection{}, err
		}
		return records.Collection()
	default:
		return measure.Collection{}, fmt.Errorf("unknown shape %q, expected wide or long", opts.shape)
	}
}

func render(opts options, collection measure.Collection, w io.Writer) error {
	switch opts.report {
	case "rarefaction":
		points, err := curvePoints(collection)
		if err != nil {
			return err
		}
		if opts.format == "json" {
			return encodeJSON(w, points)
		}
		return writeCurveCSV(w, points)
	default:
		indices, err := parseIndices(opts.indices)
		if err != nil {
			return err
		}
		summary, err := measure.Aggregate(collection, indices, measure.Options{
			Effort:      opts.effort,
			Extrapolate: opts.extrapolate,
		})
		if err != nil {
			return err
		}
		if opts.format == "json" {
			return encodeJSON(w, summary)
		}
		return writeSummaryCSV(w, summary)
	}
}

// curvePoint is one rarefaction ordinate of one sample.
type curvePoint struct {
	Sample          string  `json:"sample"`
	Group           string  `json:"group,omitempty"`
	Effort          int     `json:"effort"`
	ExpectedSpecies float64 `json:"expected_species"`
}

// curvePoints rarefies every non-empty sample at draw sizes 1..N. Samples
// without individuals carry no curve and are skipped.
func curvePoints(collection measure.Collection) ([]curvePoint, error) {
	var points []curvePoint
	for _, sample := range collection.Samples() {
		if sample.Assemblage.N() == 0 {
			continue
		}
		curve, err := measure.Rarefy(sample.Assemblage)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", sample.ID, err)
		}
		values := curve.Values()
		for n := 1; n < len(values); n++ {
			points = append(points, curvePoint{
				Sample:          sample.ID,
				Group:           sample.Group,
				Effort:          n,
				ExpectedSpecies: values[n],
			})
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no sample holds any individuals", measure.ErrInvalidInput)
	}
	return points, nil
}

func parseIndices(spec string) ([]measure.Index, error) {
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
		return nil, fmt.Errorf("%w: indices %q name no index", measure.ErrInvalidInput, spec)
	}
	return indices, nil
}

func writeSummaryCSV(w io.Writer, summary measure.Summary) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"scale", "group", "sample", "index", "effort", "value"}); err != nil {
		return err
	}
	records := make([]measure.Record, 0, len(summary.Alpha)+len(summary.Gamma)+len(summary.Beta))
	records = append(records, summary.Alpha...)
	records = append(records, summary.Gamma...)
	records = append(records, summary.Beta...)
	for _, record := range records {
		effort := ""
		if record.Effort > 0 {
			effort = strconv.Itoa(record.Effort)
		}
		err := writer.Write([]string{
			string(record.Scale),
			record.Group,
			record.Sample,
			string(record.Index),
			effort,
			formatValue(record.Value),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeCurveCSV(w io.Writer, points []curvePoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"sample", "group", "effort", "expected_species"}); err != nil {
		return err
	}
	for _, point := range points {
		err := writer.Write([]string{
			point.Sample,
			point.Group,
			strconv.Itoa(point.Effort),
			formatValue(point.ExpectedSpecies),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func encodeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
