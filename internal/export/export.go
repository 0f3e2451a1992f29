// Package export serialises companies, optionally paired with the caller's
// enrichment, as a flat CSV table or a structured JSON/YAML document.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vc-scout/backend/internal/storage/models"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// notAvailable fills table cells for optional values that are absent.
const notAvailable = "N/A"

// ParseFormat accepts a format name case-insensitively. "yml" is an alias for
// yaml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatYAML:
		return "application/yaml"
	default:
		return "application/json"
	}
}

func (f Format) Extension() string {
	return string(f)
}

// Record is one exported row. Enrichment is nil when the company has not
// been enriched for the exporting user.
type Record struct {
	Company    models.Company
	Enrichment *models.EnrichmentResult
}

var columns = []string{
	"Name",
	"Industry",
	"Stage",
	"Location",
	"Website",
	"Signal Score",
	"AI Match Score",
	"AI Summary",
	"AI Match Explanation",
	"Funding",
	"Founded",
	"Headcount",
	"Headcount Growth (%)",
	"Description",
	"Tags",
	"Investors",
	"Founders",
	"Notes",
}

// Columns returns the header of the flat table.
func Columns() []string {
	return append([]string(nil), columns...)
}

// Write serialises records to w in the given format.
func Write(w io.Writer, format Format, records []Record) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, records)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(documents(records)); err != nil {
			return fmt.Errorf("failed to encode json export: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(documents(records)); err != nil {
			return fmt.Errorf("failed to encode yaml export: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func writeCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(flatten(r)); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", r.Company.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// flatten renders a record in column order.
func flatten(r Record) []string {
	c := r.Company

	matchScore, summary, explanation := notAvailable, notAvailable, notAvailable
	if e := r.Enrichment; e != nil {
		matchScore = strconv.Itoa(e.MatchScore)
		summary = orNA(e.Summary)
		explanation = orNA(e.MatchExplanation)
	}

	founded := notAvailable
	if c.Founded > 0 {
		founded = strconv.Itoa(c.Founded)
	}

	notes := notAvailable
	if c.Notes != nil {
		notes = orNA(*c.Notes)
	}

	investors := make([]string, len(c.Investors))
	for i, inv := range c.Investors {
		investors[i] = inv.Name
	}
	founders := make([]string, len(c.Founders))
	for i, f := range c.Founders {
		founders[i] = f.Name
	}

	return []string{
		c.Name,
		c.Industry,
		c.Stage,
		c.Location,
		c.Website,
		strconv.Itoa(c.SignalScore),
		matchScore,
		summary,
		explanation,
		orNA(c.Funding),
		founded,
		intOrNA(c.Headcount),
		intOrNA(c.HeadcountGrowth),
		c.Description,
		strings.Join(c.Tags, ", "),
		strings.Join(investors, ", "),
		strings.Join(founders, ", "),
		notes,
	}
}

type document struct {
	models.Company `yaml:",inline"`
	AIIntelligence *models.EnrichmentResult `json:"ai_intelligence" yaml:"ai_intelligence"`
}

func documents(records []Record) []document {
	docs := make([]document, len(records))
	for i, r := range records {
		docs[i] = document{Company: r.Company, AIIntelligence: r.Enrichment}
	}
	return docs
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func intOrNA(v *int) string {
	if v == nil {
		return notAvailable
	}
	return strconv.Itoa(*v)
}
