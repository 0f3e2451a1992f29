package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vc-scout/backend/internal/storage/models"
)

func sampleRecords() []Record {
	headcount := 50
	notes := "Strong team"
	return []Record{
		{
			Company: models.Company{
				ID: "acme", Name: "Acme AI", Industry: "AI/ML", Stage: "Seed", Location: "Berlin",
				Website: "https://acme.ai", SignalScore: 80, Funding: "$4M", Founded: 2021,
				Headcount: &headcount, Tags: []string{"agents", "llm"},
				Investors: []models.Investor{{Name: "Sequoia"}, {Name: "Index"}},
				Founders:  []models.Founder{{Name: "Ada"}},
				Notes:     &notes,
			},
			Enrichment: &models.EnrichmentResult{
				CompanyID: "acme", Summary: "Agents for finance", MatchScore: 0,
				MatchExplanation: "Outside thesis", GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			},
		},
		{
			Company: models.Company{ID: "beta", Name: "Beta SaaS", Industry: "SaaS", SignalScore: 40},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": FormatCSV, "JSON": FormatJSON, " yml ": FormatYAML, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns(), rows[0])

	acme := rowMap(rows[0], rows[1])
	assert.Equal(t, "Acme AI", acme["Name"])
	assert.Equal(t, "0", acme["AI Match Score"], "a zero score is a score, not N/A")
	assert.Equal(t, "Agents for finance", acme["AI Summary"])
	assert.Equal(t, "50", acme["Headcount"])
	assert.Equal(t, "N/A", acme["Headcount Growth (%)"])
	assert.Equal(t, "agents, llm", acme["Tags"])
	assert.Equal(t, "Sequoia, Index", acme["Investors"])
	assert.Equal(t, "Strong team", acme["Notes"])

	beta := rowMap(rows[0], rows[2])
	assert.Equal(t, "N/A", beta["AI Match Score"])
	assert.Equal(t, "N/A", beta["AI Summary"])
	assert.Equal(t, "N/A", beta["Headcount"])
	assert.Equal(t, "N/A", beta["Founded"])
	assert.Equal(t, "N/A", beta["Notes"])
	assert.Equal(t, "", beta["Tags"])
}

func TestWriteJSONEmbedsEnrichment(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleRecords()))

	var docs []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &docs))
	require.Len(t, docs, 2)

	assert.Equal(t, "acme", docs[0]["id"])
	ai, ok := docs[0]["ai_intelligence"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Outside thesis", ai["match_explanation"])

	assert.Contains(t, docs[1], "ai_intelligence")
	assert.Nil(t, docs[1]["ai_intelligence"])
	assert.NotContains(t, docs[1], "headcount")
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sampleRecords()))

	var docs []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "Acme AI", docs[0]["name"])
	assert.Equal(t, 80, docs[0]["signal_score"])
	assert.Nil(t, docs[1]["ai_intelligence"])
}

func TestWriteUnsupported(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("xml"), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func rowMap(header, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, h := range header {
		m[h] = row[i]
	}
	return m
}
