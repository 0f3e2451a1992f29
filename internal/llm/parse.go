package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrMalformedAnalysis = errors.New("malformed analysis response")

type rawAnalysis struct {
	Summary          string   `json:"summary"`
	WhatTheyDo       []string `json:"what_they_do"`
	Keywords         []string `json:"keywords"`
	Signals          []string `json:"signals"`
	MatchScore       score    `json:"match_score"`
	MatchExplanation string   `json:"match_explanation"`
}

// score accepts a JSON number or a numeric string.
type score float64

func (s *score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		data = []byte(strings.TrimSuffix(strings.TrimSpace(str), "%"))
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("match_score: %w", err)
	}
	*s = score(v)
	return nil
}

// parseAnalysis decodes the model output. Markdown code fences around the
// object are tolerated; the match score is rounded and clamped to 0..100.
func parseAnalysis(content string) (*Analysis, error) {
	body := stripCodeFence(content)
	if body == "" {
		return nil, fmt.Errorf("%w: empty content", ErrMalformedAnalysis)
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}
	if strings.TrimSpace(raw.Summary) == "" {
		return nil, fmt.Errorf("%w: missing summary", ErrMalformedAnalysis)
	}

	return &Analysis{
		Summary:          strings.TrimSpace(raw.Summary),
		WhatTheyDo:       cleanList(raw.WhatTheyDo),
		Keywords:         cleanList(raw.Keywords),
		Signals:          cleanList(raw.Signals),
		MatchScore:       clampScore(float64(raw.MatchScore)),
		MatchExplanation: strings.TrimSpace(raw.MatchExplanation),
	}, nil
}

func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, v))))
}
