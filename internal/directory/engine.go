// Package directory computes the filtered, ranked and paginated company view
// shown on the discovery dashboard. Everything here is a pure function of its
// inputs: callers own the base collection and the score map.
package directory

import (
	"cmp"
	"slices"
	"strings"

	"github.com/vc-scout/backend/internal/storage/models"
)

// Entry is a company as displayed: the base record plus the caller's thesis
// match score, nil when the company has not been enriched.
type Entry struct {
	models.Company
	MatchScore *int `json:"match_score"`
}

type View struct {
	Items      []Entry `json:"items"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}

// Compute merges scores into companies, then filters, sorts and paginates.
//
// Malformed queries (unknown mode, sort key or direction) yield an empty view.
// A page outside 1..TotalPages yields no items but still reports Total.
func Compute(companies []models.Company, scores map[string]int, q Query) View {
	size := q.pageSize()
	view := View{Items: []Entry{}, Page: q.Page, PageSize: size}
	if !q.valid() {
		return view
	}

	entries := filter(merge(companies, scores), q)
	sortEntries(entries, q.SortKey, q.Direction)

	view.Total = len(entries)
	view.TotalPages = (len(entries) + size - 1) / size
	view.Items = paginate(entries, q.Page, size)
	return view
}

func merge(companies []models.Company, scores map[string]int) []Entry {
	entries := make([]Entry, len(companies))
	for i, c := range companies {
		entries[i].Company = c
		if score, ok := scores[c.ID]; ok {
			entries[i].MatchScore = &score
		}
	}
	return entries
}

func filter(entries []Entry, q Query) []Entry {
	match := newMatcher(q.Search, q.Mode)
	stages := toSet(q.Stages)
	industries := toSet(q.Industries)

	kept := entries[:0]
	for _, e := range entries {
		if !match(&e.Company) {
			continue
		}
		if len(stages) > 0 {
			if _, ok := stages[e.Stage]; !ok {
				continue
			}
		}
		if len(industries) > 0 {
			if _, ok := industries[e.Industry]; !ok {
				continue
			}
		}
		if e.SignalScore < q.MinSignal {
			continue
		}
		if e.HeadcountOrZero() < q.MinHeadcount {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// sortEntries is stable. Entries without a match score always sort after
// scored ones, whatever the direction, and keep their relative order.
func sortEntries(entries []Entry, key SortKey, dir Direction) {
	if key == SortNone {
		return
	}

	if dir == "" {
		dir = key.defaultDirection()
	}
	sign := 1
	if dir == Descending {
		sign = -1
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		switch key {
		case SortName:
			return sign * strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortHeadcount:
			return sign * cmp.Compare(a.HeadcountOrZero(), b.HeadcountOrZero())
		case SortSignalScore:
			return sign * cmp.Compare(a.SignalScore, b.SignalScore)
		case SortMatchScore:
			switch {
			case a.MatchScore == nil && b.MatchScore == nil:
				return 0
			case a.MatchScore == nil:
				return 1
			case b.MatchScore == nil:
				return -1
			}
			return sign * cmp.Compare(*a.MatchScore, *b.MatchScore)
		}
		return 0
	})
}

func paginate(entries []Entry, page, size int) []Entry {
	if page < 1 {
		return []Entry{}
	}
	start := (page - 1) * size
	if start >= len(entries) {
		return []Entry{}
	}
	end := min(start+size, len(entries))
	return slices.Clone(entries[start:end])
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}
