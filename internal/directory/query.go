package directory

// DefaultPageSize is the number of companies per directory page.
const DefaultPageSize = 12

type SearchMode string

const (
	// SearchLiteral matches the search text as a substring of the name.
	SearchLiteral SearchMode = "literal"
	// SearchSemantic matches any meaningful token against name, industry,
	// description and tags.
	SearchSemantic SearchMode = "semantic"
)

type SortKey string

const (
	SortNone        SortKey = ""
	SortName        SortKey = "name"
	SortHeadcount   SortKey = "headcount"
	SortMatchScore  SortKey = "match_score"
	SortSignalScore SortKey = "signal_score"
)

// Direction orders the sort key. An empty Direction uses the key's natural
// order: ascending for name, descending for headcount and scores.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Query is the user-controlled state of the directory view. Empty Stages or
// Industries mean "no restriction".
type Query struct {
	Search       string
	Mode         SearchMode
	Stages       []string
	Industries   []string
	MinSignal    int
	MinHeadcount int
	SortKey      SortKey
	Direction    Direction
	Page         int
	PageSize     int
}

// DefaultQuery ranks by thesis match, best first.
func DefaultQuery() Query {
	return Query{
		Mode:      SearchLiteral,
		SortKey:   SortMatchScore,
		Direction: Descending,
		Page:      1,
		PageSize:  DefaultPageSize,
	}
}

func (k SortKey) defaultDirection() Direction {
	if k == SortName {
		return Ascending
	}
	return Descending
}

func (q Query) valid() bool {
	switch q.Mode {
	case "", SearchLiteral, SearchSemantic:
	default:
		return false
	}
	switch q.SortKey {
	case SortNone, SortName, SortHeadcount, SortMatchScore, SortSignalScore:
	default:
		return false
	}
	switch q.Direction {
	case "", Ascending, Descending:
	default:
		return false
	}
	return true
}

func (q Query) pageSize() int {
	if q.PageSize <= 0 {
		return DefaultPageSize
	}
	return q.PageSize
}
