package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vc-scout/backend/internal/api/handlers"
	"github.com/vc-scout/backend/internal/companies"
	"github.com/vc-scout/backend/internal/directory"
	"github.com/vc-scout/backend/internal/enrichment"
	"github.com/vc-scout/backend/internal/lists"
	"github.com/vc-scout/backend/internal/llm"
	"github.com/vc-scout/backend/internal/middleware/identity"
	"github.com/vc-scout/backend/internal/searches"
	"github.com/vc-scout/backend/internal/storage/models"
	"github.com/vc-scout/backend/internal/storage/sqlite"
	"github.com/vc-scout/backend/internal/users"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string) (string, error) {
	return "Acme builds autonomous agents for finance teams.", nil
}

type stubAnalyzer struct{ score int }

func (a stubAnalyzer) AnalyzeCompany(_ context.Context, req llm.AnalysisRequest) (*llm.Analysis, error) {
	return &llm.Analysis{
		Summary:          req.CompanyName + " builds agents.",
		WhatTheyDo:       []string{"Agents"},
		Keywords:         []string{"agents", "finance", "automation", "llm", "accounting"},
		Signals:          []string{"Hiring"},
		MatchScore:       a.score,
		MatchExplanation: "Fits.",
	}, nil
}

func intPtr(v int) *int { return &v }

type fixture struct {
	app    *fiber.App
	users  *users.Service
	userID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	for _, c := range []models.Company{
		{ID: "acme", Name: "Acme AI", Website: "https://acme.ai", Industry: "AI", Stage: "Seed", SignalScore: 70, Headcount: intPtr(12)},
		{ID: "beta", Name: "Beta Health", Website: "https://beta.health", Industry: "Health", Stage: "Series A", SignalScore: 90, Headcount: intPtr(80)},
		{ID: "gamma", Name: "Gamma Fintech", Industry: "Fintech", Stage: "Seed", SignalScore: 40},
	} {
		require.NoError(t, db.UpsertCompany(ctx, &c))
	}

	companySvc := companies.NewService(db)
	userSvc := users.NewService(db)
	enrichSvc := enrichment.NewService(enrichment.NewMemoryStore(), stubFetcher{}, stubAnalyzer{score: 88}, db, companySvc,
		enrichment.Config{Timeout: 5 * time.Second, MinKeywords: 5})

	srv := NewServer(Config{PageSize: 2, EnrichPerMinute: 100, AllowedOrigins: []string{"*"}}, Services{
		Companies:   companySvc,
		Users:       userSvc,
		Lists:       lists.NewService(db, companySvc),
		Searches:    searches.NewService(db),
		Enrichments: enrichSvc,
		Health:      map[string]handlers.Pinger{"sqlite": db},
	})
	t.Cleanup(func() { srv.Shutdown() })

	user, err := userSvc.Register(ctx, "gp@fund.vc", "hunter22")
	require.NoError(t, err)
	_, err = userSvc.SaveThesis(ctx, user.ID, "Seed-stage AI for finance")
	require.NoError(t, err)

	return &fixture{app: srv.App, users: userSvc, userID: user.ID}
}

// do sends a request as userID ("" for anonymous) and returns the status and
// raw body.
func (f *fixture) do(t *testing.T, method, path, userID, body string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(identity.HeaderUserID, userID)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data, resp.Header
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)

	status, _, _ := f.do(t, "GET", "/api/v1/health", "", "")
	assert.Equal(t, 200, status)

	status, body, _ := f.do(t, "GET", "/api/v1/ready", "", "")
	assert.Equal(t, 200, status)
	assert.Contains(t, string(body), `"sqlite":"ok"`)
}

func TestOwnerRoutesRequireIdentity(t *testing.T) {
	f := newFixture(t)

	status, _, _ := f.do(t, "GET", "/api/v1/directory", "", "")
	assert.Equal(t, 401, status)

	status, _, _ = f.do(t, "GET", "/api/v1/lists", "no-such-user", "")
	assert.Equal(t, 401, status)

	status, _, _ = f.do(t, "GET", "/api/v1/directory?user_id="+f.userID, "", "")
	assert.Equal(t, 200, status)
}

func TestDirectoryRanksEnrichedCompanies(t *testing.T) {
	f := newFixture(t)

	status, body, _ := f.do(t, "GET", "/api/v1/directory", f.userID, "")
	require.Equal(t, 200, status)
	view := decode[directory.View](t, body)
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, 2, view.TotalPages)
	assert.Len(t, view.Items, 2)
	for _, e := range view.Items {
		assert.Nil(t, e.MatchScore)
	}

	status, body, _ = f.do(t, "POST", "/api/v1/enrich", f.userID, `{"companyId":"gamma","website":"https://gamma.dev"}`)
	require.Equal(t, 200, status, string(body))
	result := decode[models.EnrichmentResult](t, body)
	assert.Equal(t, 88, result.MatchScore)
	assert.Equal(t, "https://gamma.dev", result.Sources[0].URL)

	status, body, _ = f.do(t, "GET", "/api/v1/directory", f.userID, "")
	require.Equal(t, 200, status)
	view = decode[directory.View](t, body)
	require.NotEmpty(t, view.Items)
	assert.Equal(t, "gamma", view.Items[0].ID)
	require.NotNil(t, view.Items[0].MatchScore)
	assert.Equal(t, 88, *view.Items[0].MatchScore)

	status, body, _ = f.do(t, "GET", "/api/v1/companies/gamma", f.userID, "")
	require.Equal(t, 200, status)
	assert.Contains(t, string(body), `"match_score":88`)
	assert.Contains(t, string(body), `"enrichment":{`)
}

func TestDirectoryQueryParameters(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		query string
		want  []string
		total int
	}{
		{"stage filter", "stages=Seed&sort=name&dir=asc", []string{"acme", "gamma"}, 2},
		{"name sort defaults to ascending", "sort=name", []string{"acme", "beta"}, 3},
		{"name sort descending", "sort=name&dir=desc", []string{"gamma", "beta"}, 3},
		{"industry filter", "industries=Health,Fintech&sort=signal_score", []string{"beta", "gamma"}, 2},
		{"headcount threshold", "min_headcount=50", []string{"beta"}, 1},
		{"signal threshold", "min_signal=60&sort=signal_score&dir=asc", []string{"acme", "beta"}, 2},
		{"literal search", "q=acme", []string{"acme"}, 1},
		{"semantic search", "ai=true&q=health+startups", []string{"beta"}, 1},
		{"second page", "sort=name&dir=asc&page=2", []string{"gamma"}, 3},
		{"page past end", "page=9", []string{}, 3},
		{"unknown sort fails closed", "sort=funding", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, _ := f.do(t, "GET", "/api/v1/directory?"+tt.query, f.userID, "")
			require.Equal(t, 200, status)
			view := decode[directory.View](t, body)

			ids := []string{}
			for _, e := range view.Items {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, tt.total, view.Total)
		})
	}
}

func TestEnrichErrors(t *testing.T) {
	f := newFixture(t)

	other, err := f.users.Register(context.Background(), "analyst@fund.vc", "hunter22")
	require.NoError(t, err)

	status, _, _ := f.do(t, "POST", "/api/v1/enrich", other.ID, `{"companyId":"acme"}`)
	assert.Equal(t, 400, status, "no thesis saved")

	status, _, _ = f.do(t, "POST", "/api/v1/enrich", f.userID, `{"companyId":"ghost"}`)
	assert.Equal(t, 404, status)

	status, _, _ = f.do(t, "POST", "/api/v1/enrich", f.userID, `{"website":"https://acme.ai"}`)
	assert.Equal(t, 400, status, "companyId is required")

	status, _, _ = f.do(t, "GET", "/api/v1/enrich/acme", f.userID, "")
	assert.Equal(t, 404, status, "nothing cached yet")
}

func TestListLifecycle(t *testing.T) {
	f := newFixture(t)

	status, body, _ := f.do(t, "POST", "/api/v1/lists", f.userID, `{"name":"Seed AI"}`)
	require.Equal(t, 201, status, string(body))
	list := decode[models.List](t, body)
	assert.Empty(t, list.Companies)
	path := "/api/v1/lists/" + list.ID

	status, body, _ = f.do(t, "POST", path+"/toggle", f.userID, `{"companyId":"acme"}`)
	require.Equal(t, 200, status)
	toggled := decode[struct {
		List  models.List `json:"list"`
		Added bool        `json:"added"`
	}](t, body)
	assert.True(t, toggled.Added)
	assert.Equal(t, []string{"acme"}, toggled.List.Companies)

	status, body, _ = f.do(t, "POST", path+"/toggle", f.userID, `{"companyId":"acme"}`)
	require.Equal(t, 200, status)
	assert.Contains(t, string(body), `"added":false`)

	status, body, _ = f.do(t, "PUT", path, f.userID, `{"name":"Seed Bets","companies":["beta","acme","beta"]}`)
	require.Equal(t, 200, status, string(body))
	list = decode[models.List](t, body)
	assert.Equal(t, "Seed Bets", list.Name)
	assert.Equal(t, []string{"beta", "acme"}, list.Companies)

	status, body, header := f.do(t, "GET", path+"/export?format=csv", f.userID, "")
	require.Equal(t, 200, status)
	assert.Contains(t, header.Get("Content-Type"), "text/csv")
	assert.Equal(t, `attachment; filename="seed_bets.csv"`, header.Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	assert.Len(t, lines, 3, "header plus two members")
	assert.True(t, strings.HasPrefix(lines[0], "Name,"))

	status, _, _ = f.do(t, "GET", path+"/export?format=xlsx", f.userID, "")
	assert.Equal(t, 400, status)

	other, err := f.users.Register(context.Background(), "analyst@fund.vc", "hunter22")
	require.NoError(t, err)
	status, _, _ = f.do(t, "GET", path, other.ID, "")
	assert.Equal(t, 404, status, "lists are private to their owner")

	status, _, _ = f.do(t, "DELETE", path, f.userID, "")
	assert.Equal(t, 204, status)
	status, _, _ = f.do(t, "GET", path, f.userID, "")
	assert.Equal(t, 404, status)
}

func TestSavedSearchLifecycle(t *testing.T) {
	f := newFixture(t)

	other, err := f.users.Register(context.Background(), "analyst@fund.vc", "hunter22")
	require.NoError(t, err)

	status, _, _ := f.do(t, "POST", "/api/v1/searches", f.userID, `{"name":" ","query":"ai"}`)
	assert.Equal(t, 400, status)

	status, body, _ := f.do(t, "POST", "/api/v1/searches", f.userID,
		`{"name":"Seed deals","query":"","stages":["Seed"],"industries":[]}`)
	require.Equal(t, 201, status)
	saved := decode[models.SavedSearch](t, body)
	assert.Equal(t, "Seed deals", saved.Name)
	assert.Equal(t, []string{"Seed"}, saved.Filters.Stages)

	status, body, _ = f.do(t, "POST", "/api/v1/searches", f.userID, `{"name":"Health","query":"health startups","isAi":true}`)
	require.Equal(t, 201, status)
	semantic := decode[models.SavedSearch](t, body)
	assert.True(t, semantic.IsAI)

	status, body, _ = f.do(t, "GET", "/api/v1/searches", f.userID, "")
	require.Equal(t, 200, status)
	all := decode[[]models.SavedSearch](t, body)
	require.Len(t, all, 2)
	assert.Equal(t, saved.ID, all[0].ID)

	status, body, _ = f.do(t, "GET", "/api/v1/searches/"+saved.ID+"/run", f.userID, "")
	require.Equal(t, 200, status)
	view := decode[directory.View](t, body)
	ids := []string{}
	for _, e := range view.Items {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"acme", "gamma"}, ids)
	assert.Equal(t, 2, view.Total)

	status, body, _ = f.do(t, "GET", "/api/v1/searches/"+semantic.ID+"/run", f.userID, "")
	require.Equal(t, 200, status)
	view = decode[directory.View](t, body)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "beta", view.Items[0].ID)

	status, body, _ = f.do(t, "GET", "/api/v1/searches", other.ID, "")
	require.Equal(t, 200, status)
	assert.Empty(t, decode[[]models.SavedSearch](t, body))

	status, _, _ = f.do(t, "GET", "/api/v1/searches/"+saved.ID+"/run", other.ID, "")
	assert.Equal(t, 404, status)
	status, _, _ = f.do(t, "DELETE", "/api/v1/searches/"+saved.ID, other.ID, "")
	assert.Equal(t, 404, status)

	status, _, _ = f.do(t, "DELETE", "/api/v1/searches/"+saved.ID, f.userID, "")
	assert.Equal(t, 204, status)
	status, _, _ = f.do(t, "GET", "/api/v1/searches/"+saved.ID+"/run", f.userID, "")
	assert.Equal(t, 404, status)
}

func TestNotesAndThesis(t *testing.T) {
	f := newFixture(t)

	status, _, _ := f.do(t, "POST", "/api/v1/companies/acme/notes", f.userID, `{"notes":"Met founders at demo day"}`)
	require.Equal(t, 200, status)
	status, body, _ := f.do(t, "GET", "/api/v1/companies/acme/notes", f.userID, "")
	require.Equal(t, 200, status)
	assert.JSONEq(t, `{"notes":"Met founders at demo day"}`, string(body))

	status, _, _ = f.do(t, "GET", "/api/v1/companies/ghost/notes", f.userID, "")
	assert.Equal(t, 404, status)

	status, body, _ = f.do(t, "POST", "/api/v1/user/thesis", f.userID, `{"thesis":"  Climate infra  "}`)
	require.Equal(t, 200, status)
	assert.Contains(t, string(body), `"thesis":"Climate infra"`)
	status, body, _ = f.do(t, "GET", "/api/v1/user/thesis", f.userID, "")
	require.Equal(t, 200, status)
	assert.JSONEq(t, `{"thesis":"Climate infra"}`, string(body))
}

func TestAuth(t *testing.T) {
	f := newFixture(t)

	status, _, _ := f.do(t, "POST", "/api/v1/auth/register", "", `{"email":"gp@fund.vc","password":"x"}`)
	assert.Equal(t, 409, status)

	status, _, _ = f.do(t, "POST", "/api/v1/auth/login", "", `{"email":"gp@fund.vc","password":"wrong"}`)
	assert.Equal(t, 401, status)

	status, body, _ := f.do(t, "POST", "/api/v1/auth/login", "", `{"email":"GP@fund.vc","password":"hunter22"}`)
	require.Equal(t, 200, status)
	assert.Contains(t, string(body), f.userID)
	assert.NotContains(t, string(body), "hunter22")
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	f := newFixture(t)

	status, _, _ := f.do(t, "GET", "/api/v1/ws/enrichments", f.userID, "")
	assert.Equal(t, fiber.StatusUpgradeRequired, status)
}
