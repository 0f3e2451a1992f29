package lists

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vc-scout/backend/internal/export"
	"github.com/vc-scout/backend/internal/storage/models"
)

type fakeRepo struct {
	mu        sync.Mutex
	lists     map[string]models.List
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{lists: make(map[string]models.List)}
}

func (r *fakeRepo) CreateList(_ context.Context, list *models.List) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lists[list.ID]; ok {
		return models.ErrAlreadyExists
	}
	r.lists[list.ID] = clone(*list)
	return nil
}

func (r *fakeRepo) GetList(_ context.Context, userID, id string) (*models.List, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, ok := r.lists[id]
	if !ok || list.UserID != userID {
		return nil, models.ErrNotFound
	}
	out := clone(list)
	return &out, nil
}

func (r *fakeRepo) ListLists(_ context.Context, userID string) ([]models.List, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.List
	for _, l := range r.lists {
		if l.UserID == userID {
			out = append(out, clone(l))
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateList(_ context.Context, list *models.List) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	existing, ok := r.lists[list.ID]
	if !ok || existing.UserID != list.UserID {
		return models.ErrNotFound
	}
	r.lists[list.ID] = clone(*list)
	return nil
}

func (r *fakeRepo) DeleteList(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, ok := r.lists[id]
	if !ok || list.UserID != userID {
		return models.ErrNotFound
	}
	delete(r.lists, id)
	return nil
}

func clone(l models.List) models.List {
	l.Companies = slices.Clone(l.Companies)
	return l
}

type staticCompanies []models.Company

func (s staticCompanies) ListCompanies(context.Context) ([]models.Company, error) {
	return s, nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	companies := staticCompanies{
		{ID: "a", Name: "Acme AI", Industry: "AI/ML", SignalScore: 80},
		{ID: "b", Name: "Beta SaaS", Industry: "SaaS", SignalScore: 40},
		{ID: "c", Name: "Carbonly", Industry: "Climate", SignalScore: 72},
	}
	return NewService(repo, companies), repo
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := svc.Create(ctx, "u1", name)
		assert.ErrorIs(t, err, ErrInvalidName)
	}

	list, err := svc.Create(ctx, "u1", "  Pipeline  ")
	require.NoError(t, err)
	assert.Equal(t, "Pipeline", list.Name)
	assert.NotEmpty(t, list.ID)
	assert.Empty(t, list.Companies)
}

func TestRename(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	list, err := svc.Create(ctx, "u1", "Pipeline")
	require.NoError(t, err)

	_, err = svc.Rename(ctx, "u1", list.ID, " ")
	assert.ErrorIs(t, err, ErrInvalidName)

	renamed, err := svc.Rename(ctx, "u1", list.ID, "Pipeline Q3")
	require.NoError(t, err)
	assert.Equal(t, "Pipeline Q3", renamed.Name)

	_, err = svc.Rename(ctx, "u2", list.ID, "Stolen")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestToggleMembershipIsSelfInverse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	list, err := svc.Create(ctx, "u1", "Pipeline")
	require.NoError(t, err)
	list, err = svc.SetCompanies(ctx, "u1", list.ID, []string{"b", "c"})
	require.NoError(t, err)
	before := slices.Clone(list.Companies)

	for _, id := range []string{"a", "b"} {
		_, _, err := svc.ToggleMembership(ctx, "u1", list.ID, id)
		require.NoError(t, err)
		after, _, err := svc.ToggleMembership(ctx, "u1", list.ID, id)
		require.NoError(t, err)

		assert.ElementsMatch(t, before, after.Companies, "toggling %s twice", id)
	}
}

func TestToggleMembershipAlternates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	list, err := svc.Create(ctx, "u1", "Pipeline")
	require.NoError(t, err)

	want := []bool{true, false, true}
	for i, w := range want {
		got, added, err := svc.ToggleMembership(ctx, "u1", list.ID, "a")
		require.NoError(t, err)
		assert.Equal(t, w, added, "call %d", i)
		assert.Equal(t, w, got.Contains("a"))
	}

	_, _, err = svc.ToggleMembership(ctx, "u1", list.ID, "")
	assert.ErrorIs(t, err, ErrInvalidCompany)
}

func TestToggleMembershipTrimsCompanyID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	list, err := svc.Create(ctx, "u1", "Pipeline")
	require.NoError(t, err)

	list, added, err := svc.ToggleMembership(ctx, "u1", list.ID, " a ")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"a"}, list.Companies)

	list, added, err = svc.ToggleMembership(ctx, "u1", list.ID, "a")
	require.NoError(t, err)
	assert.False(t, added, "padded and bare ids name the same company")
	assert.Empty(t, list.Companies)
}

func TestConcurrentTogglesDoNotLoseUpdates(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	list, err := svc.Create(ctx, "u1", "Pipeline")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.ToggleMembership(ctx, "u1", list.ID, fmt.Sprintf("co-%d", i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetList(ctx, "u1", list.ID)
	require.NoError(t, err)
	assert.Len(t, got.Companies, 20)
}

func TestSetCompaniesDedupes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	list, err := svc.Create(ctx, "u1", "Pipeline")
	require.NoError(t, err)

	got, err := svc.SetCompanies(ctx, "u1", list.ID, []string{"b", "a", "b", " ", "c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, got.Companies)
}

func TestFailedUpdateSurfacesError(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	list, err := svc.Create(ctx, "u1", "Pipeline")
	require.NoError(t, err)

	repo.updateErr = errors.New("disk full")
	_, _, err = svc.ToggleMembership(ctx, "u1", list.ID, "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	repo.updateErr = nil
	stored, err := repo.GetList(ctx, "u1", list.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Companies)
}

func TestDeleteLeavesCompaniesAlone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	list, err := svc.Create(ctx, "u1", "Pipeline")
	require.NoError(t, err)
	_, err = svc.SetCompanies(ctx, "u1", list.ID, []string{"a"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "u2", list.ID), models.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "u1", list.ID))

	_, err = svc.Get(ctx, "u1", list.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	companies, err := svc.companies.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Len(t, companies, 3)
}

func TestExportOnlyMembers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	list, err := svc.Create(ctx, "u1", "Pipeline")
	require.NoError(t, err)
	_, err = svc.SetCompanies(ctx, "u1", list.ID, []string{"c", "a", "gone"})
	require.NoError(t, err)

	enrichments := map[string]*models.EnrichmentResult{"a": {CompanyID: "a", MatchScore: 91}}

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, "u1", list.ID, export.FormatCSV, enrichments, &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Acme AI", rows[1][0])
	assert.Equal(t, "91", rows[1][6])
	assert.Equal(t, "Carbonly", rows[2][0])
	assert.Equal(t, "N/A", rows[2][6])

	stored, err := svc.Get(ctx, "u1", list.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "gone"}, stored.Companies, "export is read-only")

	err = svc.Export(ctx, "u1", list.ID, export.Format("xlsx"), nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
