package companies

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vc-scout/backend/internal/storage/models"
)

type flakyRepo struct {
	failures int
	calls    int
	notes    map[string]string
}

func (r *flakyRepo) ListCompanies(context.Context) ([]models.Company, error) {
	r.calls++
	if r.calls <= r.failures {
		return nil, errors.New("database is locked")
	}
	return []models.Company{{ID: "acme", Name: "Acme AI"}}, nil
}

func (r *flakyRepo) GetCompany(_ context.Context, id string) (*models.Company, error) {
	r.calls++
	if id != "acme" {
		return nil, models.ErrNotFound
	}
	return &models.Company{ID: "acme", Name: "Acme AI"}, nil
}

func (r *flakyRepo) GetNotes(_ context.Context, id string) (string, error) {
	if id != "acme" {
		return "", models.ErrNotFound
	}
	return r.notes[id], nil
}

func (r *flakyRepo) SetNotes(_ context.Context, id, notes string) error {
	if id != "acme" {
		return models.ErrNotFound
	}
	r.notes[id] = notes
	return nil
}

func newTestService(repo *flakyRepo) *Service {
	svc := NewService(repo)
	svc.retry.InitialDelay = time.Millisecond
	svc.retry.MaxDelay = 2 * time.Millisecond
	return svc
}

func TestListCompaniesRetriesTransientFailures(t *testing.T) {
	repo := &flakyRepo{failures: 2}

	got, err := newTestService(repo).ListCompanies(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 3, repo.calls)
}

func TestListCompaniesGivesUpAfterThreeAttempts(t *testing.T) {
	repo := &flakyRepo{failures: 5}

	_, err := newTestService(repo).ListCompanies(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, repo.calls)
}

func TestGetCompanyNotFoundIsNotRetried(t *testing.T) {
	repo := &flakyRepo{}

	_, err := newTestService(repo).GetCompany(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, 1, repo.calls)
}

func TestNotesLastWriteWins(t *testing.T) {
	repo := &flakyRepo{notes: map[string]string{}}
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.SetNotes(ctx, "acme", "first"))
	require.NoError(t, svc.SetNotes(ctx, "acme", "second"))

	notes, err := svc.Notes(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "second", notes)

	assert.ErrorIs(t, svc.SetNotes(ctx, "ghost", "x"), models.ErrNotFound)
}
