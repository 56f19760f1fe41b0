package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperlens-ai/paperlens/internal/domain"
)

func testAnalysis(userID uuid.UUID, title string) *PaperAnalysis {
	return &PaperAnalysis{
		UserID:           userID,
		Title:            title,
		OriginalFilename: title + ".pdf",
		StoredPath:       "media/papers/" + userID.String() + "/" + title + ".pdf",
		FileSizeBytes:    2 * 1024 * 1024,
		SHA256:           "abc123",
		Summary: domain.Summary{
			Abstract:     "Studies X.",
			Motivation:   "X is hard.",
			Contribution: "New method.",
			Experiments:  "Benchmarks.",
			Methodology:  "Transformers.",
			Limitations:  "Small data.",
			FutureWork:   "Scale up.",
			Conclusion:   "Works well.",
		},
		AnalysisData: []byte(`{"abstract": "Studies X."}`),
	}
}

func TestAnalysisRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	users := NewUserRepository(db)
	analyses := NewAnalysisRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "alice", false)

	a := testAnalysis(user.ID, "attention")
	require.NoError(t, analyses.Create(ctx, a))
	assert.NotEqual(t, uuid.Nil, a.ID)

	got, err := analyses.GetByID(ctx, user.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "attention", got.Title)
	assert.Equal(t, "Transformers.", got.Summary.Methodology)
	assert.Equal(t, "Small data.", got.Summary.Limitations)
	assert.JSONEq(t, `{"abstract": "Studies X."}`, string(got.AnalysisData))
	assert.InDelta(t, 2.0, got.FileSizeMB(), 0.01)
}

func TestAnalysisRepository_OwnerScoping(t *testing.T) {
	db := testDB(t)
	users := NewUserRepository(db)
	analyses := NewAnalysisRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, users, "alice", false)
	bob := createTestUser(t, users, "bob", false)

	a := testAnalysis(alice.ID, "paper")
	require.NoError(t, analyses.Create(ctx, a))

	// Bob cannot see or delete Alice's analysis.
	_, err := analyses.GetByID(ctx, bob.ID, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, analyses.Delete(ctx, bob.ID, a.ID), ErrNotFound)

	// Admin paths see everything.
	got, err := analyses.GetAnyByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.UserID)
}

func TestAnalysisRepository_ListByUserNewestFirst(t *testing.T) {
	db := testDB(t)
	users := NewUserRepository(db)
	analyses := NewAnalysisRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "alice", false)

	first := testAnalysis(user.ID, "first")
	require.NoError(t, analyses.Create(ctx, first))
	second := testAnalysis(user.ID, "second")
	require.NoError(t, analyses.Create(ctx, second))
	require.True(t, second.CreatedAt.After(first.CreatedAt))

	list, err := analyses.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)
	assert.Equal(t, "first", list[1].Title)
}

func TestAnalysisRepository_Delete(t *testing.T) {
	db := testDB(t)
	users := NewUserRepository(db)
	analyses := NewAnalysisRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "alice", false)
	a := testAnalysis(user.ID, "paper")
	require.NoError(t, analyses.Create(ctx, a))

	require.NoError(t, analyses.Delete(ctx, user.ID, a.ID))
	_, err := analyses.GetByID(ctx, user.ID, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, analyses.Delete(ctx, user.ID, a.ID), ErrNotFound)
}

func TestAnalysisRepository_DeleteAny(t *testing.T) {
	db := testDB(t)
	users := NewUserRepository(db)
	analyses := NewAnalysisRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "alice", false)
	a := testAnalysis(user.ID, "paper")
	require.NoError(t, analyses.Create(ctx, a))

	require.NoError(t, analyses.DeleteAny(ctx, a.ID))
	assert.ErrorIs(t, analyses.DeleteAny(ctx, a.ID), ErrNotFound)
}

func TestPaperAnalysis_DisplayTitle(t *testing.T) {
	a := &PaperAnalysis{Title: "Attention Is All You Need", OriginalFilename: "attention.pdf"}
	assert.Equal(t, "Attention Is All You Need", a.DisplayTitle())

	a.Title = ""
	assert.Equal(t, "attention.pdf", a.DisplayTitle())
}
