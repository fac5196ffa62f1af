package session

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/picrate/picrate/apperr"
	"github.com/picrate/picrate/catalog"
	"github.com/picrate/picrate/database"
	"github.com/picrate/picrate/models"
	"github.com/picrate/picrate/repository"
)

const seedTS = "2026-08-25T09:00:00"

func newTestRepo(t *testing.T) *repository.AnnotationRepository {
	t.Helper()
	db, err := database.InitGormDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewAnnotationRepository(db)
}

func newTestCatalog(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	root := t.TempDir()
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%02d.jpg", i)
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0644))
	}
	cat, err := catalog.Scan(root, catalog.SortFilenameAsc)
	require.NoError(t, err)
	return cat
}

func newTestSession(t *testing.T, repo *repository.AnnotationRepository, n, maxHistory int) *Session {
	t.Helper()
	s, err := New(newTestCatalog(t, n), repo, "alice", 5, maxHistory)
	require.NoError(t, err)
	return s
}

func mustGet(t *testing.T, repo *repository.AnnotationRepository, path string) *models.Annotation {
	t.Helper()
	ann, err := repo.GetByPath(path)
	require.NoError(t, err)
	return ann
}

func TestNewResumesAtFirstUnannotated(t *testing.T) {
	repo := newTestRepo(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Upsert(fmt.Sprintf("%02d.jpg", i), 2, false, "alice", seedTS))
	}

	s := newTestSession(t, repo, 10, 5)
	assert.Equal(t, 3, s.Index())
	assert.Equal(t, "03.jpg", s.Current())
}

func TestNewAllRatedLandsOnLastImage(t *testing.T) {
	repo := newTestRepo(t)
	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Upsert(fmt.Sprintf("%02d.jpg", i), 1, false, "alice", seedTS))
	}

	s := newTestSession(t, repo, 4, 5)
	assert.Equal(t, 3, s.Index())
}

func TestMarkedOnlyImagesCountAsUnannotated(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Upsert("00.jpg", 0, true, "alice", seedTS))

	s := newTestSession(t, repo, 3, 5)
	assert.Equal(t, 0, s.Index())
}

func TestRateAdvancesByOneAndPersists(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 3, 5)

	require.NoError(t, s.Rate(3))

	assert.Equal(t, 1, s.Index())
	ann := mustGet(t, repo, "00.jpg")
	assert.Equal(t, 3, ann.Rating)
	assert.False(t, ann.Marked)
	assert.Equal(t, "alice", ann.Username)
	assert.NotEmpty(t, ann.Timestamp)
}

func TestRateAtLastIndexStaysPut(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 2, 5)

	require.NoError(t, s.Next())
	require.NoError(t, s.Rate(1))
	assert.Equal(t, 1, s.Index())
}

func TestRateOutOfRangeChangesNothing(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 3, 5)

	for _, v := range []int{0, -1, 6} {
		err := s.Rate(v)
		assert.ErrorIs(t, err, apperr.ErrRatingOutOfRange, "rating %d", v)
	}

	assert.Equal(t, 0, s.Index())
	assert.Equal(t, 0, s.HistoryLen())
	_, err := repo.GetByPath("00.jpg")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRatePreservesMarkedFlag(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 3, 5)

	require.NoError(t, s.ToggleMark())
	require.NoError(t, s.Rate(2))

	ann := mustGet(t, repo, "00.jpg")
	assert.Equal(t, 2, ann.Rating)
	assert.True(t, ann.Marked)
}

func TestMarkDoesNotAdvance(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 3, 5)

	require.NoError(t, s.ToggleMark())
	assert.Equal(t, 0, s.Index())

	ann := mustGet(t, repo, "00.jpg")
	assert.Equal(t, 0, ann.Rating)
	assert.True(t, ann.Marked)

	// toggling again clears the flag but keeps the row
	require.NoError(t, s.ToggleMark())
	ann = mustGet(t, repo, "00.jpg")
	assert.False(t, ann.Marked)
}

func TestMarkPreservesExistingRating(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 3, 5)

	require.NoError(t, s.Rate(4))
	require.NoError(t, s.Prev())
	require.NoError(t, s.ToggleMark())

	ann := mustGet(t, repo, "00.jpg")
	assert.Equal(t, 4, ann.Rating)
	assert.True(t, ann.Marked)
}

func TestPrevNextClampAtBoundaries(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 3, 5)

	require.NoError(t, s.Prev())
	assert.Equal(t, 0, s.Index(), "prev at the start is a no-op")

	require.NoError(t, s.Next())
	require.NoError(t, s.Next())
	require.NoError(t, s.Next())
	assert.Equal(t, 2, s.Index(), "next at the end is a no-op")
}

func TestUndoFreshImageResetsRow(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 3, 5)

	require.NoError(t, s.Rate(3))
	assert.Equal(t, 1, s.Index())

	undone, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, "00.jpg", undone)
	assert.Equal(t, 0, s.Index())

	// the row stays but is reset to defaults
	ann := mustGet(t, repo, "00.jpg")
	assert.Equal(t, 0, ann.Rating)
	assert.False(t, ann.Marked)
}

func TestUndoRestoresPreviousRating(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 3, 5)

	require.NoError(t, s.Rate(3))
	require.NoError(t, s.Prev())
	require.NoError(t, s.Rate(5))

	undone, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, "00.jpg", undone)
	assert.Equal(t, 0, s.Index())

	ann := mustGet(t, repo, "00.jpg")
	assert.Equal(t, 3, ann.Rating)
}

func TestUndoRestoresMarkedFlag(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 3, 5)

	require.NoError(t, s.ToggleMark())
	require.NoError(t, s.ToggleMark())

	_, err := s.Undo()
	require.NoError(t, err)

	ann := mustGet(t, repo, "00.jpg")
	assert.True(t, ann.Marked, "undo reinstates the flag cleared by the second toggle")
}

func TestUndoMovesToUndoneImage(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 5, 10)

	require.NoError(t, s.Rate(1))
	require.NoError(t, s.Rate(2))
	require.NoError(t, s.Rate(3))
	assert.Equal(t, 3, s.Index())

	undone, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, "02.jpg", undone)
	assert.Equal(t, 2, s.Index())
}

func TestUndoNeverRevertsNavigation(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 5, 10)

	require.NoError(t, s.Rate(2))
	require.NoError(t, s.Next())
	require.NoError(t, s.Next())
	require.NoError(t, s.Prev())

	// only the rate is in history; undo lands on its image
	_, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Index())

	_, err = s.Undo()
	assert.ErrorIs(t, err, apperr.ErrNothingToUndo)
}

func TestUndoEmptyHistory(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 3, 5)

	_, err := s.Undo()
	assert.ErrorIs(t, err, apperr.ErrNothingToUndo)
	assert.Equal(t, 0, s.Index())
}

func TestHistoryBoundedByMaxHistory(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 10, 3)

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Rate(1))
	}
	assert.Equal(t, 3, s.HistoryLen())

	for i := 0; i < 3; i++ {
		_, err := s.Undo()
		require.NoError(t, err)
	}
	_, err := s.Undo()
	assert.ErrorIs(t, err, apperr.ErrNothingToUndo, "cannot undo past the configured depth")

	// the two oldest ratings were evicted and survive
	assert.Equal(t, 1, mustGet(t, repo, "00.jpg").Rating)
	assert.Equal(t, 1, mustGet(t, repo, "01.jpg").Rating)
}

func TestMaxHistoryZeroDisablesUndo(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 3, 0)

	require.NoError(t, s.Rate(2))
	_, err := s.Undo()
	assert.ErrorIs(t, err, apperr.ErrNothingToUndo)
	assert.Equal(t, 2, mustGet(t, repo, "00.jpg").Rating)
}

func TestFilterSkipsAnnotatedImages(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Upsert("01.jpg", 1, false, "alice", seedTS))
	require.NoError(t, repo.Upsert("02.jpg", 2, false, "alice", seedTS))
	s := newTestSession(t, repo, 5, 5)
	assert.Equal(t, 0, s.Index())

	active, err := s.ToggleFilter()
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, s.Next())
	assert.Equal(t, 3, s.Index(), "skips the two rated images")

	require.NoError(t, s.Prev())
	assert.Equal(t, 0, s.Index())
}

func TestFilterEnableJumpsToFirstUnannotated(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Upsert("00.jpg", 1, false, "alice", seedTS))
	require.NoError(t, repo.Upsert("01.jpg", 1, false, "alice", seedTS))
	s := newTestSession(t, repo, 5, 5)
	assert.Equal(t, 2, s.Index())

	require.NoError(t, s.Next())
	require.NoError(t, s.Next())
	assert.Equal(t, 4, s.Index())

	_, err := s.ToggleFilter()
	require.NoError(t, err)
	assert.Equal(t, 2, s.Index())
}

func TestRateWithFilterAdvancesToNextUnannotated(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Upsert("01.jpg", 1, false, "alice", seedTS))
	s := newTestSession(t, repo, 4, 5)

	_, err := s.ToggleFilter()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Index())

	require.NoError(t, s.Rate(3))
	assert.Equal(t, 2, s.Index(), "skips the already-rated 01.jpg")
}

func TestFilterStaysPutWhenNothingLeft(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Upsert("01.jpg", 1, false, "alice", seedTS))
	require.NoError(t, repo.Upsert("02.jpg", 1, false, "alice", seedTS))
	s := newTestSession(t, repo, 3, 5)

	_, err := s.ToggleFilter()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Index())

	require.NoError(t, s.Next())
	assert.Equal(t, 0, s.Index(), "no unannotated image ahead")
}

func TestCurrentRecord(t *testing.T) {
	repo := newTestRepo(t)
	s := newTestSession(t, repo, 3, 5)

	ann, err := s.CurrentRecord()
	require.NoError(t, err)
	assert.Nil(t, ann, "untouched image has no record")

	require.NoError(t, s.ToggleMark())
	ann, err = s.CurrentRecord()
	require.NoError(t, err)
	require.NotNil(t, ann)
	assert.True(t, ann.Marked)
}

// failingRepo wraps a real repository and fails writes on demand.
type failingRepo struct {
	repository.AnnotationRepositoryInterface
	failUpserts bool
}

func (f *failingRepo) Upsert(imagePath string, rating int, marked bool, username, timestamp string) error {
	if f.failUpserts {
		return fmt.Errorf("%w: disk detached", apperr.ErrStorageUnavailable)
	}
	return f.AnnotationRepositoryInterface.Upsert(imagePath, rating, marked, username, timestamp)
}

func TestRateStorageFailureLeavesStateUnchanged(t *testing.T) {
	inner := newTestRepo(t)
	repo := &failingRepo{AnnotationRepositoryInterface: inner}
	s, err := New(newTestCatalog(t, 3), repo, "alice", 5, 5)
	require.NoError(t, err)

	repo.failUpserts = true
	err = s.Rate(4)
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.Equal(t, 0, s.Index(), "a failed save must not advance")
	assert.Equal(t, 0, s.HistoryLen())

	repo.failUpserts = false
	require.NoError(t, s.Rate(4), "retrying the same action succeeds")
	assert.Equal(t, 1, s.Index())
	assert.Equal(t, 4, mustGet(t, inner, "00.jpg").Rating)
}

func TestUndoStorageFailureKeepsSnapshot(t *testing.T) {
	inner := newTestRepo(t)
	repo := &failingRepo{AnnotationRepositoryInterface: inner}
	s, err := New(newTestCatalog(t, 3), repo, "alice", 5, 5)
	require.NoError(t, err)

	require.NoError(t, s.Rate(2))
	repo.failUpserts = true
	_, err = s.Undo()
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.Equal(t, 1, s.HistoryLen(), "failed undo keeps the snapshot for retry")

	repo.failUpserts = false
	undone, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, "00.jpg", undone)
	assert.Equal(t, 0, mustGet(t, inner, "00.jpg").Rating)
}
