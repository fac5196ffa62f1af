// Package session holds the single annotator session: the current
// position in the catalog, the bounded undo history and the
// skip-annotated filter. Methods are safe for concurrent use by HTTP
// handlers; all persistence goes through the annotation repository, so
// a failed write leaves the in-memory state exactly where it was.
package session

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"gorm.io/gorm"

	"github.com/picrate/picrate/apperr"
	"github.com/picrate/picrate/catalog"
	"github.com/picrate/picrate/models"
	"github.com/picrate/picrate/repository"
)

type Session struct {
	mu sync.Mutex

	cat        *catalog.Catalog
	repo       repository.AnnotationRepositoryInterface
	username   string
	numClasses int

	index             int
	hist              *history
	filterUnannotated bool
}

// New builds a session positioned at the first unannotated image.
func New(cat *catalog.Catalog, repo repository.AnnotationRepositoryInterface, username string, numClasses, maxHistory int) (*Session, error) {
	s := &Session{
		cat:        cat,
		repo:       repo,
		username:   username,
		numClasses: numClasses,
		hist:       newHistory(maxHistory),
	}
	if err := s.JumpToFirstUnannotated(); err != nil {
		return nil, err
	}
	return s, nil
}

// Rate writes a rating for the current image and advances. The write
// keeps the image's existing marked flag. Out-of-range values are
// rejected without touching any state.
func (s *Session) Rate(value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value < 1 || value > s.numClasses {
		return fmt.Errorf("%w: %d is not in 1..%d", apperr.ErrRatingOutOfRange, value, s.numClasses)
	}

	imagePath := s.cat.At(s.index)
	snap, prev, err := s.snapshotFor(imagePath)
	if err != nil {
		return err
	}

	marked := false
	if prev != nil {
		marked = prev.Marked
	}

	if err := s.repo.Upsert(imagePath, value, marked, s.username, models.NowTimestamp()); err != nil {
		return err
	}

	s.hist.push(snap)
	s.advanceAfterRate()
	return nil
}

// ToggleMark flips the marked flag on the current image without moving.
// Marking an untouched image creates its row with rating 0.
func (s *Session) ToggleMark() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	imagePath := s.cat.At(s.index)
	snap, prev, err := s.snapshotFor(imagePath)
	if err != nil {
		return err
	}

	rating := 0
	marked := true
	if prev != nil {
		rating = prev.Rating
		marked = !prev.Marked
	}

	if err := s.repo.Upsert(imagePath, rating, marked, s.username, models.NowTimestamp()); err != nil {
		return err
	}

	s.hist.push(snap)
	return nil
}

// Undo reverts the most recent rate or mark action, restores the
// affected image's stored state and moves to that image. Navigation
// alone is never undone.
func (s *Session) Undo() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.hist.pop()
	if !ok {
		return "", apperr.ErrNothingToUndo
	}

	rating, marked := 0, false
	if snap.Existed {
		rating, marked = snap.PrevRating, snap.PrevMarked
	}

	if err := s.repo.Upsert(snap.ImagePath, rating, marked, s.username, models.NowTimestamp()); err != nil {
		// keep the snapshot so the undo can be retried
		s.hist.push(snap)
		return "", err
	}

	if i, ok := s.cat.IndexOf(snap.ImagePath); ok {
		s.index = i
	}
	return snap.ImagePath, nil
}

// Next moves forward one image, clamped to the end of the catalog. With
// the filter active it lands on the next unannotated image instead.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filterUnannotated {
		return s.seekUnannotated(+1)
	}
	if s.index < s.cat.Len()-1 {
		s.index++
	}
	return nil
}

// Prev moves back one image, clamped to the start of the catalog.
func (s *Session) Prev() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filterUnannotated {
		return s.seekUnannotated(-1)
	}
	if s.index > 0 {
		s.index--
	}
	return nil
}

// JumpToFirstUnannotated positions the session at the first image
// without a rating; when every image is rated it lands on the last one.
func (s *Session) JumpToFirstUnannotated() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jumpToFirstUnannotatedLocked()
}

// ToggleFilter flips the skip-annotated filter; switching it on also
// jumps to the first unannotated image.
func (s *Session) ToggleFilter() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filterUnannotated = !s.filterUnannotated
	if s.filterUnannotated {
		if err := s.jumpToFirstUnannotatedLocked(); err != nil {
			s.filterUnannotated = false
			return false, err
		}
	}
	return s.filterUnannotated, nil
}

// Current returns the identifier at the current position.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cat.At(s.index)
}

// CurrentRecord returns the stored row for the current image, or nil
// when the image has never been touched.
func (s *Session) CurrentRecord() (*models.Annotation, error) {
	s.mu.Lock()
	imagePath := s.cat.At(s.index)
	s.mu.Unlock()

	ann, err := s.repo.GetByPath(imagePath)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ann, nil
}

func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Session) FilterActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterUnannotated
}

func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.len()
}

func (s *Session) Total() int       { return s.cat.Len() }
func (s *Session) Username() string { return s.username }
func (s *Session) NumClasses() int  { return s.numClasses }

// snapshotFor reads the pre-action state of an image. A missing row is
// a valid snapshot: undoing it resets the image to defaults.
func (s *Session) snapshotFor(imagePath string) (snapshot, *models.Annotation, error) {
	prev, err := s.repo.GetByPath(imagePath)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return snapshot{ImagePath: imagePath}, nil, nil
		}
		return snapshot{}, nil, err
	}
	return snapshot{
		ImagePath:  imagePath,
		PrevRating: prev.Rating,
		PrevMarked: prev.Marked,
		Existed:    true,
	}, prev, nil
}

// advanceAfterRate moves forward after a successful rating: one step,
// or with the filter active, to the next unannotated image. The rating
// itself is already saved, so a failed seek only logs and stays put.
func (s *Session) advanceAfterRate() {
	if s.filterUnannotated {
		if err := s.seekUnannotated(+1); err != nil {
			log.Printf("error advancing past annotated images: %v", err)
		}
		return
	}
	if s.index < s.cat.Len()-1 {
		s.index++
	}
}

// seekUnannotated moves the index to the nearest unannotated image in
// the given direction, staying put when there is none.
func (s *Session) seekUnannotated(step int) error {
	rated, err := s.ratedSet()
	if err != nil {
		return err
	}
	for i := s.index + step; i >= 0 && i < s.cat.Len(); i += step {
		if !rated[s.cat.At(i)] {
			s.index = i
			return nil
		}
	}
	return nil
}

func (s *Session) jumpToFirstUnannotatedLocked() error {
	rated, err := s.ratedSet()
	if err != nil {
		return err
	}
	for i := 0; i < s.cat.Len(); i++ {
		if !rated[s.cat.At(i)] {
			s.index = i
			return nil
		}
	}
	s.index = s.cat.Len() - 1
	return nil
}

// ratedSet collects the identifiers that already carry a rating; rows
// that are only marked stay unannotated for resume and filtering.
func (s *Session) ratedSet() (map[string]bool, error) {
	anns, err := s.repo.ListAll()
	if err != nil {
		return nil, err
	}
	rated := make(map[string]bool, len(anns))
	for i := range anns {
		if anns[i].IsRated() {
			rated[anns[i].ImagePath] = true
		}
	}
	return rated, nil
}
