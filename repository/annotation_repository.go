package repository

import (
	"errors"
	"fmt"
	"path/filepath"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/picrate/picrate/apperr"
	"github.com/picrate/picrate/models"
)

// AnnotationRepository handles database operations for Annotation entities
type AnnotationRepository struct {
	DB *gorm.DB
}

// NewAnnotationRepository creates a new instance of AnnotationRepository
func NewAnnotationRepository(db *gorm.DB) *AnnotationRepository {
	return &AnnotationRepository{DB: db}
}

// Upsert inserts or replaces the row keyed on imagePath. All fields are
// written together so a row never mixes values from two actions.
func (r *AnnotationRepository) Upsert(imagePath string, rating int, marked bool, username, timestamp string) error {
	cleanPath := filepath.ToSlash(imagePath)
	ann := models.Annotation{
		ImagePath: cleanPath,
		Rating:    rating,
		Marked:    marked,
		Username:  username,
		Timestamp: timestamp,
	}

	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "image_path"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "marked", "username", "timestamp"}),
	}).Create(&ann).Error
	if err != nil {
		return fmt.Errorf("%w: failed to upsert annotation for %s: %v", apperr.ErrStorageUnavailable, cleanPath, err)
	}
	return nil
}

// GetByPath retrieves the annotation row for an image, passing through
// gorm.ErrRecordNotFound when the image has never been written
func (r *AnnotationRepository) GetByPath(imagePath string) (*models.Annotation, error) {
	cleanPath := filepath.ToSlash(imagePath)
	var ann models.Annotation
	err := r.DB.Where("image_path = ?", cleanPath).First(&ann).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to get annotation for %s: %v", apperr.ErrStorageUnavailable, cleanPath, err)
	}
	return &ann, nil
}

// ListAll returns every annotation row ordered by image path
func (r *AnnotationRepository) ListAll() ([]models.Annotation, error) {
	var anns []models.Annotation
	if err := r.DB.Order("image_path ASC").Find(&anns).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list annotations: %v", apperr.ErrStorageUnavailable, err)
	}
	return anns, nil
}
