package repository

import "github.com/picrate/picrate/models"

// AnnotationRepositoryInterface defines the methods for annotation data operations
type AnnotationRepositoryInterface interface {
	Upsert(imagePath string, rating int, marked bool, username, timestamp string) error
	GetByPath(imagePath string) (*models.Annotation, error)
	ListAll() ([]models.Annotation, error)
}
