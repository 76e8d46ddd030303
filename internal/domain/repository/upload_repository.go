package repository

import "github.com/molpadia/molpaupload/internal/domain/entity"

type UploadRepository interface {
	// Get the upload by its ID, nil when it does not exist.
	GetById(id string) (*entity.Upload, error)
	// Save an entity to the persistence.
	Save(upload *entity.Upload) error
}
