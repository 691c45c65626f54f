package repository

import (
	"database/sql"
	"time"

	"tulisbareng/internal/document/model"
	"tulisbareng/pkg/logger"
)

// DocumentRepository reads document metadata for connection admission. The
// document service owns the rest of the table; this repository never writes.
type DocumentRepository struct {
	DB *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

// GetMeta returns the document's metadata, or sql.ErrNoRows when the
// document does not exist.
func (r *DocumentRepository) GetMeta(docID string) (model.Meta, error) {
	var meta model.Meta
	var updatedAt sql.NullTime
	err := r.DB.QueryRow("SELECT id, title, owner_id, updated_at FROM documents WHERE id = $1", docID).
		Scan(&meta.ID, &meta.Title, &meta.OwnerID, &updatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to load metadata for doc %s: %v", docID, err)
		}
		return model.Meta{}, err
	}
	if updatedAt.Valid {
		meta.UpdatedAt = updatedAt.Time
	} else {
		meta.UpdatedAt = time.Time{}
	}
	return meta, nil
}
