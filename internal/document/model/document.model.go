package model

import "time"

// Meta is the slice of a document row the collaboration core needs: enough
// to admit a connection and show a title. Content lives with the document
// service, not here.
type Meta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"owner_id"`
	UpdatedAt time.Time `json:"updated_at"`
}
