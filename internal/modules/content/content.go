// Package content serves the editable copy of the public site.
package content

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is one editable block of site copy.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	Key       string          `json:"key"`
	Section   string          `json:"section"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type UpdateRequest struct {
	Value json.RawMessage `json:"value" validate:"required"`
}
