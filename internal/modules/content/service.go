package content

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Service defines site content business logic.
type Service interface {
	List(ctx context.Context, section string) ([]*Entry, error)
	GetByKey(ctx context.Context, key string) (*Entry, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Entry, error)
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) List(ctx context.Context, section string) ([]*Entry, error) {
	return s.repo.List(ctx, strings.TrimSpace(section))
}

func (s *service) GetByKey(ctx context.Context, key string) (*Entry, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperr.Invalid("key is required")
	}
	return s.repo.GetByKey(ctx, key)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Entry, error) {
	eid, err := httpx.ParseID(id, "content id")
	if err != nil {
		return nil, err
	}
	if !json.Valid(req.Value) {
		return nil, apperr.Invalid("value must be valid JSON")
	}
	return s.repo.Update(ctx, eid, req.Value)
}
