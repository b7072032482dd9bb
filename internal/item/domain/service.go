package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	Name         string
	ValueInCents int64
}

type ListRequest struct {
	IncludeDeactivated bool
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, req ListRequest) ([]Item, error)
	Deactivate(ctx context.Context, id string) error
	Reactivate(ctx context.Context, id string) error
}

type Repository interface {
	Insert(ctx context.Context, item *Item) error
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*Item, error)
	FindByName(ctx context.Context, orgID snowflake.ID, name string) (*Item, error)
	List(ctx context.Context, orgID snowflake.ID, includeDeactivated bool) ([]Item, error)
	SetActive(ctx context.Context, orgID, id snowflake.ID, active bool) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidItem         = errors.New("invalid_item")
	ErrItemNotFound        = errors.New("item_not_found")
	ErrDuplicateName       = errors.New("duplicate_item_name")
	ErrItemNotDeactivated  = errors.New("item_not_deactivated")
)
