package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	Name          string
	Address       string
	SquareFootage *int64
	WarehouseType string
}

type ListRequest struct {
	IncludeDeactivated bool
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*StorageLocation, error)
	GetByID(ctx context.Context, id string) (*StorageLocation, error)
	List(ctx context.Context, req ListRequest) ([]StorageLocation, error)
	// Deactivate tombstones a location. A location still holding inventory
	// cannot be deactivated.
	Deactivate(ctx context.Context, id string) error
	Reactivate(ctx context.Context, id string) error
}

type Repository interface {
	Insert(ctx context.Context, loc *StorageLocation) error
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*StorageLocation, error)
	List(ctx context.Context, orgID snowflake.ID, includeDeactivated bool) ([]StorageLocation, error)
	SetActive(ctx context.Context, orgID, id snowflake.ID, active bool) error
	HasNonzeroInventory(ctx context.Context, orgID, id snowflake.ID) (bool, error)
}

var (
	ErrInvalidOrganization    = errors.New("invalid_organization")
	ErrInvalidName            = errors.New("invalid_name")
	ErrInvalidLocation        = errors.New("invalid_location")
	ErrLocationNotFound       = errors.New("location_not_found")
	ErrLocationHasInventory   = errors.New("location_has_inventory")
	ErrLocationNotDeactivated = errors.New("location_not_deactivated")
)
