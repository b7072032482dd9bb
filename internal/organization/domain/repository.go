package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	ListIDs(ctx context.Context, limit int) ([]snowflake.ID, error)
}
