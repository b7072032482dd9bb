package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	inventorydomain "github.com/essentialops/stockledger/internal/inventory/domain"
	itemdomain "github.com/essentialops/stockledger/internal/item/domain"
	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
	locationdomain "github.com/essentialops/stockledger/internal/location/domain"
	"github.com/essentialops/stockledger/internal/orgcontext"
	reconstructdomain "github.com/essentialops/stockledger/internal/reconstruct/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	LedgerSvc      ledgerdomain.Service
	ReconstructSvc reconstructdomain.Service
	LocationRepo   locationdomain.Repository
	ItemRepo       itemdomain.Repository
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	ledgerSvc      ledgerdomain.Service
	reconstructSvc reconstructdomain.Service
	locationRepo   locationdomain.Repository
	itemRepo       itemdomain.Repository
}

func NewService(p Params) inventorydomain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("inventory.service"),
		ledgerSvc:      p.LedgerSvc,
		reconstructSvc: p.ReconstructSvc,
		locationRepo:   p.LocationRepo,
		itemRepo:       p.ItemRepo,
	}
}

func (s *Service) ItemsForLocation(ctx context.Context, q inventorydomain.Query) ([]inventorydomain.ItemRow, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, inventorydomain.ErrInvalidOrganization
	}
	if q.LocationID == 0 {
		return nil, inventorydomain.ErrInvalidLocation
	}

	loc, err := s.locationRepo.FindByID(ctx, orgID, q.LocationID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, inventorydomain.ErrLocationNotFound
	}

	quantities, err := s.quantitiesFor(ctx, q)
	if err != nil {
		return nil, err
	}

	// The catalog listing drives both name resolution and zero-filling.
	// Deactivated items must still be loadable: their quantities can
	// predate the deactivation.
	items, err := s.itemRepo.List(ctx, orgID, true)
	if err != nil {
		return nil, err
	}
	names := make(map[snowflake.ID]string, len(items))
	active := make(map[snowflake.ID]bool, len(items))
	for _, item := range items {
		names[item.ID] = item.Name
		active[item.ID] = item.Active
	}

	rows := make([]inventorydomain.ItemRow, 0, len(quantities))
	seen := make(map[snowflake.ID]bool, len(quantities))
	for itemID, quantity := range quantities {
		if !q.IncludeDeactivatedItems && !active[itemID] {
			continue
		}
		rows = append(rows, inventorydomain.ItemRow{
			ItemID:   itemID,
			ItemName: names[itemID],
			Quantity: quantity,
		})
		seen[itemID] = true
	}

	if q.IncludeOmittedItems {
		for _, item := range items {
			if seen[item.ID] {
				continue
			}
			if !q.IncludeDeactivatedItems && !item.Active {
				continue
			}
			rows = append(rows, inventorydomain.ItemRow{
				ItemID:   item.ID,
				ItemName: item.Name,
				Quantity: 0,
			})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		ni, nj := strings.ToLower(rows[i].ItemName), strings.ToLower(rows[j].ItemName)
		if ni != nj {
			return ni < nj
		}
		return rows[i].ItemID < rows[j].ItemID
	})
	return rows, nil
}

func (s *Service) CurrentQuantities(ctx context.Context) ([]inventorydomain.LocationItemRow, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, inventorydomain.ErrInvalidOrganization
	}

	var records []ledgerdomain.CurrentInventoryRecord
	if err := s.db.WithContext(ctx).
		Where("org_id = ? AND quantity > 0", orgID).
		Find(&records).Error; err != nil {
		return nil, err
	}

	items, err := s.itemRepo.List(ctx, orgID, true)
	if err != nil {
		return nil, err
	}
	names := make(map[snowflake.ID]string, len(items))
	for _, item := range items {
		names[item.ID] = item.Name
	}

	rows := make([]inventorydomain.LocationItemRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, inventorydomain.LocationItemRow{
			LocationID: record.LocationID,
			ItemID:     record.ItemID,
			ItemName:   names[record.ItemID],
			Quantity:   record.Quantity,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LocationID != rows[j].LocationID {
			return rows[i].LocationID < rows[j].LocationID
		}
		ni, nj := strings.ToLower(rows[i].ItemName), strings.ToLower(rows[j].ItemName)
		if ni != nj {
			return ni < nj
		}
		return rows[i].ItemID < rows[j].ItemID
	})
	return rows, nil
}

// quantitiesFor returns nonzero quantities per item for the queried
// location, from the live view or from reconstruction when an instant
// is given.
func (s *Service) quantitiesFor(ctx context.Context, q inventorydomain.Query) (map[snowflake.ID]int64, error) {
	quantities := map[snowflake.ID]int64{}

	if q.At == nil {
		records, err := s.ledgerSvc.List(ctx, q.LocationID, false)
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			quantities[record.ItemID] = record.Quantity
		}
		return quantities, nil
	}

	state, err := s.reconstructSvc.Reconstruct(ctx, q.LocationID, *q.At)
	if err != nil {
		return nil, err
	}
	for key, quantity := range state {
		quantities[key.ItemID] = quantity
	}
	return quantities, nil
}
