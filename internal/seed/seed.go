// Package seed bootstraps a demo organization with locations, items and
// a burst of ledger events for local development.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	itemdomain "github.com/essentialops/stockledger/internal/item/domain"
	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
	locationdomain "github.com/essentialops/stockledger/internal/location/domain"
	organizationdomain "github.com/essentialops/stockledger/internal/organization/domain"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	demoOrgName     = "Essential Supplies Bank"
	demoOrgTimezone = "America/Chicago"
)

var demoLocations = []string{"Main Warehouse", "Downtown Pantry"}

var demoItems = []struct {
	Name         string
	ValueInCents int64
}{
	{"Diapers Size 1", 35},
	{"Diapers Size 4", 40},
	{"Wipes", 250},
	{"Formula", 1800},
}

// EnsureDemoOrg creates the demo org with its catalog and, when the
// ledger is empty, a spread of historical events. Every step is
// idempotent, so repeated startups leave the data untouched.
func EnsureDemoOrg(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := ensureOrgTx(ctx, tx, node)
		if err != nil {
			return err
		}

		locations := make([]locationdomain.StorageLocation, 0, len(demoLocations))
		for _, name := range demoLocations {
			loc, err := ensureLocationTx(ctx, tx, node, org.ID, name)
			if err != nil {
				return err
			}
			locations = append(locations, loc)
		}

		items := make([]itemdomain.Item, 0, len(demoItems))
		for _, def := range demoItems {
			it, err := ensureItemTx(ctx, tx, node, org.ID, def.Name, def.ValueInCents)
			if err != nil {
				return err
			}
			items = append(items, it)
		}

		return ensureEventsTx(ctx, tx, node, org.ID, locations, items)
	})
}

// ResetDemoData deletes the demo org's ledger-derived data: events,
// snapshots, the current view, version history and the sequence counter.
// The catalog stays.
func ResetDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var org organizationdomain.Organization
		err := tx.WithContext(ctx).Where("slug = ?", slug.Make(demoOrgName)).First(&org).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		statements := []string{
			`DELETE FROM snapshot_entries WHERE snapshot_id IN (SELECT id FROM snapshots WHERE org_id = ?)`,
			`DELETE FROM snapshots WHERE org_id = ?`,
			`DELETE FROM inventory_events WHERE org_id = ?`,
			`DELETE FROM current_inventory_records WHERE org_id = ?`,
			`DELETE FROM record_versions WHERE org_id = ?`,
			`DELETE FROM ledger_sequences WHERE org_id = ?`,
		}
		for _, stmt := range statements {
			if err := tx.WithContext(ctx).Exec(stmt, org.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureOrgTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (organizationdomain.Organization, error) {
	orgSlug := slug.Make(demoOrgName)

	var org organizationdomain.Organization
	err := tx.WithContext(ctx).Where("slug = ?", orgSlug).First(&org).Error
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return org, err
	}

	now := time.Now().UTC()
	org = organizationdomain.Organization{
		ID:           node.Generate(),
		Name:         demoOrgName,
		Slug:         orgSlug,
		TimezoneName: demoOrgTimezone,
		Metadata:     datatypes.JSONMap{"seeded": true},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&org).Error; err != nil {
		return org, err
	}
	return org, nil
}

func ensureLocationTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID, name string) (locationdomain.StorageLocation, error) {
	var loc locationdomain.StorageLocation
	err := tx.WithContext(ctx).Where("org_id = ? AND name = ?", orgID, name).First(&loc).Error
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return loc, err
	}

	now := time.Now().UTC()
	loc = locationdomain.StorageLocation{
		ID:        node.Generate(),
		OrgID:     orgID,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&loc).Error; err != nil {
		return loc, err
	}
	return loc, nil
}

func ensureItemTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID, name string, valueInCents int64) (itemdomain.Item, error) {
	var it itemdomain.Item
	err := tx.WithContext(ctx).Where("org_id = ? AND lower(name) = lower(?)", orgID, name).First(&it).Error
	if err == nil {
		return it, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return it, err
	}

	now := time.Now().UTC()
	it = itemdomain.Item{
		ID:           node.Generate(),
		OrgID:        orgID,
		Name:         name,
		ValueInCents: valueInCents,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&it).Error; err != nil {
		return it, err
	}
	return it, nil
}

// ensureEventsTx backfills a month of activity so that historical
// queries have something to reconstruct. It writes events, the sequence
// counter and the current view directly, in the same shape the append
// path produces.
func ensureEventsTx(
	ctx context.Context,
	tx *gorm.DB,
	node *snowflake.Node,
	orgID snowflake.ID,
	locations []locationdomain.StorageLocation,
	items []itemdomain.Item,
) error {
	var existing int64
	if err := tx.WithContext(ctx).
		Model(&ledgerdomain.InventoryEvent{}).
		Where("org_id = ?", orgID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	now := time.Now().UTC()
	start := now.AddDate(0, -1, 0)
	totals := map[[2]snowflake.ID]int64{}
	sequence := int64(0)

	appendEvent := func(loc locationdomain.StorageLocation, it itemdomain.Item, delta int64, kind ledgerdomain.EventKind, at time.Time) error {
		sequence++
		event := ledgerdomain.InventoryEvent{
			ID:         node.Generate(),
			OrgID:      orgID,
			LocationID: loc.ID,
			ItemID:     it.ID,
			Delta:      delta,
			Kind:       kind,
			OccurredAt: at,
			Sequence:   sequence,
			ActorType:  "seed",
			Metadata:   datatypes.JSONMap{},
			CreatedAt:  now,
		}
		if err := tx.WithContext(ctx).Create(&event).Error; err != nil {
			return err
		}
		totals[[2]snowflake.ID{loc.ID, it.ID}] += delta
		return nil
	}

	for day := 0; day < 28; day++ {
		at := start.AddDate(0, 0, day)
		loc := locations[day%len(locations)]
		it := items[day%len(items)]

		if err := appendEvent(loc, it, 120, ledgerdomain.KindDonation, at); err != nil {
			return err
		}
		if day%3 == 0 {
			if err := appendEvent(loc, it, 200, ledgerdomain.KindPurchase, at.Add(2*time.Hour)); err != nil {
				return err
			}
		}
		if day%2 == 1 {
			if err := appendEvent(loc, it, -80, ledgerdomain.KindDistribution, at.Add(6*time.Hour)); err != nil {
				return err
			}
		}
	}

	if err := tx.WithContext(ctx).Create(&ledgerdomain.LedgerSequence{
		OrgID:        orgID,
		LastSequence: sequence,
		UpdatedAt:    now,
	}).Error; err != nil {
		return err
	}

	for key, quantity := range totals {
		if quantity == 0 {
			continue
		}
		record := ledgerdomain.CurrentInventoryRecord{
			ID:         node.Generate(),
			OrgID:      orgID,
			LocationID: key[0],
			ItemID:     key[1],
			Quantity:   quantity,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}
