package migration

import (
	"github.com/essentialops/stockledger/internal/config"
	itemdomain "github.com/essentialops/stockledger/internal/item/domain"
	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
	locationdomain "github.com/essentialops/stockledger/internal/location/domain"
	organizationdomain "github.com/essentialops/stockledger/internal/organization/domain"
	recordversiondomain "github.com/essentialops/stockledger/internal/recordversion/domain"
	"github.com/essentialops/stockledger/internal/seed"
	snapshotdomain "github.com/essentialops/stockledger/internal/snapshot/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Versioned migrations target postgres; other dialects are for
			// local development and get the schema from the models.
			if err := conn.AutoMigrate(
				&organizationdomain.Organization{},
				&locationdomain.StorageLocation{},
				&itemdomain.Item{},
				&ledgerdomain.LedgerSequence{},
				&ledgerdomain.InventoryEvent{},
				&ledgerdomain.CurrentInventoryRecord{},
				&recordversiondomain.RecordVersion{},
				&snapshotdomain.Snapshot{},
				&snapshotdomain.SnapshotEntry{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDemoData {
			return seed.EnsureDemoOrg(conn)
		}
		return nil
	}),
)
