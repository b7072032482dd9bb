package service

import (
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/essentialops/stockledger/internal/clock"
	"github.com/essentialops/stockledger/internal/config"
	ledgerdomain "github.com/essentialops/stockledger/internal/ledger/domain"
	obsmetrics "github.com/essentialops/stockledger/internal/observability/metrics"
	"github.com/essentialops/stockledger/internal/orgcontext"
	recordversiondomain "github.com/essentialops/stockledger/internal/recordversion/domain"
	"github.com/essentialops/stockledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Policy     *config.PolicyHolder
	VersionSvc recordversiondomain.Service
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	policy     *config.PolicyHolder
	versionSvc recordversiondomain.Service
	metrics    *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		policy:     p.Policy,
		versionSvc: p.VersionSvc,
		metrics:    p.Metrics,
	}
}

func (s *Service) Append(ctx context.Context, req ledgerdomain.AppendRequest) (*ledgerdomain.InventoryEvent, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	if err := validateAppend(req); err != nil {
		s.countRejection(err)
		return nil, err
	}

	occurredAt, err := s.resolveOccurredAt(req.OccurredAt)
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	var event *ledgerdomain.InventoryEvent
	err = s.withRetry(ctx, func(tx *gorm.DB) error {
		var err error
		event, err = s.appendInTx(ctx, tx, orgID, req, occurredAt)
		return err
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.EventsAppended.WithLabelValues(string(req.Kind)).Inc()
	}
	return event, nil
}

func (s *Service) AppendTransfer(ctx context.Context, req ledgerdomain.TransferRequest) ([]*ledgerdomain.InventoryEvent, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	if req.FromLocationID == 0 || req.ToLocationID == 0 {
		return nil, ledgerdomain.ErrInvalidLocation
	}
	if req.FromLocationID == req.ToLocationID {
		return nil, ledgerdomain.ErrSameLocation
	}
	if req.ItemID == 0 {
		return nil, ledgerdomain.ErrInvalidItem
	}
	if req.Quantity <= 0 {
		return nil, ledgerdomain.ErrInvalidQuantity
	}

	occurredAt, err := s.resolveOccurredAt(req.OccurredAt)
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	var events []*ledgerdomain.InventoryEvent
	err = s.withRetry(ctx, func(tx *gorm.DB) error {
		events = events[:0]

		out, err := s.appendInTx(ctx, tx, orgID, ledgerdomain.AppendRequest{
			LocationID: req.FromLocationID,
			ItemID:     req.ItemID,
			Delta:      -req.Quantity,
			Kind:       ledgerdomain.KindTransferOut,
			ActorType:  req.ActorType,
			ActorID:    req.ActorID,
			Metadata:   req.Metadata,
		}, occurredAt)
		if err != nil {
			return err
		}

		in, err := s.appendInTx(ctx, tx, orgID, ledgerdomain.AppendRequest{
			LocationID: req.ToLocationID,
			ItemID:     req.ItemID,
			Delta:      req.Quantity,
			Kind:       ledgerdomain.KindTransferIn,
			ActorType:  req.ActorType,
			ActorID:    req.ActorID,
			Metadata:   req.Metadata,
		}, occurredAt)
		if err != nil {
			return err
		}

		events = append(events, out, in)
		return nil
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.EventsAppended.WithLabelValues(string(ledgerdomain.KindTransferOut)).Inc()
		s.metrics.EventsAppended.WithLabelValues(string(ledgerdomain.KindTransferIn)).Inc()
	}
	return events, nil
}

func (s *Service) Get(ctx context.Context, locationID, itemID snowflake.ID) (int64, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, ledgerdomain.ErrInvalidOrganization
	}

	var quantity int64
	err := s.db.WithContext(ctx).
		Model(&ledgerdomain.CurrentInventoryRecord{}).
		Where("org_id = ? AND location_id = ? AND item_id = ?", orgID, locationID, itemID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&quantity).Error
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

func (s *Service) List(ctx context.Context, locationID snowflake.ID, includeZero bool) ([]ledgerdomain.CurrentInventoryRecord, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}

	var records []ledgerdomain.CurrentInventoryRecord
	stmt := s.db.WithContext(ctx).
		Model(&ledgerdomain.CurrentInventoryRecord{}).
		Where("org_id = ? AND location_id = ?", orgID, locationID)
	if !includeZero {
		stmt = stmt.Where("quantity > 0")
	}
	if err := stmt.Order("item_id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Service) PurgeThrough(ctx context.Context, watermark int64) (int64, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, ledgerdomain.ErrInvalidOrganization
	}

	result := s.db.WithContext(ctx).
		Where("org_id = ? AND sequence <= ?", orgID, watermark).
		Delete(&ledgerdomain.InventoryEvent{})
	if result.Error != nil {
		return 0, result.Error
	}

	s.log.Info("event log purged",
		zap.String("org_id", orgID.String()),
		zap.Int64("watermark", watermark),
		zap.Int64("deleted", result.RowsAffected),
	)
	return result.RowsAffected, nil
}

// resolveOccurredAt defaults a zero occurred_at to the current instant
// and rejects one ahead of the clock. The current view applies deltas
// immediately, so a future-dated event would disagree with every
// reconstruction before its instant.
func (s *Service) resolveOccurredAt(occurredAt time.Time) (time.Time, error) {
	if occurredAt.IsZero() {
		return s.clock.Now().UTC(), nil
	}
	if occurredAt.After(s.clock.Now()) {
		return time.Time{}, ledgerdomain.ErrFutureOccurredAt
	}
	return occurredAt.UTC(), nil
}

// withRetry runs fn in a transaction, retrying a bounded number of times
// on transient lock or serialization failures.
func (s *Service) withRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	retries := s.policy.Get().MutationRetries
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		lastErr = s.db.WithContext(ctx).Transaction(fn)
		if lastErr == nil {
			return nil
		}
		if !db.IsSerializationErr(lastErr) {
			return lastErr
		}
		if s.metrics != nil {
			s.metrics.AppendConflicts.Inc()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
	s.log.Warn("append retries exhausted", zap.Error(lastErr))
	return ledgerdomain.ErrConcurrentModification
}

// appendInTx performs the whole mutation for one event on the given
// transaction: sequence assignment, reference validation, non-negativity
// check, event insert, view update, and version tracking.
func (s *Service) appendInTx(
	ctx context.Context,
	tx *gorm.DB,
	orgID snowflake.ID,
	req ledgerdomain.AppendRequest,
	occurredAt time.Time,
) (*ledgerdomain.InventoryEvent, error) {
	// Bumping the per-org counter first serializes every append for the
	// org, which is also what keeps the non-negativity check race-free.
	sequence, err := s.nextSequence(ctx, tx, orgID)
	if err != nil {
		return nil, err
	}

	if err := s.validateRefs(ctx, tx, orgID, req.LocationID, req.ItemID); err != nil {
		return nil, err
	}

	record, err := s.lockCurrentRecord(ctx, tx, orgID, req.LocationID, req.ItemID)
	if err != nil {
		return nil, err
	}

	oldQuantity := record.Quantity
	newQuantity := oldQuantity + req.Delta
	if newQuantity < 0 {
		return nil, ledgerdomain.ErrInsufficientQuantity
	}

	now := time.Now().UTC()
	event := &ledgerdomain.InventoryEvent{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		LocationID: req.LocationID,
		ItemID:     req.ItemID,
		Delta:      req.Delta,
		Kind:       req.Kind,
		OccurredAt: occurredAt,
		Sequence:   sequence,
		ActorType:  req.ActorType,
		ActorID:    req.ActorID,
		Metadata:   datatypes.JSONMap(req.Metadata),
		CreatedAt:  now,
	}
	if event.Metadata == nil {
		event.Metadata = datatypes.JSONMap{}
	}

	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO inventory_events (
			id, org_id, location_id, item_id, delta, kind, occurred_at,
			sequence, actor_type, actor_id, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.OrgID,
		event.LocationID,
		event.ItemID,
		event.Delta,
		string(event.Kind),
		event.OccurredAt,
		event.Sequence,
		event.ActorType,
		event.ActorID,
		event.Metadata,
		event.CreatedAt,
	).Error; err != nil {
		return nil, err
	}

	if record.ID == 0 {
		record.ID = s.genID.Generate()
		record.OrgID = orgID
		record.LocationID = req.LocationID
		record.ItemID = req.ItemID
		record.Quantity = newQuantity
		record.CreatedAt = now
		record.UpdatedAt = now
		if err := tx.WithContext(ctx).Create(record).Error; err != nil {
			return nil, err
		}
	} else {
		if err := tx.WithContext(ctx).
			Model(&ledgerdomain.CurrentInventoryRecord{}).
			Where("id = ?", record.ID).
			Updates(map[string]any{
				"quantity":   newQuantity,
				"updated_at": now,
			}).Error; err != nil {
			return nil, err
		}
	}

	oldValue := strconv.FormatInt(oldQuantity, 10)
	newValue := strconv.FormatInt(newQuantity, 10)
	version := &recordversiondomain.RecordVersion{
		OrgID:      orgID,
		RecordType: recordversiondomain.RecordTypeCurrentInventory,
		RecordID:   record.ID,
		Field:      "quantity",
		OldValue:   &oldValue,
		NewValue:   &newValue,
		ActorType:  req.ActorType,
		ActorID:    req.ActorID,
		Metadata: datatypes.JSONMap{
			"event_id": event.ID.String(),
			"kind":     string(req.Kind),
		},
		CreatedAt: now,
	}
	if err := s.versionSvc.Track(ctx, tx, version); err != nil {
		return nil, err
	}

	return event, nil
}

func (s *Service) nextSequence(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (int64, error) {
	now := time.Now().UTC()
	result := tx.WithContext(ctx).Exec(
		`UPDATE ledger_sequences SET last_sequence = last_sequence + 1, updated_at = ? WHERE org_id = ?`,
		now, orgID,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO ledger_sequences (org_id, last_sequence, updated_at) VALUES (?, 1, ?)`,
			orgID, now,
		).Error; err != nil {
			return 0, err
		}
		return 1, nil
	}

	var sequence int64
	if err := tx.WithContext(ctx).
		Raw(`SELECT last_sequence FROM ledger_sequences WHERE org_id = ?`, orgID).
		Scan(&sequence).Error; err != nil {
		return 0, err
	}
	return sequence, nil
}

func (s *Service) validateRefs(ctx context.Context, tx *gorm.DB, orgID, locationID, itemID snowflake.ID) error {
	var loc struct{ Active *bool }
	err := tx.WithContext(ctx).
		Raw(`SELECT active FROM storage_locations WHERE org_id = ? AND id = ?`, orgID, locationID).
		Scan(&loc).Error
	if err != nil {
		return err
	}
	if loc.Active == nil {
		return ledgerdomain.ErrLocationNotFound
	}
	if !*loc.Active {
		return ledgerdomain.ErrLocationDeactivated
	}

	var itemCount int64
	if err := tx.WithContext(ctx).
		Table("items").
		Where("org_id = ? AND id = ?", orgID, itemID).
		Count(&itemCount).Error; err != nil {
		return err
	}
	if itemCount == 0 {
		return ledgerdomain.ErrItemNotFound
	}
	return nil
}

func (s *Service) lockCurrentRecord(ctx context.Context, tx *gorm.DB, orgID, locationID, itemID snowflake.ID) (*ledgerdomain.CurrentInventoryRecord, error) {
	stmt := tx.WithContext(ctx)
	switch tx.Dialector.Name() {
	case "postgres", "mysql":
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var records []ledgerdomain.CurrentInventoryRecord
	err := stmt.
		Where("org_id = ? AND location_id = ? AND item_id = ?", orgID, locationID, itemID).
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &ledgerdomain.CurrentInventoryRecord{}, nil
	}
	return &records[0], nil
}

func validateAppend(req ledgerdomain.AppendRequest) error {
	if req.LocationID == 0 {
		return ledgerdomain.ErrInvalidLocation
	}
	if req.ItemID == 0 {
		return ledgerdomain.ErrInvalidItem
	}
	if req.Delta == 0 {
		return ledgerdomain.ErrInvalidDelta
	}
	if !req.Kind.Valid() {
		return ledgerdomain.ErrInvalidKind
	}
	return nil
}

func (s *Service) countRejection(err error) {
	if s.metrics == nil || err == nil {
		return
	}
	var reason string
	switch err {
	case ledgerdomain.ErrInsufficientQuantity:
		reason = "insufficient_quantity"
	case ledgerdomain.ErrLocationNotFound, ledgerdomain.ErrItemNotFound:
		reason = "unknown_reference"
	case ledgerdomain.ErrLocationDeactivated:
		reason = "location_deactivated"
	case ledgerdomain.ErrFutureOccurredAt:
		reason = "future_occurred_at"
	case ledgerdomain.ErrConcurrentModification:
		reason = "concurrent_modification"
	default:
		reason = "invalid_request"
	}
	s.metrics.AppendRejections.WithLabelValues(reason).Inc()
}
