package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dular-server/apperr"
	"dular-server/logger"
	"dular-server/models"
)

// Ledger is the append-only history of service status changes.
type Ledger struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLedger(db *gorm.DB, log *logger.Logger) *Ledger {
	return &Ledger{db: db, log: log}
}

// Append records one event. Failures are logged and swallowed: a committed
// transition is never undone because its history row could not be written.
func (l *Ledger) Append(ctx context.Context, serviceID uint, from, to models.ServiceStatus, actor Actor, metadata map[string]interface{}) {
	ev := models.ServiceEvent{
		ServiceID:  serviceID,
		FromStatus: from,
		ToStatus:   to,
		ActorRole:  actor.Role,
		ActorID:    actor.ID,
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			l.log.Error("ledger_metadata_encode", slog.Uint64("service_id", uint64(serviceID)), slog.String("error", err.Error()))
		} else {
			ev.Metadata = datatypes.JSON(raw)
		}
	}

	if err := l.db.WithContext(ctx).Create(&ev).Error; err != nil {
		l.log.DatabaseError("ledger.append", err)
	}
}

// List returns the events of a service in the order they were written.
func (l *Ledger) List(ctx context.Context, serviceID uint) ([]models.ServiceEvent, error) {
	var events []models.ServiceEvent
	err := l.db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, apperr.Internal(err).WithOp("ledger.list")
	}
	return events, nil
}
