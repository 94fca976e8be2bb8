package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dular-server/apperr"
	"dular-server/logger"
	"dular-server/models"
)

const (
	opsQueueCap         = 200
	userListCap         = 200
	acceptanceOverdue   = 30 * time.Minute
	confirmationOverdue = 12 * time.Hour
	defaultDisputeNote  = "Marked as disputed by admin"
)

// AdminService holds the back-office operations.
type AdminService struct {
	db     *gorm.DB
	log    *logger.Logger
	ledger *Ledger
	now    Clock
}

func NewAdminService(db *gorm.DB, log *logger.Logger, ledger *Ledger) *AdminService {
	return &AdminService{db: db, log: log, ledger: ledger, now: systemClock}
}

// WithClock overrides the time source.
func (s *AdminService) WithClock(c Clock) *AdminService {
	s.now = c
	return s
}

// ListUsers returns the newest users, optionally of one role.
func (s *AdminService) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	q := s.db.WithContext(ctx)
	if role != "" {
		if !role.Valid() {
			return nil, apperr.BadRequest("invalid role").WithOp("admin.users")
		}
		q = q.Where("role = ?", role)
	}
	var users []models.User
	if err := q.Order("created_at DESC, id DESC").Limit(userListCap).Find(&users).Error; err != nil {
		return nil, apperr.Internal(err).WithOp("admin.users")
	}
	return users, nil
}

// SetUserStatus blocks or reactivates an account.
func (s *AdminService) SetUserStatus(ctx context.Context, actor Actor, userID uint, status models.UserStatus) (*models.User, error) {
	const op = "admin.user_status"
	if status != models.UserStatusActive && status != models.UserStatusBlocked {
		return nil, apperr.BadRequest("invalid user status").WithOp(op)
	}
	if userID == actor.ID && status == models.UserStatusBlocked {
		return nil, apperr.BadRequest("admins cannot block themselves").WithOp(op)
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFoundOr(err, op, "user")
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("status", status).Error; err != nil {
		s.log.DatabaseError(op, err)
		return nil, apperr.Internal(err).WithOp(op)
	}
	user.Status = status
	return &user, nil
}

// SetVerification approves or rejects a provider. A rejection needs a reason.
func (s *AdminService) SetVerification(ctx context.Context, providerUserID uint, approve bool, reason string) (*models.ProviderProfile, error) {
	const op = "admin.verification"
	reason = strings.TrimSpace(reason)
	if !approve && reason == "" {
		return nil, apperr.BadRequest("a reason is required to reject a verification").WithOp(op)
	}

	var profile models.ProviderProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", providerUserID).First(&profile).Error; err != nil {
		return nil, notFoundOr(err, op, "provider profile")
	}

	upd := map[string]interface{}{
		"verification":      models.VerificationApproved,
		"verification_note": reason,
	}
	if !approve {
		upd["verification"] = models.VerificationRejected
	}
	if err := s.db.WithContext(ctx).Model(&profile).Updates(upd).Error; err != nil {
		s.log.DatabaseError(op, err)
		return nil, apperr.Internal(err).WithOp(op)
	}
	profile.Verification = upd["verification"].(models.Verification)
	profile.VerificationNote = reason
	return &profile, nil
}

// MarkDispute flags a service without changing its status: a note is added
// and a ledger event with equal from and to statuses is written.
func (s *AdminService) MarkDispute(ctx context.Context, actor Actor, serviceID uint, reason string) (*models.Service, error) {
	const op = "admin.dispute"
	if actor.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("admin only").WithOp(op)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultDisputeNote
	}

	var svc models.Service
	if err := s.db.WithContext(ctx).First(&svc, serviceID).Error; err != nil {
		return nil, notFoundOr(err, op, "service")
	}

	tag := fmt.Sprintf("[ADMIN %s] DISPUTE: %s", s.now().UTC().Format(time.RFC3339), reason)
	// UpdateColumn leaves updated_at alone.
	if err := s.db.WithContext(ctx).Model(&models.Service{}).Where("id = ?", svc.ID).UpdateColumn("notes", appendNote(tag)).Error; err != nil {
		s.log.DatabaseError(op, err)
		return nil, apperr.Internal(err).WithOp(op)
	}
	var notes []string
	if err := s.db.WithContext(ctx).Model(&models.Service{}).Where("id = ?", svc.ID).Pluck("notes", &notes).Error; err != nil {
		s.log.DatabaseError(op, err)
		return nil, apperr.Internal(err).WithOp(op)
	}
	if len(notes) == 1 {
		svc.Notes = notes[0]
	}

	s.ledger.Append(ctx, svc.ID, svc.Status, svc.Status, actor, map[string]interface{}{
		"dispute": true,
		"reason":  reason,
	})
	out := svc.Redacted()
	return &out, nil
}

// ServiceEvents returns the ledger of one service.
func (s *AdminService) ServiceEvents(ctx context.Context, serviceID uint) ([]models.ServiceEvent, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Service{}).Where("id = ?", serviceID).Count(&count).Error; err != nil {
		return nil, apperr.Internal(err).WithOp("admin.events")
	}
	if count == 0 {
		return nil, apperr.NotFound("service not found").WithOp("admin.events")
	}
	return s.ledger.List(ctx, serviceID)
}

// OpsQueue lists services stuck waiting on a party.
type OpsQueue struct {
	AwaitingAcceptance   []models.Service `json:"awaiting_acceptance"`
	AwaitingConfirmation []models.Service `json:"awaiting_confirmation"`
}

// doneAtSQL is when a service last moved into DONE per the ledger, or its
// updated_at when that event is missing. Dispute events (from = to) are
// not moves.
const doneAtSQL = `COALESCE((SELECT MAX(e.created_at) FROM service_events e
	WHERE e.service_id = services.id AND e.to_status = ? AND e.from_status <> e.to_status),
	services.updated_at)`

// OpsQueue returns REQUESTED services older than 30 minutes and services
// DONE for more than 12 hours, oldest first.
func (s *AdminService) OpsQueue(ctx context.Context) (*OpsQueue, error) {
	now := s.now().UTC()
	out := &OpsQueue{AwaitingAcceptance: []models.Service{}, AwaitingConfirmation: []models.Service{}}

	err := s.db.WithContext(ctx).Preload("Client").Preload("Provider").
		Where("status = ? AND created_at < ?", models.StatusRequested, now.Add(-acceptanceOverdue)).
		Order("created_at ASC").Limit(opsQueueCap).
		Find(&out.AwaitingAcceptance).Error
	if err != nil {
		return nil, apperr.Internal(err).WithOp("admin.ops_queue")
	}

	doneAt := clause.Expr{SQL: doneAtSQL, Vars: []interface{}{models.StatusDone}}
	err = s.db.WithContext(ctx).Preload("Client").Preload("Provider").
		Where("status = ?", models.StatusDone).
		Where("? < ?", doneAt, now.Add(-confirmationOverdue)).
		Order(clause.OrderBy{Expression: clause.Expr{SQL: "? ASC", Vars: []interface{}{doneAt}}}).
		Limit(opsQueueCap).
		Find(&out.AwaitingConfirmation).Error
	if err != nil {
		return nil, apperr.Internal(err).WithOp("admin.ops_queue")
	}

	for i := range out.AwaitingAcceptance {
		out.AwaitingAcceptance[i] = out.AwaitingAcceptance[i].Redacted()
	}
	for i := range out.AwaitingConfirmation {
		out.AwaitingConfirmation[i] = out.AwaitingConfirmation[i].Redacted()
	}
	return out, nil
}
