package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"dular-server/apperr"
	"dular-server/config"
	"dular-server/logger"
	"dular-server/models"
)

const mineListCap = 50

// RecomputeScheduler queues derived-stat recomputes for later retry.
type RecomputeScheduler interface {
	ScheduleProviderStats(ctx context.Context, providerUserID uint) error
	ScheduleUserRisk(ctx context.Context, userID uint) error
}

// LifecycleService drives a booking through its status graph.
type LifecycleService struct {
	db          *gorm.DB
	log         *logger.Logger
	eligibility *EligibilityService
	ledger      *Ledger
	rating      *RatingService
	scheduler   RecomputeScheduler
	loc         *time.Location
	lateWindow  time.Duration
	now         Clock
}

// NewLifecycleService creates a lifecycle service using the market rules in m.
func NewLifecycleService(db *gorm.DB, log *logger.Logger, m config.MarketConfig) *LifecycleService {
	lateHours := m.LateCancelHours
	if lateHours <= 0 {
		lateHours = 12
	}
	return &LifecycleService{
		db:          db,
		log:         log,
		eligibility: NewEligibilityService(db, m.SearchResultCap),
		ledger:      NewLedger(db, log),
		rating:      NewRatingService(db, log),
		loc:         m.Location(),
		lateWindow:  time.Duration(lateHours) * time.Hour,
		now:         systemClock,
	}
}

// WithScheduler sets where failed recomputes are queued.
func (s *LifecycleService) WithScheduler(sch RecomputeScheduler) *LifecycleService {
	s.scheduler = sch
	return s
}

// WithClock overrides the time source.
func (s *LifecycleService) WithClock(c Clock) *LifecycleService {
	s.now = c
	return s
}

func (s *LifecycleService) Eligibility() *EligibilityService { return s.eligibility }
func (s *LifecycleService) Ledger() *Ledger                   { return s.ledger }

// Create books a provider. The address is held back until the provider
// accepts, and the price is frozen from the provider's current table.
func (s *LifecycleService) Create(ctx context.Context, actor Actor, req models.CreateServiceRequest) (*models.Service, error) {
	const op = "service.create"

	if actor.Role != models.RoleClient {
		return nil, apperr.Forbidden("only clients can request a service").WithOp(op)
	}
	if !req.ServiceType.Valid() {
		return nil, apperr.BadRequest("unknown service type").WithOp(op)
	}
	if req.Category != nil && *req.Category == "" {
		req.Category = nil
	}
	if req.Category != nil && !req.Category.BelongsTo(req.ServiceType) {
		return nil, apperr.BadRequest("category does not belong to the service type").WithOp(op)
	}
	if !req.Shift.Valid() {
		return nil, apperr.BadRequest("unknown shift").WithOp(op)
	}
	address := strings.TrimSpace(req.FullAddress)
	if address == "" {
		return nil, apperr.BadRequest("full address is required").WithOp(op)
	}

	scheduledFor, err := s.scheduleTime(req.ScheduledDate, req.Shift)
	if err != nil {
		return nil, err
	}

	q := SearchQuery{
		City:         req.City,
		State:        req.State,
		Neighborhood: req.Neighborhood,
		Type:         &req.ServiceType,
		Category:     req.Category,
	}
	q.normalize()

	nb, err := s.eligibility.findNeighborhood(ctx, q.City, q.State, q.Neighborhood)
	if err != nil {
		return nil, err
	}
	if nb == nil {
		return nil, apperr.BadRequest("neighborhood is not registered").WithOp(op)
	}

	var provider models.User
	if err := s.db.WithContext(ctx).First(&provider, req.ProviderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.BadRequest("invalid provider").WithOp(op)
		}
		return nil, apperr.Internal(err).WithOp(op)
	}
	if !provider.IsProvider() || !provider.IsActive() {
		return nil, apperr.BadRequest("invalid provider").WithOp(op)
	}

	ok, err := s.eligibility.IsEligible(ctx, provider.ID, q)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.BadRequest("provider is not eligible for this request").WithOp(op)
	}

	var profile models.ProviderProfile
	if err := s.db.WithContext(ctx).Preload("Prices").Where("user_id = ?", provider.ID).First(&profile).Error; err != nil {
		return nil, notFoundOr(err, op, "provider profile")
	}
	price := profile.PriceFor(models.PriceCategory(req.ServiceType, req.Category))
	if price <= 0 {
		return nil, apperr.BadRequest("provider has no price for this category").WithOp(op)
	}

	svc := models.Service{
		Status:            models.StatusRequested,
		ServiceType:       req.ServiceType,
		Category:          req.Category,
		ScheduledDate:     req.ScheduledDate,
		Shift:             req.Shift,
		ScheduledFor:      scheduledFor,
		City:              q.City,
		State:             q.State,
		Neighborhood:      q.Neighborhood,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		PendingAddress:    address,
		FinalPriceCents:   price,
		Notes:             strings.TrimSpace(req.Notes),
		HasPet:            req.HasPet,
		ThreePlusBedrooms: req.ThreePlusBedrooms,
		TwoPlusBathrooms:  req.TwoPlusBathrooms,
		ClientID:          actor.ID,
		ProviderID:        provider.ID,
	}
	if err := s.db.WithContext(ctx).Create(&svc).Error; err != nil {
		s.log.DatabaseError(op, err)
		return nil, apperr.Internal(err).WithOp(op)
	}

	s.ledger.Append(ctx, svc.ID, "", models.StatusRequested, actor, map[string]interface{}{
		"final_price_cents": price,
	})
	s.log.Transition(svc.ID, "", string(models.StatusRequested), string(actor.Role), actor.ID)

	out := svc.Redacted()
	return &out, nil
}

// scheduleTime parses a YYYY-MM-DD date and rejects days before today in the
// market time zone. The result is the shift start, in UTC.
func (s *LifecycleService) scheduleTime(date string, shift models.Shift) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), s.loc)
	if err != nil {
		return time.Time{}, apperr.BadRequest("invalid scheduled date").WithOp("service.create")
	}
	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	if day.Before(today) {
		return time.Time{}, apperr.BadRequest("scheduled date is in the past").WithOp("service.create")
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), shift.StartHour(), 0, 0, 0, s.loc)
	return start.UTC(), nil
}

// Accept discloses the address to the provider.
func (s *LifecycleService) Accept(ctx context.Context, actor Actor, serviceID uint) (*models.Service, error) {
	return s.transition(ctx, actor, serviceID, ActionAccept, func(svc *models.Service, upd map[string]interface{}) {
		addr := svc.PendingAddress
		upd["full_address"] = addr
		svc.FullAddress = &addr
	}, nil, nil)
}

func (s *LifecycleService) Decline(ctx context.Context, actor Actor, serviceID uint) (*models.Service, error) {
	return s.transition(ctx, actor, serviceID, ActionDecline, nil, nil, nil)
}

func (s *LifecycleService) Start(ctx context.Context, actor Actor, serviceID uint) (*models.Service, error) {
	return s.transition(ctx, actor, serviceID, ActionStart, nil, nil, nil)
}

func (s *LifecycleService) Complete(ctx context.Context, actor Actor, serviceID uint) (*models.Service, error) {
	return s.transition(ctx, actor, serviceID, ActionComplete, nil, nil, nil)
}

// Confirm moves DONE to CONFIRMED and refreshes the provider's completed count.
func (s *LifecycleService) Confirm(ctx context.Context, actor Actor, serviceID uint) (*models.Service, error) {
	svc, err := s.transition(ctx, actor, serviceID, ActionConfirm, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	s.recomputeProvider(ctx, svc.ProviderID)
	return svc, nil
}

// Evaluate stores the client's ratings and finalizes the service in one
// transaction, then refreshes the provider's rating summary.
func (s *LifecycleService) Evaluate(ctx context.Context, actor Actor, serviceID uint, req models.EvaluateRequest) (*models.Service, *models.Evaluation, error) {
	for _, v := range []int{req.Overall, req.Punctuality, req.Quality, req.Communication} {
		if v < 1 || v > 5 {
			return nil, nil, apperr.BadRequest("ratings must be between 1 and 5").WithOp("service.evaluate")
		}
	}

	var eval models.Evaluation
	svc, err := s.transition(ctx, actor, serviceID, ActionEvaluate, nil, func(tx *gorm.DB, svc *models.Service) error {
		var existing int64
		if err := tx.Model(&models.Evaluation{}).Where("service_id = ?", svc.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.InvalidStatus("service already evaluated")
		}
		eval = models.Evaluation{
			ServiceID:     svc.ID,
			ClientID:      svc.ClientID,
			ProviderID:    svc.ProviderID,
			Overall:       req.Overall,
			Punctuality:   req.Punctuality,
			Quality:       req.Quality,
			Communication: req.Communication,
			Comment:       strings.TrimSpace(req.Comment),
		}
		return tx.Create(&eval).Error
	}, map[string]interface{}{"overall": req.Overall})
	if err != nil {
		return nil, nil, err
	}

	s.recomputeProvider(ctx, svc.ProviderID)
	return svc, &eval, nil
}

// Cancel ends a REQUESTED or ACCEPTED service. Cancelling within the late
// window is allowed and only flagged.
func (s *LifecycleService) Cancel(ctx context.Context, actor Actor, serviceID uint, reason string) (*models.Service, error) {
	reason = strings.TrimSpace(reason)
	meta := map[string]interface{}{}
	return s.transition(ctx, actor, serviceID, ActionCancel, func(svc *models.Service, upd map[string]interface{}) {
		late := svc.ScheduledFor.Sub(s.now()) < s.lateWindow
		tag := "OK"
		if late {
			tag = "LATE"
		}
		note := strings.TrimSpace(fmt.Sprintf("[CANCELED %s by %s] %s", tag, actor.Role, reason))
		notes := strings.TrimSpace(strings.TrimSpace(svc.Notes) + "\n" + note)
		role := actor.Role

		upd["notes"] = appendNote(note)
		upd["late_cancellation"] = late
		upd["canceled_by_role"] = role
		svc.Notes = notes
		svc.LateCancellation = late
		svc.CanceledByRole = &role

		meta["late"] = late
		if reason != "" {
			meta["reason"] = reason
		}
	}, nil, meta)
}

// transition runs the guard sequence shared by every lifecycle action:
// load, permission, status, then a write conditioned on the observed status.
// prepare adds column changes; inTx runs inside the same transaction as the
// status write. The ledger event is appended after commit.
func (s *LifecycleService) transition(
	ctx context.Context,
	actor Actor,
	serviceID uint,
	action Action,
	prepare func(svc *models.Service, upd map[string]interface{}),
	inTx func(tx *gorm.DB, svc *models.Service) error,
	metadata map[string]interface{},
) (*models.Service, error) {
	op := "service." + string(action)

	var svc models.Service
	if err := s.db.WithContext(ctx).First(&svc, serviceID).Error; err != nil {
		return nil, notFoundOr(err, op, "service")
	}
	if !permits(action, actor, &svc) {
		return nil, apperr.Forbidden("not allowed to " + string(action) + " this service").WithOp(op)
	}
	from := svc.Status
	to, ok := Next(from, action)
	if !ok {
		return nil, apperr.InvalidStatus(fmt.Sprintf("cannot %s a service in status %s", action, from)).WithOp(op)
	}

	upd := map[string]interface{}{"status": to}
	if prepare != nil {
		prepare(&svc, upd)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Service{}).
			Where("id = ? AND status = ?", svc.ID, from).
			Updates(upd)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidStatus("service status changed concurrently")
		}
		if inTx != nil {
			return inTx(tx, &svc)
		}
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, appErr.WithOp(op)
		}
		s.log.DatabaseError(op, err)
		return nil, apperr.Internal(err).WithOp(op)
	}
	svc.Status = to

	s.ledger.Append(ctx, svc.ID, from, to, actor, metadata)
	s.log.Transition(svc.ID, string(from), string(to), string(actor.Role), actor.ID)

	out := svc.Redacted()
	return &out, nil
}

// recomputeProvider runs the rating aggregator inline and falls back to the
// scheduler when it fails.
func (s *LifecycleService) recomputeProvider(ctx context.Context, providerUserID uint) {
	_, err := s.rating.RecomputeProviderStats(ctx, providerUserID)
	if err == nil {
		return
	}
	s.log.Error("rating_recompute_failed", slog.Uint64("provider_id", uint64(providerUserID)), slog.String("error", err.Error()))
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleProviderStats(ctx, providerUserID); err != nil {
		s.log.Error("rating_recompute_schedule_failed", slog.Uint64("provider_id", uint64(providerUserID)), slog.String("error", err.Error()))
	}
}

// Get returns one service to one of its parties or an admin.
func (s *LifecycleService) Get(ctx context.Context, actor Actor, serviceID uint) (*models.Service, error) {
	var svc models.Service
	if err := s.db.WithContext(ctx).Preload("Client").Preload("Provider").First(&svc, serviceID).Error; err != nil {
		return nil, notFoundOr(err, "service.get", "service")
	}
	if actor.Role != models.RoleAdmin && !svc.IsParty(actor.ID) {
		return nil, apperr.Forbidden("not a party to this service").WithOp("service.get")
	}
	out := svc.Redacted()
	return &out, nil
}

// ListMine returns the caller's most recent services, newest first.
// Admins see every service.
func (s *LifecycleService) ListMine(ctx context.Context, actor Actor) ([]models.Service, error) {
	q := s.db.WithContext(ctx).Preload("Client").Preload("Provider")
	switch actor.Role {
	case models.RoleClient:
		q = q.Where("client_id = ?", actor.ID)
	case models.RoleProvider:
		q = q.Where("provider_id = ?", actor.ID)
	}

	var list []models.Service
	if err := q.Order("created_at DESC, id DESC").Limit(mineListCap).Find(&list).Error; err != nil {
		return nil, apperr.Internal(err).WithOp("service.mine")
	}
	for i := range list {
		list[i] = list[i].Redacted()
	}
	return list, nil
}
