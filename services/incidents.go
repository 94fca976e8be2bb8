package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"dular-server/apperr"
	"dular-server/logger"
	"dular-server/models"
	"dular-server/storage"
	"dular-server/utils"
)

const (
	MaxIncidentFiles    = 3
	MaxIncidentFileSize = 10 << 20
	incidentListCap     = 100
	sosDescription      = "Silent SOS triggered by the user."
)

var allowedIncidentMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Upload is one evidence file attached to a new incident.
type Upload struct {
	Filename string
	Mime     string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// IncidentService files and reviews incident reports.
type IncidentService struct {
	db        *gorm.DB
	log       *logger.Logger
	store     storage.AttachmentStore
	risk      *RiskService
	scheduler RecomputeScheduler
}

func NewIncidentService(db *gorm.DB, log *logger.Logger, store storage.AttachmentStore) *IncidentService {
	return &IncidentService{
		db:    db,
		log:   log,
		store: store,
		risk:  NewRiskService(db, log),
	}
}

// WithScheduler sets where failed risk recomputes are queued.
func (s *IncidentService) WithScheduler(sch RecomputeScheduler) *IncidentService {
	s.scheduler = sch
	return s
}

// Create files a report against another user. Files that are not jpeg or
// png images are rejected.
func (s *IncidentService) Create(ctx context.Context, actor Actor, req models.CreateIncidentRequest, files []Upload) (*models.IncidentReport, error) {
	const op = "incident.create"

	req.Description = strings.TrimSpace(req.Description)
	if !req.Type.Valid() {
		return nil, apperr.BadRequest("invalid incident type").WithOp(op)
	}
	if req.Severity == "" {
		req.Severity = models.SeverityMedium
	}
	if !req.Severity.Valid() {
		return nil, apperr.BadRequest("invalid severity").WithOp(op)
	}
	if len(req.Description) < 4 {
		return nil, apperr.BadRequest("description is too short").WithOp(op)
	}
	if req.ReportedUserID == actor.ID {
		return nil, apperr.BadRequest("cannot report yourself").WithOp(op)
	}
	if len(files) > MaxIncidentFiles {
		return nil, apperr.BadRequest(fmt.Sprintf("at most %d attachments are allowed", MaxIncidentFiles)).WithOp(op)
	}
	for _, f := range files {
		if !allowedIncidentMime[f.Mime] {
			return nil, apperr.BadRequest("attachments must be jpeg or png images").WithOp(op)
		}
		if f.Size > MaxIncidentFileSize {
			return nil, apperr.BadRequest("attachment exceeds 10MB").WithOp(op)
		}
	}

	var reported models.User
	if err := s.db.WithContext(ctx).First(&reported, req.ReportedUserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.BadRequest("reported user not found").WithOp(op)
		}
		return nil, apperr.Internal(err).WithOp(op)
	}

	report := models.IncidentReport{
		ReporterID:     actor.ID,
		ReportedUserID: reported.ID,
		ServiceID:      req.ServiceID,
		Type:           req.Type,
		Severity:       req.Severity,
		Description:    req.Description,
		Status:         models.IncidentOpen,
	}
	// The report and its attachments commit together; a failed upload
	// leaves no report behind.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		folder := fmt.Sprintf("%d", report.ID)
		for _, f := range files {
			att, err := s.storeFile(ctx, folder, f)
			if err != nil {
				s.log.Error("incident_attachment_failed", slog.Uint64("incident_id", uint64(report.ID)), slog.String("error", err.Error()))
				return err
			}
			att.IncidentID = report.ID
			if err := tx.Create(&att).Error; err != nil {
				return err
			}
			report.Attachments = append(report.Attachments, att)
		}
		return nil
	})
	if err != nil {
		s.log.DatabaseError(op, err)
		return nil, apperr.Internal(err).WithOp(op)
	}

	return &report, nil
}

func (s *IncidentService) storeFile(ctx context.Context, folder string, f Upload) (models.IncidentAttachment, error) {
	rc, err := f.Open()
	if err != nil {
		return models.IncidentAttachment{}, err
	}
	defer rc.Close()

	obj, err := s.store.Put(ctx, folder, f.Mime, io.LimitReader(rc, MaxIncidentFileSize), f.Size)
	if err != nil {
		return models.IncidentAttachment{}, err
	}
	return models.IncidentAttachment{Key: obj.Key, URL: obj.URL, Mime: obj.Mime, Size: obj.Size}, nil
}

// List returns the newest reports, optionally filtered by status.
func (s *IncidentService) List(ctx context.Context, status models.IncidentStatus) ([]models.IncidentReport, error) {
	q := s.db.WithContext(ctx).Preload("Reporter").Preload("ReportedUser")
	if status != "" {
		if !status.Valid() {
			return nil, apperr.BadRequest("invalid incident status").WithOp("incident.list")
		}
		q = q.Where("status = ?", status)
	}
	var list []models.IncidentReport
	if err := q.Order("created_at DESC, id DESC").Limit(incidentListCap).Find(&list).Error; err != nil {
		return nil, apperr.Internal(err).WithOp("incident.list")
	}
	return list, nil
}

// Get returns one report with its attachments and parties.
func (s *IncidentService) Get(ctx context.Context, id uint) (*models.IncidentReport, error) {
	var report models.IncidentReport
	err := s.db.WithContext(ctx).
		Preload("Attachments").Preload("Reporter").Preload("ReportedUser").
		First(&report, id).Error
	if err != nil {
		return nil, notFoundOr(err, "incident.get", "incident")
	}
	return &report, nil
}

// UpdateStatus moves a report to a new review status. Moving into or out of a
// status counted by the risk score refreshes the reported user's tier.
func (s *IncidentService) UpdateStatus(ctx context.Context, id uint, status models.IncidentStatus) (*models.IncidentReport, error) {
	const op = "incident.update_status"
	if !status.Valid() {
		return nil, apperr.BadRequest("invalid incident status").WithOp(op)
	}

	var report models.IncidentReport
	if err := s.db.WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, notFoundOr(err, op, "incident")
	}
	prev := report.Status
	if err := s.db.WithContext(ctx).Model(&report).Update("status", status).Error; err != nil {
		s.log.DatabaseError(op, err)
		return nil, apperr.Internal(err).WithOp(op)
	}
	report.Status = status

	if prev != status && (prev.CountsTowardRisk() || status.CountsTowardRisk()) {
		s.recomputeRisk(ctx, report.ReportedUserID)
	}
	return &report, nil
}

func (s *IncidentService) recomputeRisk(ctx context.Context, userID uint) {
	_, _, err := s.risk.RecomputeUserRisk(ctx, userID)
	if err == nil {
		return
	}
	s.log.Error("risk_recompute_failed", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleUserRisk(ctx, userID); err != nil {
		s.log.Error("risk_recompute_schedule_failed", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
	}
}

// Checkin records that the user is safe.
func (s *IncidentService) Checkin(ctx context.Context, actor Actor, req models.SafetyRequest) (*models.SafetyEvent, error) {
	ev := models.SafetyEvent{
		Type:      models.SafetyCheckinOK,
		UserID:    actor.ID,
		ServiceID: req.ServiceID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if err := s.db.WithContext(ctx).Create(&ev).Error; err != nil {
		s.log.DatabaseError("safety.checkin", err)
		return nil, apperr.Internal(err).WithOp("safety.checkin")
	}
	return &ev, nil
}

// SOS records a silent alert. When it names a service the caller is a party
// to, a high-severity incident is opened against the other party.
func (s *IncidentService) SOS(ctx context.Context, actor Actor, req models.SafetyRequest) (*models.SafetyEvent, *models.IncidentReport, error) {
	const op = "safety.sos"
	ev := models.SafetyEvent{
		Type:      models.SafetySOSSilent,
		UserID:    actor.ID,
		ServiceID: req.ServiceID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	var report *models.IncidentReport
	var svc models.Service

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ev).Error; err != nil {
			return err
		}
		if req.ServiceID == nil {
			return nil
		}
		if err := tx.First(&svc, *req.ServiceID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if !svc.IsParty(actor.ID) {
			return nil
		}
		report = &models.IncidentReport{
			ReporterID:     actor.ID,
			ReportedUserID: svc.Counterpart(actor.ID),
			ServiceID:      &svc.ID,
			Type:           models.IncidentOther,
			Severity:       models.SeverityHigh,
			Description:    sosDescription,
			Status:         models.IncidentOpen,
		}
		return tx.Create(report).Error
	})
	if err != nil {
		s.log.DatabaseError(op, err)
		return nil, nil, apperr.Internal(err).WithOp(op)
	}
	if report != nil {
		attrs := []any{slog.Uint64("incident_id", uint64(report.ID)), slog.Uint64("user_id", uint64(actor.ID))}
		if km, ok := utils.DistanceFrom(req.Latitude, req.Longitude, svc.Latitude, svc.Longitude); ok {
			attrs = append(attrs, slog.Float64("distance_from_service_km", km))
		}
		s.log.Warn("sos_incident_opened", attrs...)
	}
	return &ev, report, nil
}
