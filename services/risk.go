package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"dular-server/apperr"
	"dular-server/logger"
	"dular-server/models"
)

const (
	confirmedIncidentWeight = 40
	openIncidentWeight      = 20
)

// RiskService derives a user's risk score from incidents reported against them.
type RiskService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRiskService(db *gorm.DB, log *logger.Logger) *RiskService {
	return &RiskService{db: db, log: log}
}

// ScoreFor weights confirmed and open incidents.
func ScoreFor(confirmed, open int) int {
	return confirmedIncidentWeight*confirmed + openIncidentWeight*open
}

// TierFor maps a score to a tier from 0 (none) to 3 (high).
func TierFor(score int) int {
	switch {
	case score >= 80:
		return 3
	case score >= 50:
		return 2
	case score >= 20:
		return 1
	default:
		return 0
	}
}

// RecomputeUserRisk recounts the incidents against a user and stores the
// resulting score and tier on the user.
func (s *RiskService) RecomputeUserRisk(ctx context.Context, userID uint) (score, tier int, err error) {
	const op = "risk.recompute"
	db := s.db.WithContext(ctx)

	var confirmed, open int64
	if err := db.Model(&models.IncidentReport{}).
		Where("reported_user_id = ? AND status = ?", userID, models.IncidentConfirmed).
		Count(&confirmed).Error; err != nil {
		return 0, 0, apperr.Internal(err).WithOp(op)
	}
	if err := db.Model(&models.IncidentReport{}).
		Where("reported_user_id = ? AND status = ?", userID, models.IncidentOpen).
		Count(&open).Error; err != nil {
		return 0, 0, apperr.Internal(err).WithOp(op)
	}

	score = ScoreFor(int(confirmed), int(open))
	tier = TierFor(score)

	res := db.Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"risk_score": score, "risk_tier": tier})
	if res.Error != nil {
		return 0, 0, apperr.Internal(res.Error).WithOp(op)
	}
	if res.RowsAffected == 0 {
		return 0, 0, apperr.NotFound("user not found").WithOp(op)
	}
	return score, tier, nil
}

// RecomputeAll refreshes every user that has been reported at least once.
func (s *RiskService) RecomputeAll(ctx context.Context) (int, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.IncidentReport{}).
		Distinct("reported_user_id").
		Pluck("reported_user_id", &ids).Error
	if err != nil {
		return 0, apperr.Internal(err).WithOp("risk.recompute_all")
	}
	var errs []error
	for _, id := range ids {
		if _, _, err := s.RecomputeUserRisk(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return len(ids) - len(errs), errors.Join(errs...)
}
