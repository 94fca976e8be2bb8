package services

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"gorm.io/gorm"

	"dular-server/apperr"
	"dular-server/logger"
	"dular-server/models"
)

// RatingService keeps provider rating summaries in sync with evaluations.
type RatingService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRatingService(db *gorm.DB, log *logger.Logger) *RatingService {
	return &RatingService{db: db, log: log}
}

// RecomputeProviderStats rebuilds the summary of one provider from scratch.
// Running it twice gives the same result.
func (s *RatingService) RecomputeProviderStats(ctx context.Context, providerUserID uint) (models.ProviderStats, error) {
	const op = "rating.recompute"
	db := s.db.WithContext(ctx)

	var overall []int
	if err := db.Model(&models.Evaluation{}).Where("provider_id = ?", providerUserID).Pluck("overall", &overall).Error; err != nil {
		return models.ProviderStats{}, apperr.Internal(err).WithOp(op)
	}

	var completed int64
	err := db.Model(&models.Service{}).
		Where("provider_id = ? AND status IN ?", providerUserID, []models.ServiceStatus{models.StatusConfirmed, models.StatusFinalized}).
		Count(&completed).Error
	if err != nil {
		return models.ProviderStats{}, apperr.Internal(err).WithOp(op)
	}

	stats := models.ProviderStats{
		ProviderID:        providerUserID,
		MeanRating:        MeanRating(overall),
		RatingCount:       len(overall),
		CompletedServices: int(completed),
	}

	res := db.Model(&models.ProviderProfile{}).
		Where("user_id = ?", providerUserID).
		Updates(map[string]interface{}{
			"mean_rating":        stats.MeanRating,
			"rating_count":       stats.RatingCount,
			"completed_services": stats.CompletedServices,
		})
	if res.Error != nil {
		return models.ProviderStats{}, apperr.Internal(res.Error).WithOp(op)
	}
	if res.RowsAffected == 0 {
		s.log.Warn("rating_recompute_no_profile", slog.Uint64("provider_id", uint64(providerUserID)))
	}
	return stats, nil
}

// RecomputeAll rebuilds the summary of every provider profile.
func (s *RatingService) RecomputeAll(ctx context.Context) (int, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.ProviderProfile{}).Pluck("user_id", &ids).Error; err != nil {
		return 0, apperr.Internal(err).WithOp("rating.recompute_all")
	}
	var errs []error
	for _, id := range ids {
		if _, err := s.RecomputeProviderStats(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return len(ids) - len(errs), errors.Join(errs...)
}

// MeanRating averages the overall scores rounded to two decimals; 0 when empty.
func MeanRating(overall []int) float64 {
	if len(overall) == 0 {
		return 0
	}
	sum := 0
	for _, v := range overall {
		sum += v
	}
	mean := float64(sum) / float64(len(overall))
	return math.Round(mean*100) / 100
}
