package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"dular-server/apperr"
	"dular-server/models"
)

// SearchQuery selects providers for a location and, optionally, a kind of work.
type SearchQuery struct {
	City         string
	State        string
	Neighborhood string
	Type         *models.ServiceType
	Category     *models.ServiceCategory
}

func (q *SearchQuery) normalize() {
	q.City = strings.TrimSpace(q.City)
	q.State = strings.ToUpper(strings.TrimSpace(q.State))
	q.Neighborhood = strings.TrimSpace(q.Neighborhood)
	if q.Type != nil && *q.Type == "" {
		q.Type = nil
	}
	if q.Category != nil && *q.Category == "" {
		q.Category = nil
	}
}

func (q SearchQuery) validate() error {
	if q.City == "" || q.State == "" || q.Neighborhood == "" {
		return apperr.BadRequest("city, state and neighborhood are required")
	}
	if q.Type != nil && !q.Type.Valid() {
		return apperr.BadRequest("unknown service type")
	}
	if q.Category != nil {
		if q.Type == nil {
			return apperr.BadRequest("category requires a service type")
		}
		if !q.Category.BelongsTo(*q.Type) {
			return apperr.BadRequest("category does not belong to the service type")
		}
	}
	return nil
}

// EligibilityService resolves which providers a client may book.
type EligibilityService struct {
	db        *gorm.DB
	resultCap int
}

func NewEligibilityService(db *gorm.DB, resultCap int) *EligibilityService {
	if resultCap <= 0 {
		resultCap = 50
	}
	return &EligibilityService{db: db, resultCap: resultCap}
}

// Search lists eligible providers ordered by mean rating, then completed
// services, then profile id. An unknown neighborhood yields an empty list.
func (s *EligibilityService) Search(ctx context.Context, q SearchQuery) ([]models.SearchResult, error) {
	q.normalize()
	if err := q.validate(); err != nil {
		return nil, err
	}

	nb, err := s.findNeighborhood(ctx, q.City, q.State, q.Neighborhood)
	if err != nil {
		return nil, err
	}
	results := []models.SearchResult{}
	if nb == nil {
		return results, nil
	}

	cols := "users.id AS provider_id, provider_profiles.id AS profile_id, users.full_name, provider_profiles.bio, " +
		"provider_profiles.mean_rating, provider_profiles.rating_count, provider_profiles.completed_services, users.risk_tier"

	query := eligibleProviders(s.db.WithContext(ctx), nb.ID, q.Type, q.Category)
	if q.Type != nil {
		cols += ", COALESCE(pp.amount_cents, 0) AS price_cents"
		query = query.Joins("LEFT JOIN provider_prices pp ON pp.provider_profile_id = provider_profiles.id AND pp.category = ?",
			models.PriceCategory(*q.Type, q.Category))
	}

	err = query.
		Select(cols).
		Order("provider_profiles.mean_rating DESC, provider_profiles.completed_services DESC, provider_profiles.id ASC").
		Limit(s.resultCap).
		Scan(&results).Error
	if err != nil {
		return nil, apperr.Internal(err).WithOp("eligibility.search")
	}
	return results, nil
}

// IsEligible applies the search predicate to a single provider.
func (s *EligibilityService) IsEligible(ctx context.Context, providerUserID uint, q SearchQuery) (bool, error) {
	q.normalize()
	if err := q.validate(); err != nil {
		return false, err
	}
	nb, err := s.findNeighborhood(ctx, q.City, q.State, q.Neighborhood)
	if err != nil || nb == nil {
		return false, err
	}

	var count int64
	err = eligibleProviders(s.db.WithContext(ctx), nb.ID, q.Type, q.Category).
		Where("provider_profiles.user_id = ?", providerUserID).
		Count(&count).Error
	if err != nil {
		return false, apperr.Internal(err).WithOp("eligibility.check")
	}
	return count > 0, nil
}

// findNeighborhood returns nil without error when the place is unknown.
func (s *EligibilityService) findNeighborhood(ctx context.Context, city, state, name string) (*models.Neighborhood, error) {
	var nb models.Neighborhood
	err := s.db.WithContext(ctx).
		Where("name = ? AND city = ? AND state = ?", name, city, state).
		First(&nb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err).WithOp("eligibility.neighborhood")
	}
	return &nb, nil
}

// eligibleProviders is the single eligibility predicate shared by search
// and booking.
func eligibleProviders(db *gorm.DB, neighborhoodID uint, t *models.ServiceType, c *models.ServiceCategory) *gorm.DB {
	q := db.Table("provider_profiles").
		Joins("JOIN users ON users.id = provider_profiles.user_id").
		Where("provider_profiles.verification = ?", models.VerificationApproved).
		Where("users.status = ? AND users.role = ?", models.UserStatusActive, models.RoleProvider).
		Where("EXISTS (SELECT 1 FROM provider_neighborhoods pn WHERE pn.provider_profile_id = provider_profiles.id AND pn.neighborhood_id = ?)", neighborhoodID)

	if t == nil {
		return q
	}
	if c == nil {
		return q.Where("EXISTS (SELECT 1 FROM provider_skills ps WHERE ps.provider_profile_id = provider_profiles.id AND ps.service_type = ?)", *t)
	}
	return q.Where("EXISTS (SELECT 1 FROM provider_skills ps WHERE ps.provider_profile_id = provider_profiles.id AND ps.service_type = ? AND ps.category = ?)", *t, *c)
}
