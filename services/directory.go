package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"dular-server/apperr"
	"dular-server/logger"
	"dular-server/models"
)

const (
	MinPriceCents = 1000
	MaxPriceCents = 800000
)

// DirectoryService lets providers maintain what, where and when they serve.
type DirectoryService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDirectoryService(db *gorm.DB, log *logger.Logger) *DirectoryService {
	return &DirectoryService{db: db, log: log}
}

// profileFor loads the provider's profile, creating an empty one on first use.
func (s *DirectoryService) profileFor(ctx context.Context, actor Actor) (*models.ProviderProfile, error) {
	if actor.Role != models.RoleProvider {
		return nil, apperr.Forbidden("only providers have a profile")
	}
	var profile models.ProviderProfile
	err := s.db.WithContext(ctx).
		Where(models.ProviderProfile{UserID: actor.ID}).
		FirstOrCreate(&profile).Error
	if err != nil {
		return nil, apperr.Internal(err).WithOp("directory.profile")
	}
	return &profile, nil
}

// Me returns the caller's profile with every related table loaded.
func (s *DirectoryService) Me(ctx context.Context, actor Actor) (*models.ProviderProfile, error) {
	profile, err := s.profileFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.loadProfile(ctx, profile.ID)
}

func (s *DirectoryService) loadProfile(ctx context.Context, id uint) (*models.ProviderProfile, error) {
	var profile models.ProviderProfile
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Skills", func(db *gorm.DB) *gorm.DB { return db.Order("service_type ASC, category ASC") }).
		Preload("Prices", func(db *gorm.DB) *gorm.DB { return db.Order("category ASC") }).
		Preload("Neighborhoods.Neighborhood").
		Preload("Availability", func(db *gorm.DB) *gorm.DB { return db.Order("weekday ASC, shift ASC") }).
		First(&profile, id).Error
	if err != nil {
		return nil, notFoundOr(err, "directory.load", "provider profile")
	}
	return &profile, nil
}

// UpdatePrices replaces the caller's price table. Existing services keep the
// price they were booked at.
func (s *DirectoryService) UpdatePrices(ctx context.Context, actor Actor, prices []models.PriceInput) ([]models.ProviderPrice, error) {
	const op = "directory.prices"
	seen := map[models.ServiceCategory]bool{}
	for _, p := range prices {
		if !p.Category.Valid() {
			return nil, apperr.BadRequest("unknown category " + string(p.Category)).WithOp(op)
		}
		if p.AmountCents < MinPriceCents || p.AmountCents > MaxPriceCents {
			return nil, apperr.BadRequest("price must be between 1000 and 800000 cents").WithOp(op)
		}
		if seen[p.Category] {
			return nil, apperr.BadRequest("duplicate category " + string(p.Category)).WithOp(op)
		}
		seen[p.Category] = true
	}

	profile, err := s.profileFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	rows := make([]models.ProviderPrice, 0, len(prices))
	for _, p := range prices {
		rows = append(rows, models.ProviderPrice{ProviderProfileID: profile.ID, Category: p.Category, AmountCents: p.AmountCents})
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("provider_profile_id = ?", profile.ID).Delete(&models.ProviderPrice{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		s.log.DatabaseError(op, err)
		return nil, apperr.Internal(err).WithOp(op)
	}
	return rows, nil
}

// Skills lists the caller's skill tags.
func (s *DirectoryService) Skills(ctx context.Context, actor Actor) ([]models.ProviderSkill, error) {
	profile, err := s.profileFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	var skills []models.ProviderSkill
	err = s.db.WithContext(ctx).
		Where("provider_profile_id = ?", profile.ID).
		Order("service_type ASC, category ASC").
		Find(&skills).Error
	if err != nil {
		return nil, apperr.Internal(err).WithOp("directory.skills")
	}
	return skills, nil
}

// ReplaceSkills swaps the caller's skill tags for the given set.
func (s *DirectoryService) ReplaceSkills(ctx context.Context, actor Actor, skills []models.SkillInput) ([]models.ProviderSkill, error) {
	const op = "directory.replace_skills"
	type key struct {
		t models.ServiceType
		c models.ServiceCategory
	}
	seen := map[key]bool{}
	var rows []models.ProviderSkill
	for _, sk := range skills {
		if !sk.ServiceType.Valid() {
			return nil, apperr.BadRequest("unknown service type " + string(sk.ServiceType)).WithOp(op)
		}
		var cat models.ServiceCategory
		if sk.Category != nil && *sk.Category != "" {
			if !sk.Category.BelongsTo(sk.ServiceType) {
				return nil, apperr.BadRequest("category does not belong to the service type").WithOp(op)
			}
			cat = *sk.Category
		}
		k := key{sk.ServiceType, cat}
		if seen[k] {
			continue
		}
		seen[k] = true
		row := models.ProviderSkill{ServiceType: sk.ServiceType}
		if cat != "" {
			c := cat
			row.Category = &c
		}
		rows = append(rows, row)
	}

	profile, err := s.profileFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].ProviderProfileID = profile.ID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("provider_profile_id = ?", profile.ID).Delete(&models.ProviderSkill{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		s.log.DatabaseError(op, err)
		return nil, apperr.Internal(err).WithOp(op)
	}
	return s.Skills(ctx, actor)
}

// ReplaceNeighborhoods sets where the caller works. Unknown neighborhoods are
// registered on the way.
func (s *DirectoryService) ReplaceNeighborhoods(ctx context.Context, actor Actor, in []models.NeighborhoodInput) ([]models.Neighborhood, error) {
	const op = "directory.replace_neighborhoods"
	for _, n := range in {
		if strings.TrimSpace(n.Name) == "" || strings.TrimSpace(n.City) == "" || len(strings.TrimSpace(n.State)) != 2 {
			return nil, apperr.BadRequest("neighborhood needs name, city and a two-letter state").WithOp(op)
		}
	}

	profile, err := s.profileFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	var out []models.Neighborhood
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("provider_profile_id = ?", profile.ID).Delete(&models.ProviderNeighborhood{}).Error; err != nil {
			return err
		}
		seen := map[uint]bool{}
		for _, n := range in {
			nb := models.Neighborhood{
				Name:  strings.TrimSpace(n.Name),
				City:  strings.TrimSpace(n.City),
				State: strings.ToUpper(strings.TrimSpace(n.State)),
			}
			if err := tx.Where(models.Neighborhood{Name: nb.Name, City: nb.City, State: nb.State}).FirstOrCreate(&nb).Error; err != nil {
				return err
			}
			if seen[nb.ID] {
				continue
			}
			seen[nb.ID] = true
			link := models.ProviderNeighborhood{ProviderProfileID: profile.ID, NeighborhoodID: nb.ID}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
			out = append(out, nb)
		}
		return nil
	})
	if err != nil {
		s.log.DatabaseError(op, err)
		return nil, apperr.Internal(err).WithOp(op)
	}
	return out, nil
}

// ReplaceAvailability sets the caller's weekly slots.
func (s *DirectoryService) ReplaceAvailability(ctx context.Context, actor Actor, slots []models.SlotInput) ([]models.AvailabilitySlot, error) {
	const op = "directory.replace_availability"
	type key struct {
		day   int
		shift models.Shift
	}
	seen := map[key]bool{}
	for _, sl := range slots {
		if sl.Weekday < 0 || sl.Weekday > 6 || !sl.Shift.Valid() {
			return nil, apperr.BadRequest("slot needs a weekday 0..6 and a known shift").WithOp(op)
		}
		k := key{sl.Weekday, sl.Shift}
		if seen[k] {
			return nil, apperr.BadRequest("duplicate availability slot").WithOp(op)
		}
		seen[k] = true
	}

	profile, err := s.profileFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	rows := make([]models.AvailabilitySlot, 0, len(slots))
	for _, sl := range slots {
		active := true
		if sl.Active != nil {
			active = *sl.Active
		}
		rows = append(rows, models.AvailabilitySlot{ProviderProfileID: profile.ID, Weekday: sl.Weekday, Shift: sl.Shift, Active: active})
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("provider_profile_id = ?", profile.ID).Delete(&models.AvailabilitySlot{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		s.log.DatabaseError(op, err)
		return nil, apperr.Internal(err).WithOp(op)
	}
	return rows, nil
}

// SubmitVerification puts the caller's profile in the admin review queue.
func (s *DirectoryService) SubmitVerification(ctx context.Context, actor Actor, bio string) (*models.ProviderProfile, error) {
	const op = "directory.submit_verification"
	profile, err := s.profileFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if profile.Verification == models.VerificationApproved {
		return nil, apperr.InvalidStatus("profile is already verified").WithOp(op)
	}

	upd := map[string]interface{}{"verification": models.VerificationPending}
	if bio = strings.TrimSpace(bio); bio != "" {
		upd["bio"] = bio
	}
	if err := s.db.WithContext(ctx).Model(profile).Updates(upd).Error; err != nil {
		s.log.DatabaseError(op, err)
		return nil, apperr.Internal(err).WithOp(op)
	}
	return s.loadProfile(ctx, profile.ID)
}

// ListNeighborhoods returns the known neighborhoods of a city.
func (s *DirectoryService) ListNeighborhoods(ctx context.Context, city, state string) ([]models.Neighborhood, error) {
	q := s.db.WithContext(ctx).Order("name ASC")
	if city = strings.TrimSpace(city); city != "" {
		q = q.Where("city = ?", city)
	}
	if state = strings.ToUpper(strings.TrimSpace(state)); state != "" {
		q = q.Where("state = ?", state)
	}
	var list []models.Neighborhood
	if err := q.Find(&list).Error; err != nil {
		return nil, apperr.Internal(err).WithOp("directory.neighborhoods")
	}
	return list, nil
}

// ProfileByUser returns a provider profile by the provider's user id.
func (s *DirectoryService) ProfileByUser(ctx context.Context, userID uint) (*models.ProviderProfile, error) {
	var profile models.ProviderProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("provider profile not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &profile, nil
}
