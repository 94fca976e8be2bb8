package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"dular-server/config"
	"dular-server/database"
	"dular-server/logger"
	"dular-server/models"
)

// fixedNow is a Monday noon in UTC; the market zone is a few hours behind.
var fixedNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testMarket() config.MarketConfig {
	return config.MarketConfig{Timezone: "America/Cuiaba", SearchResultCap: 50, LateCancelHours: 12}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite", URL: filepath.Join(t.TempDir(), "dular_test.db")}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	db        *gorm.DB
	lifecycle *LifecycleService
	client    Actor
	provider  Actor
	admin     Actor
	profile   models.ProviderProfile
	centro    models.Neighborhood
}

var phoneSeq int

func createUser(t *testing.T, db *gorm.DB, name string, role models.Role) models.User {
	t.Helper()
	phoneSeq++
	u := models.User{
		FullName:     name,
		PhoneNumber:  fmt.Sprintf("+55659%08d", phoneSeq),
		PasswordHash: "hash",
		Role:         role,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func createNeighborhood(t *testing.T, db *gorm.DB, name string) models.Neighborhood {
	t.Helper()
	nb := models.Neighborhood{Name: name, City: "Cuiaba", State: "MT"}
	if err := db.Create(&nb).Error; err != nil {
		t.Fatalf("create neighborhood: %v", err)
	}
	return nb
}

func catPtr(c models.ServiceCategory) *models.ServiceCategory { return &c }
func typePtr(t models.ServiceType) *models.ServiceType       { return &t }

// createProvider registers an approved cleaning provider serving nb.
func createProvider(t *testing.T, db *gorm.DB, name string, nb models.Neighborhood, mean float64, completed int) (models.User, models.ProviderProfile) {
	t.Helper()
	u := createUser(t, db, name, models.RoleProvider)
	p := models.ProviderProfile{
		UserID:            u.ID,
		Verification:      models.VerificationApproved,
		MeanRating:        mean,
		CompletedServices: completed,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	rows := []interface{}{
		&models.ProviderSkill{ProviderProfileID: p.ID, ServiceType: models.TypeCleaning},
		&models.ProviderSkill{ProviderProfileID: p.ID, ServiceType: models.TypeCleaning, Category: catPtr(models.CategoryCleaningLight)},
		&models.ProviderPrice{ProviderProfileID: p.ID, Category: models.CategoryCleaningLight, AmountCents: 15000},
		&models.ProviderPrice{ProviderProfileID: p.ID, Category: models.CategoryCleaningHeavy, AmountCents: 25000},
		&models.ProviderNeighborhood{ProviderProfileID: p.ID, NeighborhoodID: nb.ID},
	}
	for _, r := range rows {
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("create %T: %v", r, err)
		}
	}
	return u, p
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	centro := createNeighborhood(t, db, "Centro")
	client := createUser(t, db, "Carla Cliente", models.RoleClient)
	admin := createUser(t, db, "Ana Admin", models.RoleAdmin)
	provider, profile := createProvider(t, db, "Diana Diarista", centro, 0, 0)

	return &fixture{
		db:        db,
		lifecycle: NewLifecycleService(db, logger.Nop(), testMarket()).WithClock(fixedClock),
		client:    Actor{ID: client.ID, Role: models.RoleClient},
		provider:  Actor{ID: provider.ID, Role: models.RoleProvider},
		admin:     Actor{ID: admin.ID, Role: models.RoleAdmin},
		profile:   profile,
		centro:    centro,
	}
}

func (f *fixture) lightCleaning(date string, shift models.Shift) models.CreateServiceRequest {
	return models.CreateServiceRequest{
		ProviderID:    f.provider.ID,
		ServiceType:   models.TypeCleaning,
		Category:      catPtr(models.CategoryCleaningLight),
		ScheduledDate: date,
		Shift:         shift,
		City:          "Cuiaba",
		State:         "MT",
		Neighborhood:  "Centro",
		FullAddress:   "Rua Barao de Melgaco, 100",
		Notes:         "Two cats",
	}
}

func (f *fixture) mustCreate(t *testing.T) *models.Service {
	t.Helper()
	svc, err := f.lifecycle.Create(context.Background(), f.client, f.lightCleaning("2026-03-10", models.ShiftMorning))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return svc
}

func (f *fixture) reload(t *testing.T, id uint) models.Service {
	t.Helper()
	var svc models.Service
	if err := f.db.First(&svc, id).Error; err != nil {
		t.Fatalf("reload service: %v", err)
	}
	return svc
}

func (f *fixture) events(t *testing.T, id uint) []models.ServiceEvent {
	t.Helper()
	evs, err := f.lifecycle.Ledger().List(context.Background(), id)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	return evs
}

func goodEvaluation(overall int) models.EvaluateRequest {
	return models.EvaluateRequest{Overall: overall, Punctuality: 5, Quality: 4, Communication: 5, Comment: "ok"}
}
