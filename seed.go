package main

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"dular-server/models"
	"dular-server/utils"
)

type seedUser struct {
	FullName string
	Phone    string
	Role     models.Role
}

var seedNeighborhoods = []models.Neighborhood{
	{Name: "Centro", City: "Cuiaba", State: "MT"},
	{Name: "Santa Rosa", City: "Cuiaba", State: "MT"},
	{Name: "Jardim Italia", City: "Cuiaba", State: "MT"},
}

var seedUsers = []seedUser{
	{"Ana Admin", "+5565990000001", models.RoleAdmin},
	{"Carla Cliente", "+5565990000002", models.RoleClient},
	{"Diana Diarista", "+5565990000003", models.RoleProvider},
}

// seedTerritory registers the launch neighborhoods and a demo account per
// role. Existing rows are left untouched so the command can be re-run.
func seedTerritory(db *gorm.DB, password string) error {
	for _, nb := range seedNeighborhoods {
		var existing models.Neighborhood
		if err := db.Where("name = ? AND city = ? AND state = ?", nb.Name, nb.City, nb.State).First(&existing).Error; err == nil {
			log.Printf("⏭️  Neighborhood already exists: %s", nb.Name)
			continue
		}
		if err := db.Create(&nb).Error; err != nil {
			log.Printf("Failed to create neighborhood %s: %v", nb.Name, err)
			return err
		}
		log.Printf("✅ Created neighborhood: %s/%s", nb.City, nb.Name)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	for _, su := range seedUsers {
		var existing models.User
		if err := db.Where("phone_number = ?", su.Phone).First(&existing).Error; err == nil {
			log.Printf("⏭️  User already exists: %s", su.Phone)
			continue
		}
		u := models.User{FullName: su.FullName, PhoneNumber: su.Phone, PasswordHash: hash, Role: su.Role}
		if err := db.Create(&u).Error; err != nil {
			log.Printf("Failed to create user %s: %v", su.Phone, err)
			return err
		}
		log.Printf("✅ Created %s: %s", su.Role, su.Phone)

		if su.Role == models.RoleProvider {
			if err := seedProviderProfile(db, u); err != nil {
				return err
			}
		}
	}
	return nil
}

// seedProviderProfile gives the demo provider an approved profile covering
// every cleaning category in all launch neighborhoods.
func seedProviderProfile(db *gorm.DB, u models.User) error {
	return db.Transaction(func(tx *gorm.DB) error {
		profile := models.ProviderProfile{
			UserID:       u.ID,
			Bio:          "Diarista com 8 anos de experiencia.",
			Verification: models.VerificationApproved,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		prices := map[models.ServiceCategory]int{
			models.CategoryCleaningLight: 15000,
			models.CategoryCleaningHeavy: 22000,
			models.CategoryCleaningFull:  28000,
		}
		for cat, amount := range prices {
			if err := tx.Create(&models.ProviderSkill{ProviderProfileID: profile.ID, ServiceType: models.TypeCleaning, Category: &cat}).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.ProviderPrice{ProviderProfileID: profile.ID, Category: cat, AmountCents: amount}).Error; err != nil {
				return err
			}
		}

		var nbs []models.Neighborhood
		if err := tx.Where("city = ? AND state = ?", "Cuiaba", "MT").Find(&nbs).Error; err != nil {
			return err
		}
		for _, nb := range nbs {
			if err := tx.Create(&models.ProviderNeighborhood{ProviderProfileID: profile.ID, NeighborhoodID: nb.ID}).Error; err != nil {
				return err
			}
		}

		for weekday := 1; weekday <= 5; weekday++ {
			for _, shift := range []models.Shift{models.ShiftMorning, models.ShiftAfternoon} {
				slot := models.AvailabilitySlot{ProviderProfileID: profile.ID, Weekday: weekday, Shift: shift, Active: true}
				if err := tx.Create(&slot).Error; err != nil {
					return err
				}
			}
		}
		log.Printf("✅ Approved provider profile for %s", u.PhoneNumber)
		return nil
	})
}
