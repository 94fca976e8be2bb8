package services

import (
	"context"
	"testing"

	"dular-server/apperr"
	"dular-server/logger"
	"dular-server/models"
)

func newProviderActor(t *testing.T, f *fixture, name string) Actor {
	t.Helper()
	u := createUser(t, f.db, name, models.RoleProvider)
	return Actor{ID: u.ID, Role: models.RoleProvider}
}

func TestProfileCreatedOnFirstUse(t *testing.T) {
	f := newFixture(t)
	dir := NewDirectoryService(f.db, logger.Nop())
	me := newProviderActor(t, f, "Nova")

	p, err := dir.Me(context.Background(), me)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if p.UserID != me.ID || p.Verification != models.VerificationUnsubmitted {
		t.Errorf("profile = %+v", p)
	}
	again, _ := dir.Me(context.Background(), me)
	if again.ID != p.ID {
		t.Errorf("second call created profile %d, want %d", again.ID, p.ID)
	}

	if _, err := dir.Me(context.Background(), f.client); !apperr.Is(err, apperr.CodeForbidden) {
		t.Errorf("client err = %v, want forbidden", err)
	}
}

func TestUpdatePrices(t *testing.T) {
	f := newFixture(t)
	dir := NewDirectoryService(f.db, logger.Nop())
	ctx := context.Background()

	rows, err := dir.UpdatePrices(ctx, f.provider, []models.PriceInput{
		{Category: models.CategoryCleaningLight, AmountCents: 18000},
	})
	if err != nil || len(rows) != 1 {
		t.Fatalf("update = %v, %v", rows, err)
	}
	me, _ := dir.Me(ctx, f.provider)
	if len(me.Prices) != 1 || me.PriceFor(models.CategoryCleaningLight) != 18000 {
		t.Errorf("prices = %+v", me.Prices)
	}

	bad := [][]models.PriceInput{
		{{Category: models.CategoryCleaningLight, AmountCents: 999}},
		{{Category: models.CategoryCleaningLight, AmountCents: 800001}},
		{{Category: "WINDOWS", AmountCents: 5000}},
		{{Category: models.CategoryCleaningLight, AmountCents: 5000}, {Category: models.CategoryCleaningLight, AmountCents: 6000}},
	}
	for _, in := range bad {
		if _, err := dir.UpdatePrices(ctx, f.provider, in); !apperr.Is(err, apperr.CodeBadRequest) {
			t.Errorf("UpdatePrices(%+v) err = %v", in, err)
		}
	}
}

func TestReplaceSkillsDedupesAndChecksCategory(t *testing.T) {
	f := newFixture(t)
	dir := NewDirectoryService(f.db, logger.Nop())
	ctx := context.Background()

	skills, err := dir.ReplaceSkills(ctx, f.provider, []models.SkillInput{
		{ServiceType: models.TypeCook},
		{ServiceType: models.TypeCook},
		{ServiceType: models.TypeCleaning, Category: catPtr(models.CategoryCleaningHeavy)},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(skills) != 2 {
		t.Fatalf("skills = %d, want 2", len(skills))
	}

	_, err = dir.ReplaceSkills(ctx, f.provider, []models.SkillInput{
		{ServiceType: models.TypeCook, Category: catPtr(models.CategoryCleaningLight)},
	})
	if !apperr.Is(err, apperr.CodeBadRequest) {
		t.Errorf("mismatched category err = %v", err)
	}

	// The new skill set now drives eligibility.
	got, _ := f.lifecycle.Eligibility().Search(ctx, SearchQuery{
		City: "Cuiaba", State: "MT", Neighborhood: "Centro",
		Type: typePtr(models.TypeCleaning), Category: catPtr(models.CategoryCleaningHeavy),
	})
	if len(got) != 1 {
		t.Errorf("heavy cleaning providers = %d, want 1", len(got))
	}
}

func TestReplaceNeighborhoodsRegistersNewPlaces(t *testing.T) {
	f := newFixture(t)
	dir := NewDirectoryService(f.db, logger.Nop())
	ctx := context.Background()

	out, err := dir.ReplaceNeighborhoods(ctx, f.provider, []models.NeighborhoodInput{
		{Name: "Centro", City: "Cuiaba", State: "mt"},
		{Name: "Jardim Italia", City: "Cuiaba", State: "MT"},
	})
	if err != nil || len(out) != 2 {
		t.Fatalf("replace = %v, %v", out, err)
	}
	if out[0].ID != f.centro.ID {
		t.Errorf("existing neighborhood was duplicated: %d vs %d", out[0].ID, f.centro.ID)
	}

	list, _ := dir.ListNeighborhoods(ctx, "Cuiaba", "mt")
	if len(list) != 2 || list[0].Name != "Centro" || list[1].Name != "Jardim Italia" {
		t.Errorf("neighborhoods = %+v", list)
	}

	if _, err := dir.ReplaceNeighborhoods(ctx, f.provider, []models.NeighborhoodInput{{Name: "X", City: "Y", State: "MTX"}}); !apperr.Is(err, apperr.CodeBadRequest) {
		t.Errorf("bad state err = %v", err)
	}
}

func TestReplaceAvailability(t *testing.T) {
	f := newFixture(t)
	dir := NewDirectoryService(f.db, logger.Nop())
	ctx := context.Background()
	off := false

	slots, err := dir.ReplaceAvailability(ctx, f.provider, []models.SlotInput{
		{Weekday: 1, Shift: models.ShiftMorning},
		{Weekday: 1, Shift: models.ShiftAfternoon, Active: &off},
	})
	if err != nil || len(slots) != 2 {
		t.Fatalf("replace = %v, %v", slots, err)
	}
	me, _ := dir.Me(ctx, f.provider)
	if len(me.Availability) != 2 {
		t.Fatalf("availability = %+v", me.Availability)
	}
	// ordered by weekday then shift: afternoon sorts before morning
	if me.Availability[0].Shift != models.ShiftAfternoon || me.Availability[0].Active {
		t.Errorf("afternoon slot = %+v, want inactive", me.Availability[0])
	}

	dup := []models.SlotInput{{Weekday: 2, Shift: models.ShiftMorning}, {Weekday: 2, Shift: models.ShiftMorning}}
	if _, err := dir.ReplaceAvailability(ctx, f.provider, dup); !apperr.Is(err, apperr.CodeBadRequest) {
		t.Errorf("duplicate slot err = %v", err)
	}
	if _, err := dir.ReplaceAvailability(ctx, f.provider, []models.SlotInput{{Weekday: 7, Shift: models.ShiftMorning}}); !apperr.Is(err, apperr.CodeBadRequest) {
		t.Errorf("weekday 7 err = %v", err)
	}
}

func TestSubmitVerification(t *testing.T) {
	f := newFixture(t)
	dir := NewDirectoryService(f.db, logger.Nop())
	ctx := context.Background()
	me := newProviderActor(t, f, "Nova")

	p, err := dir.SubmitVerification(ctx, me, "  Ten years of experience ")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if p.Verification != models.VerificationPending || p.Bio != "Ten years of experience" {
		t.Errorf("profile = %s %q", p.Verification, p.Bio)
	}

	if _, err := dir.SubmitVerification(ctx, f.provider, ""); !apperr.Is(err, apperr.CodeInvalidStatus) {
		t.Errorf("approved provider err = %v, want invalid_status", err)
	}
}
