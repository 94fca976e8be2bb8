package services

import (
	"context"
	"testing"

	"dular-server/apperr"
	"dular-server/models"
)

func TestSearchOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// fixture provider: 0.00 rating, 0 completed
	top, _ := createProvider(t, f.db, "Tereza", f.centro, 4.9, 10)
	busy, _ := createProvider(t, f.db, "Beatriz", f.centro, 4.5, 40)
	tieA, _ := createProvider(t, f.db, "Lia", f.centro, 4.5, 12)
	tieB, _ := createProvider(t, f.db, "Rosa", f.centro, 4.5, 12)

	got, err := f.lifecycle.Eligibility().Search(ctx, SearchQuery{City: "Cuiaba", State: "mt", Neighborhood: "Centro", Type: typePtr(models.TypeCleaning)})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []uint{top.ID, busy.ID, tieA.ID, tieB.ID, f.provider.ID}
	if len(got) != len(want) {
		t.Fatalf("results = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ProviderID != id {
			t.Errorf("position %d = provider %d, want %d", i, got[i].ProviderID, id)
		}
	}
	if got[0].PriceCents != 15000 {
		t.Errorf("price for default category = %d, want 15000", got[0].PriceCents)
	}
}

func TestSearchFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	elig := f.lifecycle.Eligibility()

	blocked, _ := createProvider(t, f.db, "Bia", f.centro, 5, 1)
	f.db.Model(&models.User{}).Where("id = ?", blocked.ID).Update("status", models.UserStatusBlocked)
	rejected, _ := createProvider(t, f.db, "Rita", f.centro, 5, 1)
	f.db.Model(&models.ProviderProfile{}).Where("user_id = ?", rejected.ID).Update("verification", models.VerificationRejected)

	base := SearchQuery{City: "Cuiaba", State: "MT", Neighborhood: "Centro"}

	all, err := elig.Search(ctx, base)
	if err != nil {
		t.Fatalf("search without type: %v", err)
	}
	if len(all) != 1 || all[0].ProviderID != f.provider.ID {
		t.Fatalf("search without type = %+v", all)
	}

	q := base
	q.Type = typePtr(models.TypeCleaning)
	q.Category = catPtr(models.CategoryCleaningHeavy)
	heavy, err := elig.Search(ctx, q)
	if err != nil {
		t.Fatalf("search heavy: %v", err)
	}
	if len(heavy) != 0 {
		t.Errorf("heavy cleaning matched %d providers without that skill", len(heavy))
	}

	q = base
	q.Type = typePtr(models.TypeCook)
	if cooks, _ := elig.Search(ctx, q); len(cooks) != 0 {
		t.Errorf("cook search matched %d providers", len(cooks))
	}

	q = base
	q.Neighborhood = "Nowhere"
	empty, err := elig.Search(ctx, q)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("unknown neighborhood = %v, %v; want empty list", empty, err)
	}
}

func TestSearchValidation(t *testing.T) {
	f := newFixture(t)
	elig := f.lifecycle.Eligibility()
	tests := []struct {
		name string
		q    SearchQuery
	}{
		{"missing city", SearchQuery{State: "MT", Neighborhood: "Centro"}},
		{"missing neighborhood", SearchQuery{City: "Cuiaba", State: "MT"}},
		{"category without type", SearchQuery{City: "Cuiaba", State: "MT", Neighborhood: "Centro", Category: catPtr(models.CategoryCleaningLight)}},
		{"category of other type", SearchQuery{City: "Cuiaba", State: "MT", Neighborhood: "Centro", Type: typePtr(models.TypeCook), Category: catPtr(models.CategoryCleaningLight)}},
		{"unknown type", SearchQuery{City: "Cuiaba", State: "MT", Neighborhood: "Centro", Type: typePtr("GARDEN")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := elig.Search(context.Background(), tt.q); !apperr.Is(err, apperr.CodeBadRequest) {
				t.Fatalf("err = %v, want bad_request", err)
			}
		})
	}
}

func TestSearchRespectsCap(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		createProvider(t, f.db, "Extra", f.centro, 3, i)
	}
	elig := NewEligibilityService(f.db, 3)
	got, err := elig.Search(context.Background(), SearchQuery{City: "Cuiaba", State: "MT", Neighborhood: "Centro"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("results = %d, want cap 3", len(got))
	}
}
