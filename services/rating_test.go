package services

import (
	"context"
	"testing"

	"dular-server/logger"
	"dular-server/models"
)

func TestMeanRating(t *testing.T) {
	tests := []struct {
		in   []int
		want float64
	}{
		{nil, 0},
		{[]int{5, 4, 3}, 4.00},
		{[]int{5, 4, 4}, 4.33},
		{[]int{5, 5, 4}, 4.67},
		{[]int{1}, 1},
	}
	for _, tt := range tests {
		if got := MeanRating(tt.in); got != tt.want {
			t.Errorf("MeanRating(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRecomputeProviderStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	finalize := func(overall int) {
		svc := f.mustCreate(t)
		f.lifecycle.Accept(ctx, f.provider, svc.ID)
		f.lifecycle.Start(ctx, f.provider, svc.ID)
		f.lifecycle.Complete(ctx, f.provider, svc.ID)
		f.lifecycle.Confirm(ctx, f.client, svc.ID)
		if _, _, err := f.lifecycle.Evaluate(ctx, f.client, svc.ID, goodEvaluation(overall)); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}
	for _, v := range []int{5, 4, 3} {
		finalize(v)
	}

	// One confirmed but not yet evaluated, one still in progress.
	confirmed := f.mustCreate(t)
	f.lifecycle.Accept(ctx, f.provider, confirmed.ID)
	f.lifecycle.Start(ctx, f.provider, confirmed.ID)
	f.lifecycle.Complete(ctx, f.provider, confirmed.ID)
	f.lifecycle.Confirm(ctx, f.client, confirmed.ID)
	open := f.mustCreate(t)
	f.lifecycle.Accept(ctx, f.provider, open.ID)

	rating := NewRatingService(f.db, logger.Nop())
	stats, err := rating.RecomputeProviderStats(ctx, f.provider.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if stats.MeanRating != 4.00 || stats.RatingCount != 3 || stats.CompletedServices != 4 {
		t.Fatalf("stats = %+v, want mean 4.00, 3 ratings, 4 completed", stats)
	}

	again, err := rating.RecomputeProviderStats(ctx, f.provider.ID)
	if err != nil || again != stats {
		t.Fatalf("second recompute = %+v, %v", again, err)
	}

	var profile models.ProviderProfile
	f.db.First(&profile, f.profile.ID)
	if profile.MeanRating != 4.00 || profile.CompletedServices != 4 {
		t.Errorf("stored profile = %.2f/%d", profile.MeanRating, profile.CompletedServices)
	}
}

func TestRecomputeAllProviders(t *testing.T) {
	f := newFixture(t)
	f.db.Model(&models.ProviderProfile{}).Where("id = ?", f.profile.ID).Update("mean_rating", 3.5)

	n, err := NewRatingService(f.db, logger.Nop()).RecomputeAll(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("RecomputeAll = %d, %v", n, err)
	}
	var profile models.ProviderProfile
	f.db.First(&profile, f.profile.ID)
	if profile.MeanRating != 0 {
		t.Errorf("stale mean rating %.2f not reset", profile.MeanRating)
	}
}

func TestConfirmRefreshesCompletedServices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	svc := f.mustCreate(t)
	f.lifecycle.Accept(ctx, f.provider, svc.ID)
	f.lifecycle.Start(ctx, f.provider, svc.ID)
	f.lifecycle.Complete(ctx, f.provider, svc.ID)
	if _, err := f.lifecycle.Confirm(ctx, f.client, svc.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	var profile models.ProviderProfile
	f.db.First(&profile, f.profile.ID)
	if profile.CompletedServices != 1 || profile.RatingCount != 0 {
		t.Errorf("profile after confirm = %d completed, %d ratings", profile.CompletedServices, profile.RatingCount)
	}
}
