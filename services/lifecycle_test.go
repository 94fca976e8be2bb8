package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"

	"dular-server/apperr"
	"dular-server/logger"
	"dular-server/models"
)

func TestLightCleaningFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	svc := f.mustCreate(t)
	if svc.Status != models.StatusRequested {
		t.Fatalf("status = %s, want REQUESTED", svc.Status)
	}
	if svc.FinalPriceCents != 15000 {
		t.Errorf("final price = %d, want 15000", svc.FinalPriceCents)
	}
	if stored := f.reload(t, svc.ID); stored.FullAddress != nil {
		t.Fatalf("address disclosed while REQUESTED")
	}

	steps := []struct {
		name string
		run  func() (*models.Service, error)
		want models.ServiceStatus
	}{
		{"accept", func() (*models.Service, error) { return f.lifecycle.Accept(ctx, f.provider, svc.ID) }, models.StatusAccepted},
		{"start", func() (*models.Service, error) { return f.lifecycle.Start(ctx, f.provider, svc.ID) }, models.StatusInProgress},
		{"complete", func() (*models.Service, error) { return f.lifecycle.Complete(ctx, f.provider, svc.ID) }, models.StatusDone},
		{"confirm", func() (*models.Service, error) { return f.lifecycle.Confirm(ctx, f.client, svc.ID) }, models.StatusConfirmed},
	}
	for _, step := range steps {
		got, err := step.run()
		if err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got.Status != step.want {
			t.Fatalf("%s: status = %s, want %s", step.name, got.Status, step.want)
		}
		stored := f.reload(t, svc.ID)
		if stored.FullAddress == nil || *stored.FullAddress != "Rua Barao de Melgaco, 100" {
			t.Fatalf("%s: address not disclosed", step.name)
		}
	}

	final, eval, err := f.lifecycle.Evaluate(ctx, f.client, svc.ID, goodEvaluation(5))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if final.Status != models.StatusFinalized || eval.ServiceID != svc.ID {
		t.Fatalf("evaluate result = %s / %+v", final.Status, eval)
	}

	evs := f.events(t, svc.ID)
	wantPairs := [][2]models.ServiceStatus{
		{"", models.StatusRequested},
		{models.StatusRequested, models.StatusAccepted},
		{models.StatusAccepted, models.StatusInProgress},
		{models.StatusInProgress, models.StatusDone},
		{models.StatusDone, models.StatusConfirmed},
		{models.StatusConfirmed, models.StatusFinalized},
	}
	if len(evs) != len(wantPairs) {
		t.Fatalf("events = %d, want %d", len(evs), len(wantPairs))
	}
	for i, ev := range evs {
		if ev.FromStatus != wantPairs[i][0] || ev.ToStatus != wantPairs[i][1] {
			t.Errorf("event %d = %s->%s, want %s->%s", i, ev.FromStatus, ev.ToStatus, wantPairs[i][0], wantPairs[i][1])
		}
	}
	if evs[1].ActorID != f.provider.ID || evs[1].ActorRole != models.RoleProvider {
		t.Errorf("accept event actor = %d/%s", evs[1].ActorID, evs[1].ActorRole)
	}
	if evs[4].ActorID != f.client.ID || evs[4].ActorRole != models.RoleClient {
		t.Errorf("confirm event actor = %d/%s", evs[4].ActorID, evs[4].ActorRole)
	}

	var profile models.ProviderProfile
	f.db.First(&profile, f.profile.ID)
	if profile.MeanRating != 5 || profile.RatingCount != 1 || profile.CompletedServices != 1 {
		t.Errorf("provider stats = %.2f/%d/%d, want 5.00/1/1", profile.MeanRating, profile.RatingCount, profile.CompletedServices)
	}
}

func TestCreateRejectsIneligibleProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := createNeighborhood(t, f.db, "Porto")
	pending, _ := createProvider(t, f.db, "Paula Pendente", f.centro, 0, 0)
	f.db.Model(&models.ProviderProfile{}).Where("user_id = ?", pending.ID).Update("verification", models.VerificationPending)
	blocked, _ := createProvider(t, f.db, "Bia Bloqueada", f.centro, 0, 0)
	f.db.Model(&models.User{}).Where("id = ?", blocked.ID).Update("status", models.UserStatusBlocked)

	tests := []struct {
		name   string
		mutate func(r *models.CreateServiceRequest)
	}{
		{"skill missing", func(r *models.CreateServiceRequest) {
			r.ServiceType = models.TypeBabysitter
			r.Category = nil
		}},
		{"category skill missing", func(r *models.CreateServiceRequest) { r.Category = catPtr(models.CategoryCleaningHeavy) }},
		{"neighborhood not served", func(r *models.CreateServiceRequest) { r.Neighborhood = other.Name }},
		{"neighborhood unknown", func(r *models.CreateServiceRequest) { r.Neighborhood = "Atlantida" }},
		{"not verified", func(r *models.CreateServiceRequest) { r.ProviderID = pending.ID }},
		{"blocked provider", func(r *models.CreateServiceRequest) { r.ProviderID = blocked.ID }},
		{"provider is a client", func(r *models.CreateServiceRequest) { r.ProviderID = f.client.ID }},
		{"category of another type", func(r *models.CreateServiceRequest) { r.Category = catPtr(models.CategoryCookEvent) }},
		{"date in the past", func(r *models.CreateServiceRequest) { r.ScheduledDate = "2026-02-20" }},
		{"bad date", func(r *models.CreateServiceRequest) { r.ScheduledDate = "10/03/2026" }},
		{"unknown shift", func(r *models.CreateServiceRequest) { r.Shift = "night" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.lightCleaning("2026-03-10", models.ShiftMorning)
			tt.mutate(&req)
			_, err := f.lifecycle.Create(ctx, f.client, req)
			if !apperr.Is(err, apperr.CodeBadRequest) {
				t.Fatalf("err = %v, want bad_request", err)
			}
		})
	}

	var count int64
	f.db.Model(&models.Service{}).Count(&count)
	if count != 0 {
		t.Fatalf("services created = %d, want 0", count)
	}
}

func TestCreateRequiresClientRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.lifecycle.Create(context.Background(), f.provider, f.lightCleaning("2026-03-10", models.ShiftMorning))
	if !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestCreateWithoutCategoryUsesDefaultPrice(t *testing.T) {
	f := newFixture(t)
	req := f.lightCleaning("2026-03-02", models.ShiftAfternoon)
	req.Category = nil
	svc, err := f.lifecycle.Create(context.Background(), f.client, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if svc.FinalPriceCents != 15000 {
		t.Errorf("price = %d, want light price 15000", svc.FinalPriceCents)
	}
}

func TestPriceSnapshotSurvivesPriceEdit(t *testing.T) {
	f := newFixture(t)
	svc := f.mustCreate(t)

	dir := NewDirectoryService(f.db, f.lifecycle.log)
	_, err := dir.UpdatePrices(context.Background(), f.provider, []models.PriceInput{
		{Category: models.CategoryCleaningLight, AmountCents: 99000},
	})
	if err != nil {
		t.Fatalf("update prices: %v", err)
	}

	if got := f.reload(t, svc.ID).FinalPriceCents; got != 15000 {
		t.Fatalf("final price changed to %d", got)
	}
}

func TestGuardOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.mustCreate(t)
	stranger := createUser(t, f.db, "Outra Diarista", models.RoleProvider)
	strangerActor := Actor{ID: stranger.ID, Role: models.RoleProvider}

	if _, err := f.lifecycle.Accept(ctx, f.provider, 9999); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("missing service: err = %v, want not_found", err)
	}
	// wrong party and wrong status: forbidden wins
	if _, err := f.lifecycle.Complete(ctx, strangerActor, svc.ID); !apperr.Is(err, apperr.CodeForbidden) {
		t.Errorf("stranger complete: err = %v, want forbidden", err)
	}
	if _, err := f.lifecycle.Confirm(ctx, f.provider, svc.ID); !apperr.Is(err, apperr.CodeForbidden) {
		t.Errorf("provider confirm: err = %v, want forbidden", err)
	}
	// right party, wrong status
	if _, err := f.lifecycle.Complete(ctx, f.provider, svc.ID); !apperr.Is(err, apperr.CodeInvalidStatus) {
		t.Errorf("complete from REQUESTED: err = %v, want invalid_status", err)
	}

	if got := f.reload(t, svc.ID).Status; got != models.StatusRequested {
		t.Errorf("status changed to %s", got)
	}
	if n := len(f.events(t, svc.ID)); n != 1 {
		t.Errorf("events = %d, want only the creation event", n)
	}
}

func TestTerminalStatusesRejectEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.mustCreate(t)
	if _, err := f.lifecycle.Decline(ctx, f.provider, svc.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if _, err := f.lifecycle.Accept(ctx, f.provider, svc.ID); !apperr.Is(err, apperr.CodeInvalidStatus) {
		t.Errorf("accept after decline: err = %v", err)
	}
	if _, err := f.lifecycle.Cancel(ctx, f.client, svc.ID, ""); !apperr.Is(err, apperr.CodeInvalidStatus) {
		t.Errorf("cancel after decline: err = %v", err)
	}
}

func TestDoubleEvaluateFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.mustCreate(t)
	for _, step := range []func() (*models.Service, error){
		func() (*models.Service, error) { return f.lifecycle.Accept(ctx, f.provider, svc.ID) },
		func() (*models.Service, error) { return f.lifecycle.Start(ctx, f.provider, svc.ID) },
		func() (*models.Service, error) { return f.lifecycle.Complete(ctx, f.provider, svc.ID) },
		func() (*models.Service, error) { return f.lifecycle.Confirm(ctx, f.client, svc.ID) },
	} {
		if _, err := step(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}

	if _, _, err := f.lifecycle.Evaluate(ctx, f.client, svc.ID, goodEvaluation(4)); err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	_, _, err := f.lifecycle.Evaluate(ctx, f.client, svc.ID, goodEvaluation(1))
	if !apperr.Is(err, apperr.CodeInvalidStatus) {
		t.Fatalf("second evaluate: err = %v, want invalid_status", err)
	}

	var count int64
	f.db.Model(&models.Evaluation{}).Where("service_id = ?", svc.ID).Count(&count)
	if count != 1 {
		t.Fatalf("evaluations = %d, want 1", count)
	}
}

func TestEvaluateRejectsOutOfRangeRatings(t *testing.T) {
	f := newFixture(t)
	svc := f.mustCreate(t)
	req := goodEvaluation(6)
	if _, _, err := f.lifecycle.Evaluate(context.Background(), f.client, svc.ID, req); !apperr.Is(err, apperr.CodeBadRequest) {
		t.Fatalf("err = %v, want bad_request", err)
	}
}

func TestCancelFlagsLateCancellation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Afternoon of the same day is within the 12h window.
	late, err := f.lifecycle.Create(ctx, f.client, f.lightCleaning("2026-03-02", models.ShiftAfternoon))
	if err != nil {
		t.Fatalf("create late: %v", err)
	}
	got, err := f.lifecycle.Cancel(ctx, f.client, late.ID, "changed plans")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != models.StatusCanceled || !got.LateCancellation {
		t.Fatalf("late cancel = %s / late=%v", got.Status, got.LateCancellation)
	}
	stored := f.reload(t, late.ID)
	if !stored.LateCancellation || stored.CanceledByRole == nil || *stored.CanceledByRole != models.RoleClient {
		t.Errorf("stored cancel fields = %v / %v", stored.LateCancellation, stored.CanceledByRole)
	}
	if want := "Two cats\n[CANCELED LATE by client] changed plans"; stored.Notes != want {
		t.Errorf("notes = %q, want %q", stored.Notes, want)
	}
	evs := f.events(t, late.ID)
	if last := evs[len(evs)-1]; last.ToStatus != models.StatusCanceled || len(last.Metadata) == 0 {
		t.Errorf("cancel event = %+v", last)
	}

	early := f.mustCreate(t)
	if _, err := f.lifecycle.Accept(ctx, f.provider, early.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	got, err = f.lifecycle.Cancel(ctx, f.provider, early.ID, "")
	if err != nil {
		t.Fatalf("provider cancel: %v", err)
	}
	if got.LateCancellation {
		t.Errorf("cancel a week ahead flagged late")
	}
	if stored := f.reload(t, early.ID); stored.Notes != "Two cats\n[CANCELED OK by provider]" {
		t.Errorf("notes = %q", stored.Notes)
	}
}

func TestAdminCancelsAnyService(t *testing.T) {
	f := newFixture(t)
	svc := f.mustCreate(t)
	if _, err := f.lifecycle.Cancel(context.Background(), f.admin, svc.ID, "fraud"); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestCancelInProgressRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.mustCreate(t)
	f.lifecycle.Accept(ctx, f.provider, svc.ID)
	f.lifecycle.Start(ctx, f.provider, svc.ID)
	if _, err := f.lifecycle.Cancel(ctx, f.client, svc.ID, ""); !apperr.Is(err, apperr.CodeInvalidStatus) {
		t.Fatalf("err = %v, want invalid_status", err)
	}
}

func TestConcurrentAcceptAndDecline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.mustCreate(t)

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, results[0] = f.lifecycle.Accept(ctx, f.provider, svc.ID)
	}()
	go func() {
		defer wg.Done()
		_, results[1] = f.lifecycle.Decline(ctx, f.provider, svc.ID)
	}()
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else if !apperr.Is(err, apperr.CodeInvalidStatus) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("successful transitions = %d, want 1", wins)
	}
	if n := len(f.events(t, svc.ID)); n != 2 {
		t.Fatalf("events = %d, want 2", n)
	}
}

func TestListMineRedactsAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requested := f.mustCreate(t)
	accepted := f.mustCreate(t)
	f.lifecycle.Accept(ctx, f.provider, accepted.ID)

	list, err := f.lifecycle.ListMine(ctx, f.client)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %d, want 2", len(list))
	}
	for _, s := range list {
		switch s.ID {
		case requested.ID:
			if s.FullAddress != nil {
				t.Errorf("REQUESTED service exposes address")
			}
		case accepted.ID:
			if s.FullAddress == nil {
				t.Errorf("ACCEPTED service hides address")
			}
		}
	}

	other := createUser(t, f.db, "Outro Cliente", models.RoleClient)
	if list, _ := f.lifecycle.ListMine(ctx, Actor{ID: other.ID, Role: models.RoleClient}); len(list) != 0 {
		t.Errorf("other client sees %d services", len(list))
	}
	if _, err := f.lifecycle.Get(ctx, Actor{ID: other.ID, Role: models.RoleClient}, requested.ID); !apperr.Is(err, apperr.CodeForbidden) {
		t.Errorf("get by stranger: err = %v, want forbidden", err)
	}
}

func TestLedgerFailureKeepsTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.mustCreate(t)

	var logs bytes.Buffer
	f.lifecycle = NewLifecycleService(f.db, logger.NewWithWriter("production", &logs), testMarket()).WithClock(fixedClock)
	err := f.db.Callback().Create().Before("gorm:create").Register("fail_service_events", func(tx *gorm.DB) {
		if tx.Statement.Table == "service_events" {
			tx.AddError(errors.New("ledger disk full"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	got, err := f.lifecycle.Accept(ctx, f.provider, svc.ID)
	if err != nil {
		t.Fatalf("accept with a failing ledger: %v", err)
	}
	if got.Status != models.StatusAccepted {
		t.Errorf("returned status = %s", got.Status)
	}
	if stored := f.reload(t, svc.ID); stored.Status != models.StatusAccepted || stored.FullAddress == nil {
		t.Errorf("stored = %s, address %v", stored.Status, stored.FullAddress)
	}
	if evs := f.events(t, svc.ID); len(evs) != 1 {
		t.Errorf("events = %d, want only the creation event", len(evs))
	}
	if !strings.Contains(logs.String(), "ledger.append") || !strings.Contains(logs.String(), "ledger disk full") {
		t.Errorf("ledger failure not logged: %s", logs.String())
	}
}
