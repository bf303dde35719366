package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xscan/xscan/internal/metrics"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/repository"
)

func newAdminFixture() (*AdminService, *memStore, *fakeSessions, *metrics.InMemoryRecorder) {
	store := newMemStore()
	sessions := newFakeSessions()
	rec := metrics.NewInMemory()
	svc := NewAdminService(store, sessions, time.Minute, discardLogger(), rec)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 13, 45, 0, 0, time.UTC) }
	return svc, store, sessions, rec
}

func TestAdminService_DashboardCaches(t *testing.T) {
	svc, store, sessions, rec := newAdminFixture()
	ctx := context.Background()
	store.addUser("a", model.RoleUser, 0)

	first, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.TotalUsers != 1 {
		t.Errorf("TotalUsers = %d, want 1", first.TotalUsers)
	}
	if _, err := svc.Dashboard(ctx); err != nil {
		t.Fatal(err)
	}

	if store.statsCalls != 1 {
		t.Errorf("store queried %d times, want 1", store.statsCalls)
	}
	if sessions.statsTTL != time.Minute {
		t.Errorf("cache ttl = %v, want 1m", sessions.statsTTL)
	}
	snap := rec.Snapshot()
	if snap.CacheHits != 1 || snap.CacheMisses != 1 {
		t.Errorf("cache metrics hits=%d misses=%d", snap.CacheHits, snap.CacheMisses)
	}
}

func TestAdminService_FeeReport(t *testing.T) {
	svc, store, _, _ := newAdminFixture()
	ctx := context.Background()
	store.feeRows = []model.FeeReportRow{
		{Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Donations: 2, Gross: 2000, Fees: 100, Net: 1900},
		{Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Donations: 1, Gross: 500, Fees: 25, Net: 475},
	}

	report, err := svc.FeeReport(ctx, nil, nil)
	if err != nil {
		t.Fatalf("FeeReport failed: %v", err)
	}
	wantFrom := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !report.From.Equal(wantFrom) || !report.To.Equal(wantTo) {
		t.Errorf("default range = %v..%v, want %v..%v", report.From, report.To, wantFrom, wantTo)
	}
	if !store.feeTo.Equal(wantTo.AddDate(0, 0, 1)) {
		t.Errorf("store upper bound = %v, want exclusive next day", store.feeTo)
	}
	if report.Totals.Donations != 3 || report.Totals.Fees != 125 || report.Totals.Gross != 2500 {
		t.Errorf("unexpected totals %+v", report.Totals)
	}

	from := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.FeeReport(ctx, &from, &to); err == nil {
		t.Error("from after to should fail")
	}

	longFrom := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	longTo := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	if _, err := svc.FeeReport(ctx, &longFrom, &longTo); err == nil {
		t.Error("range over a year should fail")
	}

	sameDay := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	report, err = svc.FeeReport(ctx, &sameDay, &sameDay)
	if err != nil {
		t.Fatalf("single day report failed: %v", err)
	}
	if !store.feeFrom.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) || !store.feeTo.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("single day bounds = %v..%v", store.feeFrom, store.feeTo)
	}
	if !report.From.Equal(report.To) {
		t.Errorf("single day report should have equal bounds: %v..%v", report.From, report.To)
	}
}

func TestAdminService_UpdateUser(t *testing.T) {
	svc, store, sessions, _ := newAdminFixture()
	ctx := context.Background()
	admin := store.addUser("admin", model.RoleAdmin, 0)
	user := store.addUser("user", model.RoleUser, 0)
	sessions.status[user.ID] = model.UserStatusActive

	suspended := model.UserStatusSuspended
	demoted := model.RoleUser
	if _, err := svc.UpdateUser(ctx, admin.ID, admin.ID, nil, &suspended); !errors.Is(err, ErrSelfModification) {
		t.Errorf("self suspend: expected ErrSelfModification, got %v", err)
	}
	if _, err := svc.UpdateUser(ctx, admin.ID, admin.ID, &demoted, nil); !errors.Is(err, ErrSelfModification) {
		t.Errorf("self demote: expected ErrSelfModification, got %v", err)
	}
	if _, err := svc.UpdateUser(ctx, admin.ID, user.ID, nil, nil); err == nil {
		t.Error("empty update should fail")
	}
	bogus := model.Role("root")
	if _, err := svc.UpdateUser(ctx, admin.ID, user.ID, &bogus, nil); err == nil {
		t.Error("invalid role should fail")
	}
	if _, err := svc.UpdateUser(ctx, admin.ID, "missing", nil, &suspended); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	updated, err := svc.UpdateUser(ctx, admin.ID, user.ID, nil, &suspended)
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if updated.Status != model.UserStatusSuspended || updated.Role != model.RoleUser {
		t.Errorf("unexpected user %+v", updated)
	}
	if _, ok := sessions.status[user.ID]; ok {
		t.Error("cached status should be dropped so suspension takes effect")
	}

	page, err := svc.Users(ctx, repository.UserFilter{Status: model.UserStatusSuspended}, model.Pagination{})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].ID != user.ID {
		t.Errorf("unexpected filtered users %+v", page.Items)
	}
}
