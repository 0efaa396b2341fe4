package store

import (
	"context"
	"testing"

	"github.com/dukerupert/pointjar/internal/model"
)

func TestRewardCRUD(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRewardStore(db)
	ctx := context.Background()

	reward, err := rs.Create(ctx, "Movie Night", "Pick the movie", 50)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if reward.Name != "Movie Night" {
		t.Errorf("name = %q, want %q", reward.Name, "Movie Night")
	}
	if reward.PointCost != 50 {
		t.Errorf("point_cost = %d, want 50", reward.PointCost)
	}

	updated, err := rs.Update(ctx, reward.ID, "Double Feature", "Two movies", 90)
	if err != nil {
		t.Fatalf("update reward: %v", err)
	}
	if updated == nil || updated.Name != "Double Feature" || updated.PointCost != 90 {
		t.Errorf("updated = %+v", updated)
	}

	missing, err := rs.Update(ctx, 9999, "Ghost", "", 10)
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil when updating a missing reward")
	}

	deleted, err := rs.Delete(ctx, reward.ID)
	if err != nil {
		t.Fatalf("delete reward: %v", err)
	}
	if !deleted {
		t.Error("expected delete to report true")
	}
	got, err := rs.GetByID(ctx, reward.ID)
	if err != nil {
		t.Fatalf("get deleted reward: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}

	deleted, err = rs.Delete(ctx, reward.ID)
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if deleted {
		t.Error("expected second delete to report false")
	}
}

func TestRewardPointCostMustBePositive(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRewardStore(db)

	if _, err := rs.Create(context.Background(), "Free Lunch", "", 0); err == nil {
		t.Error("expected CHECK constraint to reject a zero cost")
	}
}

func TestRewardListOrderedByCost(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRewardStore(db)
	ctx := context.Background()

	for _, r := range []struct {
		name string
		cost int
	}{{"Dinner Date", 100}, {"Gaming Time", 25}, {"Massage", 75}} {
		if _, err := rs.Create(ctx, r.name, "", r.cost); err != nil {
			t.Fatalf("create %s: %v", r.name, err)
		}
	}

	list, err := rs.List(ctx)
	if err != nil {
		t.Fatalf("list rewards: %v", err)
	}
	want := []string{"Gaming Time", "Massage", "Dinner Date"}
	if len(list) != len(want) {
		t.Fatalf("len = %d, want %d", len(list), len(want))
	}
	for i, name := range want {
		if list[i].Name != name {
			t.Errorf("list[%d] = %q, want %q", i, list[i].Name, name)
		}
	}
}

func TestRewardDeleteKeepsRedemptions(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRewardStore(db)
	reds := NewRedemptionStore(db)
	ctx := context.Background()

	u := createTestUser(t, db, "joep", model.RoleMember, 0)
	reward, err := rs.Create(ctx, "Massage", "", 75)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if _, err := reds.Create(ctx, u.ID, reward.ID, reward.Name, reward.PointCost); err != nil {
		t.Fatalf("create redemption: %v", err)
	}

	if _, err := rs.Delete(ctx, reward.ID); err != nil {
		t.Fatalf("delete reward: %v", err)
	}

	list, err := reds.List(ctx, 0)
	if err != nil {
		t.Fatalf("list redemptions: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("redemptions = %d, want 1", len(list))
	}
	if list[0].RewardID != nil {
		t.Errorf("reward_id = %d, want NULL", *list[0].RewardID)
	}
	if list[0].RewardName != "Massage" || list[0].PointCost != 75 {
		t.Errorf("snapshot = %q/%d, want Massage/75", list[0].RewardName, list[0].PointCost)
	}
}
