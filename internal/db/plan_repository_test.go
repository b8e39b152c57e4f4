package db

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/terraincognita07/mealplans/internal/models"
)

func newRepositoriesForTest(t *testing.T) *Repositories {
	t.Helper()
	database := openSQLiteForTest(t, filepath.Join(t.TempDir(), "mealplans-repo.db"))
	return NewRepositories(database)
}

func datePtr(year int, month time.Month, day int) *time.Time {
	value := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &value
}

func createPlanForTest(t *testing.T, repos *Repositories, plan models.MealPlan) models.MealPlan {
	t.Helper()
	if plan.Content == nil {
		plan.Content = json.RawMessage(`{}`)
	}
	if plan.Status == "" {
		plan.Status = models.PlanStatusDraft
	}
	if plan.OwnerID == 0 {
		plan.OwnerID = 1
	}
	if err := repos.Plans.Create(context.Background(), &plan); err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return plan
}

func TestPlanRepositoryUpdateLifecycleIsCompareAndSwap(t *testing.T) {
	repos := newRepositoriesForTest(t)
	ctx := context.Background()
	plan := createPlanForTest(t, repos, models.MealPlan{ClientCode: "C-1", Name: "Cut"})

	patch := models.LifecyclePatch{
		Status:      models.PlanStatusActive,
		ActiveFrom:  datePtr(2024, time.January, 1),
		ActiveUntil: datePtr(2024, time.January, 22),
		ActiveDays:  []int{1, 3},
	}
	updated, err := repos.Plans.UpdateLifecycle(ctx, plan.ID, models.PlanStatusDraft, patch)
	if err != nil {
		t.Fatalf("update lifecycle: %v", err)
	}
	if !updated {
		t.Fatal("expected first update to apply")
	}

	updated, err = repos.Plans.UpdateLifecycle(ctx, plan.ID, models.PlanStatusDraft, patch)
	if err != nil {
		t.Fatalf("second update lifecycle: %v", err)
	}
	if updated {
		t.Fatal("expected stale expected status to be rejected")
	}

	stored, found, err := repos.Plans.FindByID(ctx, plan.ID)
	if err != nil || !found {
		t.Fatalf("find plan: found=%v err=%v", found, err)
	}
	if stored.Status != models.PlanStatusActive {
		t.Fatalf("expected active status, got %q", stored.Status)
	}
	if stored.ActiveFrom == nil || stored.ActiveFrom.Format("2006-01-02") != "2024-01-01" {
		t.Fatalf("unexpected active_from %v", stored.ActiveFrom)
	}
	if len(stored.ActiveDays) != 2 || stored.ActiveDays[0] != 1 || stored.ActiveDays[1] != 3 {
		t.Fatalf("unexpected active days %v", stored.ActiveDays)
	}
}

func TestPlanRepositoryUpdateLifecycleClearsDates(t *testing.T) {
	repos := newRepositoriesForTest(t)
	ctx := context.Background()
	plan := createPlanForTest(t, repos, models.MealPlan{
		ClientCode:  "C-1",
		Name:        "Bulk",
		Status:      models.PlanStatusActive,
		ActiveFrom:  datePtr(2024, time.January, 1),
		ActiveUntil: datePtr(2024, time.February, 1),
	})

	updated, err := repos.Plans.UpdateLifecycle(ctx, plan.ID, models.PlanStatusActive, models.LifecyclePatch{Status: models.PlanStatusDraft})
	if err != nil || !updated {
		t.Fatalf("update lifecycle: updated=%v err=%v", updated, err)
	}

	stored, _, err := repos.Plans.FindByID(ctx, plan.ID)
	if err != nil {
		t.Fatalf("find plan: %v", err)
	}
	if stored.ActiveFrom != nil || stored.ActiveUntil != nil {
		t.Fatalf("expected cleared dates, got from=%v until=%v", stored.ActiveFrom, stored.ActiveUntil)
	}
	if len(stored.ActiveDays) != 0 {
		t.Fatalf("expected all-days representation, got %v", stored.ActiveDays)
	}
}

func TestPlanRepositoryListFilters(t *testing.T) {
	repos := newRepositoriesForTest(t)
	ctx := context.Background()

	expired := createPlanForTest(t, repos, models.MealPlan{
		ClientCode: "C-1", Name: "old", Status: models.PlanStatusActive,
		ActiveFrom: datePtr(2024, time.January, 1), ActiveUntil: datePtr(2024, time.January, 9),
	})
	createPlanForTest(t, repos, models.MealPlan{
		ClientCode: "C-1", Name: "current", Status: models.PlanStatusActive,
		ActiveFrom: datePtr(2024, time.January, 1), ActiveUntil: datePtr(2024, time.January, 10),
	})
	upcoming := createPlanForTest(t, repos, models.MealPlan{
		ClientCode: "C-2", Name: "next", Status: models.PlanStatusScheduled,
		ActiveFrom: datePtr(2024, time.January, 12),
	})

	cutoff := datePtr(2024, time.January, 10)
	plans, err := repos.Plans.List(ctx, models.PlanFilter{Status: models.PlanStatusActive, ActiveUntilBefore: cutoff})
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(plans) != 1 || plans[0].ID != expired.ID {
		t.Fatalf("expected only plan %d, got %+v", expired.ID, plans)
	}

	plans, err = repos.Plans.List(ctx, models.PlanFilter{
		Status:       models.PlanStatusScheduled,
		ActiveFromOn: []time.Time{*datePtr(2024, time.January, 11), *datePtr(2024, time.January, 12)},
	})
	if err != nil {
		t.Fatalf("list upcoming: %v", err)
	}
	if len(plans) != 1 || plans[0].ID != upcoming.ID {
		t.Fatalf("expected only plan %d, got %+v", upcoming.ID, plans)
	}

	plans, err = repos.Plans.List(ctx, models.PlanFilter{ClientCode: "C-1", ExcludeID: expired.ID})
	if err != nil {
		t.Fatalf("list by client: %v", err)
	}
	if len(plans) != 1 || plans[0].Name != "current" {
		t.Fatalf("expected only current plan, got %+v", plans)
	}
}

func TestPlanRepositoryRoundTripsMacroTargets(t *testing.T) {
	repos := newRepositoriesForTest(t)
	ctx := context.Background()
	plan := createPlanForTest(t, repos, models.MealPlan{
		ClientCode: "C-1",
		Name:       "Macros",
		Content:    json.RawMessage(`{"meals":[]}`),
		MacroTargets: models.MacroTargets{
			ProteinGrams: decimal.RequireFromString("142.5"),
			CarbsGrams:   decimal.NewFromInt(210),
			FatGrams:     decimal.NewFromInt(60),
		},
	})

	stored, found, err := repos.Plans.FindByID(ctx, plan.ID)
	if err != nil || !found {
		t.Fatalf("find plan: found=%v err=%v", found, err)
	}
	if !stored.MacroTargets.ProteinGrams.Equal(decimal.RequireFromString("142.5")) {
		t.Fatalf("unexpected protein target %s", stored.MacroTargets.ProteinGrams)
	}
	if string(stored.Content) != `{"meals":[]}` {
		t.Fatalf("unexpected content %s", stored.Content)
	}
}

func TestPlanRepositoryDeleteReportsMissingRow(t *testing.T) {
	repos := newRepositoriesForTest(t)
	ctx := context.Background()
	plan := createPlanForTest(t, repos, models.MealPlan{ClientCode: "C-1", Name: "gone"})

	deleted, err := repos.Plans.Delete(ctx, plan.ID)
	if err != nil || !deleted {
		t.Fatalf("delete plan: deleted=%v err=%v", deleted, err)
	}
	deleted, err = repos.Plans.Delete(ctx, plan.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Fatal("expected second delete to report no row")
	}
}
