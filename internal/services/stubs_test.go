package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/terraincognita07/mealplans/internal/i18n"
	"github.com/terraincognita07/mealplans/internal/models"
)

var errStoreUnavailable = errors.New("store unavailable")

type planRepositoryStub struct {
	mu            sync.Mutex
	plans         map[uint]models.MealPlan
	nextID        uint
	findErr       error
	listErr       error
	createErr     error
	updateErr     error
	updateErrByID map[uint]error
	updateBlocks  bool
	beforeUpdate  func(planID uint)
	afterContent  func(planID uint)
	updateCalls   int
}

func newPlanRepositoryStub() *planRepositoryStub {
	return &planRepositoryStub{
		plans:         make(map[uint]models.MealPlan),
		nextID:        1,
		updateErrByID: make(map[uint]error),
	}
}

func (stub *planRepositoryStub) put(plan models.MealPlan) models.MealPlan {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if plan.ID == 0 {
		plan.ID = stub.nextID
	}
	if plan.ID >= stub.nextID {
		stub.nextID = plan.ID + 1
	}
	stub.plans[plan.ID] = plan
	return plan
}

func (stub *planRepositoryStub) get(planID uint) models.MealPlan {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return stub.plans[planID]
}

func (stub *planRepositoryStub) FindByID(_ context.Context, planID uint) (models.MealPlan, bool, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.findErr != nil {
		return models.MealPlan{}, false, stub.findErr
	}
	plan, ok := stub.plans[planID]
	return plan, ok, nil
}

func (stub *planRepositoryStub) List(_ context.Context, filter models.PlanFilter) ([]models.MealPlan, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.listErr != nil {
		return nil, stub.listErr
	}

	result := make([]models.MealPlan, 0)
	for _, plan := range stub.plans {
		if filter.OwnerID != 0 && plan.OwnerID != filter.OwnerID {
			continue
		}
		if filter.ClientCode != "" && plan.ClientCode != filter.ClientCode {
			continue
		}
		if filter.Status != "" && plan.Status != filter.Status {
			continue
		}
		if filter.ExcludeID != 0 && plan.ID == filter.ExcludeID {
			continue
		}
		if len(filter.ActiveFromOn) > 0 && !dateIn(plan.ActiveFrom, filter.ActiveFromOn) {
			continue
		}
		if filter.ActiveUntilBefore != nil && (plan.ActiveUntil == nil || !plan.ActiveUntil.Before(*filter.ActiveUntilBefore)) {
			continue
		}
		result = append(result, plan)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func dateIn(value *time.Time, candidates []time.Time) bool {
	if value == nil {
		return false
	}
	for _, candidate := range candidates {
		if value.Equal(candidate) {
			return true
		}
	}
	return false
}

func (stub *planRepositoryStub) Create(_ context.Context, plan *models.MealPlan) error {
	if stub.createErr != nil {
		return stub.createErr
	}
	*plan = stub.put(*plan)
	return nil
}

func (stub *planRepositoryStub) UpdateContent(_ context.Context, plan *models.MealPlan) error {
	if err := stub.writeContent(plan); err != nil {
		return err
	}
	if stub.afterContent != nil {
		stub.afterContent(plan.ID)
	}
	return nil
}

func (stub *planRepositoryStub) writeContent(plan *models.MealPlan) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.updateErr != nil {
		return stub.updateErr
	}
	stored, ok := stub.plans[plan.ID]
	if !ok {
		return nil
	}
	stored.Name = plan.Name
	stored.Content = plan.Content
	stored.DailyTargetCalories = plan.DailyTargetCalories
	stored.MacroTargets = plan.MacroTargets
	stored.UpdatedAt = plan.UpdatedAt
	stub.plans[plan.ID] = stored
	return nil
}

func (stub *planRepositoryStub) UpdateLifecycle(ctx context.Context, planID uint, expectedStatus models.PlanStatus, patch models.LifecyclePatch) (bool, error) {
	if stub.beforeUpdate != nil {
		stub.beforeUpdate(planID)
	}
	if stub.updateBlocks {
		<-ctx.Done()
		return false, ctx.Err()
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.updateCalls++
	if err := stub.updateErrByID[planID]; err != nil {
		return false, err
	}
	if stub.updateErr != nil {
		return false, stub.updateErr
	}
	plan, ok := stub.plans[planID]
	if !ok || plan.Status != expectedStatus {
		return false, nil
	}
	plan.Status = patch.Status
	plan.ActiveFrom = patch.ActiveFrom
	plan.ActiveUntil = patch.ActiveUntil
	plan.ActiveDays = patch.ActiveDays
	stub.plans[planID] = plan
	return true, nil
}

func (stub *planRepositoryStub) Delete(_ context.Context, planID uint) (bool, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if _, ok := stub.plans[planID]; !ok {
		return false, nil
	}
	delete(stub.plans, planID)
	return true, nil
}

type mirrorRepositoryStub struct {
	mu            sync.Mutex
	mirrors       map[uint]models.MirroredPlan
	upsertErr     error
	deleteErrByID map[uint]error
	beforeUpsert  func(planID uint)
}

func newMirrorRepositoryStub() *mirrorRepositoryStub {
	return &mirrorRepositoryStub{
		mirrors:       make(map[uint]models.MirroredPlan),
		deleteErrByID: make(map[uint]error),
	}
}

func (stub *mirrorRepositoryStub) Upsert(_ context.Context, mirror *models.MirroredPlan) error {
	if stub.beforeUpsert != nil {
		stub.beforeUpsert(mirror.OriginalPlanID)
	}
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.upsertErr != nil {
		return stub.upsertErr
	}
	stub.mirrors[mirror.OriginalPlanID] = *mirror
	return nil
}

func (stub *mirrorRepositoryStub) DeleteByOriginalID(_ context.Context, planID uint) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if err := stub.deleteErrByID[planID]; err != nil {
		return err
	}
	delete(stub.mirrors, planID)
	return nil
}

func (stub *mirrorRepositoryStub) FindByOriginalID(_ context.Context, planID uint) (models.MirroredPlan, bool, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	mirror, ok := stub.mirrors[planID]
	return mirror, ok, nil
}

func (stub *mirrorRepositoryStub) ListByClient(_ context.Context, clientCode string) ([]models.MirroredPlan, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	result := make([]models.MirroredPlan, 0)
	for _, mirror := range stub.mirrors {
		if mirror.ClientCode == clientCode {
			result = append(result, mirror)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OriginalPlanID < result[j].OriginalPlanID })
	return result, nil
}

func (stub *mirrorRepositoryStub) has(planID uint) bool {
	_, ok, _ := stub.FindByOriginalID(context.Background(), planID)
	return ok
}

type reminderRepositoryStub struct {
	mu              sync.Mutex
	reminders       map[string]models.ScheduledReminder
	insertErr       error
	deleteErr       error
	deleteManyCalls int
}

func newReminderRepositoryStub() *reminderRepositoryStub {
	return &reminderRepositoryStub{reminders: make(map[string]models.ScheduledReminder)}
}

func (stub *reminderRepositoryStub) InsertBatch(_ context.Context, reminders []models.ScheduledReminder) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.insertErr != nil {
		return stub.insertErr
	}
	for _, reminder := range reminders {
		stub.reminders[reminder.ID] = reminder
	}
	return nil
}

func (stub *reminderRepositoryStub) DeleteByPlanID(_ context.Context, planID uint) error {
	return stub.DeleteByPlanIDs(context.Background(), []uint{planID})
}

func (stub *reminderRepositoryStub) DeleteByPlanIDs(_ context.Context, planIDs []uint) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.deleteManyCalls++
	if stub.deleteErr != nil {
		return stub.deleteErr
	}
	for id, reminder := range stub.reminders {
		for _, planID := range planIDs {
			if reminder.PlanID == planID {
				delete(stub.reminders, id)
			}
		}
	}
	return nil
}

func (stub *reminderRepositoryStub) ListByPlanID(_ context.Context, planID uint) ([]models.ScheduledReminder, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	result := make([]models.ScheduledReminder, 0)
	for _, reminder := range stub.reminders {
		if reminder.PlanID == planID {
			result = append(result, reminder)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].WeekNumber < result[j].WeekNumber })
	return result, nil
}

func (stub *reminderRepositoryStub) ListDue(_ context.Context, day time.Time, limit int) ([]models.ScheduledReminder, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	result := make([]models.ScheduledReminder, 0)
	for _, reminder := range stub.reminders {
		if reminder.Status == models.ReminderStatusPending && !reminder.ScheduledDate.After(day) {
			result = append(result, reminder)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ScheduledDate.Before(result[j].ScheduledDate) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (stub *reminderRepositoryStub) MarkSent(_ context.Context, reminderID string, sentAt time.Time) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	reminder, ok := stub.reminders[reminderID]
	if !ok || reminder.Status != models.ReminderStatusPending {
		return nil
	}
	reminder.Status = models.ReminderStatusSent
	reminder.SentAt = &sentAt
	stub.reminders[reminderID] = reminder
	return nil
}

func (stub *reminderRepositoryStub) countForPlan(planID uint) int {
	reminders, _ := stub.ListByPlanID(context.Background(), planID)
	return len(reminders)
}

type clientRepositoryStub struct {
	clients map[string]models.Client
	err     error
}

func (stub *clientRepositoryStub) FindByCode(_ context.Context, code string) (models.Client, bool, error) {
	if stub.err != nil {
		return models.Client{}, false, stub.err
	}
	client, ok := stub.clients[code]
	return client, ok, nil
}

type notificationLogStub struct {
	mu        sync.Mutex
	entries   map[string]models.NotificationLog
	existsErr error
}

func newNotificationLogStub() *notificationLogStub {
	return &notificationLogStub{entries: make(map[string]models.NotificationLog)}
}

func (stub *notificationLogStub) ExistsByDedupeKey(_ context.Context, dedupeKey string) (bool, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.existsErr != nil {
		return false, stub.existsErr
	}
	_, ok := stub.entries[dedupeKey]
	return ok, nil
}

func (stub *notificationLogStub) Record(_ context.Context, entry *models.NotificationLog) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if _, ok := stub.entries[entry.DedupeKey]; !ok {
		stub.entries[entry.DedupeKey] = *entry
	}
	return nil
}

type dispatcherStub struct {
	mu   sync.Mutex
	sent []NotificationMessage
	err  error
}

func (stub *dispatcherStub) Send(_ context.Context, message NotificationMessage) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.err != nil {
		return stub.err
	}
	stub.sent = append(stub.sent, message)
	return nil
}

func (stub *dispatcherStub) messages() []NotificationMessage {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	result := make([]NotificationMessage, len(stub.sent))
	copy(result, stub.sent)
	return result
}

type lockerStub struct {
	err  error
	keys []string
}

func (stub *lockerStub) Lock(_ context.Context, key string) (func(), error) {
	if stub.err != nil {
		return nil, stub.err
	}
	stub.keys = append(stub.keys, key)
	return func() {}, nil
}

type engineFixture struct {
	engine     *Engine
	plans      *planRepositoryStub
	mirrors    *mirrorRepositoryStub
	reminders  *reminderRepositoryStub
	clients    *clientRepositoryStub
	logs       *notificationLogStub
	dispatcher *dispatcherStub
	locker     *lockerStub
	catalog    *i18n.Manager
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	return newEngineFixtureWithOptions(t, EngineOptions{})
}

func newEngineFixtureWithOptions(t *testing.T, options EngineOptions) *engineFixture {
	t.Helper()

	catalog, err := i18n.NewManager()
	if err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	fixture := &engineFixture{
		plans:     newPlanRepositoryStub(),
		mirrors:   newMirrorRepositoryStub(),
		reminders: newReminderRepositoryStub(),
		clients: &clientRepositoryStub{clients: map[string]models.Client{
			"C-100": {Code: "C-100", Language: models.LangEnglish, Channel: models.ChannelLog},
			"C-200": {Code: "C-200", Language: models.LangHebrew, Channel: models.ChannelTelegram, TelegramChatID: 42},
		}},
		logs:       newNotificationLogStub(),
		dispatcher: &dispatcherStub{},
		locker:     &lockerStub{},
		catalog:    catalog,
	}
	fixture.engine = NewEngine(EngineDependencies{
		Plans:         fixture.plans,
		Mirrors:       fixture.mirrors,
		Reminders:     fixture.reminders,
		Clients:       fixture.clients,
		Notifications: fixture.logs,
		Dispatcher:    fixture.dispatcher,
		Catalog:       catalog,
		Locker:        fixture.locker,
	}, options)
	return fixture
}

func day(value string) time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func dayPtr(value string) *time.Time {
	parsed := day(value)
	return &parsed
}

func daysPtr(days ...int) *[]int {
	return &days
}
