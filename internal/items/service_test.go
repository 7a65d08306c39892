package items

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialops/internal/auth"
	"trialops/internal/sla"
	pkgerrors "trialops/pkg/errors"
)

type fakeRepository struct {
	items   map[string]*ActionItem
	updates []ItemUpdate
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{items: make(map[string]*ActionItem)}
}

func (r *fakeRepository) Create(ctx context.Context, item *ActionItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	stored := *item
	r.items[item.ID] = &stored
	return nil
}

func (r *fakeRepository) Get(ctx context.Context, id string) (*ActionItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("action item not found")
	}
	out := *item
	return &out, nil
}

func (r *fakeRepository) List(ctx context.Context, filter Filter) ([]ActionItem, int, error) {
	var out []ActionItem
	for _, item := range r.items {
		if filter.OpenOnly && !item.Status.Open() {
			continue
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (r *fakeRepository) Update(ctx context.Context, item *ActionItem) error {
	if _, ok := r.items[item.ID]; !ok {
		return fmt.Errorf("action item not found")
	}
	stored := *item
	r.items[item.ID] = &stored
	return nil
}

func (r *fakeRepository) Delete(ctx context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("action item not found")
	}
	delete(r.items, id)
	return nil
}

func (r *fakeRepository) AddUpdate(ctx context.Context, update *ItemUpdate) error {
	if update.ID == "" {
		update.ID = uuid.New().String()
	}
	r.updates = append(r.updates, *update)
	return nil
}

func (r *fakeRepository) ListUpdates(ctx context.Context, actionItemID string) ([]ItemUpdate, error) {
	var out []ItemUpdate
	for _, u := range r.updates {
		if u.ActionItemID == actionItemID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeRepository) ListSnapshots(ctx context.Context, studyID string) ([]sla.ItemSnapshot, error) {
	var out []sla.ItemSnapshot
	for _, item := range r.items {
		out = append(out, item.Snapshot())
	}
	return out, nil
}

func (r *fakeRepository) ListEscalationCandidates(ctx context.Context, now time.Time, limit int) ([]ActionItem, error) {
	var out []ActionItem
	for _, item := range r.items {
		if item.Status.Open() && item.EscalationLevel == 0 &&
			item.EscalationDeadline.Before(now) && !item.ResolutionDeadline.Before(now) {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *fakeRepository) MarkEscalated(ctx context.Context, id string) (bool, error) {
	item, ok := r.items[id]
	if !ok || item.EscalationLevel != 0 || !item.Status.Open() {
		return false, nil
	}
	item.EscalationLevel = 1
	return true, nil
}

func (r *fakeRepository) CountOpenByStatus(ctx context.Context) (map[WorkflowStatus]int, error) {
	counts := make(map[WorkflowStatus]int)
	for _, item := range r.items {
		if item.Status.Open() {
			counts[item.Status]++
		}
	}
	return counts, nil
}

type fakeSnapshotter struct {
	set *sla.RuleSet
	err error
}

func (f *fakeSnapshotter) Snapshot(ctx context.Context) (*sla.RuleSet, error) {
	return f.set, f.err
}

func testCalendar(t *testing.T) *sla.Calendar {
	t.Helper()
	cal, err := sla.NewCalendar(2024, 2030)
	require.NoError(t, err)
	return cal
}

func testRuleSet(t *testing.T) *sla.RuleSet {
	t.Helper()
	safety := sla.CategorySafetyReporting
	set, err := sla.NewRuleSet([]sla.Rule{
		{
			ID:              "rule-safety-critical",
			Category:        &safety,
			Severity:        sla.SeverityCritical,
			ResolutionHours: 48,
			EscalationHours: 24,
			EscalationRole:  sla.RoleOpsManager,
			Active:          true,
		},
		{
			ID:              "rule-any-major",
			Severity:        sla.SeverityMajor,
			ResolutionHours: 120,
			EscalationHours: 72,
			EscalationRole:  sla.RoleSCLead,
			Active:          true,
		},
	})
	require.NoError(t, err)
	return set
}

func newTestService(t *testing.T, repo *fakeRepository) *service {
	t.Helper()
	svc := NewService(repo, &fakeSnapshotter{set: testRuleSet(t)}, testCalendar(t)).(*service)
	// Wednesday mid-morning, well inside the calendar range.
	svc.now = func() time.Time {
		return time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)
	}
	return svc
}

func validCreateRequest() CreateActionItemRequest {
	return CreateActionItemRequest{
		StudyID:  "STUDY-001",
		SiteID:   "SITE-014",
		Title:    "SAE report not submitted within 24h",
		Category: string(sla.CategorySafetyReporting),
		Severity: string(sla.SeverityCritical),
	}
}

func TestCreate_StampsDeadlinesFromRule(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	item, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, StatusNew, item.Status)
	assert.Equal(t, "rule-safety-critical", item.RuleID)
	assert.Equal(t, string(sla.RoleOpsManager), item.EscalationRole)
	assert.Equal(t, 0, item.EscalationLevel)
	assert.True(t, item.EscalationDeadline.Before(item.ResolutionDeadline))
	assert.True(t, item.EscalationDeadline.After(item.CreatedAt))
	assert.Equal(t, sla.StatusOnTrack, item.SLAStatus)
}

func TestCreate_FallsBackToSeverityWideRule(t *testing.T) {
	svc := newTestService(t, newFakeRepository())

	req := validCreateRequest()
	req.Category = string(sla.CategoryDataEntry)
	req.Severity = string(sla.SeverityMajor)

	item, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "rule-any-major", item.RuleID)
}

func TestCreate_ValidationErrors(t *testing.T) {
	svc := newTestService(t, newFakeRepository())

	tests := []struct {
		name   string
		mutate func(*CreateActionItemRequest)
	}{
		{"unknown category", func(req *CreateActionItemRequest) { req.Category = "paperwork" }},
		{"unknown severity", func(req *CreateActionItemRequest) { req.Severity = "catastrophic" }},
		{"empty title", func(req *CreateActionItemRequest) { req.Title = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)

			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
		})
	}
}

func TestCreate_NoApplicableRuleIsUnprocessable(t *testing.T) {
	svc := newTestService(t, newFakeRepository())

	req := validCreateRequest()
	req.Severity = string(sla.SeverityInfo)

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnprocessable(err))
}

func TestTransition_WorkflowPath(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	item, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	item, err = svc.Transition(context.Background(), item.ID, TransitionRequest{Status: "in_progress"})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, item.Status)
	assert.Nil(t, item.ResolvedAt)

	item, err = svc.Transition(context.Background(), item.ID, TransitionRequest{Status: "done"})
	require.NoError(t, err)
	require.NotNil(t, item.ResolvedAt)
	assert.Equal(t, sla.StatusResolvedOnTime, item.SLAStatus)

	item, err = svc.Transition(context.Background(), item.ID, TransitionRequest{Status: "verified"})
	require.NoError(t, err)
	assert.NotNil(t, item.VerifiedAt)
}

func TestTransition_InvalidMoveRejected(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	item, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), item.ID, TransitionRequest{Status: "verified"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestTransition_VerifiedIsTerminal(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	item, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	for _, status := range []string{"in_progress", "done", "verified"} {
		_, err = svc.Transition(context.Background(), item.ID, TransitionRequest{Status: status})
		require.NoError(t, err)
	}

	_, err = svc.Transition(context.Background(), item.ID, TransitionRequest{Status: "in_progress"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestTransition_ReopenClearsResolvedAt(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	item, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	for _, status := range []string{"in_progress", "done"} {
		_, err = svc.Transition(context.Background(), item.ID, TransitionRequest{Status: status})
		require.NoError(t, err)
	}

	item, err = svc.Transition(context.Background(), item.ID, TransitionRequest{Status: "in_progress"})
	require.NoError(t, err)
	assert.Nil(t, item.ResolvedAt, "reopened items must not count as resolved")
}

func TestUpdate_RecordsAuditTrail(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	item, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	newTitle := "SAE report overdue at site 014"
	_, err = svc.Update(context.Background(), item.ID, UpdateActionItemRequest{Title: &newTitle})
	require.NoError(t, err)

	updates, err := svc.ListUpdates(context.Background(), item.ID)
	require.NoError(t, err)

	var titleChange *ItemUpdate
	for i := range updates {
		if updates[i].FieldChanged != nil && *updates[i].FieldChanged == "title" {
			titleChange = &updates[i]
		}
	}
	require.NotNil(t, titleChange, "title change should be in the audit trail")
	assert.Equal(t, newTitle, *titleChange.NewValue)
}

func TestUpdate_AuditTrailRecordsActingUser(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	item, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	ctx := auth.WithUserID(context.Background(), "coordinator-7")
	newTitle := "SAE report escalated to sponsor"
	_, err = svc.Update(ctx, item.ID, UpdateActionItemRequest{Title: &newTitle})
	require.NoError(t, err)

	updates, err := svc.ListUpdates(context.Background(), item.ID)
	require.NoError(t, err)
	require.NotEmpty(t, updates)
	assert.Equal(t, "coordinator-7", updates[len(updates)-1].UpdatedBy)

	// Creation ran without a user in the context, so it falls back to system.
	assert.Equal(t, "system", updates[0].UpdatedBy)
}

func TestDelete_OnlyNewItems(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	item, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), item.ID, TransitionRequest{Status: "in_progress"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), item.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(t, newFakeRepository())

	_, err := svc.Get(context.Background(), uuid.New().String())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}
