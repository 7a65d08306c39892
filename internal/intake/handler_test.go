package intake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialops/internal/items"
	"trialops/internal/logger"
	"trialops/internal/rules"
	"trialops/pkg/models"
)

type fakeItemService struct {
	created []items.CreateActionItemRequest
	err     error
}

func (f *fakeItemService) Create(ctx context.Context, req items.CreateActionItemRequest) (*items.ActionItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	return &items.ActionItem{
		ID:       "item-001",
		StudyID:  req.StudyID,
		SiteID:   req.SiteID,
		Title:    req.Title,
		Category: req.Category,
		Severity: req.Severity,
		Status:   items.StatusNew,
	}, nil
}

func (f *fakeItemService) Get(ctx context.Context, id string) (*items.ActionItem, error) {
	return nil, nil
}

func (f *fakeItemService) List(ctx context.Context, filter items.Filter) (*items.ItemList, error) {
	return nil, nil
}

func (f *fakeItemService) Update(ctx context.Context, id string, req items.UpdateActionItemRequest) (*items.ActionItem, error) {
	return nil, nil
}

func (f *fakeItemService) Transition(ctx context.Context, id string, req items.TransitionRequest) (*items.ActionItem, error) {
	return nil, nil
}

func (f *fakeItemService) Delete(ctx context.Context, id string) error {
	return nil
}

func (f *fakeItemService) ListUpdates(ctx context.Context, id string) ([]items.ItemUpdate, error) {
	return nil, nil
}

type recordedEvent struct {
	topic string
	key   string
	value interface{}
}

type fakeEventProducer struct {
	published []recordedEvent
	err       error
}

func (f *fakeEventProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, recordedEvent{topic: topic, key: key, value: value})
	return nil
}

func (f *fakeEventProducer) Close() error { return nil }

func newTestHandler(t *testing.T, ruleList []rules.SuppressionRule) (*Handler, *fakeItemService) {
	t.Helper()

	svc := newTestIntakeService(t, &fakeRuleSource{rules: ruleList}, "create")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	itemService := &fakeItemService{}
	return NewHandler(svc, itemService, logger.NopLogger()), itemService
}

func TestHandleFinding_CreatesActionItem(t *testing.T) {
	handler, itemService := newTestHandler(t, nil)

	finding := testFinding()
	finding.SetPayloadField("description", "Monitor flagged missing CRF entry")

	require.NoError(t, handler.HandleFinding(context.Background(), *finding))

	require.Len(t, itemService.created, 1)
	req := itemService.created[0]
	assert.Equal(t, "STUDY-001", req.StudyID)
	assert.Equal(t, "SITE-014", req.SiteID)
	require.NotNil(t, req.FindingID)
	assert.Equal(t, "finding-001", *req.FindingID)
	require.NotNil(t, req.Description)
	assert.Equal(t, "Monitor flagged missing CRF entry", *req.Description)
}

func TestHandleFinding_PublishesItemCreatedEvent(t *testing.T) {
	svc := newTestIntakeService(t, &fakeRuleSource{}, "create")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	itemService := &fakeItemService{}
	producer := &fakeEventProducer{}
	handler := NewHandler(svc, itemService, logger.NopLogger(),
		WithItemEvents(producer, "trialops.item-events"))

	require.NoError(t, handler.HandleFinding(context.Background(), *testFinding()))

	require.Len(t, producer.published, 1)
	published := producer.published[0]
	assert.Equal(t, "trialops.item-events", published.topic)
	assert.Equal(t, "item-001", published.key)

	event, ok := published.value.(models.ItemCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "item-001", event.ItemID)
	assert.Equal(t, "finding-001", event.FindingID)
	assert.Equal(t, "STUDY-001", event.StudyID)
}

func TestHandleFinding_PublishFailureStillAcksFinding(t *testing.T) {
	svc := newTestIntakeService(t, &fakeRuleSource{}, "create")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	itemService := &fakeItemService{}
	producer := &fakeEventProducer{err: assert.AnError}
	handler := NewHandler(svc, itemService, logger.NopLogger(),
		WithItemEvents(producer, "trialops.item-events"))

	require.NoError(t, handler.HandleFinding(context.Background(), *testFinding()))
	require.Len(t, itemService.created, 1)
	assert.Empty(t, producer.published)
}

func TestHandleFinding_SuppressedFindingCreatesNothing(t *testing.T) {
	handler, itemService := newTestHandler(t, []rules.SuppressionRule{
		suppressionRule("rule-site", `site_id == "SITE-014"`, 10),
	})

	require.NoError(t, handler.HandleFinding(context.Background(), *testFinding()))
	assert.Empty(t, itemService.created)
}

func TestHandleFinding_RejectsMalformedFinding(t *testing.T) {
	handler, itemService := newTestHandler(t, nil)

	finding := testFinding()
	finding.StudyID = ""

	err := handler.HandleFinding(context.Background(), *finding)
	require.Error(t, err)
	assert.Empty(t, itemService.created)
}

func TestHandleConfigEvent_ReloadsOnSuppressionUpdate(t *testing.T) {
	source := &fakeRuleSource{}
	svc := newTestIntakeService(t, source, "create")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	handler := NewHandler(svc, &fakeItemService{}, logger.NopLogger())

	source.rules = []rules.SuppressionRule{
		suppressionRule("rule-new", `site_id == "SITE-014"`, 10),
	}

	require.NoError(t, handler.HandleConfigEvent(context.Background(), models.ConfigUpdateEvent{
		EventType: models.EventTypeSuppressionRuleUpdated,
		RuleID:    "rule-new",
		Action:    models.ActionCreate,
	}))

	decision, _, err := svc.Evaluate(context.Background(), testFinding())
	require.NoError(t, err)
	assert.Equal(t, DecisionSuppress, decision)
}

func TestHandleConfigEvent_IgnoresUnrelatedEvents(t *testing.T) {
	source := &fakeRuleSource{}
	svc := newTestIntakeService(t, source, "create")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	handler := NewHandler(svc, &fakeItemService{}, logger.NopLogger())

	// A rule source error would surface if this event triggered a reload.
	source.err = assert.AnError

	require.NoError(t, handler.HandleConfigEvent(context.Background(), models.ConfigUpdateEvent{
		EventType: models.EventTypeSLARuleUpdated,
		RuleID:    "rule-sla",
		Action:    models.ActionUpdate,
	}))
}
