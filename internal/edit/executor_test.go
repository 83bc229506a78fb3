package edit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"enhancer/internal/audit"
	"enhancer/internal/domain"
	"enhancer/internal/notify"
	"enhancer/internal/storage"
	"enhancer/internal/store/memory"
	"enhancer/internal/usage"
)

type fakeEnhancer struct {
	enhanceErr error
	fetchErr   error
	result     []byte
}

func (f *fakeEnhancer) Enhance(ctx context.Context, image []byte, filename, prompt string) (string, error) {
	if f.enhanceErr != nil {
		return "", f.enhanceErr
	}
	return "https://cdn.example.com/out.jpg", nil
}

func (f *fakeEnhancer) Fetch(ctx context.Context, resultURL string) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.result == nil {
		return []byte("enhanced-bytes"), nil
	}
	return f.result, nil
}

type recordingChannel struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *recordingChannel) Send(event notify.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *recordingChannel) Close() error { return nil }

func (c *recordingChannel) snapshot() []notify.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]notify.Event, len(c.events))
	copy(out, c.events)
	return out
}

type executorFixture struct {
	store    *memory.Store
	files    *storage.FileStore
	registry *notify.Registry
	channel  *recordingChannel
	executor *Executor
	edit     *domain.Edit
	imageKey string
}

func newExecutorFixture(t *testing.T, enh *fakeEnhancer) *executorFixture {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	key, err := files.Write(ctx, "uploads/src_house.jpg", []byte{0xff, 0xd8})
	if err != nil {
		t.Fatalf("seed upload error: %v", err)
	}

	img, err := store.CreateImage(ctx, "user-1", "house.jpg", key, "image/jpeg")
	if err != nil {
		t.Fatalf("CreateImage error: %v", err)
	}
	ed, err := store.CreateEdit(ctx, "user-1", img.ID, "brighten the kitchen")
	if err != nil {
		t.Fatalf("CreateEdit error: %v", err)
	}

	registry := notify.NewRegistry(zerolog.Nop())
	channel := &recordingChannel{}
	registry.Register("user-1", channel)

	executor := NewExecutor(
		store, files, enh, registry,
		usage.NewGate(store), audit.NewRecorder(zerolog.Nop()), zerolog.Nop(),
	)

	return &executorFixture{
		store:    store,
		files:    files,
		registry: registry,
		channel:  channel,
		executor: executor,
		edit:     ed,
		imageKey: key,
	}
}

func TestProcessCompletesEdit(t *testing.T) {
	fx := newExecutorFixture(t, &fakeEnhancer{})
	ctx := context.Background()

	fx.executor.Process(ctx, fx.edit, fx.imageKey)

	got, err := fx.store.GetEdit(ctx, "user-1", fx.edit.ID)
	if err != nil {
		t.Fatalf("GetEdit error: %v", err)
	}
	if got.Status != domain.EditStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.ResultPath == "" {
		t.Fatalf("result path not set on completed edit")
	}
	if data, err := fx.files.Read(ctx, got.ResultPath); err != nil || string(data) != "enhanced-bytes" {
		t.Fatalf("result not persisted: data=%q err=%v", data, err)
	}

	events := fx.channel.snapshot()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	payload := events[0].Payload.(map[string]any)
	if events[0].Type != notify.EventEditStatus || payload["status"] != "completed" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
	if payload["result_path"] != got.ResultPath {
		t.Fatalf("event result path mismatch: %v", payload["result_path"])
	}

	used, err := fx.store.GetUsage(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUsage error: %v", err)
	}
	if used[domain.MetricEditsCompleted] != 1 {
		t.Fatalf("usage = %d, want 1", used[domain.MetricEditsCompleted])
	}
}

func TestProcessFailsOnEnhanceError(t *testing.T) {
	fx := newExecutorFixture(t, &fakeEnhancer{enhanceErr: errors.New("upstream down")})
	ctx := context.Background()

	fx.executor.Process(ctx, fx.edit, fx.imageKey)

	got, err := fx.store.GetEdit(ctx, "user-1", fx.edit.ID)
	if err != nil {
		t.Fatalf("GetEdit error: %v", err)
	}
	if got.Status != domain.EditStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ResultPath != "" {
		t.Fatalf("failed edit must not carry a result path, got %s", got.ResultPath)
	}
	if got.ErrorMessage == "" {
		t.Fatalf("failed edit missing error message")
	}

	events := fx.channel.snapshot()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	payload := events[0].Payload.(map[string]any)
	if payload["status"] != "failed" || payload["error"] == "" {
		t.Fatalf("unexpected failure event: %+v", events[0])
	}

	used, _ := fx.store.GetUsage(ctx, "user-1")
	if used[domain.MetricEditsCompleted] != 0 {
		t.Fatalf("failed edit must not consume trial quota")
	}
}

func TestProcessFailsOnFetchError(t *testing.T) {
	fx := newExecutorFixture(t, &fakeEnhancer{fetchErr: errors.New("download refused")})
	ctx := context.Background()

	fx.executor.Process(ctx, fx.edit, fx.imageKey)

	got, _ := fx.store.GetEdit(ctx, "user-1", fx.edit.ID)
	if got.Status != domain.EditStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
}

func TestProcessAlertsAtTrialBoundary(t *testing.T) {
	fx := newExecutorFixture(t, &fakeEnhancer{})
	ctx := context.Background()

	// Seven prior completions: this one is the eighth.
	if _, err := fx.store.IncrementUsage(ctx, "user-1", domain.MetricEditsCompleted, 7); err != nil {
		t.Fatalf("IncrementUsage error: %v", err)
	}

	fx.executor.Process(ctx, fx.edit, fx.imageKey)

	events := fx.channel.snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want edit_status + usage_alert", len(events))
	}
	if events[1].Type != notify.EventUsageAlert {
		t.Fatalf("second event type = %s, want usage_alert", events[1].Type)
	}
	payload := events[1].Payload.(map[string]any)
	if payload["remaining"] != 2 {
		t.Fatalf("remaining = %v, want 2", payload["remaining"])
	}
}

func TestProcessSkipsAlertForSubscribedUser(t *testing.T) {
	fx := newExecutorFixture(t, &fakeEnhancer{})
	ctx := context.Background()

	if _, err := fx.store.SetSubscription(ctx, "user-1", "pro", domain.SubscriptionStatusActive); err != nil {
		t.Fatalf("SetSubscription error: %v", err)
	}
	if _, err := fx.store.IncrementUsage(ctx, "user-1", domain.MetricEditsCompleted, 9); err != nil {
		t.Fatalf("IncrementUsage error: %v", err)
	}

	fx.executor.Process(ctx, fx.edit, fx.imageKey)

	for _, evt := range fx.channel.snapshot() {
		if evt.Type == notify.EventUsageAlert {
			t.Fatalf("subscribed user received usage alert")
		}
	}
}

func TestProcessIsIdempotentForTerminalEdit(t *testing.T) {
	fx := newExecutorFixture(t, &fakeEnhancer{})
	ctx := context.Background()

	fx.executor.Process(ctx, fx.edit, fx.imageKey)
	fx.executor.Process(ctx, fx.edit, fx.imageKey)

	events := fx.channel.snapshot()
	if len(events) != 1 {
		t.Fatalf("redelivered task produced extra events: %d", len(events))
	}
	used, _ := fx.store.GetUsage(ctx, "user-1")
	if used[domain.MetricEditsCompleted] != 1 {
		t.Fatalf("redelivered task double-counted usage: %d", used[domain.MetricEditsCompleted])
	}
}
