package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	errs []error
}

func (r *recordingReporter) Capture(ctx context.Context, err error, attrs ...any) {
	r.errs = append(r.errs, err)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func TestLogger_Capture(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	NewLogger(log).Capture(context.Background(), errors.New("provider down"), "action", "image")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "workflow failure", entry["msg"])
	assert.Equal(t, "provider down", entry["err"])
	assert.Equal(t, "image", entry["action"])
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	err := errors.New("boom")

	Multi{a, b}.Capture(context.Background(), err)

	assert.Equal(t, []error{err}, a.errs)
	assert.Equal(t, []error{err}, b.errs)
}

func TestTelegram_SendsQueuedAlerts(t *testing.T) {
	sender := &fakeSender{}
	tg := newTelegram(sender, -100123, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tg.Run(ctx)

	tg.Capture(ctx, errors.New("refund failed"), "project_id", "p-1")

	assert.Eventually(t, func() bool { return len(sender.messages()) == 1 }, time.Second, 5*time.Millisecond)
	msg := sender.messages()[0]
	assert.Equal(t, int64(-100123), msg.ChatID)
	assert.Contains(t, msg.Text, "refund failed")
	assert.Contains(t, msg.Text, "project_id: p-1")
}

func TestTelegram_DropsWhenQueueFull(t *testing.T) {
	tg := newTelegram(&fakeSender{}, 1, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	for i := 0; i < alertQueueSize+10; i++ {
		tg.Capture(context.Background(), errors.New("x"))
	}
	assert.Len(t, tg.queue, alertQueueSize)
}

func TestSentry_CaptureTagsEvent(t *testing.T) {
	var mu sync.Mutex
	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn: "https://public@sentry.example.com/1",
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, event)
			return nil
		},
	})
	require.NoError(t, err)

	r := newSentry(client)
	r.Capture(context.Background(), errors.New("provider down"), "action", "image", "stage", "record_created")
	r.Capture(context.Background(), nil)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	require.NotEmpty(t, events[0].Exception)
	assert.Equal(t, "provider down", events[0].Exception[0].Value)
	assert.Equal(t, "image", events[0].Tags["action"])
	assert.Equal(t, "record_created", events[0].Tags["stage"])
}
