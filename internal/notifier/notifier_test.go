package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

type fakeSender struct {
	texts []string
	err   error
}

func (s *fakeSender) Send(_ context.Context, _ int64, text string) error {
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, text)
	return nil
}

type fakeDeduper struct{ seen map[string]bool }

func (d *fakeDeduper) FirstSeen(_ context.Context, n types.Notification) bool {
	key := n.Key.String() + n.NewStatus
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

func note() types.Notification {
	return types.Notification{
		ChatID:    1,
		Key:       types.ApplicationKey{Number: "4242", Suffix: "0", Type: "TP", Year: "2023"},
		OldStatus: "Pending",
		NewStatus: "Approved",
		UpdatedAt: time.Date(2024, time.June, 1, 10, 30, 0, 0, time.UTC),
		Lang:      "EN",
	}
}

func TestHandleRendersLocalTimestamp(t *testing.T) {
	prague, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	sender := &fakeSender{}
	n := New(sender, nil, prague, zap.NewNop())

	if err := n.Handle(context.Background(), note()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.texts) != 1 {
		t.Fatalf("got %d sends, want 1", len(sender.texts))
	}
	text := sender.texts[0]
	// 10:30 UTC in June is 12:30 in Prague (CEST)
	if !strings.Contains(text, "12:30:00 01-06-2024") {
		t.Errorf("timestamp not rendered in Prague time: %q", text)
	}
	for _, want := range []string{"Pending", "Approved", "OAM-4242/TP-2023"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q: %q", want, text)
		}
	}
}

func TestHandleSuppressesDuplicates(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender, &fakeDeduper{seen: map[string]bool{}}, time.UTC, zap.NewNop())
	ctx := context.Background()

	if err := n.Handle(ctx, note()); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	if err := n.Handle(ctx, note()); err != nil {
		t.Fatalf("second handle: %v", err)
	}
	if len(sender.texts) != 1 {
		t.Fatalf("got %d sends, want 1 after dedup", len(sender.texts))
	}
}

func TestHandleSwallowsSendErrors(t *testing.T) {
	n := New(&fakeSender{err: errors.New("blocked by user")}, nil, time.UTC, zap.NewNop())
	if err := n.Handle(context.Background(), note()); err != nil {
		t.Fatalf("send errors must not fail the handler: %v", err)
	}
}
