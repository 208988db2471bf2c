package bot

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MayStepanyan/lunchbreakbot/internal/kv"
	"github.com/MayStepanyan/lunchbreakbot/internal/observability"
	"github.com/MayStepanyan/lunchbreakbot/internal/orders"
)

// recordingSender captures outgoing messages instead of hitting Telegram.
type recordingSender struct {
	sent []tgbotapi.MessageConfig
}

func (r *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		r.sent = append(r.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (r *recordingSender) lastText(t *testing.T) string {
	t.Helper()
	if len(r.sent) == 0 {
		t.Fatal("no reply was sent")
	}
	return r.sent[len(r.sent)-1].Text
}

func newTestBot(t *testing.T) (*Bot, *recordingSender, *orders.Service) {
	t.Helper()
	sender := &recordingSender{}
	svc := orders.NewService(kv.NewMemoryStore())
	logger := observability.NewLogger(observability.Config{Level: "error", Format: "text", Output: discard{}})
	b := New(sender, svc, logger, nil, Options{})
	return b, sender, svc
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func command(chatID int64, user, text string) tgbotapi.Update {
	cmdLen := len(text)
	if i := strings.IndexAny(text, " \n"); i > 0 {
		cmdLen = i
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{ID: 100, UserName: user},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func text(chatID int64, user, body string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 2,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{ID: 100, UserName: user},
		Text:      body,
	}}
}

func TestStartOpensWindowAndReplies(t *testing.T) {
	ctx := context.Background()
	b, sender, svc := newTestBot(t)

	b.HandleUpdate(ctx, command(42, "alice", "/start"))

	if got := sender.lastText(t); got != replyStarted {
		t.Fatalf("unexpected start reply: %q", got)
	}
	collecting, err := svc.IsCollecting(ctx, "42")
	if err != nil || !collecting {
		t.Fatalf("window should be open: %v err=%v", collecting, err)
	}
}

func TestFreeTextCollectedWhileOpen(t *testing.T) {
	ctx := context.Background()
	b, sender, svc := newTestBot(t)

	b.HandleUpdate(ctx, command(42, "alice", "/start"))
	b.HandleUpdate(ctx, text(42, "alice", "rice"))

	got := sender.lastText(t)
	if !strings.Contains(got, "Added rice to alice order.") {
		t.Fatalf("unexpected echo: %q", got)
	}
	if !strings.Contains(got, "Current order for alice:\nrice") {
		t.Fatalf("echo should show current list: %q", got)
	}

	items, err := svc.UserOrders(ctx, "42", "alice")
	if err != nil || len(items) != 1 || items[0] != "rice" {
		t.Fatalf("order not stored: %v err=%v", items, err)
	}
}

func TestFreeTextIgnoredWhileClosed(t *testing.T) {
	ctx := context.Background()
	b, sender, svc := newTestBot(t)

	b.HandleUpdate(ctx, text(42, "alice", "rice"))

	if len(sender.sent) != 0 {
		t.Fatalf("closed window must stay silent, sent %v", sender.sent)
	}
	items, err := svc.UserOrders(ctx, "42", "alice")
	if err != nil || len(items) != 0 {
		t.Fatalf("nothing should be stored: %v err=%v", items, err)
	}
}

func TestMultiLineSubmissionSplits(t *testing.T) {
	ctx := context.Background()
	b, _, svc := newTestBot(t)

	b.HandleUpdate(ctx, command(42, "alice", "/start"))
	b.HandleUpdate(ctx, text(42, "alice", "rice\n\n  soup  \ntea"))

	items, err := svc.UserOrders(ctx, "42", "alice")
	if err != nil {
		t.Fatalf("user orders: %v", err)
	}
	want := []string{"rice", "soup", "tea"}
	if len(items) != len(want) {
		t.Fatalf("expected %v, got %v", want, items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("position %d: expected %q, got %q", i, want[i], items[i])
		}
	}
}

func TestOrdersCommandSummarizesWithoutClearing(t *testing.T) {
	ctx := context.Background()
	b, sender, svc := newTestBot(t)

	b.HandleUpdate(ctx, command(42, "alice", "/start"))
	b.HandleUpdate(ctx, text(42, "alice", "rice"))
	b.HandleUpdate(ctx, text(42, "bob", "rice"))
	b.HandleUpdate(ctx, command(42, "alice", "/orders"))

	got := sender.lastText(t)
	if !strings.HasPrefix(got, "Today's Orders:\n") {
		t.Fatalf("missing header: %q", got)
	}
	if !strings.Contains(got, "Total 2 items:") || !strings.Contains(got, "rice: 2") {
		t.Fatalf("missing counts: %q", got)
	}

	all, err := svc.AllOrders(ctx, "42")
	if err != nil || len(all) != 2 {
		t.Fatalf("/orders must not clear: %v err=%v", all, err)
	}
}

func TestDoneSummarizesClearsAndCloses(t *testing.T) {
	ctx := context.Background()
	b, sender, svc := newTestBot(t)

	b.HandleUpdate(ctx, command(42, "alice", "/start"))
	b.HandleUpdate(ctx, text(42, "alice", "rice\nsoup"))
	b.HandleUpdate(ctx, text(42, "bob", "rice"))
	b.HandleUpdate(ctx, command(42, "alice", "/done"))

	got := sender.lastText(t)
	if !strings.Contains(got, "Total 3 items:") || !strings.Contains(got, "rice: 2") || !strings.Contains(got, "soup: 1") {
		t.Fatalf("unexpected summary: %q", got)
	}
	if !strings.Contains(got, "alice: rice, soup") || !strings.Contains(got, "bob: rice") {
		t.Fatalf("missing per-user lines: %q", got)
	}

	collecting, err := svc.IsCollecting(ctx, "42")
	if err != nil || collecting {
		t.Fatalf("window should be closed after /done: %v err=%v", collecting, err)
	}
	all, err := svc.AllOrders(ctx, "42")
	if err != nil || len(all) != 0 {
		t.Fatalf("orders should be cleared after /done: %v err=%v", all, err)
	}
}

func TestCancelClosesButRetainsOrders(t *testing.T) {
	ctx := context.Background()
	b, sender, svc := newTestBot(t)

	b.HandleUpdate(ctx, command(42, "alice", "/start"))
	b.HandleUpdate(ctx, text(42, "alice", "rice"))
	b.HandleUpdate(ctx, command(42, "alice", "/cancel"))

	if got := sender.lastText(t); got != replyCanceled {
		t.Fatalf("unexpected cancel reply: %q", got)
	}
	// Late message must be dropped.
	b.HandleUpdate(ctx, text(42, "alice", "late-item"))

	all, err := svc.AllOrders(ctx, "42")
	if err != nil || len(all) != 1 || all[0] != "rice" {
		t.Fatalf("cancel must retain collected orders and drop late ones: %v err=%v", all, err)
	}
}

func TestClearCommandDropsOnlyCaller(t *testing.T) {
	ctx := context.Background()
	b, _, svc := newTestBot(t)

	b.HandleUpdate(ctx, command(42, "alice", "/start"))
	b.HandleUpdate(ctx, text(42, "alice", "rice"))
	b.HandleUpdate(ctx, text(42, "bob", "soup"))
	b.HandleUpdate(ctx, command(42, "alice", "/clear"))

	all, err := svc.AllOrders(ctx, "42")
	if err != nil || len(all) != 1 || all[0] != "soup" {
		t.Fatalf("expected only bob's order to survive: %v err=%v", all, err)
	}
}

func TestUsernameFallsBackToUserID(t *testing.T) {
	ctx := context.Background()
	b, _, svc := newTestBot(t)

	b.HandleUpdate(ctx, command(42, "alice", "/start"))
	b.HandleUpdate(ctx, text(42, "", "rice"))

	items, err := svc.UserOrders(ctx, "42", "100")
	if err != nil || len(items) != 1 {
		t.Fatalf("expected order under numeric user id: %v err=%v", items, err)
	}
}

func TestSenderlessMessageDropped(t *testing.T) {
	ctx := context.Background()
	b, sender, svc := newTestBot(t)

	b.HandleUpdate(ctx, command(42, "alice", "/start"))

	// A channel post carries no sender; there is no identity to file
	// an order under, so the message is ignored.
	b.HandleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 3,
		Chat:      &tgbotapi.Chat{ID: 42},
		Text:      "rice",
	}})

	all, err := svc.AllOrders(ctx, "42")
	if err != nil || len(all) != 0 {
		t.Fatalf("senderless message must not be stored: %v err=%v", all, err)
	}
	if got := sender.lastText(t); got != replyStarted {
		t.Fatalf("no reply expected beyond /start, got %q", got)
	}
}

func TestConversationsAreIsolated(t *testing.T) {
	ctx := context.Background()
	b, _, svc := newTestBot(t)

	b.HandleUpdate(ctx, command(1, "alice", "/start"))
	b.HandleUpdate(ctx, text(1, "alice", "rice"))
	// Chat 2 never started collecting.
	b.HandleUpdate(ctx, text(2, "alice", "soup"))

	one, err := svc.AllOrders(ctx, "1")
	if err != nil || len(one) != 1 {
		t.Fatalf("chat 1 orders: %v err=%v", one, err)
	}
	two, err := svc.AllOrders(ctx, "2")
	if err != nil || len(two) != 0 {
		t.Fatalf("chat 2 must be empty: %v err=%v", two, err)
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	ctx := context.Background()
	b, sender, _ := newTestBot(t)

	b.HandleUpdate(ctx, command(42, "alice", "/weather"))

	if len(sender.sent) != 0 {
		t.Fatalf("unknown command should be ignored, sent %v", sender.sent)
	}
}
