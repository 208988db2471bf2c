// Package bot is the Telegram transport for the order engine: it routes
// commands, forwards free text into the collection window, and renders
// replies. All order semantics live in the orders package; this layer
// only parses, splits, and speaks.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/MayStepanyan/lunchbreakbot/internal/observability"
	"github.com/MayStepanyan/lunchbreakbot/internal/orders"
)

// Reply texts. The wording matches what regulars of the bot expect.
const (
	replyStarted  = "It's time to place your lunch orders! Send your order(s). Type /done when finished."
	replyCanceled = "Order collection canceled. Type /start to start over"
	replyCleared  = "Your order has been cleared."
	replyError    = "Something went wrong, please try again."
)

// Sender is the slice of the Telegram client the bot needs; *tgbotapi.BotAPI
// satisfies it, tests substitute a recorder.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Options tunes transport behavior.
type Options struct {
	// RepliesPerSecond bounds outgoing messages; zero disables the
	// limiter.
	RepliesPerSecond float64
	// ReplyBurst is the short-term burst allowance.
	ReplyBurst int
}

// Bot handles Telegram updates for any number of conversations. It is
// stateless; every conversation's state lives in the order engine's
// store, so several bot instances can serve the same conversations.
type Bot struct {
	sender  Sender
	orders  *orders.Service
	logger  observability.Logger
	metrics *observability.Metrics
	limiter *rate.Limiter
}

func New(sender Sender, svc *orders.Service, logger observability.Logger, metrics *observability.Metrics, opts Options) *Bot {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	var limiter *rate.Limiter
	if opts.RepliesPerSecond > 0 {
		burst := opts.ReplyBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RepliesPerSecond), burst)
	}
	return &Bot{
		sender:  sender,
		orders:  svc,
		logger:  logger.WithComponent("bot"),
		metrics: metrics,
		limiter: limiter,
	}
}

// Run consumes updates until the channel closes or ctx is canceled.
// Each update is handled with a fresh correlation ID for log tracing.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			updCtx := observability.WithRequestID(ctx, uuid.New().String())
			b.HandleUpdate(updCtx, upd)
		}
	}
}

// HandleUpdate routes a single Telegram update.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return
	}
	conversationID := strconv.FormatInt(msg.Chat.ID, 10)

	if msg.IsCommand() {
		b.handleCommand(ctx, conversationID, msg)
		return
	}
	b.collectOrder(ctx, conversationID, msg)
}

func (b *Bot) handleCommand(ctx context.Context, conversationID string, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		if err := b.orders.StartCollection(ctx, conversationID); err != nil {
			b.failReply(ctx, msg, "start collection", err)
			return
		}
		b.reply(ctx, msg, replyStarted)

	case "orders":
		summary, err := b.renderSummary(ctx, conversationID)
		if err != nil {
			b.failReply(ctx, msg, "summarize orders", err)
			return
		}
		b.reply(ctx, msg, "Today's Orders:\n"+summary)

	case "done":
		// Aggregate, then close the window and reclaim the data. A
		// partial clear is reported so someone can rerun /done.
		summary, err := b.renderSummary(ctx, conversationID)
		if err != nil {
			b.failReply(ctx, msg, "summarize orders", err)
			return
		}
		if err := b.orders.CancelCollection(ctx, conversationID); err != nil {
			b.failReply(ctx, msg, "close collection", err)
			return
		}
		if err := b.orders.ClearOrders(ctx, conversationID); err != nil {
			b.failReply(ctx, msg, "clear orders", err)
			return
		}
		b.reply(ctx, msg, "Today's Orders:\n"+summary)

	case "cancel":
		// Gate off, data retained; /done or /clear reclaims it.
		if err := b.orders.CancelCollection(ctx, conversationID); err != nil {
			b.failReply(ctx, msg, "cancel collection", err)
			return
		}
		b.reply(ctx, msg, replyCanceled)

	case "clear":
		username, ok := senderName(msg)
		if !ok {
			return
		}
		if err := b.orders.ClearUserOrders(ctx, conversationID, username); err != nil {
			b.failReply(ctx, msg, "clear user orders", err)
			return
		}
		b.reply(ctx, msg, replyCleared)

	default:
		// Unknown commands are not ours to answer.
	}
}

// collectOrder forwards non-command text into the order engine. One
// message may carry several newline-separated items; each line becomes
// one order. Outside a collection window the message is ignored.
func (b *Bot) collectOrder(ctx context.Context, conversationID string, msg *tgbotapi.Message) {
	collecting, err := b.orders.IsCollecting(ctx, conversationID)
	if err != nil {
		b.failReply(ctx, msg, "check collection window", err)
		return
	}
	if !collecting {
		b.metrics.RecordOrderDropped()
		return
	}

	username, ok := senderName(msg)
	if !ok {
		return
	}
	items := splitItems(msg.Text)
	if len(items) == 0 {
		return
	}
	for _, item := range items {
		if err := b.orders.AddOrder(ctx, conversationID, username, item); err != nil {
			b.failReply(ctx, msg, "add order", err)
			return
		}
		b.metrics.RecordOrderAdded()
	}

	current, err := b.orders.UserOrders(ctx, conversationID, username)
	if err != nil {
		b.failReply(ctx, msg, "read user orders", err)
		return
	}
	b.reply(ctx, msg, fmt.Sprintf("Added %s to %s order.\n\nCurrent order for %s:\n%s",
		strings.Join(items, ", "), username, username, strings.Join(current, ", ")))
}

func (b *Bot) renderSummary(ctx context.Context, conversationID string) (string, error) {
	byUser, err := b.orders.OrdersByUser(ctx, conversationID)
	if err != nil {
		return "", err
	}
	b.metrics.RecordSummaryRendered()
	return orders.SummarizeByUser(byUser), nil
}

// splitItems turns one submission into individual order items, one per
// non-empty line.
func splitItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, line)
		}
	}
	return items
}

// senderName resolves the participant identity: the Telegram username
// when present, otherwise the numeric user ID. Reports false for
// messages without a sender (e.g. channel posts), which carry no
// identity to file an order under.
func senderName(msg *tgbotapi.Message) (string, bool) {
	if msg.From == nil {
		return "", false
	}
	if msg.From.UserName != "" {
		return msg.From.UserName, true
	}
	return strconv.FormatInt(msg.From.ID, 10), true
}

func (b *Bot) reply(ctx context.Context, msg *tgbotapi.Message, text string) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return
		}
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if _, err := b.sender.Send(out); err != nil {
		b.logger.ErrorContext(ctx, "send reply failed", "chat_id", msg.Chat.ID, "error", err)
		return
	}
	b.metrics.RecordReplySent()
}

func (b *Bot) failReply(ctx context.Context, msg *tgbotapi.Message, op string, err error) {
	b.metrics.RecordStoreError()
	b.logger.ErrorContext(ctx, op+" failed", "chat_id", msg.Chat.ID, "error", err)
	b.reply(ctx, msg, replyError)
}
