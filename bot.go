package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Callback payload tags. Institute picks come from the onboarding keyboard,
// the p:* family from profile cards and like notifications.
const (
	cbInstitutePrefix = "inst:"
	cbLikePrefix      = "p:like:"
	cbReportPrefix    = "p:report:"
	cbLikeBackPrefix  = "p:likeback:"
	cbSkipPrefix      = "p:skip:"
	cbNext            = "p:next"
)

const msgSomethingWrong = "Что-то пошло не так. Попробуй ещё раз."

// transport is the full duplex surface the router needs: the Sender used by
// the engines plus callback acknowledgment.
type transport interface {
	Sender
	AnswerCallback(callbackID, text string) error
}

// Bot routes inbound updates to the onboarding state machine or the matcher.
// Update kinds it does not recognize are absorbed as no-ops.
type Bot struct {
	onboarding *Onboarding
	matcher    *Matcher
	profiles   profileStore
	tg         transport
	log        *zap.Logger
	metrics    *Metrics
}

func NewBot(onboarding *Onboarding, matcher *Matcher, profiles profileStore, tg transport, log *zap.Logger, metrics *Metrics) *Bot {
	return &Bot{onboarding: onboarding, matcher: matcher, profiles: profiles, tg: tg, log: log, metrics: metrics}
}

// HandleUpdate dispatches one inbound update. Failures never propagate:
// storage errors end as a try-again notice to the affected user, everything
// else is logged and dropped.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.metrics.UpdatesHandled.WithLabelValues("message").Inc()
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.metrics.UpdatesHandled.WithLabelValues("callback").Inc()
		b.handleCallback(ctx, update.CallbackQuery)
	default:
		b.metrics.UpdatesHandled.WithLabelValues("ignored").Inc()
		b.log.Debug("ignoring unhandled update", zap.Int("update_id", update.UpdateID))
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user := msg.Chat.ID

	if len(msg.Photo) > 0 {
		username := ""
		if msg.From != nil {
			username = msg.From.UserName
		}
		variants := make([]PhotoVariant, 0, len(msg.Photo))
		for _, p := range msg.Photo {
			variants = append(variants, PhotoVariant{FileID: p.FileID, Size: p.FileSize})
		}
		b.reportErr(user, b.onboarding.HandlePhoto(ctx, user, username, variants))
		return
	}

	if msg.Text == "" {
		b.log.Debug("ignoring non-text message", zap.Int64("user_id", user))
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, user, msg.Command())
		return
	}

	b.reportErr(user, b.onboarding.HandleText(ctx, user, msg.Text))
}

func (b *Bot) handleCommand(ctx context.Context, user int64, command string) {
	switch command {
	case "start":
		b.reportErr(user, b.onboarding.Start(ctx, user))
	case "cancel":
		b.reportErr(user, b.onboarding.Cancel(ctx, user))
	case "me":
		b.reportErr(user, b.showMe(ctx, user))
	case "random":
		b.reportErr(user, b.matcher.ShowNext(ctx, user))
	case "likes":
		b.reportErr(user, b.showLikes(ctx, user))
	default:
		b.log.Debug("ignoring unknown command", zap.String("command", command), zap.Int64("user_id", user))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	user := cb.From.ID
	data := cb.Data

	switch {
	case data == cbNext:
		b.answer(cb.ID, "")
		b.reportErr(user, b.matcher.ShowNext(ctx, user))

	case strings.HasPrefix(data, cbInstitutePrefix):
		code := strings.TrimPrefix(data, cbInstitutePrefix)
		b.answer(cb.ID, "Институт: "+code)
		promptID := 0
		if cb.Message != nil {
			promptID = cb.Message.MessageID
		}
		b.reportErr(user, b.onboarding.HandleInstitute(ctx, user, code, promptID))

	case strings.HasPrefix(data, cbLikePrefix):
		target, ok := callbackTarget(data, cbLikePrefix)
		b.answer(cb.ID, "👍")
		if ok {
			b.reportErr(user, b.matcher.Like(ctx, user, target))
		}

	case strings.HasPrefix(data, cbReportPrefix):
		target, ok := callbackTarget(data, cbReportPrefix)
		b.answer(cb.ID, "🚩")
		if ok {
			b.reportErr(user, b.matcher.Report(ctx, user, target))
		}

	case strings.HasPrefix(data, cbLikeBackPrefix):
		target, ok := callbackTarget(data, cbLikeBackPrefix)
		b.answer(cb.ID, "❤️")
		if ok {
			b.reportErr(user, b.matcher.LikeBack(ctx, user, target))
		}

	case strings.HasPrefix(data, cbSkipPrefix):
		// no ledger write: the notification is simply dismissed
		b.answer(cb.ID, "")
		if cb.Message != nil {
			if err := b.tg.RemoveButtons(user, cb.Message.MessageID); err != nil {
				b.log.Warn("removing notification buttons", zap.Int64("user_id", user), zap.Error(err))
			}
		}

	default:
		b.answer(cb.ID, "")
		b.log.Debug("ignoring unknown callback", zap.String("data", data), zap.Int64("user_id", user))
	}
}

func (b *Bot) showMe(ctx context.Context, user int64) error {
	p, err := b.profiles.Get(ctx, user)
	if err != nil {
		return err
	}
	if p == nil {
		return b.tg.SendText(user, msgNoOwnProfile, nil)
	}
	return sendProfile(b.tg, user, p, msgHeaderMe, nil)
}

func (b *Bot) showLikes(ctx context.Context, user int64) error {
	count, err := b.matcher.LikesReceived(ctx, user)
	if err != nil {
		return err
	}
	return b.tg.SendText(user, fmt.Sprintf("Твою анкету лайкнули %d раз(а).", count), nil)
}

func (b *Bot) answer(callbackID, text string) {
	if err := b.tg.AnswerCallback(callbackID, text); err != nil {
		b.log.Warn("answering callback", zap.Error(err))
	}
}

// reportErr turns an engine error into a try-again notice. In-memory state
// was left untouched by the failing operation, so a retry is safe.
func (b *Bot) reportErr(user int64, err error) {
	if err == nil {
		return
	}
	b.log.Error("handling update", zap.Int64("user_id", user), zap.Error(err))
	if serr := b.tg.SendText(user, msgSomethingWrong, nil); serr != nil {
		b.log.Warn("sending failure notice", zap.Int64("user_id", user), zap.Error(serr))
	}
}

// callbackTarget parses the numeric suffix of a p:* payload. Malformed
// payloads are an input-shape error and are dropped after the ack.
func callbackTarget(data, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
