package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeNowMinusHours(h int) time.Time {
	return time.Now().Add(-time.Duration(h) * time.Hour)
}

func newBotHarness() (*Bot, *Sessions, *memProfiles, *memLedger, *fakeSender) {
	sessions := NewSessions()
	profiles := newMemProfiles()
	ledger := &memLedger{}
	sender := &fakeSender{}
	metrics := newTestMetrics()
	log := newTestLogger()
	onboarding := NewOnboarding(sessions, profiles, sender, log, metrics)
	matcher := NewMatcher(profiles, ledger, sender, log, metrics)
	bot := NewBot(onboarding, matcher, profiles, sender, log, metrics)
	return bot, sessions, profiles, ledger, sender
}

func textUpdate(user int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: user},
		From:      &tgbotapi.User{ID: user, UserName: "alex"},
		Text:      text,
	}}
}

func commandUpdate(user int64, command string) tgbotapi.Update {
	text := "/" + command
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: user},
		From:      &tgbotapi.User{ID: user, UserName: "alex"},
		Text:      text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(text)},
		},
	}}
}

func photoUpdate(user int64, username string, sizes ...tgbotapi.PhotoSize) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 2,
		Chat:      &tgbotapi.Chat{ID: user},
		From:      &tgbotapi.User{ID: user, UserName: username},
		Photo:     sizes,
	}}
}

func callbackUpdate(user int64, data string, messageID int) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      fmt.Sprintf("cb-%d", user),
		From:    &tgbotapi.User{ID: user, UserName: "alex"},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: user}},
		Data:    data,
	}}
}

// /start, a name, an institute pick, a description and a photo end with a
// committed profile and an idle session.
func TestBotFullOnboardingScenario(t *testing.T) {
	bot, sessions, profiles, _, _ := newBotHarness()
	ctx := context.Background()
	const user = int64(42)

	bot.HandleUpdate(ctx, commandUpdate(user, "start"))
	bot.HandleUpdate(ctx, textUpdate(user, "Alex"))
	bot.HandleUpdate(ctx, callbackUpdate(user, "inst:ИЕН", 10))
	bot.HandleUpdate(ctx, textUpdate(user, "hi"))
	bot.HandleUpdate(ctx, photoUpdate(user, "alex",
		tgbotapi.PhotoSize{FileID: "small", FileSize: 100},
		tgbotapi.PhotoSize{FileID: "big", FileSize: 5000},
	))

	p, err := profiles.Get(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Alex", p.Name)
	assert.Equal(t, "ИЕН", p.Institute)
	assert.Equal(t, "hi", p.Description)
	assert.Equal(t, "big", p.PhotoFileID)
	assert.Equal(t, StageIdle, sessions.Stage(user))
}

func TestBotIgnoresUnknownUpdateKinds(t *testing.T) {
	bot, _, _, _, sender := newBotHarness()

	bot.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 7, Poll: &tgbotapi.Poll{ID: "p1"}})

	assert.Empty(t, sender.texts)
	assert.Empty(t, sender.photos)
}

func TestBotIgnoresUnknownCommand(t *testing.T) {
	bot, _, _, _, sender := newBotHarness()

	bot.HandleUpdate(context.Background(), commandUpdate(1, "frobnicate"))

	assert.Empty(t, sender.textsTo(1))
}

func TestBotIgnoresNonTextNonPhotoMessage(t *testing.T) {
	bot, _, _, _, sender := newBotHarness()

	// a sticker arrives as a message with neither text nor photo
	bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 3,
		Chat:      &tgbotapi.Chat{ID: 1},
		From:      &tgbotapi.User{ID: 1},
	}})

	assert.Empty(t, sender.texts)
}

func TestBotAnswersAndDropsMalformedCallback(t *testing.T) {
	bot, _, profiles, ledger, sender := newBotHarness()
	ctx := context.Background()
	seedProfile(profiles, 2, "Маша", "masha")

	bot.HandleUpdate(ctx, callbackUpdate(1, "p:like:notanumber", 10))

	assert.Len(t, sender.answered, 1, "the button press is still acknowledged")
	assert.Zero(t, ledger.likeCount(1, 2))
	assert.Empty(t, sender.textsTo(2))
}

func TestBotLikeCallbackReachesMatcher(t *testing.T) {
	bot, _, profiles, ledger, sender := newBotHarness()
	ctx := context.Background()
	seedProfile(profiles, 1, "Alex", "alex")
	seedProfile(profiles, 2, "Маша", "masha")

	bot.HandleUpdate(ctx, callbackUpdate(1, "p:like:2", 10))

	assert.Equal(t, 1, ledger.likeCount(1, 2))
	require.NotEmpty(t, sender.textsTo(2))
	assert.Contains(t, sender.textsTo(2)[0].Text, msgHeaderLiked)
}

func TestBotSkipCallbackRemovesButtons(t *testing.T) {
	bot, _, _, ledger, sender := newBotHarness()

	bot.HandleUpdate(context.Background(), callbackUpdate(2, "p:skip:1", 15))

	assert.Contains(t, sender.removed, 15)
	assert.Zero(t, ledger.likeCount(2, 1), "skip never writes to the ledger")
}

func TestBotNextCallbackShowsCandidate(t *testing.T) {
	bot, _, profiles, _, sender := newBotHarness()
	ctx := context.Background()
	seedProfile(profiles, 1, "Alex", "alex")
	seedProfile(profiles, 2, "Маша", "masha")

	bot.HandleUpdate(ctx, callbackUpdate(1, cbNext, 10))

	last, ok := sender.lastTextTo(1)
	require.True(t, ok)
	assert.Contains(t, last.Text, msgHeaderRandom)
}

func TestBotMeCommand(t *testing.T) {
	bot, _, profiles, _, sender := newBotHarness()
	ctx := context.Background()

	bot.HandleUpdate(ctx, commandUpdate(1, "me"))
	last, ok := sender.lastTextTo(1)
	require.True(t, ok)
	assert.Equal(t, msgNoOwnProfile, last.Text)

	sender.reset()
	seedProfile(profiles, 1, "Alex", "alex")
	bot.HandleUpdate(ctx, commandUpdate(1, "me"))
	last, ok = sender.lastTextTo(1)
	require.True(t, ok)
	assert.Contains(t, last.Text, msgHeaderMe)
	assert.Contains(t, last.Text, "Alex")
}

func TestBotLikesCommand(t *testing.T) {
	bot, _, _, ledger, sender := newBotHarness()
	ctx := context.Background()

	ledger.addLikeAt(2, 1, timeNowMinusHours(1))
	ledger.addLikeAt(3, 1, timeNowMinusHours(50))

	bot.HandleUpdate(ctx, commandUpdate(1, "likes"))

	last, ok := sender.lastTextTo(1)
	require.True(t, ok)
	assert.Equal(t, "Твою анкету лайкнули 2 раз(а).", last.Text)
}

func TestBotReportCallbackExcludes(t *testing.T) {
	bot, _, profiles, _, sender := newBotHarness()
	ctx := context.Background()
	seedProfile(profiles, 1, "Alex", "alex")
	seedProfile(profiles, 2, "Маша", "masha")

	bot.HandleUpdate(ctx, callbackUpdate(1, "p:report:2", 10))

	texts := sender.textsTo(1)
	require.Len(t, texts, 2)
	assert.Equal(t, msgReportAccepted, texts[0].Text)
	assert.Equal(t, msgNoProfiles, texts[1].Text)
}
