package main

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Button is one inline action offered under a message.
type Button struct {
	Label string
	Data  string
}

// Sender is the outbound presentation sink the engines talk to. Delivery is
// best effort; no acknowledgment beyond the returned error is expected.
type Sender interface {
	SendText(user int64, text string, buttons [][]Button) error
	SendPhoto(user int64, fileID, caption string, buttons [][]Button) error
	RemoveButtons(user int64, messageID int) error
}

// PhotoVariant is one resolution of an uploaded photo as offered by the
// transport. Size is in bytes, zero when the metadata is missing.
type PhotoVariant struct {
	FileID string
	Size   int
}

// pickPhotoVariant returns the variant with the largest byte size. When no
// variant carries size metadata, the last-offered one wins.
func pickPhotoVariant(variants []PhotoVariant) string {
	best := -1
	for i, v := range variants {
		if v.Size > 0 && (best < 0 || v.Size > variants[best].Size) {
			best = i
		}
	}
	if best < 0 {
		return variants[len(variants)-1].FileID
	}
	return variants[best].FileID
}

// Telegram adapts the Bot API client to the Sender contract and feeds inbound
// updates via long polling.
type Telegram struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

func NewTelegram(token string, debug bool, log *zap.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	log.Info("authorized on telegram", zap.String("bot", api.Self.UserName))
	return &Telegram{api: api, log: log}, nil
}

// Updates starts long polling and returns the inbound update channel.
func (t *Telegram) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	return t.api.GetUpdatesChan(u)
}

// Close stops the long-polling loop; the Updates channel is closed after the
// in-flight request finishes.
func (t *Telegram) Close() {
	t.api.StopReceivingUpdates()
}

func (t *Telegram) SendText(user int64, text string, buttons [][]Button) error {
	msg := tgbotapi.NewMessage(user, text)
	if kb := inlineMarkup(buttons); kb != nil {
		msg.ReplyMarkup = *kb
	}
	_, err := t.api.Send(msg)
	return err
}

func (t *Telegram) SendPhoto(user int64, fileID, caption string, buttons [][]Button) error {
	photo := tgbotapi.NewPhoto(user, tgbotapi.FileID(fileID))
	photo.Caption = caption
	if kb := inlineMarkup(buttons); kb != nil {
		photo.ReplyMarkup = *kb
	}
	_, err := t.api.Send(photo)
	return err
}

func (t *Telegram) RemoveButtons(user int64, messageID int) error {
	edit := tgbotapi.NewEditMessageReplyMarkup(user, messageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	_, err := t.api.Request(edit)
	return err
}

// AnswerCallback acknowledges a button press, optionally with a short toast.
func (t *Telegram) AnswerCallback(callbackID, text string) error {
	_, err := t.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func inlineMarkup(buttons [][]Button) *tgbotapi.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		tgRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			tgRow = append(tgRow, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, tgRow)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}
