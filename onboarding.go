package main

import (
	"context"

	"go.uber.org/zap"
)

const (
	msgGreeting       = "Привет! Я бот знакомств для студентов УдГУ. Как тебя зовут?"
	msgCancelled      = "Анкета отменена. Если захочешь начать снова — напиши /start."
	msgPickInstitute  = "Выбери, пожалуйста, свой институт"
	msgAskDescription = "Напиши, пожалуйста, текст своей анкеты."
	msgAskPhoto       = "Отправь, пожалуйста, своё фото одним сообщением."
	msgSaved          = "Спасибо! Твоя анкета сохранена."
	msgFormBroken     = "Что-то пошло не так с анкетой. Попробуй ещё раз с команды /start."
	msgSaveFailed     = "Не получилось сохранить анкету. Отправь фото ещё раз."
)

// Onboarding drives the profile form: it consumes user inputs, advances the
// per-user session through the stages and commits the finished draft to the
// profile store. Every validation failure collapses to a session reset plus a
// notice; nothing in here is fatal.
type Onboarding struct {
	sessions *Sessions
	profiles profileStore
	send     Sender
	log      *zap.Logger
	metrics  *Metrics
}

func NewOnboarding(sessions *Sessions, profiles profileStore, send Sender, log *zap.Logger, metrics *Metrics) *Onboarding {
	return &Onboarding{sessions: sessions, profiles: profiles, send: send, log: log, metrics: metrics}
}

// Start handles /start: restart semantics, any in-flight draft is replaced.
func (o *Onboarding) Start(ctx context.Context, user int64) error {
	o.sessions.Reset(user)
	o.sessions.Start(user)
	o.metrics.SessionsStarted.Inc()
	return o.send.SendText(user, msgGreeting, nil)
}

// Cancel handles /cancel from any stage.
func (o *Onboarding) Cancel(ctx context.Context, user int64) error {
	o.sessions.Reset(user)
	return o.send.SendText(user, msgCancelled, nil)
}

// HandleText consumes a plain text message according to the current stage.
// Text while the institute keyboard is up is ignored; text outside a session
// is treated as an implicit /start.
func (o *Onboarding) HandleText(ctx context.Context, user int64, text string) error {
	switch o.sessions.Stage(user) {
	case StageAwaitingName:
		o.sessions.SaveDraft(user, DraftPatch{Name: str(text)})
		o.sessions.SetStage(user, StageAwaitingInstitute)
		return o.send.SendText(user, msgPickInstitute, instituteKeyboard())
	case StageAwaitingInstitute:
		// waiting for a button press, free text is ignored here
		return nil
	case StageAwaitingDescription:
		o.sessions.SaveDraft(user, DraftPatch{Description: str(text)})
		o.sessions.SetStage(user, StageAwaitingPhoto)
		return o.send.SendText(user, msgAskPhoto, nil)
	default:
		return o.Start(ctx, user)
	}
}

// HandleInstitute consumes the institute button press. promptMessageID is the
// message that carried the keyboard; its buttons are removed on success.
// Payloads outside the fixed set, or presses in the wrong stage, are ignored.
func (o *Onboarding) HandleInstitute(ctx context.Context, user int64, code string, promptMessageID int) error {
	if o.sessions.Stage(user) != StageAwaitingInstitute || !validInstitute(code) {
		return nil
	}
	o.sessions.SaveDraft(user, DraftPatch{Institute: str(code)})
	o.sessions.SetStage(user, StageAwaitingDescription)

	if promptMessageID != 0 {
		if err := o.send.RemoveButtons(user, promptMessageID); err != nil {
			o.log.Warn("removing institute keyboard", zap.Int64("user_id", user), zap.Error(err))
		}
	}
	return o.send.SendText(user, msgAskDescription, nil)
}

// HandlePhoto finishes the form. The largest photo variant becomes the stored
// reference and the sender's username is captured as the display handle. A
// draft missing name or institute aborts the session; a storage failure keeps
// the session as is so resending the photo retries the commit.
func (o *Onboarding) HandlePhoto(ctx context.Context, user int64, username string, variants []PhotoVariant) error {
	if o.sessions.Stage(user) != StageAwaitingPhoto || len(variants) == 0 {
		return nil
	}

	fileID := pickPhotoVariant(variants)
	o.sessions.SaveDraft(user, DraftPatch{PhotoFileID: str(fileID), Username: str(username)})

	draft, ok := o.sessions.Draft(user)
	if !ok || draft.Name == "" || draft.Institute == "" {
		o.log.Warn("draft missing required fields at commit",
			zap.Int64("user_id", user), zap.Bool("has_draft", ok))
		o.sessions.Reset(user)
		o.metrics.SessionsAborted.Inc()
		return o.send.SendText(user, msgFormBroken, nil)
	}

	err := o.profiles.Upsert(ctx, Profile{
		UserID:      user,
		Name:        draft.Name,
		Institute:   draft.Institute,
		Description: draft.Description,
		PhotoFileID: draft.PhotoFileID,
		Username:    draft.Username,
	})
	if err != nil {
		// session left untouched: the user can resend the photo to retry
		o.log.Error("saving profile", zap.Int64("user_id", user), zap.Error(err))
		return o.send.SendText(user, msgSaveFailed, nil)
	}

	o.sessions.Reset(user)
	o.metrics.ProfilesSaved.Inc()
	o.log.Info("profile saved", zap.Int64("user_id", user), zap.String("institute", draft.Institute))
	return o.send.SendText(user, msgSaved, nil)
}
