package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// likeWindow is the trailing window of the per-directed-pair like limit.
const likeWindow = 24 * time.Hour

const (
	msgNoProfiles     = "Пока нет других анкет."
	msgAlreadyLiked   = "Ты уже оценивал эту анкету сегодня."
	msgReportAccepted = "Жалоба отправлена."
	msgHeaderRandom   = "Случайная анкета:"
	msgHeaderMe       = "Твоя анкета:"
	msgHeaderLiked    = "Твоя анкета кому-то понравилась!"
	msgNoOwnProfile   = "Я пока не нашёл твою анкету. Попробуй заполнить её с команды /start."
)

// profileStore is what the engines need from the durable profile table.
type profileStore interface {
	Upsert(ctx context.Context, p Profile) error
	Get(ctx context.Context, userID int64) (*Profile, error)
	Random(ctx context.Context, viewer int64, exclude map[int64]struct{}) (*Profile, error)
}

// interactionLedger is what the matcher needs from the like/report history.
type interactionLedger interface {
	AddLike(ctx context.Context, liker, liked int64) error
	LikedWithin(ctx context.Context, liker, liked int64, window time.Duration) (bool, error)
	HasLike(ctx context.Context, liker, liked int64) (bool, error)
	LikesReceived(ctx context.Context, user int64) (int, error)
	AddReport(ctx context.Context, reporter, reported int64) error
	ReportedWith(ctx context.Context, user int64) (map[int64]struct{}, error)
}

// Matcher serves the discover-and-like loop: random candidates under the
// report exclusion, the daily like limit, mutual-match detection and one-way
// like notifications.
type Matcher struct {
	profiles profileStore
	ledger   interactionLedger
	send     Sender
	log      *zap.Logger
	metrics  *Metrics
}

func NewMatcher(profiles profileStore, ledger interactionLedger, send Sender, log *zap.Logger, metrics *Metrics) *Matcher {
	return &Matcher{profiles: profiles, ledger: ledger, send: send, log: log, metrics: metrics}
}

// ShowNext presents one random eligible candidate to the viewer, or a
// "no profiles yet" notice when the exclusion-filtered set is empty. Matches
// do not shrink the set; only reports do, in both directions.
func (m *Matcher) ShowNext(ctx context.Context, viewer int64) error {
	excluded, err := m.ledger.ReportedWith(ctx, viewer)
	if err != nil {
		return err
	}
	p, err := m.profiles.Random(ctx, viewer, excluded)
	if err != nil {
		return err
	}
	if p == nil {
		return m.send.SendText(viewer, msgNoProfiles, nil)
	}
	return sendProfile(m.send, viewer, p, msgHeaderRandom, candidateKeyboard(p.UserID))
}

// Like processes a like pressed while browsing. A repeat like inside the
// window is rejected without a ledger write; otherwise the like is recorded
// and either a mutual match is declared or the liked party gets a one-way
// notification with like-back and skip actions. The liker is advanced to the
// next candidate in both recorded cases.
func (m *Matcher) Like(ctx context.Context, liker, liked int64) error {
	throttled, err := m.ledger.LikedWithin(ctx, liker, liked, likeWindow)
	if err != nil {
		return err
	}
	if throttled {
		m.metrics.LikesThrottled.Inc()
		return m.send.SendText(liker, msgAlreadyLiked, nil)
	}

	if err := m.ledger.AddLike(ctx, liker, liked); err != nil {
		return err
	}
	m.metrics.LikesRecorded.Inc()

	// Any historical like in the opposite direction counts, not just a
	// recent one.
	mutual, err := m.ledger.HasLike(ctx, liked, liker)
	if err != nil {
		return err
	}
	if mutual {
		if err := m.notifyMatch(ctx, liker, liked); err != nil {
			return err
		}
	} else if err := m.notifyLiked(ctx, liker, liked); err != nil {
		return err
	}

	return m.ShowNext(ctx, liker)
}

// LikeBack processes the "like back" action from a one-way notification. The
// reciprocal like already exists by construction, so a recorded like-back is
// always a match. The same daily limit applies.
func (m *Matcher) LikeBack(ctx context.Context, liker, liked int64) error {
	throttled, err := m.ledger.LikedWithin(ctx, liker, liked, likeWindow)
	if err != nil {
		return err
	}
	if throttled {
		m.metrics.LikesThrottled.Inc()
		return m.send.SendText(liker, msgAlreadyLiked, nil)
	}
	if err := m.ledger.AddLike(ctx, liker, liked); err != nil {
		return err
	}
	m.metrics.LikesRecorded.Inc()
	return m.notifyMatch(ctx, liker, liked)
}

// Report records the complaint and moves the reporter along. The report row
// is one-directional; ReportedWith applies it symmetrically from now on.
func (m *Matcher) Report(ctx context.Context, reporter, reported int64) error {
	if err := m.ledger.AddReport(ctx, reporter, reported); err != nil {
		return err
	}
	m.metrics.ReportsRecorded.Inc()
	if err := m.send.SendText(reporter, msgReportAccepted, nil); err != nil {
		return err
	}
	return m.ShowNext(ctx, reporter)
}

// LikesReceived is display only: how many times the user's profile was liked.
func (m *Matcher) LikesReceived(ctx context.Context, user int64) (int, error) {
	return m.ledger.LikesReceived(ctx, user)
}

func (m *Matcher) notifyMatch(ctx context.Context, a, b int64) error {
	profileA, err := m.profiles.Get(ctx, a)
	if err != nil {
		return err
	}
	profileB, err := m.profiles.Get(ctx, b)
	if err != nil {
		return err
	}
	m.metrics.MatchesDetected.Inc()
	m.log.Info("match detected", zap.Int64("user_a", a), zap.Int64("user_b", b))

	if err := m.send.SendText(a, "Это мэтч! "+contactLine(profileB), nil); err != nil {
		return err
	}
	return m.send.SendText(b, "Это мэтч! "+contactLine(profileA), nil)
}

// notifyLiked shows the liker's profile to the liked party with the two
// response actions.
func (m *Matcher) notifyLiked(ctx context.Context, liker, liked int64) error {
	kb := [][]Button{{
		{Label: "❤️ Лайкнуть в ответ", Data: fmt.Sprintf("%s%d", cbLikeBackPrefix, liker)},
		{Label: "👎 Пропустить", Data: fmt.Sprintf("%s%d", cbSkipPrefix, liker)},
	}}
	p, err := m.profiles.Get(ctx, liker)
	if err != nil {
		return err
	}
	if p == nil {
		return m.send.SendText(liked, msgHeaderLiked, kb)
	}
	return sendProfile(m.send, liked, p, msgHeaderLiked, kb)
}

// sendProfile delivers a profile card: as a photo with caption when a photo
// reference is on file, as plain text otherwise.
func sendProfile(s Sender, to int64, p *Profile, header string, buttons [][]Button) error {
	caption := profileCaption(p, header)
	if p.PhotoFileID != "" {
		return s.SendPhoto(to, p.PhotoFileID, caption, buttons)
	}
	return s.SendText(to, caption, buttons)
}

func candidateKeyboard(userID int64) [][]Button {
	return [][]Button{{
		{Label: "👍", Data: fmt.Sprintf("%s%d", cbLikePrefix, userID)},
		{Label: "🚩", Data: fmt.Sprintf("%s%d", cbReportPrefix, userID)},
		{Label: "➡️", Data: cbNext},
	}}
}
