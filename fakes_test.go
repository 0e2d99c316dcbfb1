package main

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// In-memory doubles for the two durable stores plus a recording sender.
// Engine logic is tested against these; the Postgres-backed implementations
// have their own integration tests in store_test.go.

type memProfiles struct {
	mu        sync.Mutex
	profiles  map[int64]Profile
	upsertErr error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: make(map[int64]Profile)}
}

func (m *memProfiles) Upsert(_ context.Context, p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.profiles[p.UserID] = p
	return nil
}

func (m *memProfiles) Get(_ context.Context, userID int64) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *memProfiles) Random(_ context.Context, viewer int64, exclude map[int64]struct{}) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var eligible []int64
	for id := range m.profiles {
		if id == viewer {
			continue
		}
		if _, gone := exclude[id]; gone {
			continue
		}
		eligible = append(eligible, id)
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	p := m.profiles[eligible[rand.Intn(len(eligible))]]
	return &p, nil
}

type memLedger struct {
	mu      sync.Mutex
	likes   []Like
	reports []Report
}

func (m *memLedger) AddLike(_ context.Context, liker, liked int64) error {
	m.addLikeAt(liker, liked, time.Now())
	return nil
}

func (m *memLedger) addLikeAt(liker, liked int64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.likes = append(m.likes, Like{LikerID: liker, LikedID: liked, LikedAt: at})
}

func (m *memLedger) LikedWithin(_ context.Context, liker, liked int64, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-window)
	for _, l := range m.likes {
		if l.LikerID == liker && l.LikedID == liked && l.LikedAt.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedger) HasLike(_ context.Context, liker, liked int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.likes {
		if l.LikerID == liker && l.LikedID == liked {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedger) LikesReceived(_ context.Context, user int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, l := range m.likes {
		if l.LikedID == user {
			count++
		}
	}
	return count, nil
}

func (m *memLedger) AddReport(_ context.Context, reporter, reported int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, Report{ReporterID: reporter, ReportedID: reported, ReportedAt: time.Now()})
	return nil
}

func (m *memLedger) ReportedWith(_ context.Context, user int64) (map[int64]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	excluded := make(map[int64]struct{})
	for _, r := range m.reports {
		if r.ReporterID == user {
			excluded[r.ReportedID] = struct{}{}
		}
		if r.ReportedID == user {
			excluded[r.ReporterID] = struct{}{}
		}
	}
	return excluded, nil
}

func (m *memLedger) likeCount(liker, liked int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, l := range m.likes {
		if l.LikerID == liker && l.LikedID == liked {
			count++
		}
	}
	return count
}

type sentText struct {
	To      int64
	Text    string
	Buttons [][]Button
}

type sentPhoto struct {
	To      int64
	FileID  string
	Caption string
	Buttons [][]Button
}

// fakeSender records everything the engines try to deliver. It also satisfies
// the router's transport interface.
type fakeSender struct {
	mu       sync.Mutex
	texts    []sentText
	photos   []sentPhoto
	removed  []int
	answered []string
}

func (f *fakeSender) SendText(user int64, text string, buttons [][]Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, sentText{To: user, Text: text, Buttons: buttons})
	return nil
}

func (f *fakeSender) SendPhoto(user int64, fileID, caption string, buttons [][]Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, sentPhoto{To: user, FileID: fileID, Caption: caption, Buttons: buttons})
	return nil
}

func (f *fakeSender) RemoveButtons(_ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, messageID)
	return nil
}

func (f *fakeSender) AnswerCallback(callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, callbackID+":"+text)
	return nil
}

func (f *fakeSender) textsTo(user int64) []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentText
	for _, t := range f.texts {
		if t.To == user {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeSender) lastTextTo(user int64) (sentText, bool) {
	texts := f.textsTo(user)
	if len(texts) == 0 {
		return sentText{}, false
	}
	return texts[len(texts)-1], true
}

func (f *fakeSender) photosTo(user int64) []sentPhoto {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentPhoto
	for _, p := range f.photos {
		if p.To == user {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = nil
	f.photos = nil
	f.removed = nil
	f.answered = nil
}

func newTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func newTestLogger() *zap.Logger {
	return zap.NewNop()
}
