package main

import "sync"

// Stage is the current step of the onboarding dialogue for one user.
// Absence of a session entry is equivalent to StageIdle.
type Stage int

const (
	StageIdle Stage = iota
	StageAwaitingName
	StageAwaitingInstitute
	StageAwaitingDescription
	StageAwaitingPhoto
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAwaitingName:
		return "awaiting_name"
	case StageAwaitingInstitute:
		return "awaiting_institute"
	case StageAwaitingDescription:
		return "awaiting_description"
	case StageAwaitingPhoto:
		return "awaiting_photo"
	default:
		return "unknown"
	}
}

// Draft is a profile under construction. It is owned by the onboarding state
// machine for the duration of one session and never consulted by the matcher.
type Draft struct {
	Name        string
	Institute   string
	Description string
	PhotoFileID string
	Username    string
}

// DraftPatch carries the fields to set on a draft; nil fields are left
// unchanged.
type DraftPatch struct {
	Name        *string
	Institute   *string
	Description *string
	PhotoFileID *string
	Username    *string
}

type sessionEntry struct {
	stage Stage
	draft Draft
}

// Sessions is the process-wide draft session store: per-user onboarding stage
// plus the partially filled draft. Entries for different users are
// independent; a single user's events arrive in order, so each entry has one
// writer at a time.
type Sessions struct {
	m sync.Map // user ID -> *sessionEntry
}

func NewSessions() *Sessions {
	return &Sessions{}
}

// Reset drops the user's session entirely. Idempotent; after it the stage is
// StageIdle and no draft exists.
func (s *Sessions) Reset(user int64) {
	s.m.Delete(user)
}

// Start begins a fresh form, replacing any in-flight draft for the user.
func (s *Sessions) Start(user int64) {
	s.m.Store(user, &sessionEntry{stage: StageAwaitingName})
}

// SaveDraft applies the patch to the user's draft, creating an empty entry
// first when none exists. No validation happens here; that is the state
// machine's job.
func (s *Sessions) SaveDraft(user int64, patch DraftPatch) {
	entry := s.entry(user)
	next := *entry
	if patch.Name != nil {
		next.draft.Name = *patch.Name
	}
	if patch.Institute != nil {
		next.draft.Institute = *patch.Institute
	}
	if patch.Description != nil {
		next.draft.Description = *patch.Description
	}
	if patch.PhotoFileID != nil {
		next.draft.PhotoFileID = *patch.PhotoFileID
	}
	if patch.Username != nil {
		next.draft.Username = *patch.Username
	}
	s.m.Store(user, &next)
}

// SetStage moves the user to the given stage, keeping the draft as is.
func (s *Sessions) SetStage(user int64, stage Stage) {
	entry := s.entry(user)
	next := *entry
	next.stage = stage
	s.m.Store(user, &next)
}

// Stage reports the user's current stage; StageIdle when nothing is recorded.
func (s *Sessions) Stage(user int64) Stage {
	if v, ok := s.m.Load(user); ok {
		return v.(*sessionEntry).stage
	}
	return StageIdle
}

// Draft returns a copy of the user's draft and whether one exists.
func (s *Sessions) Draft(user int64) (Draft, bool) {
	if v, ok := s.m.Load(user); ok {
		return v.(*sessionEntry).draft, true
	}
	return Draft{}, false
}

func (s *Sessions) entry(user int64) *sessionEntry {
	if v, ok := s.m.Load(user); ok {
		return v.(*sessionEntry)
	}
	return &sessionEntry{}
}

func str(s string) *string { return &s }
