package domain

import "errors"

// ErrCollaboratorUnavailable wraps failures of external collaborators
// (embedding provider, vector index, relational store, short-term buffer).
// The core never retries; callers decide retry policy. Read paths degrade
// to reduced-but-valid results instead of failing hard.
var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
