package model

import (
	"time"

	"github.com/google/uuid"
)

// ProfileStatus is the three-level trust state gating whether a profile may be scanned.
type ProfileStatus string

const (
	ProfileStatusPending   ProfileStatus = "pending"
	ProfileStatusProbable  ProfileStatus = "probable"
	ProfileStatusConfirmed ProfileStatus = "confirmed"
)

// Rank orders statuses from least to most confirmed.
func (s ProfileStatus) Rank() int {
	switch s {
	case ProfileStatusConfirmed:
		return 2
	case ProfileStatusProbable:
		return 1
	default:
		return 0
	}
}

// OriginTag records how a candidate was found.
type OriginTag string

const (
	OriginProvided  OriginTag = "provided"
	OriginHeuristic OriginTag = "heuristic"
)

// IdentityProfile is one (person, network, canonical URL) claim.
type IdentityProfile struct {
	ID         string         `json:"id"`
	PersonID   string         `json:"person_id"`
	Network    Network        `json:"network"`
	Handle     string         `json:"handle"`
	URL        string         `json:"url"`
	Confidence float64        `json:"confidence"`
	Status     ProfileStatus  `json:"status"`
	Evidence   map[string]any `json:"evidence,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ProfileID derives the stable id of the (person, network, url) claim.
func ProfileID(personID string, n Network, url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(personID+"|"+string(n)+"|"+url)).String()
}

// Confirmed reports whether the profile may be scanned.
func (p IdentityProfile) Confirmed() bool {
	return p.Status == ProfileStatusConfirmed
}

// ResolutionSummary counts profiles by status.
type ResolutionSummary struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Probable  int `json:"probable"`
	Pending   int `json:"pending"`
}

// Summarize tallies the statuses of a profile set.
func Summarize(profiles []IdentityProfile) ResolutionSummary {
	s := ResolutionSummary{Total: len(profiles)}
	for _, p := range profiles {
		switch p.Status {
		case ProfileStatusConfirmed:
			s.Confirmed++
		case ProfileStatusProbable:
			s.Probable++
		default:
			s.Pending++
		}
	}
	return s
}

// ResolutionResult is returned to callers of the resolve operation.
type ResolutionResult struct {
	Person   Person            `json:"person"`
	Profiles []IdentityProfile `json:"profiles"`
	Summary  ResolutionSummary `json:"summary"`
	RunID    string            `json:"run_id,omitempty"`
}
