package model

import "time"

// Tone labels.
const (
	ToneOptimistic = "optimistic"
	ToneCritical   = "critical"
	ToneNeutral    = "neutral"
	ToneBalanced   = "balanced"
)

// ActivityWindow pairs a weekday with the distinct hours the person posted on it.
type ActivityWindow struct {
	Weekday string `json:"weekday"`
	Hours   []int  `json:"hours"`
}

// PersonaMeta describes how a persona vector was produced.
type PersonaMeta struct {
	TotalPosts     int       `json:"total_posts"`
	MeanConfidence float64   `json:"mean_confidence"`
	ExtractedAt    time.Time `json:"extracted_at"`
}

// PersonaVector is the 8-dimension behavioural summary of one person.
type PersonaVector struct {
	PersonID          string           `json:"person_id,omitempty"`
	Topics            []string         `json:"topics"`
	Objections        []string         `json:"objections"`
	Tone              string           `json:"tone"`
	ActivityWindows   []ActivityWindow `json:"activity_windows"`
	ChannelPreference []Network        `json:"channel_preference"`
	PainPoints        []string         `json:"pain_points"`
	ValueTriggers     []string         `json:"value_triggers"`
	Style             string           `json:"style"`
	Metadata          PersonaMeta      `json:"metadata"`
}

// HasTopic reports whether topic appears among the ranked topics.
func (p PersonaVector) HasTopic(topic string) bool {
	for _, t := range p.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// ScanStatus describes how a single profile scan ended.
type ScanStatus string

const (
	ScanStatusOK      ScanStatus = "ok"
	ScanStatusEmpty   ScanStatus = "empty"
	ScanStatusFailed  ScanStatus = "failed"
	ScanStatusTimeout ScanStatus = "timeout"
)

// ProfileScan reports the outcome of scanning one confirmed profile.
type ProfileScan struct {
	ProfileID string     `json:"profile_id"`
	Network   Network    `json:"network"`
	URL       string     `json:"url"`
	Status    ScanStatus `json:"status"`
	Posts     []Post     `json:"-"`
	PostCount int        `json:"post_count"`
	Error     string     `json:"error,omitempty"`
}

// PersonaStats summarises the work behind a persona vector.
type PersonaStats struct {
	TotalPosts      int `json:"totalPosts"`
	ProfilesScanned int `json:"profilesScanned"`
	Classifications int `json:"classifications"`
}

// PersonaResult is returned to callers of the persona operation.
type PersonaResult struct {
	Persona PersonaVector `json:"persona"`
	Stats   PersonaStats  `json:"stats"`
	Scans   []ProfileScan `json:"scans,omitempty"`
	RunID   string        `json:"run_id,omitempty"`
}

// ScanResult is returned to callers of the standalone scan operation.
type ScanResult struct {
	PersonID string        `json:"person_id"`
	Scans    []ProfileScan `json:"scans"`
	Stored   int           `json:"stored"`
	RunID    string        `json:"run_id,omitempty"`
}
