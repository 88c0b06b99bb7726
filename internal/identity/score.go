package identity

import (
	"math"

	"github.com/sells-group/persona-cli/internal/model"
)

const (
	baseConfidence     = 0.30
	providedBonus      = 0.50
	corroborationBonus = 0.20
	highTrustBonus     = 0.15

	confirmedThreshold = 0.85
	probableThreshold  = 0.60

	// corroboratedEvidence is the evidence count that earns the corroboration
	// bonus and is required for confirmation.
	corroboratedEvidence = 2
)

// Scored is a candidate with its confidence and status.
type Scored struct {
	Candidate
	Confidence float64             `json:"confidence"`
	Status     model.ProfileStatus `json:"status"`
}

// Confidence converts a candidate's evidence into a value in [0,1].
func Confidence(c Candidate) float64 {
	conf := baseConfidence
	if c.Origin == model.OriginProvided {
		conf += providedBonus
	}
	if c.EvidenceCount >= corroboratedEvidence {
		conf += corroborationBonus
	}
	if c.Network.HighTrust() {
		conf += highTrustBonus
	}
	// Round away float noise so threshold comparisons are exact.
	return math.Min(1.0, math.Round(conf*100)/100)
}

// StatusFor is the single decision point gating whether a profile may be
// scanned. High confidence without corroborating evidence is capped at
// probable so status never decreases as confidence rises.
func StatusFor(confidence float64, evidenceCount int) model.ProfileStatus {
	switch {
	case confidence >= confirmedThreshold && evidenceCount >= corroboratedEvidence:
		return model.ProfileStatusConfirmed
	case confidence >= probableThreshold:
		return model.ProfileStatusProbable
	default:
		return model.ProfileStatusPending
	}
}

// Score computes confidence and status for one candidate.
func Score(c Candidate) Scored {
	conf := Confidence(c)
	return Scored{
		Candidate:  c,
		Confidence: conf,
		Status:     StatusFor(conf, c.EvidenceCount),
	}
}

// Resolve generates and scores every candidate for a seed and returns them as
// identity profiles owned by personID.
func Resolve(personID string, seed model.Seed) ([]model.IdentityProfile, error) {
	if err := seed.Validate(); err != nil {
		return nil, err
	}

	candidates := GenerateCandidates(seed)
	profiles := make([]model.IdentityProfile, 0, len(candidates))
	for _, c := range candidates {
		s := Score(c)
		profiles = append(profiles, model.IdentityProfile{
			PersonID:   personID,
			Network:    s.Network,
			Handle:     s.Handle,
			URL:        s.URL,
			Confidence: s.Confidence,
			Status:     s.Status,
			Evidence:   s.Evidence,
		})
	}
	return profiles, nil
}
