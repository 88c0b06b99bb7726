package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/persona-cli/internal/model"
)

func byNetwork(cs []Candidate, n model.Network) []Candidate {
	var out []Candidate
	for _, c := range cs {
		if c.Network == n {
			out = append(out, c)
		}
	}
	return out
}

func TestGenerateCandidates_ProvidedURL(t *testing.T) {
	seed := model.Seed{Name: "Ana Souza", LinkedInURL: "https://www.LinkedIn.com/in/anasouza/?trk=x"}

	cs := GenerateCandidates(seed)

	li := byNetwork(cs, model.NetworkLinkedIn)
	require.Len(t, li, 1)
	assert.Equal(t, "https://linkedin.com/in/anasouza", li[0].URL)
	assert.Equal(t, "anasouza", li[0].Handle)
	assert.Equal(t, 2, li[0].EvidenceCount)
	assert.Equal(t, model.OriginProvided, li[0].Origin)
	assert.Equal(t, "https://www.LinkedIn.com/in/anasouza/?trk=x", li[0].Evidence["source_url"])
}

func TestGenerateCandidates_HeuristicVariants(t *testing.T) {
	seed := model.Seed{Name: "Ana Souza"}

	cs := GenerateCandidates(seed)

	tw := byNetwork(cs, model.NetworkTwitter)
	require.Len(t, tw, 3)
	assert.Equal(t, "anasouza", tw[0].Handle)
	assert.Equal(t, "ana_souza", tw[1].Handle)
	assert.Equal(t, "asouza", tw[2].Handle)
	for _, c := range tw {
		assert.Equal(t, 1, c.EvidenceCount)
		assert.Equal(t, model.OriginHeuristic, c.Origin)
		assert.Equal(t, "https://x.com/"+c.Handle, c.URL)
	}

	gh := byNetwork(cs, model.NetworkGitHub)
	require.Len(t, gh, 3)
	assert.Equal(t, "ana-souza", gh[1].Handle)

	assert.Len(t, byNetwork(cs, model.NetworkLinkedIn), 3)
}

func TestGenerateCandidates_Deterministic(t *testing.T) {
	seed := model.Seed{Name: "João da Conceição", Company: "Acme"}
	assert.Equal(t, GenerateCandidates(seed), GenerateCandidates(seed))

	tw := byNetwork(GenerateCandidates(seed), model.NetworkTwitter)
	require.NotEmpty(t, tw)
	assert.Equal(t, "joaoconceicao", tw[0].Handle)
	assert.Equal(t, "Acme", tw[0].Evidence["company"])
}

func TestGenerateCandidates_SingleToken(t *testing.T) {
	cs := GenerateCandidates(model.Seed{Name: "Madonna"})
	tw := byNetwork(cs, model.NetworkTwitter)
	require.Len(t, tw, 1)
	assert.Equal(t, "madonna", tw[0].Handle)
}

func TestGenerateCandidates_DuplicateVariantsCollapse(t *testing.T) {
	// "a b": concat "ab" and initial+last "ab" collide.
	cs := byNetwork(GenerateCandidates(model.Seed{Name: "A B"}), model.NetworkTwitter)
	handles := make([]string, 0, len(cs))
	for _, c := range cs {
		handles = append(handles, c.Handle)
	}
	assert.Equal(t, []string{"ab", "a_b"}, handles)
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://linkedin.com/in/anasouza", "https://linkedin.com/in/anasouza"},
		{"http://www.linkedin.com/in/anasouza/", "https://linkedin.com/in/anasouza"},
		{"linkedin.com/in/anasouza?utm=1#top", "https://linkedin.com/in/anasouza"},
		{"https://twitter.com/ana", "https://x.com/ana"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalURL(tt.in))
		})
	}
}

func TestHandleFromURL(t *testing.T) {
	assert.Equal(t, "anasouza", HandleFromURL("https://linkedin.com/in/anasouza"))
	assert.Equal(t, "ana", HandleFromURL("https://x.com/@ana"))
	assert.Equal(t, "", HandleFromURL("https://github.com"))
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name string
		c    Candidate
		want float64
	}{
		{"heuristic", Candidate{Network: model.NetworkTwitter, Origin: model.OriginHeuristic, EvidenceCount: 1}, 0.30},
		{"heuristic high trust", Candidate{Network: model.NetworkLinkedIn, Origin: model.OriginHeuristic, EvidenceCount: 1}, 0.45},
		{"heuristic corroborated", Candidate{Network: model.NetworkGitHub, Origin: model.OriginHeuristic, EvidenceCount: 2}, 0.50},
		{"provided", Candidate{Network: model.NetworkTwitter, Origin: model.OriginProvided, EvidenceCount: 2}, 1.0},
		{"provided capped", Candidate{Network: model.NetworkLinkedIn, Origin: model.OriginProvided, EvidenceCount: 2}, 1.0},
		{"provided uncorroborated", Candidate{Network: model.NetworkTwitter, Origin: model.OriginProvided, EvidenceCount: 1}, 0.80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Confidence(tt.c), 1e-9)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		conf     float64
		evidence int
		want     model.ProfileStatus
	}{
		{1.0, 2, model.ProfileStatusConfirmed},
		{0.85, 2, model.ProfileStatusConfirmed},
		{0.84, 2, model.ProfileStatusProbable},
		{0.60, 2, model.ProfileStatusProbable},
		{0.59, 2, model.ProfileStatusPending},
		{0.95, 1, model.ProfileStatusProbable},
		{0.30, 1, model.ProfileStatusPending},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.conf, tt.evidence), "conf=%v evidence=%d", tt.conf, tt.evidence)
	}
}

func TestStatusFor_MonotonicInConfidence(t *testing.T) {
	for _, evidence := range []int{0, 1, 2, 3} {
		prev := StatusFor(0, evidence)
		for i := 1; i <= 100; i++ {
			cur := StatusFor(float64(i)/100, evidence)
			assert.GreaterOrEqual(t, cur.Rank(), prev.Rank(), "evidence=%d conf=%v", evidence, float64(i)/100)
			prev = cur
		}
	}
}

func TestScore_ProvidedHighTrustIsConfirmed(t *testing.T) {
	for _, evidence := range []int{2, 3, 5} {
		s := Score(Candidate{Network: model.NetworkLinkedIn, Origin: model.OriginProvided, EvidenceCount: evidence})
		assert.GreaterOrEqual(t, s.Confidence, 0.85)
		assert.Equal(t, model.ProfileStatusConfirmed, s.Status)
	}
}

func TestResolve_AnaSouzaScenario(t *testing.T) {
	profiles, err := Resolve("person-1", model.Seed{Name: "Ana Souza", LinkedInURL: "https://linkedin.com/in/anasouza"})
	require.NoError(t, err)

	var confirmed []model.IdentityProfile
	for _, p := range profiles {
		assert.Equal(t, "person-1", p.PersonID)
		if p.Status == model.ProfileStatusConfirmed {
			confirmed = append(confirmed, p)
			continue
		}
		assert.NotEqual(t, model.NetworkLinkedIn, p.Network)
		assert.InDelta(t, 0.3, p.Confidence, 1e-9)
		assert.Equal(t, model.ProfileStatusPending, p.Status)
	}

	require.Len(t, confirmed, 1)
	assert.Equal(t, model.NetworkLinkedIn, confirmed[0].Network)
	assert.GreaterOrEqual(t, confirmed[0].Confidence, 0.85)

	summary := model.Summarize(profiles)
	assert.Equal(t, 1, summary.Confirmed)
	assert.Equal(t, 6, summary.Pending)
}

func TestResolve_MissingName(t *testing.T) {
	_, err := Resolve("p", model.Seed{})
	require.Error(t, err)
	assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
}
