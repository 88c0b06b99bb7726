package model

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetwork(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Network
		wantErr bool
	}{
		{"linkedin", NetworkLinkedIn, false},
		{" GitHub ", NetworkGitHub, false},
		{"x", NetworkTwitter, false},
		{"twitter", NetworkTwitter, false},
		{"myspace", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseNetwork(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindInvalidInput, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeed_URLFor(t *testing.T) {
	s := Seed{
		Name:        "Ana Souza",
		LinkedInURL: "https://linkedin.com/in/anasouza",
		ProfileURLs: map[Network]string{NetworkGitHub: "https://github.com/anas"},
	}
	assert.Equal(t, "https://linkedin.com/in/anasouza", s.URLFor(NetworkLinkedIn))
	assert.Equal(t, "https://github.com/anas", s.URLFor(NetworkGitHub))
	assert.Empty(t, s.URLFor(NetworkTwitter))
}

func TestSeed_Validate(t *testing.T) {
	assert.NoError(t, Seed{Name: "Ana"}.Validate())

	err := Seed{Name: "   "}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestPersonKey(t *testing.T) {
	assert.Equal(t, "ana souza|acme ltda", PersonKey("  Ana   Souza ", "ACME  Ltda"))
	assert.Equal(t, PersonKey("ana souza", ""), PersonKey("Ana Souza", ""))
}

func TestPerson_Merge(t *testing.T) {
	stored := Person{ID: "p1", Key: "ana souza|", Name: "Ana Souza", Email: "ana@example.com"}

	got := stored.Merge(PersonFromSeed(Seed{Name: "Ana Souza", Company: " Acme ", Role: "CFO"}))

	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "Acme", got.Company)
	assert.Equal(t, "CFO", got.Role)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, "ana souza|acme", got.Key)
}

func TestSummarize(t *testing.T) {
	profiles := []IdentityProfile{
		{Status: ProfileStatusConfirmed},
		{Status: ProfileStatusProbable},
		{Status: ProfileStatusPending},
		{Status: ProfileStatusPending},
	}
	assert.Equal(t, ResolutionSummary{Total: 4, Confirmed: 1, Probable: 1, Pending: 2}, Summarize(profiles))
	assert.Equal(t, ResolutionSummary{}, Summarize(nil))
}

func TestProfileStatus_Rank(t *testing.T) {
	assert.Less(t, ProfileStatusPending.Rank(), ProfileStatusProbable.Rank())
	assert.Less(t, ProfileStatusProbable.Rank(), ProfileStatusConfirmed.Rank())
}

func TestPost_Classification(t *testing.T) {
	p := Post{Topics: []string{"ERP"}, Intent: IntentQuestion}
	_, ok := p.Classification()
	assert.False(t, ok)

	now := p.PostedAt
	p.ClassifiedAt = &now
	c, ok := p.Classification()
	assert.True(t, ok)
	assert.Equal(t, []string{"ERP"}, c.Topics)
	assert.Equal(t, IntentQuestion, c.Intent)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"invalid", eris.Wrap(ErrInvalidInput, "name is required"), KindInvalidInput},
		{"person", eris.Wrap(ErrPersonNotFound, "lookup"), KindNotFound},
		{"run", eris.Wrapf(ErrRunNotFound, "run %s", "r1"), KindNotFound},
		{"playbook", eris.Wrap(ErrPlaybookNotFound, "get"), KindNotFound},
		{"persona", eris.Wrap(ErrPersonaNotFound, "playbook"), KindPrecondition},
		{"profile", eris.Wrap(ErrProfileNotConfirmed, "scan"), KindPrecondition},
		{"no confirmed", ErrNoConfirmedProfiles, KindPrecondition},
		{"other", eris.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestProfileID(t *testing.T) {
	a := ProfileID("p1", NetworkGitHub, "https://github.com/ana")
	assert.Equal(t, a, ProfileID("p1", NetworkGitHub, "https://github.com/ana"))
	assert.NotEqual(t, a, ProfileID("p2", NetworkGitHub, "https://github.com/ana"))
	assert.Len(t, a, 36)
}
