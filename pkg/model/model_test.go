package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeTarget_IsURL(t *testing.T) {
	tests := []struct {
		name   string
		target ScopeTarget
		want   bool
	}{
		{"url type", ScopeTarget{AssetType: "URL", Target: "example.com"}, true},
		{"wildcard type", ScopeTarget{AssetType: "WILDCARD_URL", Target: "*.example.com"}, true},
		{"https literal", ScopeTarget{AssetType: "OTHER", Target: "https://app.example.com"}, true},
		{"http literal", ScopeTarget{AssetType: "OTHER", Target: "http://app.example.com"}, true},
		{"upper-case scheme", ScopeTarget{AssetType: "OTHER", Target: "HTTPS://App.example.com"}, true},
		{"scheme not at start", ScopeTarget{AssetType: "OTHER", Target: "ftp://example.com/http://x"}, false},
		{"cidr", ScopeTarget{AssetType: "CIDR", Target: "10.0.0.0/8"}, false},
		{"mobile app", ScopeTarget{AssetType: "GOOGLE_PLAY_APP_ID", Target: "com.example.app"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.IsURL())
		})
	}
}

func TestProgram_DisplayName(t *testing.T) {
	assert.Equal(t, "Acme", Program{Handle: "acme", Name: "Acme"}.DisplayName())
	assert.Equal(t, "acme", Program{Handle: "acme"}.DisplayName())
}

func TestCredentials_Valid(t *testing.T) {
	assert.True(t, Credentials{Username: "u", Token: "t"}.Valid())
	assert.False(t, Credentials{Username: "u"}.Valid())
	assert.False(t, Credentials{}.Valid())
}

func TestProgress_CloneIsDeep(t *testing.T) {
	n := 3
	target := "https://a.example"
	p := Progress{ScopeCount: &n, CurrentScopeTarget: &target}
	c := p.Clone()
	*c.ScopeCount = 9
	*c.CurrentScopeTarget = "changed"
	assert.Equal(t, 3, *p.ScopeCount)
	assert.Equal(t, "https://a.example", *p.CurrentScopeTarget)
}

func TestProgress_ClearScopeAndPercent(t *testing.T) {
	n := 1
	p := Progress{Current: 1, Total: 4, ScopeCount: &n, CurrentScopeTargetNumber: 2, TotalScopeTargets: 5}
	p.ClearScope()
	assert.Nil(t, p.ScopeCount)
	assert.Zero(t, p.TotalScopeTargets)
	assert.InDelta(t, 25.0, p.Percent(), 0.001)
	assert.Zero(t, Progress{}.Percent())
}

func TestScanStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusIdle.IsTerminal())
	assert.False(t, StatusScanning.IsTerminal())
	assert.True(t, StatusComplete.IsTerminal())
	assert.True(t, StatusError.IsTerminal())
}

func TestRawProgramConversion(t *testing.T) {
	raw := RawProgram{ID: "1", Type: "program", Attributes: ProgramAttributes{
		Handle: "acme", Name: "Acme", SubmissionState: "open",
		OffersBounties: true, GoldStandardSafeHarbor: true, BountyEarnedForUser: 150.5,
	}}
	p := raw.Program()
	assert.Equal(t, "acme", p.Handle)
	assert.Equal(t, "Acme", p.Name)
	assert.Equal(t, "open", p.SubmissionState)
	assert.True(t, p.OffersBounties)
	assert.True(t, p.GoldStandardSafeHarbor)
	assert.InDelta(t, 150.5, p.BountyEarnedForUser, 0.001)
	assert.Zero(t, p.ID)
}

func TestRawScopeDefaults(t *testing.T) {
	st := RawScope{}.Target("acme")
	assert.Equal(t, "acme", st.ProgramHandle)
	assert.Equal(t, "unknown", st.AssetType)
	assert.Equal(t, "", st.Target)

	st = RawScope{Attributes: ScopeAttributes{
		AssetType: "URL", AssetIdentifier: "https://acme.com", MaxSeverity: "critical", EligibleForBounty: true,
	}}.Target("acme")
	assert.Equal(t, "URL", st.AssetType)
	assert.Equal(t, "https://acme.com", st.Target)
	assert.Equal(t, "critical", st.SeverityRating)
	assert.True(t, st.EligibleForBounty)
	assert.True(t, st.IsURL())
}
