package model

// RawProgram is one item of the catalog program list as returned by the
// API.
type RawProgram struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Attributes ProgramAttributes `json:"attributes"`
}

// ProgramAttributes mirrors the attributes object of a catalog program.
type ProgramAttributes struct {
	Handle                          string  `json:"handle"`
	Name                            string  `json:"name"`
	Currency                        string  `json:"currency"`
	Policy                          string  `json:"policy"`
	ProfilePicture                  string  `json:"profile_picture"`
	SubmissionState                 string  `json:"submission_state"`
	TriageActive                    bool    `json:"triage_active"`
	State                           string  `json:"state"`
	StartedAcceptingAt              string  `json:"started_accepting_at"`
	NumberOfReportsForUser          int     `json:"number_of_reports_for_user"`
	NumberOfValidReportsForUser     int     `json:"number_of_valid_reports_for_user"`
	BountyEarnedForUser             float64 `json:"bounty_earned_for_user"`
	LastInvitationAcceptedAtForUser string  `json:"last_invitation_accepted_at_for_user"`
	Bookmarked                      bool    `json:"bookmarked"`
	AllowsBountySplitting           bool    `json:"allows_bounty_splitting"`
	OffersBounties                  bool    `json:"offers_bounties"`
	OpenScope                       bool    `json:"open_scope"`
	FastPayments                    bool    `json:"fast_payments"`
	GoldStandardSafeHarbor          bool    `json:"gold_standard_safe_harbor"`
}

// Program converts the catalog item to a storable Program.
func (r RawProgram) Program() Program {
	a := r.Attributes
	return Program{
		Handle:                          a.Handle,
		Name:                            a.Name,
		Currency:                        a.Currency,
		Policy:                          a.Policy,
		ProfilePicture:                  a.ProfilePicture,
		SubmissionState:                 a.SubmissionState,
		TriageActive:                    a.TriageActive,
		State:                           a.State,
		StartedAcceptingAt:              a.StartedAcceptingAt,
		NumberOfReportsForUser:          a.NumberOfReportsForUser,
		NumberOfValidReportsForUser:     a.NumberOfValidReportsForUser,
		BountyEarnedForUser:             a.BountyEarnedForUser,
		LastInvitationAcceptedAtForUser: a.LastInvitationAcceptedAtForUser,
		Bookmarked:                      a.Bookmarked,
		AllowsBountySplitting:           a.AllowsBountySplitting,
		OffersBounties:                  a.OffersBounties,
		OpenScope:                       a.OpenScope,
		FastPayments:                    a.FastPayments,
		GoldStandardSafeHarbor:          a.GoldStandardSafeHarbor,
	}
}

// RawScope is one item of a program's structured scope list.
type RawScope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes ScopeAttributes `json:"attributes"`
}

// ScopeAttributes mirrors the attributes object of a structured scope.
type ScopeAttributes struct {
	AssetType             string `json:"asset_type"`
	AssetIdentifier       string `json:"asset_identifier"`
	EligibleForBounty     bool   `json:"eligible_for_bounty"`
	EligibleForSubmission bool   `json:"eligible_for_submission"`
	Instruction           string `json:"instruction"`
	MaxSeverity           string `json:"max_severity"`
}

// Target converts the scope item to a ScopeTarget of program handle. A
// missing asset type becomes "unknown".
func (r RawScope) Target(handle string) ScopeTarget {
	a := r.Attributes
	assetType := a.AssetType
	if assetType == "" {
		assetType = "unknown"
	}
	return ScopeTarget{
		ProgramHandle:         handle,
		AssetType:             assetType,
		Target:                a.AssetIdentifier,
		EligibleForBounty:     a.EligibleForBounty,
		EligibleForSubmission: a.EligibleForSubmission,
		Instruction:           a.Instruction,
		SeverityRating:        a.MaxSeverity,
	}
}
