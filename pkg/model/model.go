// Package model defines the records shared by the fetcher, the pipeline,
// the store and the API: programs, scope targets, probe results, analyses
// and the scan progress snapshot.
//
// Structs carry both json and gorm tags; the JSON names follow the catalog
// API (snake_case) so stored rows and API payloads line up.
package model

import (
	"strings"
	"time"
)

// Program is one bug-bounty program from the catalog. Handle is unique;
// saving a program with a known handle replaces the previous row.
type Program struct {
	ID                              uint      `json:"id" gorm:"primaryKey"`
	Handle                          string    `json:"handle" gorm:"uniqueIndex;not null"`
	Name                            string    `json:"name"`
	Currency                        string    `json:"currency"`
	Policy                          string    `json:"policy"`
	ProfilePicture                  string    `json:"profile_picture"`
	SubmissionState                 string    `json:"submission_state"`
	TriageActive                    bool      `json:"triage_active"`
	State                           string    `json:"state"`
	StartedAcceptingAt              string    `json:"started_accepting_at"`
	NumberOfReportsForUser          int       `json:"number_of_reports_for_user"`
	NumberOfValidReportsForUser     int       `json:"number_of_valid_reports_for_user"`
	BountyEarnedForUser             float64   `json:"bounty_earned_for_user"`
	LastInvitationAcceptedAtForUser string    `json:"last_invitation_accepted_at_for_user"`
	Bookmarked                      bool      `json:"bookmarked"`
	AllowsBountySplitting           bool      `json:"allows_bounty_splitting"`
	OffersBounties                  bool      `json:"offers_bounties"`
	OpenScope                       bool      `json:"open_scope"`
	FastPayments                    bool      `json:"fast_payments"`
	GoldStandardSafeHarbor          bool      `json:"gold_standard_safe_harbor"`
	CreatedAt                       time.Time `json:"created_at"`
	UpdatedAt                       time.Time `json:"updated_at"`
}

// DisplayName returns Name, or Handle when the program has no name.
func (p Program) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Handle
}

// ScopeTarget is one in-scope asset of a program.
type ScopeTarget struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	ProgramHandle         string    `json:"program_handle" gorm:"index;not null"`
	AssetType             string    `json:"target_type"`
	Target                string    `json:"target"`
	EligibleForBounty     bool      `json:"eligible_for_bounty"`
	EligibleForSubmission bool      `json:"eligible_for_submission"`
	Instruction           string    `json:"instruction"`
	SeverityRating        string    `json:"severity_rating"`
	CreatedAt             time.Time `json:"created_at"`
}

// IsURL reports whether the target should be probed: the asset type
// mentions "url" or the identifier is an explicit http(s) URL. Both checks
// ignore case.
func (s ScopeTarget) IsURL() bool {
	if strings.Contains(strings.ToLower(s.AssetType), "url") {
		return true
	}
	target := strings.ToLower(s.Target)
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// ProbeResult is one reachability measurement. StatusCode is nil when the
// request failed at the network level.
type ProbeResult struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	ScopeTargetID     uint      `json:"scope_target_id" gorm:"index;not null"`
	StatusCode        *int      `json:"status_code"`
	HasAuthIndicators bool      `json:"has_auth_indicators"`
	BodyHash          string    `json:"body_hash,omitempty"`
	TestedAt          time.Time `json:"test_date" gorm:"index"`
}

// Credentials are the catalog API username and token.
type Credentials struct {
	ID       uint      `json:"-" gorm:"primaryKey"`
	Username string    `json:"username"`
	Token    string    `json:"token"`
	LastUsed time.Time `json:"-"`
}

// Valid reports whether both fields are set.
func (c Credentials) Valid() bool {
	return c.Username != "" && c.Token != ""
}
