package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/waftester/bountyscout/pkg/model"
)

// programColumns are overwritten when a known handle is saved again.
var programColumns = []string{
	"name", "currency", "policy", "profile_picture", "submission_state",
	"triage_active", "state", "started_accepting_at",
	"number_of_reports_for_user", "number_of_valid_reports_for_user",
	"bounty_earned_for_user", "last_invitation_accepted_at_for_user",
	"bookmarked", "allows_bounty_splitting", "offers_bounties", "open_scope",
	"fast_payments", "gold_standard_safe_harbor", "updated_at",
}

// UpsertProgram inserts p or replaces the row with the same handle.
func (s *GormStore) UpsertProgram(ctx context.Context, p *model.Program) error {
	if p.Handle == "" {
		return ErrEmptyHandle
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "handle"}},
		DoUpdates: clause.AssignmentColumns(programColumns),
	}).Create(p).Error
}

// ReplaceScope deletes every scope target of handle, with their probe
// results and analyses, and inserts targets in one transaction. The
// inserted rows are returned with their IDs.
func (s *GormStore) ReplaceScope(ctx context.Context, handle string, targets []model.ScopeTarget) ([]model.ScopeTarget, error) {
	if handle == "" {
		return nil, ErrEmptyHandle
	}
	rows := make([]model.ScopeTarget, len(targets))
	for i, t := range targets {
		t.ID = 0
		t.ProgramHandle = handle
		rows[i] = t
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var oldIDs []uint
		if err := tx.Model(&model.ScopeTarget{}).Where("program_handle = ?", handle).Pluck("id", &oldIDs).Error; err != nil {
			return err
		}
		if len(oldIDs) > 0 {
			if err := tx.Where("scope_target_id IN ?", oldIDs).Delete(&model.ProbeResult{}).Error; err != nil {
				return err
			}
			if err := tx.Where("scope_target_id IN ?", oldIDs).Delete(&model.Analysis{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", oldIDs).Delete(&model.ScopeTarget{}).Error; err != nil {
				return err
			}
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// URLTargets returns the scope targets of handle worth probing, in
// insertion order. Selection is ScopeTarget.IsURL.
func (s *GormStore) URLTargets(ctx context.Context, handle string) ([]model.ScopeTarget, error) {
	var all []model.ScopeTarget
	err := s.db.WithContext(ctx).
		Where("program_handle = ?", handle).
		Order("id").
		Find(&all).Error
	if err != nil {
		return nil, err
	}
	targets := all[:0]
	for _, st := range all {
		if st.IsURL() {
			targets = append(targets, st)
		}
	}
	return targets, nil
}

// AddProbeResult appends a probe result.
func (s *GormStore) AddProbeResult(ctx context.Context, r *model.ProbeResult) error {
	if r.TestedAt.IsZero() {
		r.TestedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(r).Error
}

// AddAnalysis appends an analysis.
func (s *GormStore) AddAnalysis(ctx context.Context, a *model.Analysis) error {
	if a.TestedAt.IsZero() {
		a.TestedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(a).Error
}

// CountPrograms returns the number of stored programs.
func (s *GormStore) CountPrograms(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Program{}).Count(&n).Error
	return n, err
}

// credentialsID is the primary key of the single credentials row.
const credentialsID = 1

// SaveCredentials replaces the stored credentials.
func (s *GormStore) SaveCredentials(ctx context.Context, c model.Credentials) error {
	c.ID = credentialsID
	c.LastUsed = time.Now()
	return s.db.WithContext(ctx).Save(&c).Error
}

// Credentials returns the stored credentials or ErrNoCredentials.
func (s *GormStore) Credentials(ctx context.Context) (model.Credentials, error) {
	var c model.Credentials
	err := s.db.WithContext(ctx).First(&c, credentialsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Credentials{}, ErrNoCredentials
	}
	return c, err
}
