package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/waftester/bountyscout/pkg/jsonutil"
	"github.com/waftester/bountyscout/pkg/model"
)

// Query narrows ListPrograms. The zero value lists every program.
type Query struct {
	// Search matches handle or name substrings.
	Search string

	// Filter maps column keys to values; see ParseFilter.
	Filter map[string]any
}

// ProgramView is a program with its scope and the newest results.
type ProgramView struct {
	model.Program `json:",inline"`
	ScopeTargets  []TargetView `json:"scope_targets"`
}

// TargetView is a scope target with its newest probe and analysis.
type TargetView struct {
	model.ScopeTarget `json:",inline"`
	TestResult        *model.ProbeResult `json:"test_result"`
	XSSAnalysis       *model.Analysis    `json:"xss_analysis"`
}

var (
	boolFilters   = map[string]bool{"offers_bounties": true, "open_scope": true, "fast_payments": true, "bookmarked": true}
	stringFilters = map[string]bool{"state": true, "submission_state": true, "currency": true, "name": true, "handle": true}
)

// ParseFilter decodes the JSON filter object of the programs endpoint.
// Malformed input yields an empty filter.
func ParseFilter(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var f map[string]any
	if err := jsonutil.Unmarshal([]byte(raw), &f); err != nil {
		return nil
	}
	return f
}

// ListPrograms returns the programs matching q, ordered by name, with
// their scope targets.
func (s *GormStore) ListPrograms(ctx context.Context, q Query) ([]ProgramView, error) {
	db := s.db.WithContext(ctx)

	var programs []model.Program
	if err := applyQuery(db.Model(&model.Program{}), q).Order("name ASC").Find(&programs).Error; err != nil {
		return nil, err
	}
	if len(programs) == 0 {
		return []ProgramView{}, nil
	}

	handles := make([]string, len(programs))
	for i, p := range programs {
		handles[i] = p.Handle
	}
	var targets []model.ScopeTarget
	if err := db.Where("program_handle IN ?", handles).Order("id").Find(&targets).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, len(targets))
	for i, t := range targets {
		ids[i] = t.ID
	}
	probes, err := latest[model.ProbeResult](db, ids, func(r model.ProbeResult) uint { return r.ScopeTargetID })
	if err != nil {
		return nil, err
	}
	analyses, err := latest[model.Analysis](db, ids, func(a model.Analysis) uint { return a.ScopeTargetID })
	if err != nil {
		return nil, err
	}

	byHandle := make(map[string][]TargetView, len(programs))
	for _, t := range targets {
		byHandle[t.ProgramHandle] = append(byHandle[t.ProgramHandle], TargetView{
			ScopeTarget: t,
			TestResult:  probes[t.ID],
			XSSAnalysis: analyses[t.ID],
		})
	}

	views := make([]ProgramView, len(programs))
	for i, p := range programs {
		scope := byHandle[p.Handle]
		if scope == nil {
			scope = []TargetView{}
		}
		views[i] = ProgramView{Program: p, ScopeTargets: scope}
	}
	return views, nil
}

// latest loads the rows of T for ids, newest first, and keeps the first
// per scope target.
func latest[T any](db *gorm.DB, ids []uint, key func(T) uint) (map[uint]*T, error) {
	out := make(map[uint]*T)
	if len(ids) == 0 {
		return out, nil
	}
	var rows []T
	if err := db.Where("scope_target_id IN ?", ids).Order("tested_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		k := key(rows[i])
		if _, seen := out[k]; !seen {
			out[k] = &rows[i]
		}
	}
	return out, nil
}

func applyQuery(db *gorm.DB, q Query) *gorm.DB {
	if q.Search != "" {
		term := "%" + q.Search + "%"
		db = db.Where("handle LIKE ? OR name LIKE ?", term, term)
	}
	for key, value := range q.Filter {
		if value == nil || value == "" {
			continue
		}
		switch {
		case boolFilters[key]:
			db = db.Where(key+" = ?", truthy(value))
		case key == "min_bounty":
			if n, ok := number(value); ok {
				db = db.Where("bounty_earned_for_user >= ?", n)
			}
		case stringFilters[key]:
			db = db.Where(key+" LIKE ?", "%"+fmt.Sprint(value)+"%")
		}
	}
	return db
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return err == nil && b
	default:
		return false
	}
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return n, err == nil
	default:
		return 0, false
	}
}
