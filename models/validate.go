package models

import (
	"strings"
	"unicode/utf8"

	"github.com/freelancehub/backend/errs"
)

// MaxCoverLetterLen caps application cover letters.
const MaxCoverLetterLen = 1000

// ValidateProject checks field constraints on a project independent of
// storage. It does not check ownership or lifecycle state.
func ValidateProject(p *Project) error {
	if strings.TrimSpace(p.Title) == "" {
		return errs.NewMissingRequiredFieldError("title")
	}
	if strings.TrimSpace(p.Description) == "" {
		return errs.NewMissingRequiredFieldError("description")
	}
	if p.BudgetMin < 0 {
		return errs.NewInvalidFieldError("budget_min", "must not be negative")
	}
	if p.BudgetMax < 0 {
		return errs.NewInvalidFieldError("budget_max", "must not be negative")
	}
	if p.BudgetMin > p.BudgetMax {
		return errs.NewInvalidFieldError("budget_min", "must not exceed budget_max")
	}
	if p.Status != "" && !p.Status.Valid() {
		return errs.NewInvalidFieldError("status", "unknown project status")
	}
	return nil
}

// ValidateApplication checks field constraints on an application.
func ValidateApplication(a *Application) error {
	if a.ProposedRate < 0 {
		return errs.NewInvalidFieldError("proposed_rate", "must not be negative")
	}
	if utf8.RuneCountInString(a.CoverLetter) > MaxCoverLetterLen {
		return errs.NewInvalidFieldError("cover_letter", "must be at most 1000 characters")
	}
	return nil
}

// NormalizeSkills lowercases, trims and de-duplicates a skill list while
// preserving first-seen order. Skill matching everywhere else assumes
// normalized input.
func NormalizeSkills(skills []string) []string {
	if len(skills) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SkillsIntersect reports whether the two normalized skill sets share at
// least one skill. Any overlap qualifies, not subset match.
func SkillsIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}
