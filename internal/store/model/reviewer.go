package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleExpert    Role = "expert"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// PreferenceAll is the stored sentinel for a field the reviewer accepts any value for.
const PreferenceAll = "all"

type Reviewer struct {
	ID               string `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	Name             string `gorm:"type:VARCHAR(255)"`
	Email            string `gorm:"type:VARCHAR(255)"`
	Role             Role   `gorm:"not null;type:VARCHAR(32);index:reviewers_role_idx"`
	PreferenceRegion string `gorm:"type:VARCHAR(255)"`
	PreferenceCrop   string `gorm:"type:VARCHAR(255)"`
	PreferenceDomain string `gorm:"type:VARCHAR(255)"`
	Reputation       int64  `gorm:"not null;default:0"`
	Blocked          bool   `gorm:"not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (r Reviewer) Preferences() Preferences {
	return Preferences{
		Region: ParsePreference(r.PreferenceRegion),
		Crop:   ParsePreference(r.PreferenceCrop),
		Domain: ParsePreference(r.PreferenceDomain),
	}
}

// Preference is either Any or a specific value.
type Preference struct {
	value string
	any   bool
}

func AnyPreference() Preference {
	return Preference{any: true}
}

func SpecificPreference(value string) Preference {
	return Preference{value: value}
}

// ParsePreference maps the stored representation; an empty field is treated as Any.
func ParsePreference(raw string) Preference {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, PreferenceAll) {
		return AnyPreference()
	}
	return SpecificPreference(raw)
}

func (p Preference) IsAny() bool {
	return p.any
}

func (p Preference) Value() (string, bool) {
	return p.value, !p.any
}

// Accepts reports whether the preference qualifies a reviewer for the given field value.
func (p Preference) Accepts(field string) bool {
	return p.any || p.value == field
}

// Matches reports an exact, non-wildcard match.
func (p Preference) Matches(field string) bool {
	return !p.any && p.value == field
}

func (p Preference) String() string {
	if p.any {
		return PreferenceAll
	}
	return p.value
}

type Preferences struct {
	Region Preference
	Crop   Preference
	Domain Preference
}

// Qualifies is true when any single field is accepted.
func (p Preferences) Qualifies(t TopicalPreferences) bool {
	return p.Region.Accepts(t.Region) || p.Crop.Accepts(t.Crop) || p.Domain.Accepts(t.Domain)
}

// Score counts exact field matches (0-3).
func (p Preferences) Score(t TopicalPreferences) int {
	score := 0
	if p.Region.Matches(t.Region) {
		score++
	}
	if p.Crop.Matches(t.Crop) {
		score++
	}
	if p.Domain.Matches(t.Domain) {
		score++
	}
	return score
}

// IsWildcard is true when every field is Any.
func (p Preferences) IsWildcard() bool {
	return p.Region.IsAny() && p.Crop.IsAny() && p.Domain.IsAny()
}
