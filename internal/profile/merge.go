package profile

import (
	"reflect"
	"sort"
)

// MinConfidence is the lowest extraction confidence a conversation merge accepts.
const MinConfidence = 70

// TestConfidenceScore is the fixed confidence written by a test-result merge.
const TestConfidenceScore = 85

const (
	hintMatchPercentage = 75
	hintReason          = "mentioned in conversation"
)

// Reasons a conversation merge was not applied.
const (
	ReasonNoInsights    = "no_insights"
	ReasonLowConfidence = "low_confidence"
	ReasonNoChange      = "no_change"
)

// Fields maps profile attribute names to the values a merge decided to write.
// Keys mirror the profile columns: interests, skills, work_preferences,
// personality_traits, career_matches.
type Fields map[string]any

// MergeOutcome reports whether a merge changed anything and exactly what it wrote.
type MergeOutcome struct {
	Updated bool
	Reason  string // set when Updated is false
	Fields  Fields
}

// MergeConversation reconciles a conversation extraction into an existing
// profile snapshot. It never removes previously captured data:
// interests/skills are unioned, maps are overridden key-wise, and career
// hints only append titles that are not present yet. The outcome carries
// only the fields that actually changed; Updated is false when nothing did.
func MergeConversation(existing *Snapshot, ext Extraction) MergeOutcome {
	if !ext.HasInsights {
		return MergeOutcome{Reason: ReasonNoInsights}
	}
	if ext.Confidence < MinConfidence {
		return MergeOutcome{Reason: ReasonLowConfidence}
	}

	base := existing
	if base == nil {
		base = &Snapshot{}
	}

	fields := Fields{}

	if merged := unionStrings(base.Interests, ext.Interests); !sameStringSet(base.Interests, merged) {
		fields["interests"] = merged
	}
	if merged := unionStrings(base.Skills, ext.Skills); !sameStringSet(base.Skills, merged) {
		fields["skills"] = merged
	}
	if merged := overrideMap(base.WorkPreferences, ext.WorkPreferences); !reflect.DeepEqual(normalizeMap(base.WorkPreferences), merged) {
		fields["work_preferences"] = merged
	}
	if merged := overrideMap(base.PersonalityTraits, ext.PersonalityTraits); !reflect.DeepEqual(normalizeMap(base.PersonalityTraits), merged) {
		fields["personality_traits"] = merged
	}
	if merged, changed := appendCareerHints(base.CareerMatches, ext.CareerHints); changed {
		fields["career_matches"] = merged
	}

	if len(fields) == 0 {
		return MergeOutcome{Reason: ReasonNoChange}
	}

	return MergeOutcome{Updated: true, Fields: fields}
}

// ApplyTestAnalysis builds the field set written by a test-result merge.
// Unlike the conversation path this replaces wholesale: a test result is an
// authoritative snapshot, not an incremental hint.
func ApplyTestAnalysis(analysis TestAnalysis) Fields {
	careers := analysis.RecommendedCareers
	if careers == nil {
		careers = []CareerMatch{}
	}
	skills := analysis.Strengths
	if skills == nil {
		skills = []string{}
	}
	return Fields{
		"career_matches":     careers,
		"personality_traits": map[string]any{"type": analysis.PersonalityType},
		"skills":             skills,
	}
}

// unionStrings appends entries of extra not yet present in base, preserving
// first-seen order. Empty strings are dropped.
func unionStrings(base, extra []string) []string {
	merged := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, v := range base {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		merged = append(merged, v)
	}
	for _, v := range extra {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		merged = append(merged, v)
	}
	return merged
}

// sameStringSet compares two slices as unordered collections so that
// ordering differences never flag a spurious write.
func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// overrideMap applies a shallow key-wise override: new keys win, old keys
// absent from extra are preserved.
func overrideMap(base, extra map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// appendCareerHints turns each hint into a candidate match and appends it
// only when no existing entry carries the same title. Titles are compared
// case-sensitively. Existing entries are never removed or re-scored.
func appendCareerHints(existing []CareerMatch, hints []string) ([]CareerMatch, bool) {
	titles := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		titles[m.Title] = struct{}{}
	}

	merged := append([]CareerMatch(nil), existing...)
	changed := false
	for _, hint := range hints {
		if hint == "" {
			continue
		}
		if _, ok := titles[hint]; ok {
			continue
		}
		titles[hint] = struct{}{}
		merged = append(merged, CareerMatch{
			Title:           hint,
			MatchPercentage: hintMatchPercentage,
			Reason:          hintReason,
		})
		changed = true
	}
	return merged, changed
}
