package crawler

import (
	"fmt"
	"sort"
	"strings"
)

// SubstringSuffix marks a filter key that matches by substring.
const SubstringSuffix = "_substring"

// MatchMode selects how a FilterRule compares a metadata value.
type MatchMode int

// Supported match modes.
const (
	// MatchExact requires case-sensitive equality with an allowed value.
	MatchExact MatchMode = iota
	// MatchSubstring requires an allowed value to occur inside the metadata
	// value, ignoring case.
	MatchSubstring
)

func (m MatchMode) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchSubstring:
		return "substring"
	default:
		return fmt.Sprintf("MatchMode(%d)", int(m))
	}
}

// FilterRule constrains one metadata key.
type FilterRule struct {
	Key     MetadataKey
	Mode    MatchMode
	Allowed []string
}

// Matches reports whether value satisfies the rule. A rule without allowed
// values matches nothing, so it never rejects on include nor on exclude.
func (r FilterRule) Matches(value string) bool {
	switch r.Mode {
	case MatchSubstring:
		lowered := strings.ToLower(value)
		for _, a := range r.Allowed {
			if strings.Contains(lowered, strings.ToLower(a)) {
				return true
			}
		}
	default:
		for _, a := range r.Allowed {
			if value == a {
				return true
			}
		}
	}
	return false
}

// FilterSpec is the validated include/exclude rule set for a run.
// A nil *FilterSpec accepts everything.
type FilterSpec struct {
	Include []FilterRule
	Exclude []FilterRule
}

// NewFilterSpec converts raw include/exclude dictionaries into rules. Keys may
// carry SubstringSuffix. Unknown keys, and a key given in both its plain and
// suffixed form within the same dictionary, are rejected.
func NewFilterSpec(include, exclude map[string][]string) (*FilterSpec, error) {
	inc, err := buildRules("include", include)
	if err != nil {
		return nil, err
	}
	exc, err := buildRules("exclude", exclude)
	if err != nil {
		return nil, err
	}
	return &FilterSpec{Include: inc, Exclude: exc}, nil
}

func buildRules(scope string, raw map[string][]string) ([]FilterRule, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[MetadataKey]string, len(raw))
	rules := make([]FilterRule, 0, len(raw))
	var invalid []string
	for _, name := range names {
		mode := MatchExact
		base := name
		if strings.HasSuffix(name, SubstringSuffix) {
			mode = MatchSubstring
			base = strings.TrimSuffix(name, SubstringSuffix)
		}
		key, ok := ParseMetadataKey(base)
		if !ok {
			invalid = append(invalid, name)
			continue
		}
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("%s filter: keys %q and %q target the same field", scope, prev, name)
		}
		seen[key] = name
		rules = append(rules, FilterRule{
			Key:     key,
			Mode:    mode,
			Allowed: dedupe(raw[name]),
		})
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%s filter: unknown metadata keys %v", scope, invalid)
	}
	return rules, nil
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Accepts reports whether md passes every include rule and no exclude rule.
func (f *FilterSpec) Accepts(md Metadata) bool {
	if f == nil {
		return true
	}
	for _, rule := range f.Include {
		if len(rule.Allowed) == 0 {
			continue
		}
		if !rule.Matches(md.Get(rule.Key)) {
			return false
		}
	}
	for _, rule := range f.Exclude {
		if rule.Matches(md.Get(rule.Key)) {
			return false
		}
	}
	return true
}

// Empty reports whether no rules are configured.
func (f *FilterSpec) Empty() bool {
	return f == nil || (len(f.Include) == 0 && len(f.Exclude) == 0)
}
