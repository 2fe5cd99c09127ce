package reconcile

import (
	"strings"

	"pnl_dashboard/formatting"
)

// Rule names the step that linked a call-log name to a roster name.
type Rule string

const (
	RuleExact    Rule = "exact"
	RuleInitial  Rule = "first_name_initial"
	RuleNickname Rule = "nickname_initial"
)

// Match is one roster hit for a raw name.
type Match struct {
	Name string
	Rule Rule
}

// Roster is the ordered set of canonical agent names taken from the policy
// source. Lookups walk the roster in first-seen order.
type Roster struct {
	names []string
	seen  map[string]struct{}
}

func NewRoster(names ...string) *Roster {
	r := &Roster{seen: make(map[string]struct{})}
	for _, name := range names {
		r.Add(name)
	}
	return r
}

// Add appends a name unless it is blank or already present verbatim.
func (r *Roster) Add(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if _, ok := r.seen[name]; ok {
		return
	}
	r.seen[name] = struct{}{}
	r.names = append(r.names, name)
}

func (r *Roster) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Roster) Len() int {
	return len(r.names)
}

// Resolve returns the canonical roster name for a call-log rep name, or the
// trimmed input when nothing on the roster links to it.
func (r *Roster) Resolve(raw string) string {
	matches := r.Candidates(raw)
	if len(matches) > 0 {
		return matches[0].Name
	}
	return strings.TrimSpace(raw)
}

// Candidates lists every roster name the raw name links to, ordered by rule
// precedence and then by roster order. A roster name appears at most once,
// under the strongest rule that matched it.
func (r *Roster) Candidates(raw string) []Match {
	clean := strings.ToLower(strings.TrimSpace(raw))
	if r == nil || clean == "" {
		return nil
	}

	var out []Match
	used := make(map[string]struct{})
	add := func(name string, rule Rule) {
		if _, ok := used[name]; ok {
			return
		}
		used[name] = struct{}{}
		out = append(out, Match{Name: name, Rule: rule})
	}

	for _, name := range r.names {
		if strings.ToLower(name) == clean {
			add(name, RuleExact)
		}
	}

	parts := strings.Fields(clean)
	if len(parts) < 2 {
		return out
	}
	first := parts[0]
	initial := parts[1][:1]

	for _, name := range r.names {
		if firstAndInitial(name, first, initial) {
			add(name, RuleInitial)
		}
	}
	if expanded := ExpandNickname(first); expanded != first {
		for _, name := range r.names {
			if firstAndInitial(name, expanded, initial) {
				add(name, RuleNickname)
			}
		}
	}
	return out
}

func firstAndInitial(rosterName, first, initial string) bool {
	parts := strings.Fields(strings.ToLower(formatting.CleanName(rosterName)))
	if len(parts) < 2 {
		return false
	}
	return parts[0] == first && strings.HasPrefix(parts[len(parts)-1], initial)
}
