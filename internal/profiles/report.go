package profiles

import (
	"sort"
	"time"
)

// Report summarizes one publish run.
type Report struct {
	RunID     string
	Version   string
	Commit    string
	StartedAt time.Time
	Duration  time.Duration

	// Planned lists the tags the run publishes, in order.
	Planned []string

	// Tags holds the tags published so far.
	Tags []TagReport
}

// TagReport summarizes the published copy for one tag.
type TagReport struct {
	Tag          string
	Root         string
	Files        int
	Replacements map[string]int
	Duration     time.Duration
}

// TotalReplacements sums rewritten placeholder occurrences across the copy.
func (t TagReport) TotalReplacements() int {
	total := 0
	for _, n := range t.Replacements {
		total += n
	}
	return total
}

// TagNames returns the published tags in run order.
func (r *Report) TagNames() []string {
	names := make([]string, len(r.Tags))
	for i, t := range r.Tags {
		names[i] = t.Tag
	}
	return names
}

// TotalReplacements sums rewritten occurrences across all tags.
func (r *Report) TotalReplacements() int {
	total := 0
	for _, t := range r.Tags {
		total += t.TotalReplacements()
	}
	return total
}

// Placeholders returns every placeholder that was rewritten at least once, sorted.
func (r *Report) Placeholders() []string {
	set := map[string]struct{}{}
	for _, t := range r.Tags {
		for p, n := range t.Replacements {
			if n > 0 {
				set[p] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
