// Package dedup collapses near-duplicate candidate tasks. Candidates are
// clustered greedily in input order and one representative survives per
// cluster.
package dedup

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/fyrsmithlabs/actionitems/internal/task"
)

// Strategy names.
const (
	StrategyLexical  = "lexical"
	StrategySemantic = "semantic"
)

// Deduplicator removes near-duplicates. Implementations never fail; they
// degrade instead.
type Deduplicator interface {
	Deduplicate(ctx context.Context, cands []*task.Candidate) Outcome
}

// Outcome is the surviving candidates and how they were chosen.
type Outcome struct {
	Kept []*task.Candidate
	// Strategy is the strategy that actually ran, which differs from the
	// configured one after a fallback.
	Strategy string
	Clusters int
	Dropped  int
}

// ValidStrategy reports whether s names a known strategy.
func ValidStrategy(s string) bool {
	return s == StrategyLexical || s == StrategySemantic
}

// ValidateThreshold checks that a similarity threshold lies in (0,1].
func ValidateThreshold(t float64) error {
	if t <= 0 || t > 1 {
		return fmt.Errorf("similarity threshold %v out of range (0,1]", t)
	}
	return nil
}

// cluster groups indexes [0,n) greedily: each unclustered index in order
// claims every later unclustered index similar to it.
func cluster(n int, similar func(i, j int) bool) [][]int {
	assigned := make([]bool, n)
	var clusters [][]int
	for i := 0; i < n; i++ {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		members := []int{i}
		for j := i + 1; j < n; j++ {
			if !assigned[j] && similar(i, j) {
				assigned[j] = true
				members = append(members, j)
			}
		}
		clusters = append(clusters, members)
	}
	return clusters
}

func collapse(cands []*task.Candidate, clusters [][]int, strategy string) Outcome {
	out := Outcome{
		Kept:     make([]*task.Candidate, 0, len(clusters)),
		Strategy: strategy,
		Clusters: len(clusters),
	}
	for _, members := range clusters {
		group := make([]*task.Candidate, len(members))
		for k, idx := range members {
			group[k] = cands[idx]
		}
		out.Kept = append(out.Kept, SelectBest(group))
	}
	out.Dropped = len(cands) - len(out.Kept)
	return out
}

// SelectBest picks the cluster representative: assigned beats unassigned,
// then dated beats undated, then higher confidence, then longer description.
// Ties keep the earlier candidate.
func SelectBest(group []*task.Candidate) *task.Candidate {
	if len(group) == 0 {
		return nil
	}
	best := group[0]
	for _, c := range group[1:] {
		if better(c, best) {
			best = c
		}
	}
	return best
}

func better(a, b *task.Candidate) bool {
	if a.HasAssignee() != b.HasAssignee() {
		return a.HasAssignee()
	}
	if a.HasDueDate() != b.HasDueDate() {
		return a.HasDueDate()
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return utf8.RuneCountInString(a.Description) > utf8.RuneCountInString(b.Description)
}
