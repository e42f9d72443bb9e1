package extractor

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/actionitems/internal/dates"
	"github.com/fyrsmithlabs/actionitems/internal/logging"
	"github.com/fyrsmithlabs/actionitems/internal/patterns"
	"github.com/fyrsmithlabs/actionitems/internal/people"
	"github.com/fyrsmithlabs/actionitems/internal/task"
	"github.com/fyrsmithlabs/actionitems/internal/transcript"
)

// dateRadius is how many segments either side contribute dates to a task.
const dateRadius = 2

// candidateNamespace derives stable candidate ids, so identical runs produce
// identical output.
var candidateNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/fyrsmithlabs/actionitems/candidate"))

// collect produces candidates for every eligible segment, in segment order.
func (e *Extractor) collect(ctx context.Context, log *zap.Logger, doc *transcript.Document, speakers *people.SpeakerMap, ref time.Time) []*task.Candidate {
	n := doc.Len()
	if n == 0 {
		return nil
	}

	// Normalised text is shared by date prefetch and matching.
	texts := make([]string, n)
	for i, seg := range doc.Transcript {
		if seg.Valid() {
			texts[i] = transcript.NormalizeText(seg.Text)
		}
	}

	perSegment := make([][]dates.Candidate, n)
	e.forEach(n, func(i int) {
		if texts[i] != "" {
			perSegment[i] = e.dates.Extract(ctx, texts[i], ref)
		}
	})

	slots := make([][]*task.Candidate, n)
	e.forEach(n, func(i int) {
		slots[i] = e.segmentCandidates(log, doc, i, texts[i], perSegment, speakers)
	})

	var out []*task.Candidate
	for _, s := range slots {
		out = append(out, s...)
	}
	return out
}

// forEach calls fn for [0,n) on up to Workers goroutines.
func (e *Extractor) forEach(n int, fn func(i int)) {
	if e.opts.Workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Extractor) segmentCandidates(log *zap.Logger, doc *transcript.Document, idx int, text string, perSegment [][]dates.Candidate, speakers *people.SpeakerMap) []*task.Candidate {
	seg := doc.Transcript[idx]
	if text == "" {
		e.skip(log, idx, "missing_field")
		return nil
	}
	if ok, reason := e.library.Eligible(text); !ok {
		e.skip(log, idx, reason)
		return nil
	}

	matches := e.library.Match(text)
	if len(matches) == 0 {
		return nil
	}
	if log.Core().Enabled(logging.TraceLevel) {
		for _, m := range matches {
			log.Log(logging.TraceLevel, "pattern matched",
				zap.Int("segment", idx),
				zap.String("rule", m.RuleID),
			)
		}
	}

	span := dates.Summarize(pooledDates(perSegment, idx))
	refs := e.people.ExtractAssignees(text)
	var next *transcript.Segment
	if idx+1 < doc.Len() {
		next = &doc.Transcript[idx+1]
	}
	urgency, boost := e.library.Urgency(text)

	out := make([]*task.Candidate, 0, len(matches))
	for _, m := range matches {
		desc := patterns.CleanDescription(m.Captured)
		if utf8.RuneCountInString(desc) < e.opts.MinDescriptionLength {
			Candidates.WithLabelValues("short_description").Inc()
			log.Debug("candidate dropped",
				zap.Int("segment", idx),
				zap.String("rule", m.RuleID),
				zap.String("reason", "short_description"),
			)
			continue
		}
		c := &task.Candidate{
			ID:             candidateID(idx, m),
			Description:    desc,
			Assignee:       e.people.ResolveAssignee(refs, m.Type, seg.Speaker, next, speakers),
			Speaker:        seg.Speaker,
			Priority:       task.AdjustPriority(m.Priority, boost),
			Urgency:        urgency,
			UrgencyBoost:   boost,
			Type:           m.Type,
			RuleID:         m.RuleID,
			StartDate:      span.Start,
			DueDate:        span.Due,
			MentionedDates: append([]string(nil), span.Mentioned...),
			SourceText:     strings.TrimSpace(seg.Text),
			SegmentIndex:   idx,
		}
		c.Confidence = e.scorer.Score(c)
		out = append(out, c)
	}
	return out
}

func (e *Extractor) skip(log *zap.Logger, idx int, reason string) {
	SegmentsSkipped.WithLabelValues(reason).Inc()
	log.Debug("segment skipped", zap.Int("segment", idx), zap.String("reason", reason))
}

// pooledDates returns the dates of segment idx followed by those of its
// neighbours within dateRadius, in segment order.
func pooledDates(perSegment [][]dates.Candidate, idx int) []dates.Candidate {
	out := append([]dates.Candidate(nil), perSegment[idx]...)
	lo, hi := max(0, idx-dateRadius), min(len(perSegment)-1, idx+dateRadius)
	for j := lo; j <= hi; j++ {
		if j != idx {
			out = append(out, perSegment[j]...)
		}
	}
	return out
}

func candidateID(idx int, m patterns.Match) string {
	key := strconv.Itoa(idx) + "/" + m.RuleID + "/" + strconv.Itoa(m.Start)
	return uuid.NewSHA1(candidateNamespace, []byte(key)).String()
}
