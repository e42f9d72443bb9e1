package dates

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var mentionsMonth = regexp.MustCompile(`(?i)\b(?:` + monthAlt + `)\b`)

// WhenParser implements AdvancedParser with the olebedev/when rule engine.
type WhenParser struct {
	parser *when.Parser
}

// NewWhenParser creates a parser loaded with English and common rules.
func NewWhenParser() *WhenParser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &WhenParser{parser: w}
}

// ParseDate resolves phrase relative to ref. With preferFuture, results that
// fall before ref's day are rolled forward by a year when the phrase names a
// month and by a week otherwise.
func (p *WhenParser) ParseDate(ctx context.Context, phrase string, ref time.Time, preferFuture bool) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}

	r, err := p.parser.Parse(phrase, ref)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing %q: %w", phrase, err)
	}
	if r == nil {
		return time.Time{}, false, nil
	}

	t := r.Time
	if preferFuture && t.Before(midnight(ref)) {
		if mentionsMonth.MatchString(phrase) {
			t = t.AddDate(1, 0, 0)
		} else {
			t = t.AddDate(0, 0, 7)
		}
	}
	return t, true, nil
}

var _ AdvancedParser = (*WhenParser)(nil)
