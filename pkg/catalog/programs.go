package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/waftester/bountyscout/pkg/jsonutil"
	"github.com/waftester/bountyscout/pkg/model"
)

// Requirements are optional program predicates. Unset fields pass.
type Requirements struct {
	Submission bool `json:"requireSubmission"`
	Bounties   bool `json:"requireBounties"`
	OpenScope  bool `json:"requireOpenScope"`
	SafeHarbor bool `json:"requireSafeHarbor"`
}

// Active reports whether any requirement is set.
func (r Requirements) Active() bool {
	return r.Submission || r.Bounties || r.OpenScope || r.SafeHarbor
}

// Match reports whether a satisfies every set requirement.
func (r Requirements) Match(a model.ProgramAttributes) bool {
	if r.Submission && a.SubmissionState != "open" {
		return false
	}
	if r.Bounties && !a.OffersBounties {
		return false
	}
	if r.OpenScope && !a.OpenScope {
		return false
	}
	if r.SafeHarbor && !a.GoldStandardSafeHarbor {
		return false
	}
	return true
}

// FetchPrograms pages through the program list.
//
// With requirements active, only qualifying programs are returned and
// paging stops early once limit qualifying programs were seen. With
// limit > 0 a larger working set is shuffled and cut to limit. Any page
// failure aborts with ErrUpstream; no partial list is returned.
func (c *Client) FetchPrograms(ctx context.Context, creds model.Credentials, req Requirements, limit int) ([]model.RawProgram, error) {
	var all, qualifying []model.RawProgram
	active := req.Active()

	for number := 1; ; number++ {
		if active && limit > 0 && len(qualifying) >= limit {
			c.logger.Info("enough qualifying programs, stopping fetch",
				slog.Int("qualifying", len(qualifying)))
			break
		}

		pg, err := c.getPage(ctx, creds, "/hackers/programs", c.pageSize, number)
		if err != nil {
			return nil, upstreamError(number, err)
		}

		for _, item := range pg.items {
			if item.Get("attributes.handle").String() == "" {
				continue
			}
			var p model.RawProgram
			if err := jsonutil.Unmarshal([]byte(item.Raw), &p); err != nil {
				c.logger.Warn("skipping undecodable program",
					slog.String("handle", item.Get("attributes.handle").String()),
					slog.String("error", err.Error()))
				continue
			}
			all = append(all, p)
			if active && req.Match(p.Attributes) {
				qualifying = append(qualifying, p)
			}
		}
		c.logger.Debug("program page fetched",
			slog.Int("page", number),
			slog.Int("items", len(pg.items)),
			slog.Int("total", len(all)))

		if !pg.next {
			break
		}
	}

	if len(all) == 0 {
		return nil, ErrNoPrograms
	}

	working := all
	if active {
		if len(qualifying) == 0 {
			return nil, ErrNoQualifyingPrograms
		}
		working = qualifying
	}

	selected := Sample(working, limit, c.shuffler)
	c.logger.Info("programs selected",
		slog.Int("fetched", len(all)),
		slog.Int("qualifying", len(qualifying)),
		slog.Int("selected", len(selected)))
	return selected, nil
}

func upstreamError(number int, err error) error {
	var se *StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
		return fmt.Errorf("%w: %w: page %d: %w", ErrUpstream, ErrUnauthorized, number, err)
	}
	return fmt.Errorf("%w: page %d: %w", ErrUpstream, number, err)
}
