package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/waftester/bountyscout/pkg/jsonutil"
	"github.com/waftester/bountyscout/pkg/model"
)

// FetchScope pages through the structured scope of handle. A failing page
// ends paging for this program; the items fetched before it are kept and
// the cause is logged. onPage, when set, receives the running item count
// after every page. With limit > 0 a larger set is shuffled and cut.
func (c *Client) FetchScope(ctx context.Context, creds model.Credentials, handle string, limit int, onPage func(count int)) []model.RawScope {
	path := "/hackers/programs/" + url.PathEscape(handle) + "/structured_scopes"
	logger := c.logger.With(slog.String("program", handle))

	var scopes []model.RawScope
	for number := 1; ; number++ {
		pg, err := c.getPage(ctx, creds, path, c.pageSize, number)
		if err != nil {
			logScopeFailure(logger, err)
			break
		}

		for _, item := range pg.items {
			var s model.RawScope
			if err := jsonutil.Unmarshal([]byte(item.Raw), &s); err != nil {
				logger.Warn("skipping undecodable scope item", slog.String("error", err.Error()))
				continue
			}
			scopes = append(scopes, s)
		}
		if onPage != nil {
			onPage(len(scopes))
		}

		if !pg.next {
			break
		}
	}

	if limit > 0 && len(scopes) > limit {
		logger.Info("limiting scope targets",
			slog.Int("fetched", len(scopes)),
			slog.Int("limit", limit))
	}
	return Sample(scopes, limit, c.shuffler)
}

func logScopeFailure(logger *slog.Logger, err error) {
	var se *StatusError
	switch {
	case errors.As(err, &se) && se.StatusCode == http.StatusNotFound:
		logger.Info("no structured scope, may be VDP or private")
	case errors.As(err, &se) && se.StatusCode == http.StatusForbidden:
		logger.Info("structured scope forbidden")
	case errors.As(err, &se):
		logger.Warn("scope fetch failed", slog.String("status", se.Status))
	default:
		logger.Warn("network error fetching scope", slog.String("error", err.Error()))
	}
}
