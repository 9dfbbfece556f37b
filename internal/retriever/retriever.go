// Package retriever pulls loan field snapshots from the origination API and
// writes them to the JSON ledger consumed by the report pipeline.
package retriever

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clearpeak-lending/report-cli/internal/config"
	"github.com/clearpeak-lending/report-cli/internal/fetcher"
	"github.com/clearpeak-lending/report-cli/internal/model"
)

// Client talks to the loan origination API.
type Client struct {
	http  *fetcher.HTTPClient
	cfg   config.RetrieverConfig
	token string
	now   func() time.Time
}

// NewClient creates a retriever client from configuration.
func NewClient(cfg config.RetrieverConfig) *Client {
	return &Client{
		http: fetcher.NewHTTPClient(fetcher.HTTPOptions{
			Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
			RateLimit: rate.Limit(cfg.RateLimit),
		}),
		cfg: cfg,
		now: time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Authenticate obtains an OAuth2 access token via the password grant and
// stores it for subsequent calls.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {"password"},
		"username":      {c.cfg.Username},
		"password":      {c.cfg.Password},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"scope":         {"lp"},
	}

	var resp tokenResponse
	if err := c.http.PostForm(ctx, c.cfg.APIServer+"/oauth2/v1/token", form, &resp); err != nil {
		return eris.Wrap(err, "retriever: obtain access token")
	}
	if resp.AccessToken == "" {
		return eris.New("retriever: token response missing access_token")
	}
	c.token = resp.AccessToken
	return nil
}

func (c *Client) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.token}
}

type pipelineEntry struct {
	LoanID string `json:"loanId"`
}

// LoanIDsByFolder queries the pipeline endpoint for all loan GUIDs in a folder.
func (c *Client) LoanIDsByFolder(ctx context.Context, folder string) ([]string, error) {
	if c.token == "" {
		return nil, eris.New("retriever: not authenticated")
	}

	body := map[string]any{
		"filter": map[string]any{
			"canonicalName": "Loan.LoanFolder",
			"value":         folder,
			"matchType":     "exact",
		},
		"orgType":       "Internal",
		"loanOwnership": "AllLoans",
	}

	var entries []pipelineEntry
	err := c.http.PostJSON(ctx, c.cfg.APIServer+"/encompass/v3/loanPipeline", c.authHeaders(), body, &entries)
	if err != nil {
		return nil, eris.Wrapf(err, "retriever: pipeline query for folder %s", folder)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.LoanID)
	}
	return ids, nil
}

// LoanFields fetches the configured field values for one loan.
func (c *Client) LoanFields(ctx context.Context, loanID string) (map[string]any, error) {
	if c.token == "" {
		return nil, eris.New("retriever: not authenticated")
	}

	u := fmt.Sprintf("%s/encompass/v3/loans/%s/fieldReader?invalidFieldBehavior=Include",
		c.cfg.APIServer, url.PathEscape(loanID))

	var fields map[string]any
	if err := c.http.PostJSON(ctx, u, c.authHeaders(), c.cfg.FieldIDs, &fields); err != nil {
		return nil, eris.Wrapf(err, "retriever: field reader for loan %s", loanID)
	}
	return fields, nil
}

// LastMonthRange returns the first and last day of the month preceding the
// reference point. A zero month means "relative to today"; a zero year with a
// nonzero month defaults to the current year.
func LastMonthRange(month, year int, now time.Time) (time.Time, time.Time) {
	ref := now
	if month != 0 {
		if year == 0 {
			year = now.Year()
		}
		ref = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	}

	firstOfThisMonth := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastOfLastMonth := firstOfThisMonth.AddDate(0, 0, -1)
	firstOfLastMonth := time.Date(lastOfLastMonth.Year(), lastOfLastMonth.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfLastMonth, lastOfLastMonth
}

// fundedInRange reports whether a raw funding-date string falls inside the
// inclusive range. Blank or unparsable values never match.
func fundedInRange(raw string, start, end time.Time) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	datePart := strings.Fields(raw)[0]
	funded, err := time.Parse("1/2/2006", datePart)
	if err != nil {
		zap.L().Warn("unparsable funding date during retrieval filter", zap.String("raw", raw))
		return false
	}
	return !funded.Before(start) && !funded.After(end)
}

// Retrieve walks every configured folder, fetches per-loan field data, and
// returns the combined snapshot. Loans in the closed folder are kept only if
// funded last month. A failed per-loan fetch is logged and skipped so one bad
// loan does not abort the batch.
func (c *Client) Retrieve(ctx context.Context, month, year int) ([]model.RawLoan, error) {
	start, end := LastMonthRange(month, year, c.now())

	var out []model.RawLoan
	for _, folder := range c.cfg.Folders {
		ids, err := c.LoanIDsByFolder(ctx, folder)
		if err != nil {
			return nil, err
		}
		zap.L().Info("folder loan ids retrieved",
			zap.String("folder", folder),
			zap.Int("count", len(ids)),
		)

		for _, id := range ids {
			fields, err := c.LoanFields(ctx, id)
			if err != nil {
				zap.L().Warn("skipping loan after fetch failure",
					zap.String("loan_id", id),
					zap.String("folder", folder),
					zap.Error(err),
				)
				continue
			}

			if folder == c.cfg.ClosedFolder {
				raw, _ := fields["1997"].(string)
				if !fundedInRange(raw, start, end) {
					continue
				}
			}

			out = append(out, model.RawLoan{
				LoanID: id,
				Folder: folder,
				Fields: fields,
			})
		}
	}
	return out, nil
}

// WriteSnapshot saves the retrieved loans as indented JSON at path.
func WriteSnapshot(path string, loans []model.RawLoan) error {
	data, err := json.MarshalIndent(loans, "", "  ")
	if err != nil {
		return eris.Wrap(err, "retriever: marshal snapshot")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "retriever: write snapshot %s", path)
	}
	return nil
}

// AnalyzeDateFields summarizes which YYYY-MM months each date field covers,
// per folder. Used as a sanity check on the retrieved window.
func AnalyzeDateFields(loans []model.RawLoan, dateFields []string) map[string]map[string][]string {
	seen := map[string]map[string]map[string]struct{}{}

	for _, loan := range loans {
		for _, fieldID := range dateFields {
			raw, _ := loan.Fields[fieldID].(string)
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			parsed, err := time.Parse("1/2/2006", strings.Fields(raw)[0])
			if err != nil {
				continue
			}
			month := parsed.Format("2006-01")

			if seen[loan.Folder] == nil {
				seen[loan.Folder] = map[string]map[string]struct{}{}
			}
			if seen[loan.Folder][fieldID] == nil {
				seen[loan.Folder][fieldID] = map[string]struct{}{}
			}
			seen[loan.Folder][fieldID][month] = struct{}{}
		}
	}

	out := make(map[string]map[string][]string, len(seen))
	for folder, byField := range seen {
		out[folder] = make(map[string][]string, len(byField))
		for fieldID, months := range byField {
			list := make([]string, 0, len(months))
			for m := range months {
				list = append(list, m)
			}
			sort.Strings(list)
			out[folder][fieldID] = list
		}
	}
	return out
}
