package licenses

import (
	"context"
	"strings"
	"time"

	"github.com/stackaudit/stackaudit/pkg/aggregator"
	"github.com/stackaudit/stackaudit/pkg/cache"
	"github.com/stackaudit/stackaudit/pkg/httputil"
	"github.com/stackaudit/stackaudit/pkg/integrations"
)

const scoringPath = "/api/v1/stack_license"

// Client submits scoring payloads to the license scoring service.
// It implements [aggregator.LicenseAnalyzer].
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a license scoring client. baseURL is the service
// root; the scoring endpoint path is appended per request.
func NewClient(baseURL string) *Client {
	return &Client{
		Client:  integrations.NewClient(cache.NewNullCache(), time.Hour, nil),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

type scoringRequest struct {
	Packages []aggregator.LicenseScoringInput `json:"packages"`
}

// StackLicense submits one manifest's scoring payload and returns the
// service's verdict. Transient failures are retried with backoff; the
// returned error reflects the final attempt.
func (c *Client) StackLicense(ctx context.Context, packages []aggregator.LicenseScoringInput) (*aggregator.ScoringResponse, error) {
	var resp aggregator.ScoringResponse
	err := httputil.RetryWithBackoff(ctx, func() error {
		return c.PostJSON(ctx, c.baseURL+scoringPath, scoringRequest{Packages: packages}, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
