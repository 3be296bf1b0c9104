package gremlin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stackaudit/stackaudit/pkg/aggregator"
	"github.com/stackaudit/stackaudit/pkg/cache"
	"github.com/stackaudit/stackaudit/pkg/errors"
	"github.com/stackaudit/stackaudit/pkg/integrations"
)

// Client queries the graph metadata store's Gremlin HTTP endpoint.
// It implements [aggregator.GraphClient].
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	url string
}

// NewClient creates a graph store client. url is the Gremlin HTTP
// endpoint; backend and cacheTTL configure response caching (use
// [cache.NewNullCache] to disable).
func NewClient(url string, backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client: integrations.NewClient(backend, cacheTTL, nil),
		url:    strings.TrimSuffix(url, "/"),
	}
}

type gremlinQuery struct {
	Gremlin string `json:"gremlin"`
}

type queryResponse struct {
	Result queryResult `json:"result"`
}

type queryResult struct {
	Data []aggregator.RawRecord `json:"data"`
}

// Records fetches the raw metadata records for one dependency. A version
// the store has never seen yields an empty slice, not an error.
func (c *Client) Records(ctx context.Context, ecosystem, name, version string) ([]aggregator.RawRecord, error) {
	ecosystem = strings.ToLower(strings.TrimSpace(ecosystem))
	if err := errors.ValidateEcosystem(ecosystem); err != nil {
		return nil, err
	}
	if err := errors.ValidatePackageName(name); err != nil {
		return nil, err
	}
	if err := errors.ValidatePackageName(version); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid version %q", version)
	}

	key := cache.Key("graph", ecosystem, name, version)

	var resp queryResponse
	err := c.Cached(ctx, "graph", key, false, &resp, func() error {
		return c.PostJSON(ctx, c.url, gremlinQuery{Gremlin: buildQuery(ecosystem, name, version)}, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.Result.Data, nil
}

// buildQuery assembles the traversal selecting the version vertex and its
// owning package vertex. Inputs must already be validated.
func buildQuery(ecosystem, name, version string) string {
	return fmt.Sprintf(
		"g.V().has('pecosystem', '%s').has('pname', '%s').has('version', '%s')"+
			".as('version').in('has_version').as('package')"+
			".select('version','package').by(valueMap());",
		ecosystem, name, version)
}
