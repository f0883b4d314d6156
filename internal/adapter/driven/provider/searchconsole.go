package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ewhitley/sitepulse/internal/domain/model"
	"github.com/ewhitley/sitepulse/internal/domain/port/driven"
)

// DefaultSearchConsoleBaseURL is the production search-performance API endpoint.
const DefaultSearchConsoleBaseURL = "https://searchconsole.googleapis.com"

// Compile-time interface satisfaction check.
var _ driven.Connector = (*SearchConsoleConnector)(nil)

// SearchConsoleConnector fetches daily search-performance measures (clicks,
// impressions, CTR, average position) for one verified site.
type SearchConsoleConnector struct {
	client  *Client
	baseURL string
}

// NewSearchConsoleConnector creates a connector against the given API base
// URL; pass DefaultSearchConsoleBaseURL in production.
func NewSearchConsoleConnector(client *Client, baseURL string) *SearchConsoleConnector {
	return &SearchConsoleConnector{client: client, baseURL: baseURL}
}

// Provider identifies the family this connector fetches for.
func (c *SearchConsoleConnector) Provider() model.Provider {
	return model.ProviderSearchConsole
}

// searchQueryRequest is the wire request for the search analytics query endpoint.
type searchQueryRequest struct {
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Dimensions []string `json:"dimensions"`
}

// searchQueryResponse is the wire response. With a single "date" dimension
// each row's Keys holds exactly the row's date.
type searchQueryResponse struct {
	Rows []struct {
		Keys        []string `json:"keys"`
		Clicks      int64    `json:"clicks"`
		Impressions int64    `json:"impressions"`
		CTR         float64  `json:"ctr"`
		Position    float64  `json:"position"`
	} `json:"rows"`
}

// FetchDailyMetrics pulls the site's daily search performance for the inclusive range.
func (c *SearchConsoleConnector) FetchDailyMetrics(ctx context.Context, accessToken, resourceID string, r model.DateRange) ([]model.DailyMetric, error) {
	endpoint := fmt.Sprintf("%s/v1/sites/%s/searchAnalytics/query", c.baseURL, url.PathEscape(resourceID))

	var resp searchQueryResponse
	err := c.client.postJSON(ctx, model.ProviderSearchConsole, endpoint, accessToken,
		searchQueryRequest{StartDate: r.Start, EndDate: r.End, Dimensions: []string{"date"}}, &resp)
	if err != nil {
		return nil, err
	}

	rows := make([]model.DailyMetric, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		if len(row.Keys) != 1 {
			return nil, fmt.Errorf("search row for site %q: expected 1 dimension key, got %d", resourceID, len(row.Keys))
		}
		rows = append(rows, model.DailyMetric{
			ConnectionID: resourceID,
			Provider:     model.ProviderSearchConsole,
			Date:         row.Keys[0],
			Clicks:       row.Clicks,
			Impressions:  row.Impressions,
			CTR:          row.CTR,
			AvgPosition:  row.Position,
		})
	}
	return rows, nil
}
