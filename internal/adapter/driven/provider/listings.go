package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ewhitley/sitepulse/internal/domain/model"
	"github.com/ewhitley/sitepulse/internal/domain/port/driven"
)

// DefaultListingsBaseURL is the production business-listings API endpoint.
const DefaultListingsBaseURL = "https://businessprofile.googleapis.com"

// Compile-time interface satisfaction check.
var _ driven.Connector = (*ListingsConnector)(nil)

// ListingsConnector fetches daily business-listing measures (call clicks,
// website clicks, direction requests, profile views) for one location.
type ListingsConnector struct {
	client  *Client
	baseURL string
}

// NewListingsConnector creates a connector against the given API base URL;
// pass DefaultListingsBaseURL in production.
func NewListingsConnector(client *Client, baseURL string) *ListingsConnector {
	return &ListingsConnector{client: client, baseURL: baseURL}
}

// Provider identifies the family this connector fetches for.
func (c *ListingsConnector) Provider() model.Provider {
	return model.ProviderListings
}

// listingsMetricsResponse is the wire response for the daily metrics endpoint.
type listingsMetricsResponse struct {
	Days []struct {
		Date              string `json:"date"`
		CallClicks        int64  `json:"callClicks"`
		WebsiteClicks     int64  `json:"websiteClicks"`
		DirectionRequests int64  `json:"directionRequests"`
		Views             int64  `json:"views"`
	} `json:"days"`
}

// FetchDailyMetrics pulls the location's daily metrics for the inclusive range.
func (c *ListingsConnector) FetchDailyMetrics(ctx context.Context, accessToken, resourceID string, r model.DateRange) ([]model.DailyMetric, error) {
	endpoint := fmt.Sprintf("%s/v1/locations/%s/dailyMetrics?startDate=%s&endDate=%s",
		c.baseURL, url.PathEscape(resourceID), url.QueryEscape(r.Start), url.QueryEscape(r.End))

	var resp listingsMetricsResponse
	if err := c.client.getJSON(ctx, model.ProviderListings, endpoint, accessToken, &resp); err != nil {
		return nil, err
	}

	rows := make([]model.DailyMetric, 0, len(resp.Days))
	for _, day := range resp.Days {
		rows = append(rows, model.DailyMetric{
			ConnectionID:      resourceID,
			Provider:          model.ProviderListings,
			Date:              day.Date,
			CallClicks:        day.CallClicks,
			WebsiteClicks:     day.WebsiteClicks,
			DirectionRequests: day.DirectionRequests,
			ProfileViews:      day.Views,
		})
	}
	return rows, nil
}
