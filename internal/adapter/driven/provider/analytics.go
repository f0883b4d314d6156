package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ewhitley/sitepulse/internal/domain/model"
	"github.com/ewhitley/sitepulse/internal/domain/port/driven"
)

// DefaultAnalyticsBaseURL is the production web-analytics API endpoint.
const DefaultAnalyticsBaseURL = "https://analyticsdata.googleapis.com"

// Compile-time interface satisfaction check.
var _ driven.Connector = (*AnalyticsConnector)(nil)

// AnalyticsConnector fetches daily web-analytics measures (sessions, active
// users, page views) for one property.
type AnalyticsConnector struct {
	client  *Client
	baseURL string
}

// NewAnalyticsConnector creates a connector against the given API base URL;
// pass DefaultAnalyticsBaseURL in production.
func NewAnalyticsConnector(client *Client, baseURL string) *AnalyticsConnector {
	return &AnalyticsConnector{client: client, baseURL: baseURL}
}

// Provider identifies the family this connector fetches for.
func (c *AnalyticsConnector) Provider() model.Provider {
	return model.ProviderAnalytics
}

// analyticsReportRequest is the wire request for the daily report endpoint.
type analyticsReportRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// analyticsReportResponse is the wire response. The API reports dates in
// compact YYYYMMDD form; measures it has no data for are omitted.
type analyticsReportResponse struct {
	Rows []struct {
		Date        string `json:"date"`
		Sessions    int64  `json:"sessions"`
		ActiveUsers int64  `json:"activeUsers"`
		PageViews   int64  `json:"screenPageViews"`
	} `json:"rows"`
}

// FetchDailyMetrics pulls the property's daily report for the inclusive range.
func (c *AnalyticsConnector) FetchDailyMetrics(ctx context.Context, accessToken, resourceID string, r model.DateRange) ([]model.DailyMetric, error) {
	endpoint := fmt.Sprintf("%s/v1/properties/%s:runDailyReport", c.baseURL, url.PathEscape(resourceID))

	var resp analyticsReportResponse
	err := c.client.postJSON(ctx, model.ProviderAnalytics, endpoint, accessToken,
		analyticsReportRequest{StartDate: r.Start, EndDate: r.End}, &resp)
	if err != nil {
		return nil, err
	}

	rows := make([]model.DailyMetric, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		date, err := normalizeCompactDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("analytics row for property %q: %w", resourceID, err)
		}
		rows = append(rows, model.DailyMetric{
			ConnectionID: resourceID,
			Provider:     model.ProviderAnalytics,
			Date:         date,
			Sessions:     row.Sessions,
			ActiveUsers:  row.ActiveUsers,
			PageViews:    row.PageViews,
		})
	}
	return rows, nil
}

// normalizeCompactDate converts the API's YYYYMMDD dates to DateLayout.
// Already-dashed dates pass through unchanged.
func normalizeCompactDate(s string) (string, error) {
	if len(s) == len(model.DateLayout) {
		return s, nil
	}
	if len(s) != 8 {
		return "", fmt.Errorf("unrecognized date %q", s)
	}
	return s[0:4] + "-" + s[4:6] + "-" + s[6:8], nil
}
