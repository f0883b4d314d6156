package model

import "time"

// DateLayout is the wire and storage format for metric dates. Dates are plain
// calendar days with no timezone component; the sync window is computed in UTC.
const DateLayout = "2006-01-02"

// DateRange is an inclusive [Start, End] range of calendar dates, each in
// DateLayout format. Connectors must pass the range through to the provider
// verbatim, never widening or narrowing it.
type DateRange struct {
	Start string
	End   string
}

// BackfillWindow returns the trailing range of the given number of days ending
// at now's UTC calendar date. days must be at least 1; a window of 1 covers
// today only.
func BackfillWindow(now time.Time, days int) DateRange {
	end := now.UTC()
	start := end.AddDate(0, 0, -(days - 1))
	return DateRange{
		Start: start.Format(DateLayout),
		End:   end.Format(DateLayout),
	}
}

// DailyMetric is one day of measures for one connection. The tuple
// (TenantID, ConnectionID, Date, Provider) is the natural key: re-syncing the
// same day overwrites the row rather than appending a duplicate.
//
// The measure columns are the union across provider families; a connector
// fills only its own family's measures and leaves the rest zero. Measures the
// provider omitted from its response are zero, not absent.
type DailyMetric struct {
	TenantID     string
	ConnectionID string // Connection.ResourceID of the originating connection.
	Provider     Provider
	Date         string // DateLayout.

	// Web analytics.
	Sessions    int64
	ActiveUsers int64
	PageViews   int64

	// Search performance.
	Clicks      int64
	Impressions int64
	CTR         float64
	AvgPosition float64

	// Business listings.
	CallClicks        int64
	WebsiteClicks     int64
	DirectionRequests int64
	ProfileViews      int64
}
