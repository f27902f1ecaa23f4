package us

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

// Closes are considered settled once extended hours have wrapped up.
const settleHour, settleMinute = 20, 5

// LatestFinishedTradingDay asks the Alpaca trading calendar for the most
// recent session whose close has settled. Today counts only after 20:05 ET;
// before that the previous session is returned.
func LatestFinishedTradingDay(apiKey, apiSecret, baseURL string) (time.Time, error) {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Time{}, fmt.Errorf("loading ET timezone: %w", err)
	}
	now := time.Now().In(et)

	// A week of lookback always spans at least one session, holidays included.
	days, err := client.GetCalendar(alpaca.GetCalendarRequest{
		Start: now.AddDate(0, 0, -7),
		End:   now,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("GetCalendar: %w", err)
	}
	if len(days) == 0 {
		return time.Time{}, fmt.Errorf("no trading days returned from calendar")
	}

	today := now.Format("2006-01-02")
	settled := now.After(time.Date(now.Year(), now.Month(), now.Day(), settleHour, settleMinute, 0, 0, et))

	for i := len(days) - 1; i >= 0; i-- {
		if days[i].Date == today && !settled {
			continue
		}
		d, err := time.Parse("2006-01-02", days[i].Date)
		if err != nil || !d.Before(now) {
			continue
		}
		return d, nil
	}
	return time.Time{}, fmt.Errorf("could not determine latest finished trading day")
}
