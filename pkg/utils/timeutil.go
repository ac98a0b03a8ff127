package utils

import "time"

// IST is the Indian Standard Time location (UTC+5:30).
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// NowIST returns the current time in IST.
func NowIST() time.Time {
	return time.Now().In(IST)
}

// MarketOpenTime returns the NSE market opening time (9:15 AM IST) for a given date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(IST)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 15, 0, 0, IST)
}

// MarketCloseTime returns the NSE market closing time (3:30 PM IST) for a given date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(IST)
	return time.Date(d.Year(), d.Month(), d.Day(), 15, 30, 0, 0, IST)
}

// IsMarketOpenAt checks if the NSE market would be open at the given time.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(IST)

	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	if IsTradingHoliday(t) {
		return false
	}

	open := MarketOpenTime(t)
	close := MarketCloseTime(t)
	return !t.Before(open) && !t.After(close)
}

// IsMarketOpen checks if the NSE market is currently open.
func IsMarketOpen() bool {
	return IsMarketOpenAt(NowIST())
}

// MarketStatus returns a human-readable market status for the given time.
func MarketStatus(t time.Time) string {
	t = t.In(IST)

	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	if IsTradingHoliday(t) {
		return "CLOSED (" + nseHolidays2026[t.Format("2006-01-02")] + ")"
	}

	switch {
	case t.Before(MarketOpenTime(t)):
		return "PRE-MARKET"
	case t.After(MarketCloseTime(t)):
		return "CLOSED"
	default:
		return "OPEN"
	}
}

// IsTradingHoliday checks if the given date is an NSE trading holiday.
func IsTradingHoliday(t time.Time) bool {
	_, isHoliday := nseHolidays2026[t.In(IST).Format("2006-01-02")]
	return isHoliday
}

// FormatDateTimeIST formats a time.Time to "2006-01-02 15:04:05 IST".
func FormatDateTimeIST(t time.Time) string {
	return t.In(IST).Format("2006-01-02 15:04:05 IST")
}

// NSE trading holidays for 2026 (update annually).
// Source: NSE India circular.
var nseHolidays2026 = map[string]string{
	"2026-01-26": "Republic Day",
	"2026-02-17": "Mahashivratri",
	"2026-03-10": "Holi",
	"2026-03-30": "Id-ul-Fitr (Ramadan)",
	"2026-04-02": "Ram Navami",
	"2026-04-03": "Good Friday",
	"2026-04-14": "Dr. Ambedkar Jayanti",
	"2026-05-01": "Maharashtra Day",
	"2026-05-25": "Buddha Purnima",
	"2026-06-05": "Id-ul-Zuha (Bakri Id)",
	"2026-07-06": "Muharram",
	"2026-08-15": "Independence Day",
	"2026-08-18": "Parsi New Year",
	"2026-09-04": "Milad-un-Nabi",
	"2026-10-02": "Mahatma Gandhi Jayanti",
	"2026-10-20": "Dussehra",
	"2026-11-09": "Diwali (Laxmi Pujan)",
	"2026-11-10": "Diwali (Balipratipada)",
	"2026-11-30": "Guru Nanak Jayanti",
	"2026-12-25": "Christmas",
}
