package common

import "time"

const (
	// Topics of the referral event stream.
	TopicReferralRecorded = "referral.recorded"
	TopicWeekClosed       = "closure.week"
	TopicMonthClosed      = "closure.month"

	// Telegram callback data prefix of a destination selection.
	DestinationCallbackPrefix = "website_"

	// Period label of a monthly closure, e.g. "June 2023".
	PeriodLabelLayout = "January 2006"
	ReportDateLayout  = "2006-01-02"

	LeaderboardSize   = 3
	RevalidationBatch = 200
)

// PeriodLabel names the month which contains t.
func PeriodLabel(t time.Time) string {
	return t.Format(PeriodLabelLayout)
}
