// Package status derives the urgency bucket shown next to every contract.
//
// The rule is deliberately year-blind: a contract planned for month 3 is
// judged against the current calendar month alone, recurring every service
// year. That is correct for a yearly maintenance cycle but means there is no
// year boundary; the annual reset of the executed flag is a separate batch
// operation, not part of this classification.
package status

import (
	"time"
)

type Bucket string

const (
	BucketExecuted Bucket = "EXECUTED"
	BucketCritical Bucket = "CRITICAL"
	BucketUpcoming Bucket = "UPCOMING"
	BucketFuture   Bucket = "FUTURE"
)

// Classify buckets a contract by planned month against the current month.
// Executed always wins. A planned month at or before the current month is
// Critical: "due this month" and "overdue" are intentionally one bucket.
// The next two months (with December wraparound) are Upcoming.
func Classify(plannedMonth int, isExecuted bool, now time.Time) Bucket {
	if isExecuted {
		return BucketExecuted
	}

	current := int(now.Month())
	next1 := current%12 + 1
	next2 := next1%12 + 1

	switch {
	case plannedMonth <= current:
		return BucketCritical
	case plannedMonth == next1 || plannedMonth == next2:
		return BucketUpcoming
	default:
		return BucketFuture
	}
}
