package blogs

import "time"

// RetentionPeriod is how long a soft-deleted record survives before purge.
const RetentionPeriod = 7 * 24 * time.Hour

// SoftDelete returns a copy of records with DeletedAt set to now on the record
// matching id. Unknown ids leave the collection unchanged.
func SoftDelete(records []Blog, id string, now time.Time) []Blog {
	out := make([]Blog, len(records))
	for i, b := range records {
		if b.ID == id {
			b.DeletedAt = now
		}
		out[i] = b
	}
	return out
}

// Expired reports whether b is soft-deleted and past its retention window.
func Expired(b Blog, now time.Time) bool {
	return !b.Active() && now.Sub(b.DeletedAt) >= RetentionPeriod
}

// PurgeExpired drops every expired record. The bool reports whether anything
// was dropped so callers can skip a redundant write.
func PurgeExpired(records []Blog, now time.Time) ([]Blog, bool) {
	survivors := make([]Blog, 0, len(records))
	for _, b := range records {
		if Expired(b, now) {
			continue
		}
		survivors = append(survivors, b)
	}
	return survivors, len(survivors) != len(records)
}
