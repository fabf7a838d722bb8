package metrics

import "time"

// QuotaReservationGranted records an admitted reservation of n send units.
func QuotaReservationGranted(n int) {
	QuotaReservationsTotal.WithLabelValues("granted").Inc()
	QuotaUnitsReservedTotal.Add(float64(n))
}

// QuotaReservationDenied records a reservation rejected by the quota.
func QuotaReservationDenied() {
	QuotaReservationsTotal.WithLabelValues("denied").Inc()
}

// EmailSent records a message accepted by the SMTP server.
func EmailSent() {
	EmailsTotal.WithLabelValues("sent").Inc()
}

// EmailFailed records a message the SMTP server did not accept.
func EmailFailed() {
	EmailsTotal.WithLabelValues("failed").Inc()
}

// JobCompleted records a successful job completion.
func JobCompleted(jobType string, duration time.Duration) {
	JobsTotal.WithLabelValues(jobType, "completed").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobFailed records a job failure.
func JobFailed(jobType string) {
	JobsTotal.WithLabelValues(jobType, "failed").Inc()
}

// JobRetried records a job retry attempt.
func JobRetried(jobType string) {
	JobRetriesTotal.WithLabelValues(jobType).Inc()
}
