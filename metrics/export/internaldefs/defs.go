package internaldefs

import (
	goIdentity "github.com/MrEthical07/goIdentity"
)

// CounterDef names one client counter.
type CounterDef struct {
	ID   goIdentity.MetricID
	Name string
	Help string
}

// HistogramDef names one client latency histogram.
type HistogramDef struct {
	ID   goIdentity.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "goidentity_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

var CounterDefs = []CounterDef{
	{ID: goIdentity.MetricInitSuccess, Name: "goidentity_init_success_total", Help: "Handshakes that produced an authenticated session."},
	{ID: goIdentity.MetricInitFailure, Name: "goidentity_init_failure_total", Help: "Handshakes that were rejected or aborted."},
	{ID: goIdentity.MetricLoginSuccess, Name: "goidentity_login_success_total", Help: "Successful logins."},
	{ID: goIdentity.MetricLoginFailure, Name: "goidentity_login_failure_total", Help: "Rejected logins."},
	{ID: goIdentity.MetricLogout, Name: "goidentity_logout_total", Help: "Logouts of an authenticated session."},
	{ID: goIdentity.MetricLogoutFailure, Name: "goidentity_logout_failure_total", Help: "Provider logouts that failed, including releases of superseded sessions."},
	{ID: goIdentity.MetricRefreshSuccess, Name: "goidentity_refresh_success_total", Help: "Token refreshes that installed a new access token."},
	{ID: goIdentity.MetricRefreshFailure, Name: "goidentity_refresh_failure_total", Help: "Token refreshes that left the session unchanged."},
	{ID: goIdentity.MetricRefreshSkipped, Name: "goidentity_refresh_skipped_total", Help: "Refresh calls answered without a provider round trip."},
	{ID: goIdentity.MetricRefreshCoalesced, Name: "goidentity_refresh_coalesced_total", Help: "Refresh calls that joined an in-flight refresh."},
	{ID: goIdentity.MetricTokenCleared, Name: "goidentity_token_cleared_total", Help: "Local token clears."},
	{ID: goIdentity.MetricStoreFailure, Name: "goidentity_store_failure_total", Help: "Session store writes or deletes that failed."},
	{ID: goIdentity.MetricRoleGranted, Name: "goidentity_role_granted_total", Help: "Role checks that matched."},
	{ID: goIdentity.MetricRoleDenied, Name: "goidentity_role_denied_total", Help: "Role checks that did not match."},
	{ID: goIdentity.MetricBearerAccepted, Name: "goidentity_bearer_accepted_total", Help: "Inbound bearer tokens that verified."},
	{ID: goIdentity.MetricBearerRejected, Name: "goidentity_bearer_rejected_total", Help: "Inbound bearer tokens that failed verification."},
}

var HistogramDefs = []HistogramDef{
	{ID: goIdentity.MetricInitLatency, Name: "goidentity_init_latency_seconds", Help: "Init handshake latency."},
	{ID: goIdentity.MetricRefreshLatency, Name: "goidentity_refresh_latency_seconds", Help: "Provider refresh latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds; the last
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// HistogramBoundSuffix names every bucket, +Inf included, for exporters that
// publish one gauge per bucket.
var HistogramBoundSuffix = []string{
	"0_01",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
