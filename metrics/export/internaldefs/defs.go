package internaldefs

import (
	"github.com/MrEthical07/authclient"
)

// CounterDef maps a client counter to its exported name.
type CounterDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// HistogramDef maps a client histogram to its exported name.
type HistogramDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authclient.MetricLoginSuccess, Name: "authclient_login_success_total", Help: "Logins that stored a session."},
	{ID: authclient.MetricLoginFailure, Name: "authclient_login_failure_total", Help: "Rejected or failed logins."},
	{ID: authclient.MetricSignupSuccess, Name: "authclient_signup_success_total", Help: "Created accounts."},
	{ID: authclient.MetricSignupFailure, Name: "authclient_signup_failure_total", Help: "Rejected signups."},
	{ID: authclient.MetricRefreshCall, Name: "authclient_refresh_call_total", Help: "Refresh requests sent to the API."},
	{ID: authclient.MetricRefreshShared, Name: "authclient_refresh_shared_total", Help: "Callers that joined a refresh already in flight."},
	{ID: authclient.MetricRefreshCoalesced, Name: "authclient_refresh_coalesced_total", Help: "Refreshes skipped because the access token had already been replaced."},
	{ID: authclient.MetricRefreshSuccess, Name: "authclient_refresh_success_total", Help: "Refreshes that replaced the session."},
	{ID: authclient.MetricRefreshUnauthenticated, Name: "authclient_refresh_unauthenticated_total", Help: "Refreshes rejected by the API."},
	{ID: authclient.MetricRefreshTransient, Name: "authclient_refresh_transient_total", Help: "Refreshes that failed transiently."},
	{ID: authclient.MetricRefreshProactive, Name: "authclient_refresh_proactive_total", Help: "Refreshes started before the access token expired."},
	{ID: authclient.MetricRequest, Name: "authclient_request_total", Help: "Logical authenticated requests."},
	{ID: authclient.MetricRequestRetry, Name: "authclient_request_retry_total", Help: "Resends after a 401."},
	{ID: authclient.MetricSessionExpired, Name: "authclient_session_expired_total", Help: "Requests that ended with an expired session."},
	{ID: authclient.MetricNoSession, Name: "authclient_no_session_total", Help: "Requests rejected because no session was stored."},
	{ID: authclient.MetricNetworkFailure, Name: "authclient_network_failure_total", Help: "Transport failures."},
	{ID: authclient.MetricLogout, Name: "authclient_logout_total", Help: "Local logouts."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authclient.MetricRequestLatency, Name: "authclient_request_latency_seconds", Help: "Latency of logical authenticated requests, retries included."},
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const (
	AuditDroppedName = "authclient_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the bucket upper bounds in seconds, +Inf last.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramUpperBounds are the finite bounds of HistogramBounds as numbers.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets copies raw into a fixed-width array, padding with zeros.
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
