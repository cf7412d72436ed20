package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveVerificationAndSubmission(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClaimsMetrics(reg)

	m.ObserveVerification("NHIF", "success")
	m.ObserveVerification("NHIF", "success")
	m.ObserveVerification("JUBILEE", "InvalidMemberId")
	m.ObserveSubmission("NHIF", "submitted")

	if got := testutil.ToFloat64(m.verificationsTotal.WithLabelValues("NHIF", "success")); got != 2 {
		t.Errorf("verifications NHIF/success: got %v want 2", got)
	}
	if got := testutil.ToFloat64(m.verificationsTotal.WithLabelValues("JUBILEE", "InvalidMemberId")); got != 1 {
		t.Errorf("verifications JUBILEE/InvalidMemberId: got %v want 1", got)
	}
	if got := testutil.ToFloat64(m.submissionsTotal.WithLabelValues("NHIF", "submitted")); got != 1 {
		t.Errorf("submissions NHIF/submitted: got %v want 1", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *ClaimsMetrics
	m.ObserveVerification("NHIF", "success")
	m.ObserveSubmission("NHIF", "submitted")
	m.ObserveUpstreamLatency("NHIF", "GetCardDetails", 0.1)
}
