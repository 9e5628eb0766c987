package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposed(t *testing.T) {
	Init()
	Init()

	IncUpload("success", "electricity")
	ObservePhase("aggregate", 20*time.Millisecond)
	AddNodeRecords("consumption", 3)
	AddNodeWarnings(1)
	IncAIMapping("")
	SetReadiness("7", 0.84)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`energypassport_uploads_total{resource="electricity",status="success"}`,
		`energypassport_balance_node_records_total{data_type="consumption"} 3`,
		`energypassport_ai_mapping_calls_total{result="unknown"}`,
		`energypassport_readiness_completeness_score{enterprise="7"} 0.84`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
