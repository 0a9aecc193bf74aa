// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

// histogramSample returns the sample count and sum of one histogram series.
func histogramSample(t *testing.T, obs prometheus.Observer) (uint64, float64) {
	t.Helper()
	h, ok := obs.(prometheus.Histogram)
	if !ok {
		t.Fatalf("observer %T is not a histogram", obs)
	}
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

func TestRecordCSVRow(t *testing.T) {
	before := testutil.ToFloat64(CSVRowsTotal.WithLabelValues("skipped"))
	RecordCSVRow("skipped")
	RecordCSVRow("skipped")
	if got := testutil.ToFloat64(CSVRowsTotal.WithLabelValues("skipped")) - before; got != 2 {
		t.Errorf("skipped rows delta = %v, want 2", got)
	}
}

func TestRecordDBQueryCountsErrors(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("select", "programs"))
	RecordDBQuery("select", "programs", time.Millisecond, nil)
	RecordDBQuery("select", "programs", time.Millisecond, errors.New("boom"))
	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("select", "programs")) - before; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestRecordUpstreamRequestStatusClass(t *testing.T) {
	tests := []struct {
		code int
		err  error
		want string
	}{
		{200, nil, "2xx"},
		{404, nil, "4xx"},
		{503, errors.New("unavailable"), "5xx"},
		{0, errors.New("dial"), "error"},
	}
	for _, tt := range tests {
		before := testutil.ToFloat64(UpstreamRequests.WithLabelValues("studio", tt.want))
		RecordUpstreamRequest("studio", tt.code, tt.err)
		if got := testutil.ToFloat64(UpstreamRequests.WithLabelValues("studio", tt.want)) - before; got != 1 {
			t.Errorf("code %d: %s delta = %v, want 1", tt.code, tt.want, got)
		}
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active = %v, want %v", got, before)
	}
}

func TestRecordSearchOperationObservesDuration(t *testing.T) {
	countBefore, sumBefore := histogramSample(t, SearchDuration.WithLabelValues("set_alias"))
	failuresBefore := testutil.ToFloat64(SearchOperations.WithLabelValues("set_alias", "failure"))

	RecordSearchOperation("set_alias", 250*time.Millisecond, nil)
	RecordSearchOperation("set_alias", 750*time.Millisecond, errors.New("index_not_found_exception"))

	count, sum := histogramSample(t, SearchDuration.WithLabelValues("set_alias"))
	if count-countBefore != 2 {
		t.Errorf("sample count delta = %d, want 2", count-countBefore)
	}
	if got := sum - sumBefore; got < 0.99 || got > 1.01 {
		t.Errorf("sample sum delta = %v, want 1s", got)
	}
	if got := testutil.ToFloat64(SearchOperations.WithLabelValues("set_alias", "failure")) - failuresBefore; got != 1 {
		t.Errorf("failure delta = %v, want 1", got)
	}
}
