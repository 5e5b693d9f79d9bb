package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handaas/patent-bigdata-mcp/internal/domain/audit"
)

type stubLister struct {
	records []audit.CallRecord
	err     error
	limit   int
}

func (s *stubLister) List(_ context.Context, limit int) ([]audit.CallRecord, error) {
	s.limit = limit
	return s.records, s.err
}

func TestCallHandler_ListCalls(t *testing.T) {
	t.Parallel()

	lister := &stubLister{records: []audit.CallRecord{{
		ID:        "c-1",
		Tool:      "patent_bigdata_fuzzy_search",
		ProductID: "675cea1f0e009a9ea37edaa1",
		Outcome:   "failed",
		Cause:     "timeout",
		Duration:  250 * time.Millisecond,
		CreatedAt: time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC),
	}}}
	h := NewCallHandler(lister, nil)

	rr := httptest.NewRecorder()
	h.ListCalls(rr, httptest.NewRequest(http.MethodGet, "/calls?limit=5", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, lister.limit)

	var body struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "c-1", body.Data[0]["id"])
	assert.Equal(t, "timeout", body.Data[0]["cause"])
	assert.EqualValues(t, 250, body.Data[0]["durationMs"])
	assert.Equal(t, "2025-02-03T04:05:06Z", body.Data[0]["createdAt"])
}

func TestCallHandler_ListCalls_InvalidLimitUsesDefault(t *testing.T) {
	t.Parallel()

	lister := &stubLister{}
	rr := httptest.NewRecorder()
	NewCallHandler(lister, nil).ListCalls(rr, httptest.NewRequest(http.MethodGet, "/calls?limit=abc", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, lister.limit)
	assert.JSONEq(t, `{"data":[],"meta":{"total":0}}`, rr.Body.String())
}

func TestCallHandler_ListCalls_StoreError(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NewCallHandler(&stubLister{err: errors.New("disk full")}, nil).
		ListCalls(rr, httptest.NewRequest(http.MethodGet, "/calls", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
