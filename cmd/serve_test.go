package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyant-travel/itinerary-cli/internal/model"
	"github.com/voyant-travel/itinerary-cli/internal/pipeline"
)

type plannerStub struct {
	result *model.PlanResult
	err    error
	lastDoc pipeline.Document
}

func (s *plannerStub) Run(ctx context.Context, doc pipeline.Document) (*model.PlanResult, error) {
	s.lastDoc = doc
	return s.result, s.err
}

func postPlan(t *testing.T, handler http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/plan", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router := newRouter(&plannerStub{}, func() int { return 7 })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","route_cache_entries":7}`, rec.Body.String())
}

func TestPlanEndpoint_Success(t *testing.T) {
	stub := &plannerStub{result: &model.PlanResult{
		Itinerary: &model.Itinerary{Summary: "1 day, 2 stops"},
		Report:    model.RunReport{RunID: "run-1"},
	}}
	router := newRouter(stub, func() int { return 0 })

	rec := postPlan(t, router, planRequest{Text: "Day 1 Xi'an"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Day 1 Xi'an", stub.lastDoc.Text)

	var result model.PlanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "run-1", result.Report.RunID)
	assert.Equal(t, "1 day, 2 stops", result.Itinerary.Summary)
}

func TestPlanEndpoint_ImagePassedThrough(t *testing.T) {
	stub := &plannerStub{result: &model.PlanResult{Report: model.RunReport{RunID: "run-2"}}}
	router := newRouter(stub, func() int { return 0 })

	rec := postPlan(t, router, planRequest{
		Image:          []byte{0x89, 0x50, 0x4E, 0x47},
		ImageMediaType: "image/png",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, stub.lastDoc.Image)
	assert.Equal(t, "image/png", stub.lastDoc.ImageMediaType)
}

func TestPlanEndpoint_NoContent(t *testing.T) {
	stub := &plannerStub{err: pipeline.ErrNoContent}
	router := newRouter(stub, func() int { return 0 })

	rec := postPlan(t, router, planRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "text or image")
}

func TestPlanEndpoint_ExtractionFailed(t *testing.T) {
	stub := &plannerStub{err: eris.Wrap(pipeline.ErrExtractionFailed, "pipeline: extraction")}
	router := newRouter(stub, func() int { return 0 })

	rec := postPlan(t, router, planRequest{Text: "nothing useful"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPlanEndpoint_InternalError(t *testing.T) {
	stub := &plannerStub{err: eris.New("boom")}
	router := newRouter(stub, func() int { return 0 })

	rec := postPlan(t, router, planRequest{Text: "x"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal error")
}

func TestPlanEndpoint_BadJSON(t *testing.T) {
	router := newRouter(&plannerStub{}, func() int { return 0 })

	req := httptest.NewRequest(http.MethodPost, "/plan", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
