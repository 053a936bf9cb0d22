package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConfigHandler_Get(t *testing.T) {
	cfg := testConfig()
	cfg.Profile.Path = "profile.yaml"
	handler := NewConfigHandler(cfg, testMatcher(t))

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/config", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var result ConfigResponse
	parseJSONResponse(t, recorder, &result)

	if result.Capture.IntervalMs != 3600000 {
		t.Errorf("expected interval 3600000ms, got %d", result.Capture.IntervalMs)
	}
	if result.Capture.FrameWidth != 100 || result.Capture.InputSize != 160 {
		t.Errorf("unexpected capture info %+v", result.Capture)
	}
	if result.Match.Threshold != 0.6 || result.Match.Strategy != "mean" {
		t.Errorf("unexpected match info %+v", result.Match)
	}
	if result.Profile.Source != "file" {
		t.Errorf("expected file source, got %s", result.Profile.Source)
	}
	if len(result.Profile.Labels) != 2 || result.Profile.Labels[0] != "alice" {
		t.Errorf("expected labels [alice bob], got %v", result.Profile.Labels)
	}
	if result.Profile.References != 2 || result.Profile.Dim != 2 {
		t.Errorf("expected 2 references of dim 2, got %d/%d", result.Profile.References, result.Profile.Dim)
	}
	if result.Profile.Database {
		t.Error("expected no database backend")
	}
}

func TestConfigHandler_Get_DatabaseSource(t *testing.T) {
	handler := NewConfigHandler(testConfig(), nil)

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/config", nil))

	var result ConfigResponse
	parseJSONResponse(t, recorder, &result)

	if result.Profile.Source != "database" {
		t.Errorf("expected database source, got %s", result.Profile.Source)
	}
	if result.Profile.Labels == nil {
		t.Error("expected empty label list, got null")
	}
}
