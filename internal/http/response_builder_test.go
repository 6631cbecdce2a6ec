package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusAccepted).
		BodyHTML("<p>ok</p>").
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("HX-Trigger set without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerBudgetSaved("b1", 7).
		TriggerDiagramReload().
		TriggerSuccessNotification("Saved").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{`"budget:saved"`, `"id":"b1"`, `"version":7`, `"show-notification"`, `"type":"success"`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
	if strings.Contains(trigger, "diagram:reload") {
		t.Errorf("diagram:reload should fire after the swap: %s", trigger)
	}
	if after := w.Header().Get("HX-Trigger-After-Swap"); !strings.Contains(after, `"diagram:reload"`) {
		t.Errorf("HX-Trigger-After-Swap = %q", after)
	}
}

func TestHTMXResponseBuilder_Redirect(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Redirect("/budgets/x").Write(w)

	if got := w.Header().Get("HX-Redirect"); got != "/budgets/x" {
		t.Errorf("HX-Redirect = %q", got)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name string
		b    *HTMXResponseBuilder
		code int
	}{
		{"bad request", BadRequestError("nope"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("nope"), http.StatusUnprocessableEntity},
		{"not found", NotFoundError("nope"), http.StatusNotFound},
		{"internal", InternalServerError("nope"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.b.Write(w)
			if w.Code != tt.code {
				t.Errorf("code = %d, want %d", w.Code, tt.code)
			}
		})
	}
}

func TestErrorResponse_EscapesMessage(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, `<script>alert("x")</script>`).Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Fatalf("message not escaped: %s", body)
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Errorf("body = %s", body)
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONError(w, http.StatusConflict, "stale")

	if w.Code != http.StatusConflict {
		t.Errorf("code = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"error":"stale"}` {
		t.Errorf("body = %s", w.Body.String())
	}
}
