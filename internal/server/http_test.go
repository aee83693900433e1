package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/groblegark/warmpath/internal/events"
	"github.com/groblegark/warmpath/internal/model"
)

func newTestHandler(t *testing.T) (*memStore, *Server, http.Handler) {
	t.Helper()
	st := newMemStore()
	srv := NewServer(st, &events.NoopPublisher{}, slog.New(slog.DiscardHandler))
	return st, srv, srv.NewHTTPHandler("", nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

// importChain seeds user-u's network with Uma -> Abe -> Bea (Initech).
func importChain(t *testing.T, h http.Handler) {
	t.Helper()
	body := importNetworkInput{
		Nodes: []*model.Node{
			{ID: "node-u", Kind: model.NodeUser, TargetUserID: "user-u", DisplayName: "Uma"},
			{ID: "node-a", Kind: model.NodeUser, TargetUserID: "user-a", DisplayName: "Abe"},
			{ID: "node-b", Kind: model.NodeContact, DisplayName: "Bea", Estimated: &model.EstimatedAttributes{
				Company:    "Initech",
				Confidence: 80,
				Source:     model.SourceProfile,
			}},
		},
		Connections: []*model.Connection{
			{ID: "conn-1", FromNodeID: "node-u", ToNodeID: "node-a", Strength: 90, Type: model.ConnFriend, IsMutual: true},
			{ID: "conn-2", FromNodeID: "node-a", ToNodeID: "node-b", Strength: 80, Type: model.ConnColleague, IsMutual: true},
		},
	}
	if rec := doJSON(t, h, http.MethodPost, "/v1/network/user-u/nodes", body); rec.Code != http.StatusCreated {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestImportAndMap(t *testing.T) {
	_, _, h := newTestHandler(t)
	importChain(t, h)

	rec := doJSON(t, h, http.MethodGet, "/v1/network/user-u/map", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("map status = %d", rec.Code)
	}
	m := decodeBody[model.NetworkMap](t, rec)
	if len(m.Nodes) != 3 || len(m.Connections) != 2 {
		t.Errorf("map has %d nodes, %d connections, want 3 and 2", len(m.Nodes), len(m.Connections))
	}
	if m.Stats == nil || m.Stats.TotalNodes != 3 || m.Stats.RegisteredUsers != 2 || m.Stats.ImportedContacts != 1 {
		t.Errorf("unexpected stats: %+v", m.Stats)
	}
}

func TestImportValidationError(t *testing.T) {
	_, _, h := newTestHandler(t)
	body := importNetworkInput{
		Nodes: []*model.Node{{ID: "node-x", Kind: model.NodeContact}}, // no display name
	}
	rec := doJSON(t, h, http.MethodPost, "/v1/network/user-u/nodes", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestImportRequiresNodes(t *testing.T) {
	_, _, h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/network/user-u/nodes", importNetworkInput{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRunSearchReturnsRankedResults(t *testing.T) {
	_, _, h := newTestHandler(t)
	importChain(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/path/searches", runSearchInput{
		OwnerID: "user-u",
		Query:   "company:Initech",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("search status = %d, body %s", rec.Code, rec.Body.String())
	}
	req := decodeBody[model.PathRequest](t, rec)
	if req.Status != model.RequestCompleted {
		t.Errorf("request status = %q, want completed", req.Status)
	}
	if len(req.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(req.Results))
	}
	res := req.Results[0]
	if res.Rank != 1 || res.Depth != 2 || res.Target.Name != "Bea" {
		t.Errorf("unexpected result: rank=%d depth=%d target=%q", res.Rank, res.Depth, res.Target.Name)
	}

	// The completed request is retrievable with its results.
	got := doJSON(t, h, http.MethodGet, "/v1/path/searches/"+req.ID, nil)
	if got.Code != http.StatusOK {
		t.Fatalf("get search status = %d", got.Code)
	}
}

func TestRunSearchUnknownOwner(t *testing.T) {
	_, _, h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/path/searches", runSearchInput{
		OwnerID: "user-missing",
		Query:   "company:Initech",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRunSearchRequiresCriteria(t *testing.T) {
	_, _, h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/path/searches", runSearchInput{OwnerID: "user-u"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetSearchNotFound(t *testing.T) {
	_, _, h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/path/searches/req-missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListSearchesRequiresOwner(t *testing.T) {
	_, _, h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/path/searches", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func startFlow(t *testing.T, h http.Handler) *model.IntroductionFlow {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/v1/introductions", startFlowInput{
		RequesterID: "user-a",
		Path:        []string{"user-a", "user-b", "user-c"},
		Message:     "would love an intro",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start flow status = %d, body %s", rec.Code, rec.Body.String())
	}
	flow := decodeBody[model.IntroductionFlow](t, rec)
	return &flow
}

func TestStartFlowAndRespond(t *testing.T) {
	_, _, h := newTestHandler(t)
	flow := startFlow(t, h)
	if flow.Status != model.FlowInProgress {
		t.Fatalf("flow status = %q, want in_progress", flow.Status)
	}

	rec := doJSON(t, h, http.MethodPost, "/v1/introductions/"+flow.ID+"/respond", respondStepInput{
		StepNumber:  0,
		ResponderID: "user-b",
		Status:      model.ResponseAccepted,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("respond status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[model.IntroductionFlow](t, rec)
	if updated.CurrentStep != 1 {
		t.Errorf("current step = %d, want 1", updated.CurrentStep)
	}

	// Final accept completes the flow.
	rec = doJSON(t, h, http.MethodPost, "/v1/introductions/"+flow.ID+"/respond", respondStepInput{
		StepNumber:  1,
		ResponderID: "user-c",
		Status:      model.ResponseAccepted,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("final respond status = %d", rec.Code)
	}
	done := decodeBody[model.IntroductionFlow](t, rec)
	if done.Status != model.FlowCompleted {
		t.Errorf("flow status = %q, want completed", done.Status)
	}
}

func TestRespondWrongResponderIsForbidden(t *testing.T) {
	_, _, h := newTestHandler(t)
	flow := startFlow(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/introductions/"+flow.ID+"/respond", respondStepInput{
		StepNumber:  0,
		ResponderID: "user-z",
		Status:      model.ResponseAccepted,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRespondNonCurrentStepConflicts(t *testing.T) {
	_, _, h := newTestHandler(t)
	flow := startFlow(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/introductions/"+flow.ID+"/respond", respondStepInput{
		StepNumber:  1,
		ResponderID: "user-c",
		Status:      model.ResponseAccepted,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestRespondUnknownFlow(t *testing.T) {
	_, _, h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/introductions/intro-missing/respond", respondStepInput{
		ResponderID: "user-b",
		Status:      model.ResponseAccepted,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStartFlowBadPath(t *testing.T) {
	_, _, h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/introductions", startFlowInput{
		RequesterID: "user-a",
		Path:        []string{"user-a"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCancelFlow(t *testing.T) {
	_, _, h := newTestHandler(t)
	flow := startFlow(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/introductions/"+flow.ID+"/cancel", cancelFlowInput{RequesterID: "user-a"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d", rec.Code)
	}
	cancelled := decodeBody[model.IntroductionFlow](t, rec)
	if cancelled.Status != model.FlowCancelled {
		t.Errorf("flow status = %q, want cancelled", cancelled.Status)
	}

	// A second cancel hits a terminal flow.
	rec = doJSON(t, h, http.MethodPost, "/v1/introductions/"+flow.ID+"/cancel", cancelFlowInput{RequesterID: "user-a"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second cancel status = %d, want 409", rec.Code)
	}
}

func TestCancelByNonRequesterIsForbidden(t *testing.T) {
	_, _, h := newTestHandler(t)
	flow := startFlow(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/introductions/"+flow.ID+"/cancel", cancelFlowInput{RequesterID: "user-b"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestListFlowsIncludesIntermediaries(t *testing.T) {
	_, _, h := newTestHandler(t)
	startFlow(t, h)

	rec := doJSON(t, h, http.MethodGet, "/v1/introductions?user=user-b", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	out := decodeBody[map[string][]*model.IntroductionFlow](t, rec)
	if len(out["introductions"]) != 1 {
		t.Errorf("got %d flows for user-b, want 1", len(out["introductions"]))
	}
}

func TestDeactivateConnection(t *testing.T) {
	st, _, h := newTestHandler(t)
	importChain(t, h)

	rec := doJSON(t, h, http.MethodDelete, "/v1/network/user-u/connections/conn-2", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	conn := st.conns["user-u"]["conn-2"]
	if conn.IsActive {
		t.Error("connection still active after deactivation")
	}

	// Wrong owner looks like a missing connection.
	rec = doJSON(t, h, http.MethodDelete, "/v1/network/user-z/connections/conn-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("wrong-owner status = %d, want 404", rec.Code)
	}
}

func TestCreateConnectionScoresWhenStrengthOmitted(t *testing.T) {
	_, _, h := newTestHandler(t)
	importChain(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/network/user-u/connections", createConnectionInput{
		FromNodeID: "node-u",
		ToNodeID:   "node-b",
		Type:       model.ConnBusiness,
		IsMutual:   true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	conn := decodeBody[model.Connection](t, rec)
	// Mutual (40) plus one shared neighbor (10) through node-a.
	if conn.Strength != 50 {
		t.Errorf("scored strength = %d, want 50", conn.Strength)
	}
}

func TestRecalculateStrengths(t *testing.T) {
	_, _, h := newTestHandler(t)
	importChain(t, h)

	rec := doJSON(t, h, http.MethodPost, "/v1/network/user-u/recalculate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decodeBody[map[string]int](t, rec)
	// Imported strengths (90, 80) differ from the scored values, so both
	// edges get rewritten.
	if out["updated"] != 2 {
		t.Errorf("updated = %d, want 2", out["updated"])
	}
}

func TestSweepExpiresOverdueFlow(t *testing.T) {
	st, _, h := newTestHandler(t)
	flow := startFlow(t, h)
	st.flows[flow.ID].ExpiresAt = time.Now().Add(-time.Hour)

	rec := doJSON(t, h, http.MethodPost, "/v1/introductions/sweep", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sweep status = %d", rec.Code)
	}
	got := doJSON(t, h, http.MethodGet, "/v1/introductions/"+flow.ID, nil)
	swept := decodeBody[model.IntroductionFlow](t, got)
	if swept.Status != model.FlowExpired {
		t.Errorf("flow status = %q, want expired", swept.Status)
	}
}

func TestHealth(t *testing.T) {
	_, _, h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}
