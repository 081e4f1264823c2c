package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/medpanel/internal/adapters/store"
	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
	"github.com/hugo-lorenzo-mato/medpanel/internal/events"
	"github.com/hugo-lorenzo-mato/medpanel/internal/recruit"
	"github.com/hugo-lorenzo-mato/medpanel/internal/service/consult"
	"github.com/hugo-lorenzo-mato/medpanel/internal/specialty"
	"github.com/hugo-lorenzo-mato/medpanel/internal/testutil"
)

const soloReply = "Step 1: burning after meals points to reflux.\nAnswer: A) Gastroesophageal reflux"

type sharedModels struct {
	model core.Model
}

func (s sharedModels) ForMember(core.Member) core.Model { return s.model }
func (s sharedModels) Utility() core.Model              { return s.model }

type fixture struct {
	server *Server
	store  *store.SQLiteStore
	bus    *events.EventBus
	model  *testutil.ScriptedModel
}

func newFixture(t *testing.T, m *testutil.ScriptedModel) *fixture {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	bus := events.New(100)
	t.Cleanup(bus.Close)

	recruiter := recruit.New(specialty.NewScorer(specialty.Default()))
	runner, err := consult.NewRunner(consult.RunnerDeps{
		Recruiter: recruiter,
		Models:    sharedModels{model: m},
		Store:     st,
		Notifier:  events.NewBusObserver(bus),
	})
	require.NoError(t, err)

	s := NewServer(runner, st, bus, WithCatalog(recruiter.Catalog))
	return &fixture{server: s, store: st, bus: bus, model: m}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func soloCase(id string) CreateCaseRequest {
	c := testutil.NewCase("Burning chest pain after meals")
	return CreateCaseRequest{ID: id, Question: c.Question, Options: c.Options, Tier: "low"}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testutil.NewScriptedModel("gpt"))

	rec := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 0, body["running"])
}

func TestCases_SynchronousLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testutil.NewScriptedModel("gpt").On(testutil.HeadingSolo, soloReply))

	rec := f.do(t, http.MethodPost, "/api/v1/cases?wait=true", soloCase("case-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/v1/cases/case-1", rec.Header().Get("Location"))

	var result core.CaseResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "A", result.Decision.Choice)
	assert.Equal(t, core.TierLow, result.Tier)
	assert.Equal(t, 0, f.model.CallCount(testutil.HeadingClassify))

	rec = f.do(t, http.MethodGet, "/api/v1/cases/case-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = f.do(t, http.MethodGet, "/api/v1/cases/case-1", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/cases?tier=basic", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list CaseListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Cases, 1)
	assert.Equal(t, "case-1", list.Cases[0].ID)
	assert.Equal(t, store.DefaultListLimit, list.Limit)

	rec = f.do(t, http.MethodGet, "/api/v1/cases?tier=high", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Cases)

	rec = f.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), specialty.PrimaryCare)

	rec = f.do(t, http.MethodDelete, "/api/v1/cases/case-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/cases/case-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, string(core.ErrCatNotFound), errResp.Category)
}

func TestCases_CreateRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testutil.NewScriptedModel("gpt"))

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"malformed json", "{", http.StatusBadRequest, ""},
		{"empty question", CreateCaseRequest{Options: map[string]string{"A": "x", "B": "y"}}, http.StatusUnprocessableEntity, core.CodeEmptyQuestion},
		{"unknown tier", CreateCaseRequest{Question: "q", Options: map[string]string{"A": "x"}, Tier: "extreme"}, http.StatusUnprocessableEntity, core.CodeInvalidTier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/cases", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				var errResp ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
				assert.Equal(t, tt.code, errResp.Code)
			}
		})
	}
	assert.Empty(t, f.model.Calls())
}

func TestCases_BackgroundRun(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	m := testutil.NewScriptedModel("gpt").OnFunc(testutil.HeadingSolo, func(core.Request, int) (string, error) {
		<-release
		return soloReply, nil
	})
	f := newFixture(t, m)

	rec := f.do(t, http.MethodPost, "/api/v1/cases", soloCase("case-bg"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted CaseAccepted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Equal(t, StatusRunning, accepted.Status)
	assert.Equal(t, "/api/v1/events?case=case-bg", accepted.EventsURL)

	rec = f.do(t, http.MethodGet, "/api/v1/cases/case-bg", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/cases", soloCase("case-bg"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	f.server.Wait()

	rec = f.do(t, http.MethodGet, "/api/v1/cases/case-bg", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result core.CaseResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "A", result.Decision.Choice)
}

func TestCases_DeleteCancelsRunningCase(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	m := testutil.NewScriptedModel("gpt").OnFunc(testutil.HeadingSolo, func(core.Request, int) (string, error) {
		<-release
		return soloReply, nil
	})
	f := newFixture(t, m)

	rec := f.do(t, http.MethodPost, "/api/v1/cases", soloCase("case-cancel"))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/cases/case-cancel", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	close(release)
	f.server.Wait()
	assert.False(t, f.server.isRunning("case-cancel"))
}

func TestCases_ListValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testutil.NewScriptedModel("gpt"))

	for _, q := range []string{"limit=0", "limit=abc", "limit=501", "offset=-1"} {
		rec := f.do(t, http.MethodGet, "/api/v1/cases?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
	rec := f.do(t, http.MethodGet, "/api/v1/cases?tier=nope", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/cases", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cases":[]`)
}

func TestCases_NoStore(t *testing.T) {
	t.Parallel()
	s := NewServer(nil, nil, nil)

	for _, path := range []string{"/api/v1/cases", "/api/v1/cases/x", "/api/v1/stats", "/api/v1/events"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestSpecialties(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testutil.NewScriptedModel("gpt"))

	rec := f.do(t, http.MethodGet, "/api/v1/specialties", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all struct {
		Specialties []SpecialtyResponse `json:"specialties"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all.Specialties, specialty.Default().Len())
	assert.Equal(t, specialty.PrimaryCare, all.Specialties[0].Name)
	assert.Equal(t, 0, all.Specialties[0].Position)

	rec = f.do(t, http.MethodGet, "/api/v1/specialties?q=cardio", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.NotEmpty(t, all.Specialties)
	assert.Equal(t, "Cardiologist", all.Specialties[0].Name)

	rec = f.do(t, http.MethodGet, "/api/v1/specialties/Cardiologist", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "arrhythmias")

	rec = f.do(t, http.MethodGet, "/api/v1/specialties/Astrologer", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecruit(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testutil.NewScriptedModel("gpt").On(testutil.HeadingClassify, "high"))

	rec := f.do(t, http.MethodPost, "/api/v1/recruit", RecruitRequest{Question: "chest pain radiating to the arm", Tier: "moderate"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp RecruitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, core.TierModerate, resp.Tier)
	require.NotNil(t, resp.Recruitment.Panel)
	assert.Len(t, resp.Recruitment.Panel.Members, recruit.PanelSize)
	assert.True(t, strings.HasPrefix(resp.Summary, "- Panel: "))

	rec = f.do(t, http.MethodPost, "/api/v1/recruit", RecruitRequest{Question: "chest pain"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, core.TierHigh, resp.Tier)
	assert.Len(t, resp.Recruitment.SubTeams, 3)

	rec = f.do(t, http.MethodPost, "/api/v1/recruit", RecruitRequest{Question: " "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSSE_StreamsCaseEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testutil.NewScriptedModel("gpt").On(testutil.HeadingSolo, soloReply))
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events?case=case-sse", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	nextEvent := func() string {
		for lines.Scan() {
			if name, ok := strings.CutPrefix(lines.Text(), "event: "); ok {
				return name
			}
		}
		return ""
	}
	require.Equal(t, "connected", nextEvent())

	// Events of other cases are filtered out.
	f.bus.Publish(events.NewCaseStartedEvent("other", "q"))

	post, err := http.Post(srv.URL+"/api/v1/cases?wait=true", "application/json",
		strings.NewReader(`{"id":"case-sse","question":"Burning after meals","options":{"A":"GERD","B":"ACS"},"tier":"low"}`))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	var seen []string
	for name := nextEvent(); name != ""; name = nextEvent() {
		seen = append(seen, name)
	}
	assert.Equal(t, []string{
		events.TypeCaseStarted,
		events.TypeTeamRecruited,
		events.TypeAssessmentCompleted,
		events.TypeDecisionMade,
		events.TypeCaseCompleted,
	}, seen)
}

func TestSplitTypes(t *testing.T) {
	t.Parallel()
	assert.Nil(t, splitTypes(""))
	assert.Equal(t, []string{"case_started", "case_failed"}, splitTypes("case_started, ,case_failed"))
}

func TestHTTPStatusForDomainError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err    error
		status int
	}{
		{core.ErrValidation("X", "bad"), http.StatusUnprocessableEntity},
		{core.ErrNotFound("case", "x"), http.StatusNotFound},
		{core.ErrState("X", "conflict"), http.StatusConflict},
		{core.ErrRateLimit("slow down"), http.StatusTooManyRequests},
		{core.ErrTimeout("late"), http.StatusGatewayTimeout},
		{core.ErrModel("X", "down"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		got, ok := httpStatusForDomainError(tt.err)
		assert.True(t, ok)
		assert.Equal(t, tt.status, got, tt.err.Error())
	}
	_, ok := httpStatusForDomainError(assert.AnError)
	assert.False(t, ok)
}
