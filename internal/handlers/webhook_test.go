package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	payloads [][]byte
}

func (f *fakeProcessor) Process(_ context.Context, raw []byte) {
	f.payloads = append(f.payloads, raw)
}

func postJSON(t *testing.T, e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestWebhookAcknowledgesParseablePayload(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{}
	e := echo.New()
	NewWebhookHandler(nil, proc).Register(e)

	rec := postJSON(t, e, "/webhook", `{"phone":"85999998888","text":{"message":"oi"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp["status"])
	require.Len(t, proc.payloads, 1)
}

func TestWebhookAcknowledgesUnhandledButValidJSON(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{}
	e := echo.New()
	NewWebhookHandler(nil, proc).Register(e)

	// The pipeline drops what it cannot recognize; the webhook still says ok.
	rec := postJSON(t, e, "/webhook", `{"unrelated":"event"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, proc.payloads, 1)
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{}
	e := echo.New()
	NewWebhookHandler(nil, proc).Register(e)

	rec := postJSON(t, e, "/webhook", `{not json`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "error", resp["status"])
	require.Empty(t, proc.payloads)
}

type fakeIngester struct {
	id    string
	err   error
	title string
}

func (f *fakeIngester) Ingest(_ context.Context, title, _ string) (string, error) {
	f.title = title
	return f.id, f.err
}

func TestDocumentsCreate(t *testing.T) {
	t.Parallel()

	ing := &fakeIngester{id: "doc-1"}
	e := echo.New()
	NewDocumentsHandler(nil, ing).Register(e)

	rec := postJSON(t, e, "/documents", `{"title":"CLT","content":"Art. 477..."}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "CLT", ing.title)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "doc-1", resp["id"])
}

func TestDocumentsCreateValidation(t *testing.T) {
	t.Parallel()

	e := echo.New()
	NewDocumentsHandler(nil, &fakeIngester{}).Register(e)

	rec := postJSON(t, e, "/documents", `{"title":"","content":""}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDocumentsCreateIngestFailure(t *testing.T) {
	t.Parallel()

	e := echo.New()
	NewDocumentsHandler(nil, &fakeIngester{err: errors.New("qdrant down")}).Register(e)

	rec := postJSON(t, e, "/documents", `{"title":"t","content":"c"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPing(t *testing.T) {
	t.Parallel()

	e := echo.New()
	NewPingHandler(nil).Register(e)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
