package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/gemini-2.0-flash-exp:generateContent", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Equal(t, "user", req.Contents[0].Role)

		json.NewEncoder(w).Encode(GenerateResponse{
			Candidates: []Candidate{{
				Content: Content{Role: "model", Parts: []Part{{Text: "olá"}}},
			}},
		})
	}))
	defer srv.Close()

	c := NewClient(nil, "test-key", srv.URL, 0)
	resp, err := c.GenerateContent(context.Background(), "gemini-2.0-flash-exp", GenerateRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: "oi"}}}},
	})
	require.NoError(t, err)
	require.Equal(t, "olá", resp.Text())
	require.Empty(t, resp.FunctionCalls())
}

func TestGenerateContentFunctionCalls(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GenerateResponse{
			Candidates: []Candidate{{
				Content: Content{Role: "model", Parts: []Part{
					{FunctionCall: &FunctionCall{Name: "document_search", Args: map[string]any{"query": "prazo"}}},
				}},
			}},
		})
	}))
	defer srv.Close()

	c := NewClient(nil, "k", srv.URL, 0)
	resp, err := c.GenerateContent(context.Background(), "gemini-pro", GenerateRequest{})
	require.NoError(t, err)

	calls := resp.FunctionCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "document_search", calls[0].Name)
	require.Equal(t, "prazo", calls[0].Args["query"])
}

func TestGenerateContentStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(nil, "k", srv.URL, 0)
	_, err := c.GenerateContent(context.Background(), "gemini-pro", GenerateRequest{})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestEmbed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/text-embedding-004:embedContent", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "models/text-embedding-004", req["model"])

		w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	}))
	defer srv.Close()

	c := NewClient(nil, "k", srv.URL, 0)
	vec, err := c.Embed(context.Background(), "text-embedding-004", "contrato")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}
