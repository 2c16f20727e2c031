package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexbotdev/lexbot/internal/gemini"
)

type scriptedGenerator struct {
	responses []*gemini.GenerateResponse
	errs      []error
	requests  []gemini.GenerateRequest
	models    []string
}

func (s *scriptedGenerator) GenerateContent(_ context.Context, model string, req gemini.GenerateRequest) (*gemini.GenerateResponse, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)
	s.models = append(s.models, model)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return s.responses[len(s.responses)-1], nil
}

func textResponse(text string) *gemini.GenerateResponse {
	return &gemini.GenerateResponse{Candidates: []gemini.Candidate{{
		Content: gemini.Content{Role: "model", Parts: []gemini.Part{{Text: text}}},
	}}}
}

func callResponse(name string, args map[string]any) *gemini.GenerateResponse {
	return &gemini.GenerateResponse{Candidates: []gemini.Candidate{{
		Content: gemini.Content{Role: "model", Parts: []gemini.Part{
			{FunctionCall: &gemini.FunctionCall{Name: name, Args: args}},
		}},
	}}}
}

type stubTool struct {
	name   string
	result string
	err    error
	calls  []map[string]any
}

func (s *stubTool) Name() string               { return s.name }
func (s *stubTool) Description() string        { return "stub" }
func (s *stubTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (s *stubTool) Call(_ context.Context, args map[string]any) (string, error) {
	s.calls = append(s.calls, args)
	return s.result, s.err
}

func TestGenerateDirectText(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{responses: []*gemini.GenerateResponse{textResponse("olá, como posso ajudar?")}}
	eng := NewEngine(nil, gen, []string{"gemini-pro"}, "prompt", 5)

	reply, err := eng.Generate(context.Background(), nil, "oi")
	require.NoError(t, err)
	require.Equal(t, "olá, como posso ajudar?", reply)

	require.Len(t, gen.requests, 1)
	require.Equal(t, "prompt", gen.requests[0].SystemInstruction.Parts[0].Text)
	require.Equal(t, "user", gen.requests[0].Contents[0].Role)
}

func TestGenerateSeedsHistory(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{responses: []*gemini.GenerateResponse{textResponse("certo")}}
	eng := NewEngine(nil, gen, []string{"gemini-pro"}, "", 5)

	history := []Turn{
		{Role: "user", Content: "qual o prazo?"},
		{Role: "assistant", Content: "depende do contrato"},
	}
	_, err := eng.Generate(context.Background(), history, "e se for CLT?")
	require.NoError(t, err)

	contents := gen.requests[0].Contents
	require.Len(t, contents, 3)
	require.Equal(t, "user", contents[0].Role)
	require.Equal(t, "model", contents[1].Role)
	require.Equal(t, "depende do contrato", contents[1].Parts[0].Text)
	require.Equal(t, "e se for CLT?", contents[2].Parts[0].Text)
}

func TestGenerateToolRoundTrip(t *testing.T) {
	t.Parallel()

	tool := &stubTool{name: "document_search", result: "Fonte: CLT | Conteúdo: prazo de 10 dias..."}
	gen := &scriptedGenerator{responses: []*gemini.GenerateResponse{
		callResponse("document_search", map[string]any{"query": "prazo rescisão"}),
		textResponse("O prazo é de 10 dias."),
	}}
	eng := NewEngine(nil, gen, []string{"gemini-pro"}, "", 5, tool)

	reply, err := eng.Generate(context.Background(), nil, "qual o prazo?")
	require.NoError(t, err)
	require.Equal(t, "O prazo é de 10 dias.", reply)

	require.Len(t, tool.calls, 1)
	require.Equal(t, "prazo rescisão", tool.calls[0]["query"])

	// Second request carries the model turn and the function result.
	second := gen.requests[1].Contents
	require.Len(t, second, 3)
	require.Equal(t, "model", second[1].Role)
	require.Equal(t, "function", second[2].Role)
	fr := second[2].Parts[0].FunctionResponse
	require.Equal(t, "document_search", fr.Name)
	require.Equal(t, tool.result, fr.Response["content"])

	// Tool declarations are present on every round.
	require.NotEmpty(t, gen.requests[0].Tools)
	require.NotEmpty(t, gen.requests[1].Tools)
}

func TestGenerateToolFailureBecomesResult(t *testing.T) {
	t.Parallel()

	tool := &stubTool{name: "document_search", err: errors.New("qdrant down")}
	gen := &scriptedGenerator{responses: []*gemini.GenerateResponse{
		callResponse("document_search", map[string]any{"query": "x"}),
		textResponse("Não encontrei informações sobre isso."),
	}}
	eng := NewEngine(nil, gen, []string{"gemini-pro"}, "", 5, tool)

	reply, err := eng.Generate(context.Background(), nil, "pergunta")
	require.NoError(t, err)
	require.Equal(t, "Não encontrei informações sobre isso.", reply)

	fr := gen.requests[1].Contents[2].Parts[0].FunctionResponse
	require.Equal(t, toolFailureResult, fr.Response["content"])
}

func TestGenerateUnknownToolSkipped(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{responses: []*gemini.GenerateResponse{
		callResponse("delete_everything", nil),
		textResponse("feito"),
	}}
	eng := NewEngine(nil, gen, []string{"gemini-pro"}, "", 5)

	reply, err := eng.Generate(context.Background(), nil, "oi")
	require.NoError(t, err)
	require.Equal(t, "feito", reply)

	// Function turn exists but carries no parts for the unknown tool.
	require.Empty(t, gen.requests[1].Contents[2].Parts)
}

func TestGenerateRoundBudgetTerminates(t *testing.T) {
	t.Parallel()

	tool := &stubTool{name: "loop", result: "again"}
	gen := &scriptedGenerator{responses: []*gemini.GenerateResponse{
		callResponse("loop", nil),
	}}
	eng := NewEngine(nil, gen, []string{"gemini-pro"}, "", 3, tool)

	reply, err := eng.Generate(context.Background(), nil, "oi")
	require.NoError(t, err)
	require.Equal(t, neutralReply, reply)
	require.Len(t, gen.requests, 4) // initial round plus three retries
}

func TestGenerateModelFallback(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{
		errs:      []error{errors.New("503 overloaded"), nil},
		responses: []*gemini.GenerateResponse{nil, textResponse("resposta do fallback")},
	}
	eng := NewEngine(nil, gen, []string{"gemini-2.0-flash-exp", "gemini-pro"}, "", 5)

	reply, err := eng.Generate(context.Background(), nil, "oi")
	require.NoError(t, err)
	require.Equal(t, "resposta do fallback", reply)
	require.Equal(t, []string{"gemini-2.0-flash-exp", "gemini-pro"}, gen.models)
}

func TestGenerateAllModelsFail(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{errs: []error{errors.New("down"), errors.New("also down")}}
	eng := NewEngine(nil, gen, []string{"a", "b"}, "", 5)

	_, err := eng.Generate(context.Background(), nil, "oi")
	require.ErrorContains(t, err, "also down")
}

func TestGenerateNoCandidates(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{responses: []*gemini.GenerateResponse{{}}}
	eng := NewEngine(nil, gen, []string{"gemini-pro"}, "", 5)

	reply, err := eng.Generate(context.Background(), nil, "oi")
	require.NoError(t, err)
	require.Equal(t, NoResponseReply, reply)
}

func TestGenerateEmptyTextBecomesNeutralReply(t *testing.T) {
	t.Parallel()

	gen := &scriptedGenerator{responses: []*gemini.GenerateResponse{textResponse("  ")}}
	eng := NewEngine(nil, gen, []string{"gemini-pro"}, "", 5)

	reply, err := eng.Generate(context.Background(), nil, "oi")
	require.NoError(t, err)
	require.Equal(t, neutralReply, reply)
}
