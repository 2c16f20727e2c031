package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lexbotdev/lexbot/internal/gemini"
)

const (
	// NoResponseReply is returned when the API answers without candidates.
	NoResponseReply = "Nenhuma resposta gerada."
	// neutralReply covers empty or safety-blocked candidates.
	neutralReply = "Não consegui gerar uma resposta para essa mensagem. Pode reformular?"
	// toolFailureResult is handed back to the model when a tool call fails;
	// the model should tell the user nothing was found instead of crashing
	// the whole generation.
	toolFailureResult = "Nenhuma informação encontrada."

	DefaultMaxToolRounds = 5
)

type generator interface {
	GenerateContent(ctx context.Context, model string, req gemini.GenerateRequest) (*gemini.GenerateResponse, error)
}

// Engine runs tool-calling chat generation with model fallback. Models are
// tried in order; within one model the function-call loop runs until the
// model produces text or the round budget is spent.
type Engine struct {
	client        generator
	models        []string
	tools         map[string]Tool
	toolSpecs     []gemini.ToolSpec
	systemPrompt  string
	maxToolRounds int
	logger        *slog.Logger
}

func NewEngine(log *slog.Logger, client generator, models []string, systemPrompt string, maxToolRounds int, tools ...Tool) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if maxToolRounds <= 0 {
		maxToolRounds = DefaultMaxToolRounds
	}

	byName := make(map[string]Tool, len(tools))
	var decls []gemini.FunctionDeclaration
	for _, tool := range tools {
		byName[tool.Name()] = tool
		decls = append(decls, gemini.FunctionDeclaration{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}

	var specs []gemini.ToolSpec
	if len(decls) > 0 {
		specs = []gemini.ToolSpec{{FunctionDeclarations: decls}}
	}

	return &Engine{
		client:        client,
		models:        models,
		tools:         byName,
		toolSpecs:     specs,
		systemPrompt:  systemPrompt,
		maxToolRounds: maxToolRounds,
		logger:        log.With(slog.String("service", "chat")),
	}
}

// Generate produces the assistant reply for userText given the prior turns.
// Every configured model is tried in order; the last model's error is
// returned when all fail.
func (e *Engine) Generate(ctx context.Context, history []Turn, userText string) (string, error) {
	contents := make([]gemini.Content, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, gemini.Content{
			Role:  role,
			Parts: []gemini.Part{{Text: turn.Content}},
		})
	}
	contents = append(contents, gemini.Content{
		Role:  "user",
		Parts: []gemini.Part{{Text: userText}},
	})

	var lastErr error
	for _, model := range e.models {
		reply, err := e.runToolLoop(ctx, model, contents)
		if err != nil {
			e.logger.Warn("chat model failed", "model", model, "error", err)
			lastErr = err
			continue
		}
		return reply, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no chat models configured")
	}
	return "", lastErr
}

func (e *Engine) runToolLoop(ctx context.Context, model string, contents []gemini.Content) (string, error) {
	// Work on a copy so a failed model does not leak its function turns
	// into the next model's attempt.
	conversation := make([]gemini.Content, len(contents))
	copy(conversation, contents)

	req := gemini.GenerateRequest{Tools: e.toolSpecs}
	if e.systemPrompt != "" {
		req.SystemInstruction = &gemini.Content{Parts: []gemini.Part{{Text: e.systemPrompt}}}
	}

	for round := 0; round <= e.maxToolRounds; round++ {
		req.Contents = conversation

		resp, err := e.client.GenerateContent(ctx, model, req)
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 {
			return NoResponseReply, nil
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				return neutralReply, nil
			}
			return text, nil
		}

		conversation = append(conversation, resp.Candidates[0].Content)
		conversation = append(conversation, e.executeCalls(ctx, calls))
	}

	e.logger.Warn("tool round budget exhausted", "model", model, "rounds", e.maxToolRounds)
	return neutralReply, nil
}

// executeCalls runs every requested tool and builds the function-role turn
// carrying their results. Unknown tool names are skipped with a warning.
func (e *Engine) executeCalls(ctx context.Context, calls []gemini.FunctionCall) gemini.Content {
	parts := make([]gemini.Part, 0, len(calls))
	for _, call := range calls {
		tool, ok := e.tools[call.Name]
		if !ok {
			e.logger.Warn("model requested unknown tool", "tool", call.Name)
			continue
		}

		result, err := tool.Call(ctx, call.Args)
		if err != nil {
			e.logger.Error("tool execution failed", "tool", call.Name, "error", err)
			result = toolFailureResult
		}
		parts = append(parts, gemini.Part{
			FunctionResponse: &gemini.FunctionResponse{
				Name:     call.Name,
				Response: map[string]any{"content": result},
			},
		})
	}
	return gemini.Content{Role: "function", Parts: parts}
}
