package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dmmulroy/opensrc-mcp/internal/config"
	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
	"github.com/dmmulroy/opensrc-mcp/internal/sandbox"
	"github.com/dmmulroy/opensrc-mcp/pkg/version"
)

// truncationFooter is appended, after the cut point, to any execute reply
// longer than the configured character budget.
const truncationFooter = "\n--- TRUNCATED ---\nResult truncated. Use opensrc.files or opensrc.read for a narrower query."

// ExecuteInput is the execute tool's sole parameter: an arrow-function
// source string, per the single-tool codemode contract.
type ExecuteInput struct {
	Code string `json:"code" jsonschema:"JavaScript arrow-function source with no parameters, e.g. \"async () => opensrc.list()\""`
}

// ExecuteOutput mirrors the text content for clients that prefer
// structured output over parsing CallToolResult.Content.
type ExecuteOutput struct {
	Result string `json:"result"`
}

// Server is the MCP server for opensrc-mcp. It bridges an agent client
// (talking JSON-RPC over stdio) to the Sandbox, which is the only place
// Host's query/fetch surface is actually reachable from.
type Server struct {
	mcp     *mcp.Server
	sandbox *sandbox.Sandbox
	host    *Host
	config  *config.Config
	logger  *slog.Logger
}

// New builds a Server. cfg is used for the sandbox deadline and the
// execute-reply truncation budget; logger defaults to slog.Default().
func New(host *Host, cfg *config.Config, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		sandbox: sandbox.New(host, cfg.Sandbox.Deadline),
		host:    host,
		config:  cfg,
		logger:  logger,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "opensrc-mcp",
		Version: version.Version,
	}, nil)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "execute",
		Description: "Runs a JavaScript snippet against the opensrc API (fetch, list, files, tree, read, readMany, grep, astGrep, semanticSearch, remove, clean, resolve). code must be an arrow function source taking no arguments; its return value is stringified and returned as the tool's text.",
	}, s.executeHandler)

	return s
}

// executeHandler is the MCP SDK handler for the execute tool.
func (s *Server) executeHandler(ctx context.Context, _ *mcp.CallToolRequest, input ExecuteInput) (*mcp.CallToolResult, ExecuteOutput, error) {
	requestID := uuid.NewString()
	logger := s.logger.With(slog.String("request_id", requestID))

	logger.Info("execute: running script", slog.Int("code_len", len(input.Code)))

	value, err := s.sandbox.Run(ctx, input.Code)
	if err != nil {
		logger.Warn("execute: script failed",
			slog.String("error", err.Error()),
			slog.String("kind", string(opensrcerr.KindOf(err))))
		errText := "Error: " + err.Error()
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: errText}},
		}, ExecuteOutput{Result: errText}, nil
	}

	text, err := stringifyResult(value)
	if err != nil {
		logger.Warn("execute: result could not be stringified", slog.String("error", err.Error()))
		errText := "Error: " + err.Error()
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: errText}},
		}, ExecuteOutput{Result: errText}, nil
	}

	text = s.truncate(text)
	logger.Info("execute: script succeeded", slog.Int("reply_len", len(text)))

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, ExecuteOutput{Result: text}, nil
}

// stringifyResult renders a goja Export()-ed value the way the execute
// contract promises: a bare string passes through unchanged (so scripts
// that just `return "ok"` don't get wrapped in quotes), everything else —
// numbers, bools, nil, slices, maps — is JSON-encoded.
func stringifyResult(value any) (string, error) {
	if value == nil {
		return "undefined", nil
	}
	if str, ok := value.(string); ok {
		return str, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encoding script result: %w", err)
	}
	return string(encoded), nil
}

// truncate cuts text to the configured char budget and appends the fixed
// footer, leaving short replies untouched.
func (s *Server) truncate(text string) string {
	limit := s.config.MaxResultChars()
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit] + truncationFooter
}

// Serve connects transport and blocks until the client disconnects or ctx
// is canceled. Only "stdio" is supported — the specification's one and
// only external interface.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
