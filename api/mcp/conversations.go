package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/agentchat/pkg/conversation"
)

var (
	listToolName    = "list_conversations"
	listDescription = "List stored chat conversations, most recently updated first."

	getToolName    = "get_conversation"
	getDescription = "Get one stored chat conversation with its full message history."
)

// ListInput represents the input arguments for the list tool.
type ListInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of conversations to return (default: all)"`
}

// ListOutput represents the output of the list tool.
type ListOutput struct {
	Conversations []Summary `json:"conversations"`
	Count         int       `json:"count"`
}

// GetInput represents the input arguments for the get tool.
type GetInput struct {
	ID string `json:"id" jsonschema:"the conversation id"`
}

// GetOutput represents the output of the get tool.
type GetOutput struct {
	Conversation Summary `json:"conversation"`
	Messages     []Turn  `json:"messages"`
}

// Summary describes a conversation without its messages.
type Summary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Agent        string `json:"agent"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}

// Turn is a single message in a conversation.
type Turn struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	FormTitle string `json:"form_title,omitempty"`
	HasForm   bool   `json:"has_form"`
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	logger := s.config.Logger
	logger.Debug("MCP list request", "limit", input.Limit)

	list, err := s.config.Store.List(ctx)
	if err != nil {
		logger.Error("failed to list conversations", "error", err)
		return errorResult(fmt.Sprintf("Failed to list conversations: %v", err)), ListOutput{Conversations: []Summary{}}, nil
	}

	if input.Limit > 0 && len(list) > input.Limit {
		list = list[:input.Limit]
	}

	output := ListOutput{
		Conversations: make([]Summary, 0, len(list)),
		Count:         len(list),
	}
	for _, c := range list {
		output.Conversations = append(output.Conversations, summarize(c))
	}

	return jsonResult(logger, output)
}

func (s *Server) handleGet(ctx context.Context, _ *mcp.CallToolRequest, input GetInput) (*mcp.CallToolResult, GetOutput, error) {
	logger := s.config.Logger
	logger.Debug("MCP get request", "conversation_id", input.ID)

	if input.ID == "" {
		return errorResult("id is required"), GetOutput{Messages: []Turn{}}, nil
	}

	c, err := s.config.Store.Get(ctx, input.ID)
	if err != nil {
		var notFound conversation.NotFoundError
		if !errors.As(err, &notFound) {
			logger.Error("failed to get conversation", "conversation_id", input.ID, "error", err)
		}
		return errorResult(fmt.Sprintf("Failed to get conversation: %v", err)), GetOutput{Messages: []Turn{}}, nil
	}

	output := GetOutput{
		Conversation: summarize(c),
		Messages:     make([]Turn, 0, len(c.Messages)),
	}
	for _, m := range c.Messages {
		output.Messages = append(output.Messages, Turn{
			ID:        m.ID,
			Role:      string(m.Role),
			Text:      m.Content,
			Timestamp: m.Timestamp,
			FormTitle: m.FormTitle,
			HasForm:   m.HasForm(),
		})
	}

	return jsonResult(logger, output)
}

func summarize(c *conversation.Conversation) Summary {
	return Summary{
		ID:           c.ID,
		Name:         c.Name,
		Agent:        c.Agent,
		UpdatedAt:    c.UpdatedAt.UTC().Format(time.RFC3339),
		MessageCount: c.MessageCount,
	}
}

// jsonResult serializes the structured output as JSON in a TextContent block
// alongside the structured content.
func jsonResult[T any](logger *slog.Logger, output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal tool output", "error", err)
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), output, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
