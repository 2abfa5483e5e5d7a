package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/homewiz/lease-concierge/backend/internal/config"
	"github.com/homewiz/lease-concierge/backend/internal/model/chat"
)

const historyLimit = 10

// Service answers free-form visitor messages with a chat model.
type Service struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	system string
	logger *zap.Logger
}

// NewService creates a service backed by the configured Ark model.
func NewService(ctx context.Context, cfg config.AssistantConfig, logger *zap.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, logger)
}

// NewServiceWithModel compiles the prompt chain around an existing model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chain:  runnable,
		system: systemPrompt,
		logger: logger,
	}, nil
}

// Reply generates the concierge's answer to message given the transcript so
// far. An empty answer is returned as "".
func (s *Service) Reply(ctx context.Context, history []chat.Message, message string) (string, error) {
	response, err := s.chain.Invoke(ctx, s.buildChainInput(history, message))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	reply := strings.TrimSpace(response.Content)
	s.logger.Debug("generated reply", zap.Int("history", len(history)), zap.Int("length", len(reply)))
	return reply, nil
}

func (s *Service) buildChainInput(history []chat.Message, message string) map[string]any {
	return map[string]any{
		"system":  s.system,
		"history": buildHistoryMessages(history, message),
		"query":   message,
	}
}

// buildHistoryMessages keeps the last historyLimit entries. The trailing
// entry is dropped when it already echoes the query.
func buildHistoryMessages(messages []chat.Message, query string) []*schema.Message {
	if n := len(messages); n > 0 {
		last := messages[n-1]
		if last.Role == chat.RoleUser && last.Text == strings.TrimSpace(query) {
			messages = messages[:n-1]
		}
	}
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Text))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}

	return history
}
