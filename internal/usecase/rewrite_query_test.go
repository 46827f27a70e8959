package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"parks-rag/internal/domain"
	"parks-rag/internal/usecase"
)

// MockChatClient
type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) Chat(ctx context.Context, messages []domain.Message, opts domain.ChatOptions) (*domain.ChatResponse, error) {
	args := m.Called(ctx, messages, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatResponse), args.Error(1)
}

func (m *MockChatClient) ChatStream(ctx context.Context, messages []domain.Message, opts domain.ChatOptions) (<-chan domain.ChatStreamChunk, <-chan error, error) {
	args := m.Called(ctx, messages, opts)
	var chunks <-chan domain.ChatStreamChunk
	var errs <-chan error
	if args.Get(0) != nil {
		chunks = args.Get(0).(<-chan domain.ChatStreamChunk)
	}
	if args.Get(1) != nil {
		errs = args.Get(1).(<-chan error)
	}
	return chunks, errs, args.Error(2)
}

func (m *MockChatClient) Version() string { return "mock-chat-v1" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func lastUserMessage(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

func TestRewrite_Success(t *testing.T) {
	mockLLM := new(MockChatClient)
	rewriter := usecase.NewQueryRewriter(mockLLM, domain.NewParkRegistry(), 0, testLogger())

	history := []domain.Turn{
		{Role: domain.RoleUser, Content: "Tell me about Yellowstone"},
		{Role: domain.RoleAssistant, Content: "Yellowstone has geysers and hot springs."},
	}

	mockLLM.On("Chat", mock.Anything, mock.MatchedBy(func(messages []domain.Message) bool {
		content := lastUserMessage(messages)
		return strings.Contains(content, "Latest question: Are there bears there?") &&
			strings.Contains(content, "Tell me about Yellowstone")
	}), domain.ChatOptions{Temperature: 0.3, MaxTokens: 100}).
		Return(&domain.ChatResponse{Text: "Are there bears in Yellowstone National Park?", Done: true}, nil)

	result := rewriter.Rewrite(context.Background(), "Are there bears there?", history, "yell")
	assert.Equal(t, "Are there bears in Yellowstone National Park?", result)
	mockLLM.AssertExpectations(t)
}

func TestRewrite_PromptCarriesParkContext(t *testing.T) {
	mockLLM := new(MockChatClient)
	rewriter := usecase.NewQueryRewriter(mockLLM, domain.NewParkRegistry(), 0, testLogger())

	history := []domain.Turn{
		{Role: domain.RoleUser, Content: "How long is the scenic drive?"},
	}

	mockLLM.On("Chat", mock.Anything, mock.MatchedBy(func(messages []domain.Message) bool {
		return strings.Contains(lastUserMessage(messages), "The conversation is about Zion National Park.")
	}), mock.Anything).
		Return(&domain.ChatResponse{Text: "How long is the scenic drive in Zion National Park?", Done: true}, nil)

	rewriter.Rewrite(context.Background(), "How long does it take?", history, "zion")
	mockLLM.AssertExpectations(t)
}

func TestRewrite_FailureReturnsOriginal(t *testing.T) {
	mockLLM := new(MockChatClient)
	rewriter := usecase.NewQueryRewriter(mockLLM, domain.NewParkRegistry(), 0, testLogger())

	mockLLM.On("Chat", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("upstream timeout"))

	history := []domain.Turn{{Role: domain.RoleUser, Content: "hi"}}
	result := rewriter.Rewrite(context.Background(), "Can I swim there?", history, "yell")
	assert.Equal(t, "Can I swim there?", result)
}

func TestRewrite_EmptyResponseReturnsOriginal(t *testing.T) {
	mockLLM := new(MockChatClient)
	rewriter := usecase.NewQueryRewriter(mockLLM, domain.NewParkRegistry(), 0, testLogger())

	mockLLM.On("Chat", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.ChatResponse{Text: "  ", Done: true}, nil)

	history := []domain.Turn{{Role: domain.RoleUser, Content: "hi"}}
	result := rewriter.Rewrite(context.Background(), "Can I swim there?", history, "")
	assert.Equal(t, "Can I swim there?", result)
}

func TestRewrite_StripsWrappingQuotes(t *testing.T) {
	mockLLM := new(MockChatClient)
	rewriter := usecase.NewQueryRewriter(mockLLM, domain.NewParkRegistry(), 0, testLogger())

	mockLLM.On("Chat", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.ChatResponse{Text: `"What trails are open in Arches National Park?"`, Done: true}, nil)

	history := []domain.Turn{{Role: domain.RoleUser, Content: "hi"}}
	result := rewriter.Rewrite(context.Background(), "What trails are open?", history, "arch")
	assert.Equal(t, "What trails are open in Arches National Park?", result)
}

func TestRewrite_CacheAvoidsSecondCall(t *testing.T) {
	mockLLM := new(MockChatClient)
	rewriter := usecase.NewQueryRewriter(mockLLM, domain.NewParkRegistry(), 16, testLogger())

	mockLLM.On("Chat", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.ChatResponse{Text: "Where are the geysers in Yellowstone?", Done: true}, nil).
		Once()

	history := []domain.Turn{{Role: domain.RoleUser, Content: "Tell me about Yellowstone"}}

	first := rewriter.Rewrite(context.Background(), "Where are the geysers?", history, "yell")
	second := rewriter.Rewrite(context.Background(), "Where are the geysers?", history, "yell")
	assert.Equal(t, first, second)
	mockLLM.AssertExpectations(t)
}

func TestRewrite_HistoryWindowBound(t *testing.T) {
	mockLLM := new(MockChatClient)
	rewriter := usecase.NewQueryRewriter(mockLLM, domain.NewParkRegistry(), 0, testLogger())

	history := []domain.Turn{
		{Role: domain.RoleUser, Content: "ancient turn about Acadia"},
		{Role: domain.RoleAssistant, Content: "reply one"},
		{Role: domain.RoleUser, Content: "middle turn"},
		{Role: domain.RoleAssistant, Content: "reply two"},
		{Role: domain.RoleUser, Content: "recent turn"},
	}

	mockLLM.On("Chat", mock.Anything, mock.MatchedBy(func(messages []domain.Message) bool {
		content := lastUserMessage(messages)
		return !strings.Contains(content, "ancient turn about Acadia") &&
			strings.Contains(content, "recent turn")
	}), mock.Anything).
		Return(&domain.ChatResponse{Text: "rewritten", Done: true}, nil)

	rewriter.Rewrite(context.Background(), "and then?", history, "")
	mockLLM.AssertExpectations(t)
}
