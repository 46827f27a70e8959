package parks_http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"parks-rag/internal/domain"
	"parks-rag/internal/usecase"
)

const (
	defaultChatTopK   = 5
	maxChatTopK       = 10
	defaultSearchTopK = 10
	maxSearchTopK     = 20
	maxHistoryTurns   = 20
)

// Handler exposes the chat pipeline over HTTP. Payload validation lives here;
// the pipeline assumes validated input.
type Handler struct {
	pipeline  usecase.AnswerPipeline
	retriever usecase.Retriever
	registry  *domain.ParkRegistry
}

// NewHandler wires the HTTP layer to the pipeline.
func NewHandler(pipeline usecase.AnswerPipeline, retriever usecase.Retriever, registry *domain.ParkRegistry) *Handler {
	return &Handler{
		pipeline:  pipeline,
		retriever: retriever,
		registry:  registry,
	}
}

// Register mounts all routes on e.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/api/chat", h.Chat)
	e.POST("/api/chat/stream", h.ChatStream)
	e.POST("/api/search", h.Search)
	e.GET("/api/parks", h.Parks)
}

type turnPayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Question            string        `json:"question"`
	ParkCode            string        `json:"park_code,omitempty"`
	TopK                *int          `json:"top_k,omitempty"`
	ConversationHistory []turnPayload `json:"conversation_history,omitempty"`
}

type sourcePayload struct {
	ParkName string  `json:"park_name"`
	ParkCode string  `json:"park_code"`
	URL      string  `json:"url"`
	Score    float32 `json:"score"`
}

type chatResponse struct {
	Answer         string          `json:"answer"`
	Sources        []sourcePayload `json:"sources"`
	Question       string          `json:"question"`
	NumSources     int             `json:"num_sources"`
	ActiveParkCode string          `json:"active_park_code,omitempty"`
}

func (h *Handler) bindChatInput(c echo.Context) (usecase.AnswerInput, error) {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return usecase.AnswerInput{}, fmt.Errorf("invalid request body")
	}
	if req.Question == "" {
		return usecase.AnswerInput{}, fmt.Errorf("question is required")
	}

	topK := defaultChatTopK
	if req.TopK != nil {
		topK = *req.TopK
		if topK < 1 || topK > maxChatTopK {
			return usecase.AnswerInput{}, fmt.Errorf("top_k must be between 1 and %d", maxChatTopK)
		}
	}

	if len(req.ConversationHistory) > maxHistoryTurns {
		return usecase.AnswerInput{}, fmt.Errorf("conversation_history cannot exceed %d messages", maxHistoryTurns)
	}
	history := make([]domain.Turn, 0, len(req.ConversationHistory))
	for _, t := range req.ConversationHistory {
		if t.Role != domain.RoleUser && t.Role != domain.RoleAssistant {
			return usecase.AnswerInput{}, fmt.Errorf("conversation_history roles must be 'user' or 'assistant'")
		}
		history = append(history, domain.Turn{Role: t.Role, Content: t.Content})
	}

	return usecase.AnswerInput{
		Question: req.Question,
		TopK:     topK,
		ParkCode: req.ParkCode,
		History:  history,
	}, nil
}

// Chat answers a question with a complete response.
// (POST /api/chat)
func (h *Handler) Chat(c echo.Context) error {
	input, err := h.bindChatInput(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	output, err := h.pipeline.Answer(c.Request().Context(), input)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, chatResponse{
		Answer:         output.Answer,
		Sources:        toSourcePayloads(output.Sources),
		Question:       output.Question,
		NumSources:     output.NumSources,
		ActiveParkCode: output.ActivePark,
	})
}

// ChatStream answers a question as Server-Sent Events: one event per token,
// a terminal done event carrying sources and the resolved park, then a
// "[DONE]" trailer.
// (POST /api/chat/stream)
func (h *Handler) ChatStream(c echo.Context) error {
	input, err := h.bindChatInput(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	for event := range h.pipeline.Stream(ctx, input) {
		payload, err := marshalStreamEvent(event)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(resp, "data: %s\n\n", payload); err != nil {
			// Client went away; ctx cancellation drains the pipeline.
			return nil
		}
		resp.Flush()
	}

	_, _ = fmt.Fprint(resp, "data: [DONE]\n\n")
	resp.Flush()
	return nil
}

func marshalStreamEvent(event usecase.StreamEvent) ([]byte, error) {
	switch event.Kind {
	case usecase.StreamEventKindToken:
		token, _ := event.Payload.(string)
		return json.Marshal(map[string]interface{}{"type": "token", "content": token})
	case usecase.StreamEventKindDone:
		done, ok := event.Payload.(*usecase.StreamDone)
		if !ok {
			return nil, fmt.Errorf("malformed done event")
		}
		return json.Marshal(map[string]interface{}{
			"type":             "done",
			"sources":          toSourcePayloads(done.Sources),
			"num_sources":      done.NumSources,
			"active_park_code": done.ActivePark,
		})
	case usecase.StreamEventKindError:
		message, _ := event.Payload.(string)
		return json.Marshal(map[string]interface{}{"type": "error", "message": message})
	default:
		return nil, fmt.Errorf("unknown event kind %q", event.Kind)
	}
}

type searchRequest struct {
	Query    string `json:"query"`
	ParkCode string `json:"park_code,omitempty"`
	TopK     *int   `json:"top_k,omitempty"`
}

type searchResult struct {
	ID        int     `json:"id"`
	Score     float32 `json:"score"`
	Text      string  `json:"text"`
	ParkCode  string  `json:"park_code"`
	ParkName  string  `json:"park_name"`
	SourceURL string  `json:"source_url"`
	ChunkID   string  `json:"chunk_id"`
}

// Search performs a direct vector search without LLM generation.
// (POST /api/search)
func (h *Handler) Search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}
	topK := defaultSearchTopK
	if req.TopK != nil {
		topK = *req.TopK
		if topK < 1 || topK > maxSearchTopK {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("top_k must be between 1 and %d", maxSearchTopK),
			})
		}
	}

	passages, err := h.retriever.Retrieve(c.Request().Context(), req.Query, req.ParkCode, topK)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	results := make([]searchResult, 0, len(passages))
	for i, p := range passages {
		results = append(results, searchResult{
			ID:        i,
			Score:     p.Score,
			Text:      p.Content,
			ParkCode:  p.ParkCode,
			ParkName:  p.ParkName,
			SourceURL: p.SourceURL,
			ChunkID:   p.ChunkID,
		})
	}
	return c.JSON(http.StatusOK, results)
}

type parkPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Parks lists the parks the registry knows about.
// (GET /api/parks)
func (h *Handler) Parks(c echo.Context) error {
	codes := h.registry.Codes()
	parks := make([]parkPayload, 0, len(codes))
	for _, code := range codes {
		parks = append(parks, parkPayload{Code: code, Name: h.registry.DisplayName(code)})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"parks": parks})
}

func toSourcePayloads(citations []usecase.Citation) []sourcePayload {
	sources := make([]sourcePayload, 0, len(citations))
	for _, cite := range citations {
		sources = append(sources, sourcePayload{
			ParkName: cite.ParkName,
			ParkCode: cite.ParkCode,
			URL:      cite.URL,
			Score:    cite.Score,
		})
	}
	return sources
}
