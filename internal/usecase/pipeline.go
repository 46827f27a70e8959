package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"parks-rag/internal/domain"
)

// noResultsMessage is the fixed terminal response when retrieval finds
// nothing. An empty context set cannot produce a grounded answer, so no LLM
// call is made on this path.
const noResultsMessage = "I couldn't find relevant information to answer your question. " +
	"Please try rephrasing or ask about specific national parks."

// AnswerInput carries one request through the pipeline.
type AnswerInput struct {
	Question string
	TopK     int
	// ParkCode is the caller's explicit hint, typically the resolved park
	// returned from the previous turn or a UI selection.
	ParkCode string
	History  []domain.Turn
}

// AnswerOutput is the terminal result of a completed pipeline run.
type AnswerOutput struct {
	Answer     string
	Sources    []Citation
	Question   string
	NumSources int
	// ActivePark is returned so the caller can persist it and resubmit it as
	// the explicit hint on the next turn; the pipeline itself is stateless
	// across requests.
	ActivePark string
}

type StreamEventKind string

const (
	StreamEventKindToken StreamEventKind = "token"
	StreamEventKindDone  StreamEventKind = "done"
	StreamEventKindError StreamEventKind = "error"
)

// StreamEvent is one item of the streamed variant: token payloads are
// strings, done payloads are *StreamDone, error payloads are strings.
type StreamEvent struct {
	Kind    StreamEventKind
	Payload interface{}
}

// StreamDone is the discrete terminal event of a streamed answer. Citations
// are always delivered here, never token-by-token.
type StreamDone struct {
	Sources    []Citation
	NumSources int
	ActivePark string
}

// AnswerPipeline sequences context resolution, query rewriting, retrieval and
// generation for one request. A fresh state is built per call; nothing is
// shared across concurrent requests.
type AnswerPipeline interface {
	Answer(ctx context.Context, input AnswerInput) (*AnswerOutput, error)
	Stream(ctx context.Context, input AnswerInput) <-chan StreamEvent
}

// pipelineStep identifies a node in the fixed orchestration graph:
//
//	ResolveContext -> {RewriteQuery | skip} -> Retrieve -> {Generate | NoResults} -> Done
//
// The graph is straight-line with two binary branches; no step is ever
// revisited within a request.
type pipelineStep int

const (
	stepResolveContext pipelineStep = iota
	stepRewriteQuery
	stepRetrieve
	stepGenerate
	stepNoResults
	stepDone
)

// conversationState is the value threaded through one request. It exists only
// for the lifetime of that request.
type conversationState struct {
	requestID    string
	question     string
	topK         int
	history      []domain.Turn
	explicitHint string
	activePark   string
	searchQuery  string
	passages     []domain.Passage
	answer       string
	sources      []Citation
}

type answerPipeline struct {
	resolver    ParkContextResolver
	rewriter    QueryRewriter
	retriever   Retriever
	generator   AnswerGenerator
	defaultTopK int
	logger      *slog.Logger
}

// NewAnswerPipeline wires the pipeline components together.
func NewAnswerPipeline(
	resolver ParkContextResolver,
	rewriter QueryRewriter,
	retriever Retriever,
	generator AnswerGenerator,
	defaultTopK int,
	logger *slog.Logger,
) AnswerPipeline {
	return &answerPipeline{
		resolver:    resolver,
		rewriter:    rewriter,
		retriever:   retriever,
		generator:   generator,
		defaultTopK: defaultTopK,
		logger:      logger,
	}
}

func (p *answerPipeline) newState(input AnswerInput) (*conversationState, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}
	topK := input.TopK
	if topK <= 0 {
		topK = p.defaultTopK
	}
	return &conversationState{
		requestID:    uuid.NewString(),
		question:     input.Question,
		topK:         topK,
		history:      input.History,
		explicitHint: input.ParkCode,
		searchQuery:  input.Question,
	}, nil
}

// prepare runs the graph up to the generation decision and returns the state
// together with the branch taken (stepGenerate or stepNoResults).
func (p *answerPipeline) prepare(ctx context.Context, input AnswerInput) (*conversationState, pipelineStep, error) {
	st, err := p.newState(input)
	if err != nil {
		return nil, stepDone, err
	}

	step := stepResolveContext
	for {
		switch step {
		case stepResolveContext:
			st.activePark = p.resolver.Resolve(st.question, st.history, st.explicitHint)
			p.logger.Info("park_context_resolved",
				slog.String("request_id", st.requestID),
				slog.String("park_code", st.activePark),
				slog.Int("history_len", len(st.history)),
			)
			// Rewriting only makes sense when there is history to
			// disambiguate against.
			if len(st.history) > 0 {
				step = stepRewriteQuery
			} else {
				step = stepRetrieve
			}

		case stepRewriteQuery:
			st.searchQuery = p.rewriter.Rewrite(ctx, st.question, st.history, st.activePark)
			step = stepRetrieve

		case stepRetrieve:
			passages, err := p.retriever.Retrieve(ctx, st.searchQuery, st.activePark, st.topK)
			if err != nil {
				return st, stepDone, err
			}
			st.passages = passages
			if len(passages) > 0 {
				return st, stepGenerate, nil
			}
			return st, stepNoResults, nil
		}
	}
}

func (p *answerPipeline) Answer(ctx context.Context, input AnswerInput) (*AnswerOutput, error) {
	st, step, err := p.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	switch step {
	case stepGenerate:
		answer, citations, err := p.generator.Generate(ctx, st.question, st.passages, st.activePark, st.history)
		if err != nil {
			return nil, err
		}
		st.answer = answer
		st.sources = citations
	case stepNoResults:
		st.answer = noResultsMessage
		st.sources = nil
	}

	return &AnswerOutput{
		Answer:     st.answer,
		Sources:    st.sources,
		Question:   st.question,
		NumSources: len(st.sources),
		ActivePark: st.activePark,
	}, nil
}

func (p *answerPipeline) Stream(ctx context.Context, input AnswerInput) <-chan StreamEvent {
	events := make(chan StreamEvent, 4)
	go func() {
		defer close(events)

		st, step, err := p.prepare(ctx, input)
		if err != nil {
			p.sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventKindError, Payload: err.Error()})
			return
		}

		if step == stepNoResults {
			// No LLM call on this path; the fallback text arrives as a
			// single token followed immediately by the done event.
			if !p.sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventKindToken, Payload: noResultsMessage}) {
				return
			}
			p.sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventKindDone, Payload: &StreamDone{
				ActivePark: st.activePark,
			}})
			return
		}

		chunkCh, errCh, err := p.generator.GenerateStream(ctx, st.question, st.passages, st.activePark, st.history)
		if err != nil {
			p.sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventKindError, Payload: err.Error()})
			return
		}

		chunkStream := chunkCh
		errStream := errCh
		for chunkStream != nil || errStream != nil {
			select {
			case <-ctx.Done():
				return
			case chunk, ok := <-chunkStream:
				if !ok {
					chunkStream = nil
					continue
				}
				if chunk.Delta != "" {
					if !p.sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventKindToken, Payload: chunk.Delta}) {
						return
					}
				}
				if chunk.Done {
					chunkStream = nil
					errStream = nil
				}
			case streamErr, ok := <-errStream:
				if !ok {
					errStream = nil
					continue
				}
				p.sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventKindError, Payload: streamErr.Error()})
				return
			}
		}

		sources := p.generator.Citations(st.passages)
		p.sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventKindDone, Payload: &StreamDone{
			Sources:    sources,
			NumSources: len(sources),
			ActivePark: st.activePark,
		}})
	}()
	return events
}

func (p *answerPipeline) sendStreamEvent(ctx context.Context, events chan<- StreamEvent, event StreamEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case events <- event:
		return true
	}
}
