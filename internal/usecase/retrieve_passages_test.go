package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"parks-rag/internal/domain"
	"parks-rag/internal/usecase"
)

// MockVectorEncoder
type MockVectorEncoder struct {
	mock.Mock
}

func (m *MockVectorEncoder) EncodeQueries(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockVectorEncoder) EncodeDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockVectorEncoder) Version() string { return "mock-encoder-v1" }

// MockPassageRepository
type MockPassageRepository struct {
	mock.Mock
}

func (m *MockPassageRepository) Search(ctx context.Context, queryVector []float32, parkCode string, limit int) ([]domain.Passage, error) {
	args := m.Called(ctx, queryVector, parkCode, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Passage), args.Error(1)
}

func (m *MockPassageRepository) BulkInsert(ctx context.Context, passages []domain.StoredPassage) error {
	args := m.Called(ctx, passages)
	return args.Error(0)
}

func (m *MockPassageRepository) EnsureSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPassageRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func passageFor(code string, score float32) domain.Passage {
	return domain.Passage{
		ChunkID:  code + "_chunk",
		ParkCode: code,
		ParkName: code,
		Content:  "passage about " + code,
		Score:    score,
	}
}

func TestRetrieve_FilteredSearch(t *testing.T) {
	mockEncoder := new(MockVectorEncoder)
	mockRepo := new(MockPassageRepository)
	r := usecase.NewRetriever(mockEncoder, mockRepo, testLogger())

	ctx := context.Background()
	vector := []float32{0.1, 0.2, 0.3}
	expected := []domain.Passage{passageFor("yell", 0.91), passageFor("yell", 0.84)}

	mockEncoder.On("EncodeQueries", ctx, []string{"geysers in yellowstone"}).
		Return([][]float32{vector}, nil)
	mockRepo.On("Search", ctx, vector, "yell", 5).Return(expected, nil)

	passages, err := r.Retrieve(ctx, "geysers in yellowstone", "yell", 5)
	assert.NoError(t, err)
	assert.Equal(t, expected, passages)
	mockEncoder.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	mockEncoder := new(MockVectorEncoder)
	mockRepo := new(MockPassageRepository)
	r := usecase.NewRetriever(mockEncoder, mockRepo, testLogger())

	mockEncoder.On("EncodeQueries", mock.Anything, mock.Anything).
		Return(nil, errors.New("embedding api unavailable"))

	_, err := r.Retrieve(context.Background(), "anything", "", 5)
	var provErr *domain.ProviderError
	assert.ErrorAs(t, err, &provErr)
	assert.Equal(t, domain.ProviderEmbedding, provErr.Provider)
	mockRepo.AssertNotCalled(t, "Search")
}

func TestRetrieve_StoreFailure(t *testing.T) {
	mockEncoder := new(MockVectorEncoder)
	mockRepo := new(MockPassageRepository)
	r := usecase.NewRetriever(mockEncoder, mockRepo, testLogger())

	vector := []float32{0.5}
	mockEncoder.On("EncodeQueries", mock.Anything, mock.Anything).
		Return([][]float32{vector}, nil)
	mockRepo.On("Search", mock.Anything, vector, "", 5).
		Return(nil, errors.New("connection refused"))

	_, err := r.Retrieve(context.Background(), "anything", "", 5)
	var provErr *domain.ProviderError
	assert.ErrorAs(t, err, &provErr)
	assert.Equal(t, domain.ProviderVectorStore, provErr.Provider)
}

func TestRetrieve_DegradedFallbackFiltersInProcess(t *testing.T) {
	mockEncoder := new(MockVectorEncoder)
	mockRepo := new(MockPassageRepository)
	r := usecase.NewRetriever(mockEncoder, mockRepo, testLogger())

	ctx := context.Background()
	vector := []float32{0.1, 0.2}

	mockEncoder.On("EncodeQueries", ctx, mock.Anything).Return([][]float32{vector}, nil)
	mockRepo.On("Search", ctx, vector, "zion", 2).
		Return(nil, domain.ErrFilteredIndexUnavailable)

	// The unfiltered re-query fetches 3x the requested size; in-process
	// filtering must keep only zion passages in store order, truncated to
	// topK.
	candidates := []domain.Passage{
		passageFor("yell", 0.95),
		passageFor("zion", 0.90),
		passageFor("grca", 0.88),
		passageFor("zion", 0.85),
		passageFor("zion", 0.80),
	}
	mockRepo.On("Search", ctx, vector, "", 6).Return(candidates, nil)

	passages, err := r.Retrieve(ctx, "narrows hike", "zion", 2)
	assert.NoError(t, err)
	assert.Len(t, passages, 2)
	assert.Equal(t, float32(0.90), passages[0].Score)
	assert.Equal(t, float32(0.85), passages[1].Score)
	for _, p := range passages {
		assert.Equal(t, "zion", p.ParkCode)
	}
	mockRepo.AssertExpectations(t)
}

func TestRetrieve_DegradedFallbackOnlyWhenFiltered(t *testing.T) {
	mockEncoder := new(MockVectorEncoder)
	mockRepo := new(MockPassageRepository)
	r := usecase.NewRetriever(mockEncoder, mockRepo, testLogger())

	vector := []float32{0.1}
	mockEncoder.On("EncodeQueries", mock.Anything, mock.Anything).Return([][]float32{vector}, nil)
	// Without an active park there is no fallback to take; the error
	// surfaces as a store failure.
	mockRepo.On("Search", mock.Anything, vector, "", 5).
		Return(nil, domain.ErrFilteredIndexUnavailable)

	_, err := r.Retrieve(context.Background(), "anything", "", 5)
	var provErr *domain.ProviderError
	assert.ErrorAs(t, err, &provErr)
	assert.Equal(t, domain.ProviderVectorStore, provErr.Provider)
	mockRepo.AssertNumberOfCalls(t, "Search", 1)
}

func TestRetrieve_DegradedFallbackRequeryFailure(t *testing.T) {
	mockEncoder := new(MockVectorEncoder)
	mockRepo := new(MockPassageRepository)
	r := usecase.NewRetriever(mockEncoder, mockRepo, testLogger())

	vector := []float32{0.1}
	mockEncoder.On("EncodeQueries", mock.Anything, mock.Anything).Return([][]float32{vector}, nil)
	mockRepo.On("Search", mock.Anything, vector, "glac", 5).
		Return(nil, domain.ErrFilteredIndexUnavailable)
	mockRepo.On("Search", mock.Anything, vector, "", 15).
		Return(nil, errors.New("connection reset"))

	_, err := r.Retrieve(context.Background(), "going-to-the-sun road", "glac", 5)
	var provErr *domain.ProviderError
	assert.ErrorAs(t, err, &provErr)
	assert.Equal(t, domain.ProviderVectorStore, provErr.Provider)
}

func TestRetrieve_EmptyResultIsNotAnError(t *testing.T) {
	mockEncoder := new(MockVectorEncoder)
	mockRepo := new(MockPassageRepository)
	r := usecase.NewRetriever(mockEncoder, mockRepo, testLogger())

	vector := []float32{0.1}
	mockEncoder.On("EncodeQueries", mock.Anything, mock.Anything).Return([][]float32{vector}, nil)
	mockRepo.On("Search", mock.Anything, vector, "acad", 5).Return([]domain.Passage{}, nil)

	passages, err := r.Retrieve(context.Background(), "puffin colonies", "acad", 5)
	assert.NoError(t, err)
	assert.Empty(t, passages)
}
