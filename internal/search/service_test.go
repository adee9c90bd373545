package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shubhamjha-sj/signal/pkg/logger"
	"github.com/Shubhamjha-sj/signal/pkg/types"
	"github.com/Shubhamjha-sj/signal/pkg/vectorindex"
)

type fakeEmbedder struct {
	got string
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.got = text
	return []float32{1, 0}, f.err
}

type fakeIndex struct {
	matches   []vectorindex.Match
	gotK      int
	gotFilter map[string]any
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, topK int, filter map[string]any) ([]vectorindex.Match, error) {
	f.gotK, f.gotFilter = topK, filter
	if len(f.matches) > topK {
		return f.matches[:topK], nil
	}
	return f.matches, nil
}

type fakeFeedback map[string]types.FeedbackItem

func (f fakeFeedback) GetFeedback(_ context.Context, id string) (*types.FeedbackItem, error) {
	it, ok := f[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &it, nil
}

func (f fakeFeedback) GetFeedbackByIDs(_ context.Context, ids []string) ([]types.FeedbackItem, error) {
	var out []types.FeedbackItem
	for _, id := range ids {
		if it, ok := f[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

var corpus = fakeFeedback{
	"a": {ID: "a", Content: "Workers cold starts are slow"},
	"b": {ID: "b", Content: "R2 uploads fail"},
	"c": {ID: "c", Content: "Workers deploy is slow"},
}

func TestService_SearchScoreOrder(t *testing.T) {
	idx := &fakeIndex{matches: []vectorindex.Match{
		{ID: "c", Score: 0.9},
		{ID: "gone", Score: 0.8},
		{ID: "a", Score: 0.7},
	}}
	svc := NewService(&fakeEmbedder{}, idx, corpus, logger.Discard())

	hits, err := svc.Search(context.Background(), " slow workers ", 0, Filters{Product: "workers"})
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "c", hits[0].ID)
	assert.Equal(t, 0.9, hits[0].Score)
	assert.Equal(t, "a", hits[1].ID)
	assert.Equal(t, DefaultLimit, idx.gotK)
	assert.Equal(t, map[string]any{"product": "workers"}, idx.gotFilter)
}

func TestService_SearchLimitIsCapped(t *testing.T) {
	idx := &fakeIndex{}
	svc := NewService(&fakeEmbedder{}, idx, corpus, logger.Discard())

	hits, err := svc.Search(context.Background(), "anything", 500, Filters{})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, MaxLimit, idx.gotK)
	assert.Nil(t, idx.gotFilter)
}

func TestService_SearchErrors(t *testing.T) {
	svc := NewService(&fakeEmbedder{err: types.ErrModelUnavailable}, &fakeIndex{}, corpus, logger.Discard())

	_, err := svc.Search(context.Background(), "  ", 5, Filters{})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = svc.Search(context.Background(), "query", 5, Filters{})
	assert.True(t, errors.Is(err, types.ErrModelUnavailable))
}

func TestService_SimilarExcludesSelf(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := &fakeIndex{matches: []vectorindex.Match{
		{ID: "a", Score: 1},
		{ID: "c", Score: 0.8},
		{ID: "b", Score: 0.2},
	}}
	svc := NewService(emb, idx, corpus, logger.Discard())

	hits, err := svc.Similar(context.Background(), "a", 1)
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "c", hits[0].ID)
	assert.Equal(t, 2, idx.gotK)
	assert.Equal(t, "Workers cold starts are slow", emb.got)
}

func TestService_SimilarUnknownItem(t *testing.T) {
	svc := NewService(&fakeEmbedder{}, &fakeIndex{}, corpus, logger.Discard())

	_, err := svc.Similar(context.Background(), "missing", 5)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
