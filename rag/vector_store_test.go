package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"
)

func storedDoc(id string, vec ...float64) Document {
	return Document{ID: id, Content: "content " + id, Embedding: vec}
}

func TestInMemoryStore_AddAndCount(t *testing.T) {
	s := NewInMemoryStore(zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, storedDoc("a", 1, 0), storedDoc("b", 0, 1)))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInMemoryStore_Add_RequiresEmbedding(t *testing.T) {
	s := NewInMemoryStore(zaptest.NewLogger(t))
	err := s.Add(context.Background(), Document{ID: "naked", Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "naked")
}

func TestInMemoryStore_Add_ReplacesByID(t *testing.T) {
	s := NewInMemoryStore(zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, storedDoc("a", 1, 0)))
	require.NoError(t, s.Add(ctx, storedDoc("a", 0, 1)))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := s.Search(ctx, []float64{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
}

func TestInMemoryStore_Search(t *testing.T) {
	s := NewInMemoryStore(zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, s.Add(ctx,
		storedDoc("east", 1, 0),
		storedDoc("north", 0, 1),
		storedDoc("northeast", 1, 1),
	))

	res, err := s.Search(ctx, []float64{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "east", res[0].Document.ID)
	assert.Equal(t, "northeast", res[1].Document.ID)
	assert.Greater(t, res[0].Score, res[1].Score)
}

func TestInMemoryStore_Search_EmptyStore(t *testing.T) {
	s := NewInMemoryStore(zaptest.NewLogger(t))
	res, err := s.Search(context.Background(), []float64{1}, 5)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestInMemoryStore_Search_EmptyQuery(t *testing.T) {
	s := NewInMemoryStore(zaptest.NewLogger(t))
	_, err := s.Search(context.Background(), nil, 5)
	assert.Error(t, err)
}

func TestInMemoryStore_Delete(t *testing.T) {
	s := NewInMemoryStore(zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, storedDoc("a", 1, 0), storedDoc("b", 0, 1)))
	require.NoError(t, s.Delete(ctx, "a", "never-existed"))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := s.Search(ctx, []float64{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "b", res[0].Document.ID)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "opposite", a: []float64{1, 0}, b: []float64{-1, 0}, want: -1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "length mismatch", a: []float64{1, 0}, b: []float64{1}, want: 0},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

// Cosine similarity is symmetric, bounded, and scale-invariant.
func TestCosineSimilarity_Properties(t *testing.T) {
	vecGen := func(n int) *rapid.Generator[[]float64] {
		return rapid.SliceOfN(rapid.Float64Range(-100, 100), n, n)
	}

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 16).Draw(rt, "dims")
		a := vecGen(n).Draw(rt, "a")
		b := vecGen(n).Draw(rt, "b")

		sim := cosineSimilarity(a, b)
		assert.GreaterOrEqual(rt, sim, -1.0-1e-9)
		assert.LessOrEqual(rt, sim, 1.0+1e-9)
		assert.InDelta(rt, sim, cosineSimilarity(b, a), 1e-9)

		scale := rapid.Float64Range(0.1, 10).Draw(rt, "scale")
		scaled := make([]float64, n)
		for i := range a {
			scaled[i] = a[i] * scale
		}
		assert.InDelta(rt, sim, cosineSimilarity(scaled, b), 1e-6)
	})
}
