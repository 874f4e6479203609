package locations_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/illmade-knight/bikepark/pkg/locations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := locations.NewInMemoryStore()

	first, err := store.Create(ctx, locations.Location{Endereco: "Rua A", Numero: "10", QtdTotais: 1})
	require.NoError(t, err)
	second, err := store.Create(ctx, locations.Location{Endereco: "Rua A", Numero: "10", QtdTotais: 2})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	t.Run("composite key returns the first inserted", func(t *testing.T) {
		found, err := store.FindByEnderecoAndNumero(ctx, "Rua A", "10")
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
	})

	t.Run("composite key is exact", func(t *testing.T) {
		_, err := store.FindByEnderecoAndNumero(ctx, "rua a", "10")
		require.ErrorIs(t, err, locations.ErrNotFound)
	})

	t.Run("save keeps insertion order", func(t *testing.T) {
		first.QtdReservada = 9
		_, err := store.Save(ctx, first)
		require.NoError(t, err)
		all, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, first, all[0])
		assert.Equal(t, second, all[1])
	})

	t.Run("save without id", func(t *testing.T) {
		_, err := store.Save(ctx, locations.Location{Endereco: "Rua C"})
		require.ErrorIs(t, err, locations.ErrValidation)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, first.ID))
		require.NoError(t, store.Delete(ctx, first.ID))
		_, err := store.GetByID(ctx, first.ID)
		require.ErrorIs(t, err, locations.ErrNotFound)
		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []locations.Location{second}, all)
	})
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := locations.NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := store.Create(ctx, locations.Location{Endereco: "Rua", Numero: fmt.Sprint(n)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}

func TestInMemoryIndex(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t)

	loc := locations.Location{ID: "1", Endereco: "Rua das Flores", Numero: "10", QtdTotais: 5, QtdReservada: 2}
	require.NoError(t, index.Save(ctx, loc))

	t.Run("finds by text and keyword", func(t *testing.T) {
		results, err := index.Search(ctx, "flores")
		require.NoError(t, err)
		assert.Equal(t, []locations.Location{loc}, results)

		results, err = index.Search(ctx, "qtdReservada:2")
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("resave drops stale terms", func(t *testing.T) {
		moved := loc
		moved.Endereco = "Avenida Brasil"
		require.NoError(t, index.Save(ctx, moved))

		results, err := index.Search(ctx, "flores")
		require.NoError(t, err)
		assert.Empty(t, results)

		results, err = index.Search(ctx, "brasil")
		require.NoError(t, err)
		assert.Equal(t, []locations.Location{moved}, results)
	})

	t.Run("text is folded to ascii", func(t *testing.T) {
		se := locations.Location{ID: "2", Endereco: "Praça da Sé", Numero: "1", QtdTotais: 3}
		require.NoError(t, index.Save(ctx, se))
		defer func() { require.NoError(t, index.Delete(ctx, "2")) }()

		results, err := index.Search(ctx, "+praca +endereco:se")
		require.NoError(t, err)
		assert.Equal(t, []locations.Location{se}, results)

		results, err = index.Search(ctx, `endereco:"PRAÇA DA SÉ"`)
		require.NoError(t, err)
		assert.Equal(t, []locations.Location{se}, results)
	})

	t.Run("excluded terms and unknown fields", func(t *testing.T) {
		results, err := index.Search(ctx, "-brasil")
		require.NoError(t, err)
		assert.Empty(t, results)

		results, err = index.Search(ctx, "cidade:recife")
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("blank query matches nothing", func(t *testing.T) {
		results, err := index.Search(ctx, "  ")
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("delete removes the document", func(t *testing.T) {
		require.NoError(t, index.Delete(ctx, "1"))
		require.NoError(t, index.Delete(ctx, "1"))
		results, err := index.Search(ctx, "*")
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestInMemoryIndex_Ranking(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t)

	flores := locations.Location{ID: "a", Endereco: "Rua das Flores", Numero: "10", QtdTotais: 5}
	paulista := locations.Location{ID: "b", Endereco: "Avenida Paulista", Numero: "10", QtdTotais: 8}
	require.NoError(t, index.Save(ctx, flores))
	require.NoError(t, index.Save(ctx, paulista))

	results, err := index.Search(ctx, "paulista 10")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ID, "more matching terms rank first")

	results, err = index.Search(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []locations.Location{flores, paulista}, results, "equal scores fall back to id order")

	_, err = index.Search(ctx, "numero:")
	require.ErrorIs(t, err, locations.ErrValidation)
}
