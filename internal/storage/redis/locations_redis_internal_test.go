package redis

import (
	"testing"

	"github.com/illmade-knight/bikepark/pkg/locations"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	x := NewLocationsIndex(nil, "")
	assert.Equal(t, "localizacao:doc:abc", x.docKey("abc"))
	assert.Equal(t, "localizacao:idx", x.indexName())

	custom := NewLocationsIndex(nil, "test")
	assert.Equal(t, "test:doc:", custom.docPrefix())
}

func TestSchema(t *testing.T) {
	fields := schema()
	require.Len(t, fields, len(locations.IndexFields))

	byName := map[string]*redis.FieldSchema{}
	for _, f := range fields {
		byName[f.FieldName] = f
	}
	endereco := byName["endereco_terms"]
	require.NotNil(t, endereco)
	assert.Equal(t, "endereco", endereco.As)
	assert.Equal(t, redis.SearchFieldTypeText, endereco.FieldType)
	require.NotNil(t, byName["qtdReservada"])
	assert.Equal(t, redis.SearchFieldTypeTag, byName["qtdReservada"].FieldType)
}

func TestRender(t *testing.T) {
	testCases := []struct {
		name  string
		query string
		want  string
	}{
		{"bare term hits every field", "flores", "(@endereco|numero:flores | @qtdTotais:{flores} | @qtdReservada:{flores})"},
		{"required and excluded", "+numero:10 -qtdTotais:5", "(@numero:10) -(@qtdTotais:{5})"},
		{"all required", "+endereco:rua +numero:10", "(@endereco:rua) (@numero:10)"},
		{"optional terms", "endereco:rua endereco:flores", "(@endereco:rua) | (@endereco:flores)"},
		{"phrase is folded", `endereco:"Praça da Sé"`, `@endereco:"praca da se"`},
		{"trailing wildcard", "endereco:flor*", "@endereco:flor*"},
		{"match all", "*", "*"},
		{"only exclusions", "-endereco:paulista", "-(@endereco:paulista)"},
		{"excluding an unknown field excludes nothing", "-cidade:recife", "*"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := Render(tc.query)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("unknown field matches nothing", func(t *testing.T) {
		_, ok, err := Render("cidade:recife")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = Render("+cidade:recife endereco:rua")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unsupported or malformed", func(t *testing.T) {
		for _, q := range []string{"numero:", "endereco:*flor", "qtdTotais:>3"} {
			_, _, err := Render(q)
			assert.ErrorIs(t, err, locations.ErrValidation, q)
		}
	})
}

func TestEscapeTag(t *testing.T) {
	assert.Equal(t, "5", escapeTag("5"))
	assert.Equal(t, `\-1`, escapeTag("-1"))
	assert.Equal(t, `a\ b`, escapeTag("a b"))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"praca", "da", "se"}, Tokenize("Praça-da-Sé"))
	assert.Equal(t, []string{"sao", "paulo", "10b"}, Tokenize("  SÃO Paulo, 10B "))
	assert.Empty(t, Tokenize(" -- "))
}

func TestToHash(t *testing.T) {
	hash := toHash(locations.Location{ID: "1", Endereco: "Praça da Sé", Numero: "10", QtdTotais: 5, QtdReservada: -1})
	assert.Equal(t, "Praça da Sé", hash["endereco"])
	assert.Equal(t, "praca da se", hash["endereco_terms"])
	assert.Equal(t, "10", hash["numero_terms"])
	assert.Equal(t, "-1", hash["qtdReservada"])
	assert.NotContains(t, hash, "qtdReservada_terms")
}

func TestFromHash(t *testing.T) {
	got, err := fromHash("1", map[string]string{
		"endereco":       "Rua A",
		"endereco_terms": "rua a",
		"numero":         "10",
		"qtdTotais":      "5",
		"qtdReservada":   "-2",
	})
	require.NoError(t, err)
	assert.Equal(t, locations.Location{ID: "1", Endereco: "Rua A", Numero: "10", QtdTotais: 5, QtdReservada: -2}, got)

	got, err = fromHash("2", map[string]string{"endereco": "Rua B"})
	require.NoError(t, err)
	assert.Zero(t, got.QtdTotais)

	_, err = fromHash("3", map[string]string{"qtdTotais": "x"})
	require.Error(t, err)
}
