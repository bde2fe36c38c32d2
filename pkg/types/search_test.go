package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSearchParamsWords(t *testing.T) {
	tests := []struct {
		term string
		want []string
	}{
		{"God", []string{"God"}},
		{"in the beginning God", []string{"the", "beginning", "God"}},
		{"  é de  ", nil},
		{"", nil},
		{"Deus criou", []string{"Deus", "criou"}},
		{"céu", []string{"céu"}},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchParams{Term: tt.term}.Words())
		})
	}
}

func TestSearchParamsValidate(t *testing.T) {
	assert.NoError(t, SearchParams{Term: "x"}.Validate())
	assert.NoError(t, SearchParams{Term: "x", Testament: OldTestament}.Validate())
	assert.ErrorIs(t, SearchParams{Testament: "Apocrypha"}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, SearchParams{BookID: -1}.Validate(), ErrInvalidInput)
}

func TestVerseOfDayIndex(t *testing.T) {
	day := time.Date(2026, time.February, 3, 8, 0, 0, 0, time.UTC) // day 34

	assert.Equal(t, 34, VerseOfDayIndex(day, 1000))
	assert.Equal(t, 4, VerseOfDayIndex(day, 10))
	assert.Equal(t, 0, VerseOfDayIndex(day, 0))

	later := time.Date(2026, time.February, 3, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, VerseOfDayIndex(day, 31102), VerseOfDayIndex(later, 31102))
}
