package txview

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	tests := []struct {
		name    string
		start   ViewState
		actions []Action
		want    ViewState
	}{
		{
			name:  "no actions normalizes",
			start: ViewState{},
			want:  ViewState{FilterType: FilterAll, SortBy: SortByDate},
		},
		{
			name:    "set search",
			start:   DefaultState(),
			actions: []Action{SetSearch{Term: "grocery"}},
			want:    ViewState{SearchTerm: "grocery", FilterType: FilterAll, SortBy: SortByDate},
		},
		{
			name:    "set filter and sort",
			start:   DefaultState(),
			actions: []Action{SetFilter{Filter: "expense"}, SetSort{Key: "Amount"}},
			want:    ViewState{FilterType: FilterExpense, SortBy: SortByAmount},
		},
		{
			name:    "unknown values are ignored",
			start:   ViewState{FilterType: FilterIncome, SortBy: SortByCategory},
			actions: []Action{SetFilter{Filter: "transfer"}, SetSort{Key: "merchant"}},
			want:    ViewState{FilterType: FilterIncome, SortBy: SortByCategory},
		},
		{
			name:    "reset",
			start:   ViewState{SearchTerm: "x", FilterType: FilterIncome, SortBy: SortByAmount},
			actions: []Action{Reset{}},
			want:    DefaultState(),
		},
		{
			name:    "actions apply in order",
			start:   DefaultState(),
			actions: []Action{SetSearch{Term: "a"}, Reset{}, SetSearch{Term: "b"}, nil},
			want:    ViewState{SearchTerm: "b", FilterType: FilterAll, SortBy: SortByDate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := tt.start
			got := Reduce(tt.start, tt.actions...)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, start, tt.start, "input state is not modified")
		})
	}
}

func TestParseState(t *testing.T) {
	s, err := ParseState("rent", "", "")
	require.NoError(t, err)
	assert.Equal(t, ViewState{SearchTerm: "rent", FilterType: FilterAll, SortBy: SortByDate}, s)

	s, err = ParseState("", "INCOME", "category")
	require.NoError(t, err)
	assert.Equal(t, FilterIncome, s.FilterType)
	assert.Equal(t, SortByCategory, s.SortBy)

	_, err = ParseState("", "transfer", "")
	assert.True(t, errors.Is(err, ErrUnknownFilter))

	_, err = ParseState("", "", "merchant")
	assert.True(t, errors.Is(err, ErrUnknownSort))
}

func TestNormalize(t *testing.T) {
	got := ViewState{SearchTerm: "x", FilterType: "bogus", SortBy: "bogus"}.Normalize()
	assert.Equal(t, ViewState{SearchTerm: "x", FilterType: FilterAll, SortBy: SortByDate}, got)
}
