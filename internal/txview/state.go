package txview

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownFilter is returned for a type filter other than all, income or expense.
	ErrUnknownFilter = errors.New("unknown transaction type filter")
	// ErrUnknownSort is returned for a sort key other than date, amount or category.
	ErrUnknownSort = errors.New("unknown sort key")
)

// FilterType restricts the view to one transaction type.
type FilterType string

const (
	FilterAll     FilterType = "all"
	FilterIncome  FilterType = "income"
	FilterExpense FilterType = "expense"
)

// SortKey selects the ordering of the view.
type SortKey string

const (
	// SortByDate orders by transaction date, newest first.
	SortByDate SortKey = "date"
	// SortByAmount orders by absolute amount, largest first.
	SortByAmount SortKey = "amount"
	// SortByCategory orders by category name, A to Z.
	SortByCategory SortKey = "category"
)

// ParseFilterType converts a case-insensitive filter name; "" means all.
func ParseFilterType(s string) (FilterType, error) {
	switch f := FilterType(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterIncome, FilterExpense:
		return f, nil
	}
	return "", fmt.Errorf("ParseFilterType: %q: %w", s, ErrUnknownFilter)
}

// ParseSortKey converts a case-insensitive sort key; "" means date.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortByDate, nil
	case SortByDate, SortByAmount, SortByCategory:
		return k, nil
	}
	return "", fmt.Errorf("ParseSortKey: %q: %w", s, ErrUnknownSort)
}

// ViewState is the user-controlled input of the transactions view. It is an
// immutable value: updates produce a new state through Reduce.
type ViewState struct {
	SearchTerm string     `json:"search_term"`
	FilterType FilterType `json:"filter_type"`
	SortBy     SortKey    `json:"sort_by"`
}

// DefaultState is the state of a freshly opened view.
func DefaultState() ViewState {
	return ViewState{FilterType: FilterAll, SortBy: SortByDate}
}

// Normalize fills empty or unknown fields with their defaults.
func (s ViewState) Normalize() ViewState {
	if f, err := ParseFilterType(string(s.FilterType)); err == nil {
		s.FilterType = f
	} else {
		s.FilterType = FilterAll
	}
	if k, err := ParseSortKey(string(s.SortBy)); err == nil {
		s.SortBy = k
	} else {
		s.SortBy = SortByDate
	}
	return s
}

// ParseState builds a normalized state from raw query values, rejecting
// unknown filter and sort names.
func ParseState(search, filter, sort string) (ViewState, error) {
	f, err := ParseFilterType(filter)
	if err != nil {
		return ViewState{}, err
	}
	k, err := ParseSortKey(sort)
	if err != nil {
		return ViewState{}, err
	}
	return ViewState{SearchTerm: search, FilterType: f, SortBy: k}, nil
}

// Action is a state transition of the view.
type Action interface {
	apply(ViewState) ViewState
}

// SetSearch replaces the search term.
type SetSearch struct{ Term string }

// SetFilter replaces the type filter. Unknown values leave the state unchanged.
type SetFilter struct{ Filter string }

// SetSort replaces the sort key. Unknown values leave the state unchanged.
type SetSort struct{ Key string }

// Reset returns to DefaultState.
type Reset struct{}

func (a SetSearch) apply(s ViewState) ViewState {
	s.SearchTerm = a.Term
	return s
}

func (a SetFilter) apply(s ViewState) ViewState {
	if f, err := ParseFilterType(a.Filter); err == nil {
		s.FilterType = f
	}
	return s
}

func (a SetSort) apply(s ViewState) ViewState {
	if k, err := ParseSortKey(a.Key); err == nil {
		s.SortBy = k
	}
	return s
}

func (Reset) apply(ViewState) ViewState {
	return DefaultState()
}

// Reduce applies actions in order and returns the resulting state. The input
// state is not modified.
func Reduce(state ViewState, actions ...Action) ViewState {
	state = state.Normalize()
	for _, a := range actions {
		if a == nil {
			continue
		}
		state = a.apply(state)
	}
	return state
}
