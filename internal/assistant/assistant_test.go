package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/txview"
)

var now = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)

func sampleView() txview.View {
	txs := []domain.Transaction{
		{ID: "1", Description: "Salary", Amount: 2500, Type: domain.TransactionTypeIncome,
			TransactionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", Description: "Rent, January", Amount: -1200, Type: domain.TransactionTypeExpense,
			TransactionDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Category: &domain.Category{Name: "Housing"}},
	}
	return txview.Derive(txs, txview.ViewState{SearchTerm: "", SortBy: txview.SortByAmount}, now)
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt("  How much did I spend on rent?  ", sampleView(), now)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Today is 2024-01-20.")
	assert.Contains(t, prompt, "- sorted by: amount")
	assert.Contains(t, prompt, "2 transactions, 1 income, 1 expense, 2 this month")
	assert.Contains(t, prompt, "Date,Description,Category,Account,Type,Amount,Created At\n")
	assert.Contains(t, prompt, `2024-01-01,Salary,Uncategorized,Unknown Account,income,2500,N/A`)
	assert.Contains(t, prompt, `"Rent, January",Housing`)
	assert.True(t, strings.HasSuffix(prompt, "Question: How much did I spend on rent?\n"))
}

func TestBuildPrompt_Empty(t *testing.T) {
	_, err := BuildPrompt("   ", sampleView(), now)
	assert.True(t, errors.Is(err, ErrEmptyQuestion))

	prompt, err := BuildPrompt("Anything?", txview.Derive(nil, txview.DefaultState(), now), now)
	require.NoError(t, err)
	assert.Contains(t, prompt, "There are no transactions in the current view.")
}

func TestBuildPrompt_Truncates(t *testing.T) {
	txs := make([]domain.Transaction, MaxPromptTransactions+5)
	for i := range txs {
		txs[i] = domain.Transaction{ID: fmt.Sprint(i), Description: "item", Amount: 1, Type: domain.TransactionTypeIncome, TransactionDate: now}
	}

	prompt, err := BuildPrompt("Count?", txview.Derive(txs, txview.DefaultState(), now), now)
	require.NoError(t, err)
	assert.Equal(t, MaxPromptTransactions, strings.Count(prompt, ",item,"))
	assert.Contains(t, prompt, fmt.Sprintf("(showing the first %d of %d transactions)", MaxPromptTransactions, len(txs)))
}

type fakeGenerator struct {
	prompt string
	out    string
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

func TestPromptAssistant_Answer(t *testing.T) {
	gen := &fakeGenerator{out: "  You spent 1200 on rent.\n"}
	a := New(gen)
	a.now = func() time.Time { return now }

	answer, err := a.Answer(context.Background(), "Rent?", sampleView())
	require.NoError(t, err)
	assert.Equal(t, "You spent 1200 on rent.", answer)
	assert.Contains(t, gen.prompt, "Question: Rent?")
}

func TestPromptAssistant_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := New(&fakeGenerator{}).Answer(ctx, "", sampleView())
	assert.True(t, errors.Is(err, ErrEmptyQuestion))

	_, err = New(&fakeGenerator{out: "   "}).Answer(ctx, "Rent?", sampleView())
	assert.Error(t, err)

	quota := errors.New("quota exceeded")
	_, err = New(&fakeGenerator{err: quota}).Answer(ctx, "Rent?", sampleView())
	assert.True(t, errors.Is(err, quota))
}
