package assistant

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/export"
	"github.com/dvloznov/finance-dashboard/internal/txview"
)

// MaxPromptTransactions caps the transactions embedded in a prompt.
const MaxPromptTransactions = 200

// ErrEmptyQuestion is returned when the question is blank.
var ErrEmptyQuestion = errors.New("question is required")

// BuildPrompt renders the question together with the transactions view the
// user is looking at. Transactions are embedded as CSV in view order,
// truncated to MaxPromptTransactions.
func BuildPrompt(question string, view txview.View, now time.Time) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	txs := view.Transactions
	truncated := false
	if len(txs) > MaxPromptTransactions {
		txs = txs[:MaxPromptTransactions]
		truncated = true
	}

	var b strings.Builder
	b.WriteString("You are a personal finance assistant embedded in a transactions dashboard.\n")
	b.WriteString("Answer the user's question using ONLY the transactions below.\n")
	b.WriteString("Amounts are signed: positive for money IN, negative for money OUT.\n")
	b.WriteString("If the data does not contain the answer, say so. Keep the answer short and plain text.\n\n")

	fmt.Fprintf(&b, "Today is %s.\n", now.Format(export.DateLayout))
	b.WriteString("Current view:\n")
	fmt.Fprintf(&b, "- search: %q\n", view.State.SearchTerm)
	fmt.Fprintf(&b, "- type filter: %s\n", view.State.FilterType)
	fmt.Fprintf(&b, "- sorted by: %s\n", view.State.SortBy)
	fmt.Fprintf(&b, "- totals: %d transactions, %d income, %d expense, %d this month\n\n",
		view.Stats.Total, view.Stats.Income, view.Stats.Expense, view.Stats.ThisMonth)

	if len(txs) == 0 {
		b.WriteString("There are no transactions in the current view.\n\n")
	} else {
		b.WriteString("Transactions (CSV):\n")
		b.WriteString(export.ConvertToCSV(export.FormatTransactionsForCSV(txs)))
		b.WriteString("\n")
		if truncated {
			fmt.Fprintf(&b, "(showing the first %d of %d transactions)\n", MaxPromptTransactions, len(view.Transactions))
		}
		b.WriteString("\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n")

	return b.String(), nil
}
