package export

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownEntity is returned for an export entity other than
	// transactions, accounts or investments.
	ErrUnknownEntity = errors.New("unknown export entity")
	// ErrUnknownFormat is returned for an export format other than csv or xlsx.
	ErrUnknownFormat = errors.New("unknown export format")
)

// Entity names the kind of records being exported. It is also the filename
// prefix of the export.
type Entity string

const (
	EntityTransactions Entity = "transactions"
	EntityAccounts     Entity = "accounts"
	EntityInvestments  Entity = "investments"
)

// ParseEntity converts a case-insensitive entity name.
func ParseEntity(s string) (Entity, error) {
	switch e := Entity(strings.ToLower(strings.TrimSpace(s))); e {
	case EntityTransactions, EntityAccounts, EntityInvestments:
		return e, nil
	}
	return "", fmt.Errorf("ParseEntity: %q: %w", s, ErrUnknownEntity)
}

// Format is the output file format of an export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat converts a case-insensitive format name. An empty string
// selects CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("ParseFormat: %q: %w", s, ErrUnknownFormat)
}
