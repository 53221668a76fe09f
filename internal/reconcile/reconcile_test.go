package reconcile

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenithbooks/statement-recon/internal/apperrors"
	"github.com/zenithbooks/statement-recon/internal/models"
)

func rec(key, value string) Record {
	return Record{Key: key, Value: decimal.RequireFromString(value)}
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "INV-001", CanonicalKey("inv-001 "))
	assert.Equal(t, "INV 001/A", CanonicalKey("  inv \t 001/a"))
	assert.Equal(t, "", CanonicalKey("   "))
}

func TestReconcileKeyNormalization(t *testing.T) {
	result, err := Reconcile(
		[]Record{rec("INV-001", "1000")},
		[]Record{rec("inv-001 ", "1000")},
		DefaultOptions(),
	)
	require.NoError(t, err)

	require.Len(t, result.Matched, 1)
	assert.True(t, result.Matched[0].Difference.IsZero())
	assert.True(t, result.Matched[0].Clean)
	assert.Equal(t, "INV-001", result.Matched[0].Key)
	assert.Empty(t, result.BooksOnly)
	assert.Empty(t, result.ExternalOnly)
}

func TestReconcileBooksOnly(t *testing.T) {
	result, err := Reconcile([]Record{rec("A", "500")}, []Record{}, DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, result.Matched)
	require.Len(t, result.BooksOnly, 1)
	assert.Equal(t, "A", result.BooksOnly[0].Key)
	assert.True(t, decimal.NewFromInt(500).Equal(result.BooksOnly[0].Value))
	assert.False(t, result.BooksOnly[0].Duplicate)
}

func TestReconcileWithinTolerance(t *testing.T) {
	result, err := Reconcile(
		[]Record{rec("INV-9", "1000.004")},
		[]Record{rec("INV-9", "1000.00")},
		DefaultOptions(),
	)
	require.NoError(t, err)

	require.Len(t, result.Matched, 1)
	pair := result.Matched[0]
	assert.Equal(t, "0.004", pair.Difference.String())
	assert.True(t, pair.Clean)
	assert.Equal(t, 1, result.Summary.CleanCount)
	assert.Equal(t, 0, result.Summary.DiscrepancyCount)
	assert.True(t, result.Summary.TotalDiscrepancy.IsZero())
}

func TestReconcileDiscrepancy(t *testing.T) {
	result, err := Reconcile(
		[]Record{rec("A", "100.00"), rec("B", "50")},
		[]Record{rec("A", "100.01"), rec("B", "75.50")},
		DefaultOptions(),
	)
	require.NoError(t, err)

	require.Len(t, result.Matched, 2)
	assert.True(t, result.Matched[0].Clean, "difference equal to tolerance is clean")
	assert.False(t, result.Matched[1].Clean)
	assert.Equal(t, "-25.5", result.Matched[1].Difference.String())

	s := result.Summary
	assert.Equal(t, 1, s.DiscrepancyCount)
	assert.Equal(t, "25.5", s.TotalDiscrepancy.String())
	assert.Equal(t, "150", s.TotalBookValue.String())
	assert.Equal(t, "175.51", s.TotalExternalValue.String())
	assert.Equal(t, "-25.51", s.Difference.String())
}

func TestReconcileZeroTolerance(t *testing.T) {
	result, err := Reconcile(
		[]Record{rec("A", "1000.004")},
		[]Record{rec("A", "1000")},
		Options{Tolerance: decimal.Zero},
	)
	require.NoError(t, err)
	assert.False(t, result.Matched[0].Clean)
}

func TestReconcileDuplicateExternalKeys(t *testing.T) {
	books := []Record{rec("A", "10"), rec("B", "20")}
	external := []Record{rec("a", "10"), rec("C", "5"), rec("A ", "11"), rec("B", "20")}

	result, err := Reconcile(books, external, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Matched, 2)
	assert.Equal(t, "10", result.Matched[0].External.Value.String(), "first occurrence wins")

	require.Len(t, result.ExternalOnly, 2)
	assert.Equal(t, "C", result.ExternalOnly[0].Key, "input order kept")
	assert.False(t, result.ExternalOnly[0].Duplicate)
	assert.Equal(t, "A ", result.ExternalOnly[1].Key)
	assert.True(t, result.ExternalOnly[1].Duplicate)

	assert.Equal(t, 1, result.Summary.DuplicateCount)
	require.Len(t, result.Notes, 1)
	assert.Contains(t, result.Notes[0], "A x2")
}

func TestReconcileDuplicateBookKeys(t *testing.T) {
	result, err := Reconcile(
		[]Record{rec("A", "10"), rec("a", "10"), rec("Z", "1"), rec("Z", "1")},
		[]Record{rec("A", "10")},
		DefaultOptions(),
	)
	require.NoError(t, err)

	require.Len(t, result.Matched, 1)
	require.Len(t, result.BooksOnly, 3)
	assert.True(t, result.BooksOnly[0].Duplicate)
	assert.False(t, result.BooksOnly[1].Duplicate)
	assert.True(t, result.BooksOnly[2].Duplicate)
	assert.Equal(t, 2, result.Summary.DuplicateCount)
}

func TestReconcilePartitionTotality(t *testing.T) {
	books := []Record{rec("1", "1"), rec("2", "2"), rec("2", "2"), rec("3", "3"), rec("9", "9")}
	external := []Record{rec("3", "3"), rec("2", "2.5"), rec("4", "4"), rec("3", "3"), rec("1", "1")}

	result, err := Reconcile(books, external, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, len(books), len(result.Matched)+len(result.BooksOnly))
	assert.Equal(t, len(external), len(result.Matched)+len(result.ExternalOnly))
	assert.Equal(t, len(books), result.Summary.BookCount)
	assert.Equal(t, len(external), result.Summary.ExternalCount)
}

func TestReconcileSelfIsClean(t *testing.T) {
	records := []Record{rec("INV-1", "123.45"), rec("INV-2", "0"), rec("INV-3", "-7.5")}

	result, err := Reconcile(records, records, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, result.Matched, len(records))
	for _, p := range result.Matched {
		assert.True(t, p.Difference.IsZero(), p.Key)
		assert.True(t, p.Clean, p.Key)
	}
	assert.Empty(t, result.BooksOnly)
	assert.Empty(t, result.ExternalOnly)
}

func TestReconcileInvalidArgument(t *testing.T) {
	_, err := Reconcile([]Record{rec(" ", "1")}, nil, DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = Reconcile(nil, []Record{rec("A", "1"), rec("", "2")}, DefaultOptions())
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = Reconcile(nil, nil, Options{Tolerance: decimal.RequireFromString("-0.01")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestReconcileEmptyInputs(t *testing.T) {
	result, err := Reconcile(nil, nil, DefaultOptions())
	require.NoError(t, err)
	assert.NotNil(t, result.Matched)
	assert.NotNil(t, result.BooksOnly)
	assert.NotNil(t, result.ExternalOnly)
	assert.True(t, result.Summary.Difference.IsZero())
}

func TestReconcileTaxableTotals(t *testing.T) {
	book := rec("A", "118")
	book.TaxableValue = decimal.NewNullDecimal(decimal.NewFromInt(100))
	ext := rec("A", "118")

	result, err := Reconcile([]Record{book}, []Record{ext}, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, result.Summary.TotalBookTaxable.Valid)
	assert.Equal(t, "100", result.Summary.TotalBookTaxable.Decimal.String())
	assert.False(t, result.Summary.TotalExternalTaxable.Valid)
}

func TestHumanSummary(t *testing.T) {
	result, err := Reconcile(
		[]Record{rec("A", "100"), rec("B", "10")},
		[]Record{rec("A", "90"), rec("C", "5"), rec("C", "5")},
		DefaultOptions(),
	)
	require.NoError(t, err)

	out := HumanSummary(result)
	assert.Contains(t, out, "Book records: 2 (value 110.00)")
	assert.Contains(t, out, "Matched: 1 (clean 0, with differences 1)")
	assert.Contains(t, out, "- A: books=100 external=90 diff=10")
	assert.Contains(t, out, "In books, missing externally:\n- B value=10")
	assert.Contains(t, out, "- C value=5 (duplicate key)")
	assert.True(t, strings.Contains(out, "Notes:"))
}

func TestFromBankTransactions(t *testing.T) {
	txns := []models.BankTransaction{
		{
			Date:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			Debit:     decimal.NewNullDecimal(decimal.RequireFromString("1250.5")),
			Reference: "UTR123",
			Row:       1,
		},
		{
			Date:        time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
			Credit:      decimal.NewNullDecimal(decimal.NewFromInt(300)),
			Description: "REFUND",
			Row:         2,
		},
	}

	byRef := FromBankTransactions(txns, KeyByReference)
	require.Len(t, byRef, 2)
	assert.Equal(t, "UTR123", byRef[0].Key)
	assert.Equal(t, "UTR123", byRef[0].Reference)
	assert.Equal(t, "-1250.5", byRef[0].Value.String())
	assert.Equal(t, "2024-04-02|300.00", byRef[1].Key, "falls back without a reference")
	assert.Equal(t, "REFUND", byRef[1].Party)

	byDate := FromBankTransactions(txns, KeyByDateAmount)
	assert.Equal(t, "2024-04-01|-1250.50", byDate[0].Key)
	assert.Equal(t, "2024-04-01", byDate[0].Date)
	assert.Equal(t, 1, byDate[0].Row)
}

func TestKeyBookRecords(t *testing.T) {
	books := []Record{
		{Key: "INV-1", Date: "2024-02-01", Value: decimal.RequireFromString("1000"), Row: 1},
		{Key: "PUR-9", Date: "2024-02-03", Value: decimal.NewFromInt(500), Row: 2},
	}

	byRef, err := KeyBookRecords(books, KeyByReference)
	require.NoError(t, err)
	assert.Equal(t, "INV-1", byRef[0].Key)

	byDate, err := KeyBookRecords(books, KeyByDateAmount)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01|1000.00", byDate[0].Key)
	assert.Equal(t, "INV-1", byDate[0].Reference)
	assert.Equal(t, "INV-1", books[0].Key, "input is not modified")

	payments, err := KeyBookRecords(AsPayments(books[1:]), KeyByDateAmount)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-03|-500.00", payments[0].Key)
	assert.Equal(t, "500", books[1].Value.String())

	txns := []models.BankTransaction{
		{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Credit: decimal.NewNullDecimal(decimal.NewFromInt(1000))},
		{Date: time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), Debit: decimal.NewNullDecimal(decimal.NewFromInt(500))},
	}
	external := FromBankTransactions(txns, KeyByDateAmount)

	result, err := Reconcile(append(byDate[:1:1], payments...), external, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.CleanCount)
	assert.Empty(t, result.BooksOnly)
	assert.Empty(t, result.ExternalOnly)
}

func TestKeyBookRecordsNeedsDates(t *testing.T) {
	_, err := KeyBookRecords([]Record{rec("INV-1", "10")}, KeyByDateAmount)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestParseKeyStrategy(t *testing.T) {
	s, err := ParseKeyStrategy("")
	require.NoError(t, err)
	assert.Equal(t, KeyByReference, s)

	s, err = ParseKeyStrategy("Date-Amount")
	require.NoError(t, err)
	assert.Equal(t, KeyByDateAmount, s)

	_, err = ParseKeyStrategy("gstin")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}
