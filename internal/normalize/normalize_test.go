package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		value   string
		side    Side
		present bool
		wantErr bool
	}{
		{"25.99", "25.99", SideNone, true, false},
		{"1,234.56", "1234.56", SideNone, true, false},
		{"1,25,000.00", "125000", SideNone, true, false},
		{"₹ 1,250.00", "1250", SideNone, true, false},
		{"Rs. 500", "500", SideNone, true, false},
		{"INR 75.5", "75.5", SideNone, true, false},
		{"(1,250.00)", "1250", SideDebit, true, false},
		{"-25.99", "25.99", SideDebit, true, false},
		{"25.99-", "25.99", SideDebit, true, false},
		{"500.00 Dr", "500", SideDebit, true, false},
		{"500.00Cr", "500", SideCredit, true, false},
		{"Dr 42", "42", SideDebit, true, false},
		{"+10", "10", SideNone, true, false},
		{"0.00", "0", SideNone, true, false},
		{" 25.99 ", "25.99", SideNone, true, false},
		{"", "0", SideNone, false, false},
		{"nan", "0", SideNone, false, false},
		{"NULL", "0", SideNone, false, false},
		{"-", "0", SideNone, false, false},
		{"abc", "", SideNone, false, true},
		{"12.3.4", "", SideNone, false, true},
		{"Dr", "", SideNone, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.present, got.Present)
			assert.Equal(t, tt.side, got.Side)
			assert.True(t, got.Value.Equal(decimal.RequireFromString(tt.value)), "got %s, want %s", got.Value, tt.value)
		})
	}
}

func TestParseSignedAmount(t *testing.T) {
	got, err := ParseSignedAmount("1,000.00 Dr")
	require.NoError(t, err)
	require.True(t, got.Valid)
	assert.Equal(t, "-1000", got.Decimal.String())

	got, err = ParseSignedAmount("")
	require.NoError(t, err)
	assert.False(t, got.Valid)
}

func TestSideIndicator(t *testing.T) {
	assert.Equal(t, SideDebit, SideIndicator("DR"))
	assert.Equal(t, SideDebit, SideIndicator(" Withdrawal "))
	assert.Equal(t, SideCredit, SideIndicator("Cr."))
	assert.Equal(t, SideCredit, SideIndicator("deposit"))
	assert.Equal(t, SideNone, SideIndicator("transfer"))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"15/01/2024", "2024-01-15", false},
		{"15-01-2024", "2024-01-15", false},
		{"15.01.2024", "2024-01-15", false},
		{"03/04/2024", "2024-04-03", false}, // day-first, never month-first
		{"3/4/24", "2024-04-03", false},
		{"2024-01-15", "2024-01-15", false},
		{"2024/01/15", "2024-01-15", false},
		{"2024-01-15 10:22:00", "2024-01-15", false},
		{"2024-01-15T10:22:00Z", "2024-01-15", false},
		{"15/01/2024 09:30 AM", "2024-01-15", false},
		{"20240115", "2024-01-15", false},
		{"45306", "2024-01-15", false},
		{"45306.75", "2024-01-15", false},
		{"15 Jan 2024", "2024-01-15", false},
		{"15-Jan-24", "2024-01-15", false},
		{"15th January, 2024", "2024-01-15", false},
		{"Jan 15, 2024", "2024-01-15", false},
		{"September 1 2023", "2023-09-01", false},
		{"1 Sept 2023", "2023-09-01", false},
		{"29/02/2024", "2024-02-29", false},
		{"31/02/2024", "", true},
		{"29/02/2023", "", true},
		{"13/13/2024", "", true},
		{"15 Foo 2024", "", true},
		{"yesterday", "", true},
		{"", "", true},
		{"null", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseDateEmpty(t *testing.T) {
	_, err := ParseDate("   ")
	assert.ErrorIs(t, err, ErrEmptyDate)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  UPI/123   PAYMENT  ", "UPI/123 PAYMENT"},
		{"NEFT\tSALARY\nJAN", "NEFT SALARY JAN"},
		{"nan", ""},
		{"Null", ""},
		{"undefined", ""},
		{"   ", ""},
		{"NaN bread", "NaN bread"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}
