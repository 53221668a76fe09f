package ingest

import "github.com/zenithbooks/statement-recon/internal/tabular"

// Canonical statement fields.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldDebit       = "debit"
	FieldCredit      = "credit"
	FieldAmount      = "amount"
	FieldType        = "type"
	FieldBalance     = "balance"
	FieldReference   = "reference"
)

// requiredColumns is how many of requiredFields every data row must
// populate: the date and one amount-bearing column.
const requiredColumns = 2

// requiredFields are the columns counted toward requiredColumns. Description
// and reference are optional and never make a row structurally complete.
var requiredFields = []string{FieldDate, FieldDebit, FieldCredit, FieldAmount, FieldBalance}

// statementSchema lists header spellings seen in Indian bank exports
// (HDFC, SBI, ICICI, Axis, Kotak and others). Synonyms are compared after
// tabular.NormalizeHeader, so punctuation and case do not matter.
var statementSchema = tabular.Schema{
	Fields: []tabular.Field{
		{Name: FieldDate, Synonyms: []string{
			"date", "txn date", "transaction date", "tran date", "trans date",
			"posting date", "post date", "booking date", "value date", "value dt",
		}},
		{Name: FieldType, Synonyms: []string{
			"dr cr", "cr dr", "debit credit", "credit debit", "dr cr indicator",
			"type", "txn type", "transaction type",
		}},
		{Name: FieldDebit, Synonyms: []string{
			"debit", "withdrawal", "withdrawal amt", "withdrawal amount", "withdrawals",
			"debit amount", "debit amt", "debits", "paid out", "money out", "dr", "dr amount",
		}},
		{Name: FieldCredit, Synonyms: []string{
			"credit", "deposit", "deposit amt", "deposit amount", "deposits",
			"credit amount", "credit amt", "credits", "paid in", "money in", "cr", "cr amount",
		}},
		{Name: FieldAmount, Synonyms: []string{
			"amount", "transaction amount", "txn amount", "amt", "amount inr", "amount rs",
		}},
		{Name: FieldBalance, Synonyms: []string{
			"balance", "closing balance", "running balance", "available balance",
			"balance amt", "balance amount", "bal",
		}},
		{Name: FieldReference, Synonyms: []string{
			"reference", "chq ref no", "chq no", "cheque no", "cheque number",
			"ref no", "reference no", "ref no cheque no", "chqno", "ref", "utr", "utr no",
		}},
		{Name: FieldDescription, Synonyms: []string{
			"description", "narration", "particulars", "remarks", "transaction remarks",
			"details", "transaction details", "transaction description",
		}},
	},
	Satisfied: func(c tabular.Columns) bool {
		return c.Has(FieldDate) && (c.Has(FieldDebit) || c.Has(FieldCredit) || c.Has(FieldAmount))
	},
}
