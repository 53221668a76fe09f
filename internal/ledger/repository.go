// Package ledger persists book invoices and imported bank transactions in a
// single DynamoDB table.
//
// Key layout:
//
//	PK=TENANT#<tenant>#PERIOD#<yyyy-mm>   SK=INVOICE#<number>#<line>
//	PK=TENANT#<tenant>#ACCOUNT#<account>  SK=BANKTXN#<yyyy-mm-dd>#<ulid>
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	ulid "github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zenithbooks/statement-recon/internal/apperrors"
	"github.com/zenithbooks/statement-recon/internal/models"
	"github.com/zenithbooks/statement-recon/internal/reconcile"
)

const (
	// maxBatchWrite is the DynamoDB limit on items per BatchWriteItem call.
	maxBatchWrite   = 25
	maxBatchRetries = 5
)

// Repository is the ledger collaborator used by the reconciliation flows.
type Repository interface {
	// ListBookRecords returns the invoices booked by tenantID in period (YYYY-MM).
	ListBookRecords(ctx context.Context, tenantID, period string) ([]reconcile.Record, error)
	// SaveInvoices stores book invoices for tenantID in period, one item per
	// record. Repeated invoice numbers are kept so reconciliation can flag them.
	SaveInvoices(ctx context.Context, tenantID, period string, records []reconcile.Record) (int, error)
	// SaveBankTransactions stores imported statement lines under accountID and
	// returns how many were written.
	SaveBankTransactions(ctx context.Context, tenantID, accountID string, txns []models.BankTransaction) (int, error)
}

type invoiceItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	Type          string `dynamodbav:"Type"`
	InvoiceNumber string `dynamodbav:"invoiceNumber"`
	Date          string `dynamodbav:"date,omitempty"`
	Value         string `dynamodbav:"value"`
	TaxableValue  string `dynamodbav:"taxableValue,omitempty"`
	Party         string `dynamodbav:"party,omitempty"`
	SourceRow     int    `dynamodbav:"sourceRow,omitempty"`
	UpdatedAt     string `dynamodbav:"updatedAt"`
}

type bankTxnItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	Type        string `dynamodbav:"Type"`
	ID          string `dynamodbav:"id"`
	Date        string `dynamodbav:"date"`
	Description string `dynamodbav:"description"`
	Debit       string `dynamodbav:"debit,omitempty"`
	Credit      string `dynamodbav:"credit,omitempty"`
	Balance     string `dynamodbav:"balance,omitempty"`
	Reference   string `dynamodbav:"reference,omitempty"`
	SourceRow   int    `dynamodbav:"sourceRow"`
	ImportedAt  string `dynamodbav:"importedAt"`
}

// DynamoDBRepository implements Repository on a single table.
type DynamoDBRepository struct {
	client Client
	table  string
	logger *zap.Logger
	now    func() time.Time
}

// NewDynamoDBRepository creates a new DynamoDBRepository
func NewDynamoDBRepository(client Client, table string, logger *zap.Logger) *DynamoDBRepository {
	return &DynamoDBRepository{
		client: client,
		table:  table,
		logger: logger,
		now:    time.Now,
	}
}

func periodPK(tenantID, period string) string {
	return fmt.Sprintf("TENANT#%s#PERIOD#%s", tenantID, period)
}

func accountPK(tenantID, accountID string) string {
	return fmt.Sprintf("TENANT#%s#ACCOUNT#%s", tenantID, accountID)
}

func validatePeriod(tenantID, period string) error {
	if tenantID == "" {
		return apperrors.NewInvalidArgumentError("tenantId is required")
	}
	if _, err := time.Parse("2006-01", period); err != nil {
		return apperrors.NewInvalidArgumentError(fmt.Sprintf("period %q must be in YYYY-MM format", period))
	}
	return nil
}

// ListBookRecords queries every INVOICE# item of the period, following
// LastEvaluatedKey until the partition is exhausted.
func (r *DynamoDBRepository) ListBookRecords(ctx context.Context, tenantID, period string) ([]reconcile.Record, error) {
	if err := validatePeriod(tenantID, period); err != nil {
		return nil, err
	}

	keyCondition := expression.Key("PK").Equal(expression.Value(periodPK(tenantID, period))).
		And(expression.Key("SK").BeginsWith("INVOICE#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCondition).Build()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build expression", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	records := []reconcile.Record{}
	pages := 0
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to query book invoices", err)
		}
		pages++

		var items []invoiceItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, apperrors.NewInternalError("failed to unmarshal book invoices", err)
		}
		for _, item := range items {
			rec, err := item.record()
			if err != nil {
				return nil, apperrors.NewInternalError("corrupt invoice item "+item.SK, err)
			}
			records = append(records, rec)
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	r.logger.Debug("listed book invoices",
		zap.String("tenantId", tenantID),
		zap.String("period", period),
		zap.Int("count", len(records)),
		zap.Int("pages", pages))
	return records, nil
}

func (item invoiceItem) record() (reconcile.Record, error) {
	value, err := decimal.NewFromString(item.Value)
	if err != nil {
		return reconcile.Record{}, err
	}
	rec := reconcile.Record{
		Key:   item.InvoiceNumber,
		Date:  item.Date,
		Value: value,
		Party: item.Party,
		Row:   item.SourceRow,
	}
	if item.TaxableValue != "" {
		taxable, err := decimal.NewFromString(item.TaxableValue)
		if err != nil {
			return reconcile.Record{}, err
		}
		rec.TaxableValue = decimal.NewNullDecimal(taxable)
	}
	return rec, nil
}

// invoiceSK orders items by canonical invoice number. The line suffix keeps
// repeated numbers ("INV-1", "inv-1") apart, since one BatchWriteItem call
// may not carry two puts for the same key.
func invoiceSK(key string, line int) string {
	return fmt.Sprintf("INVOICE#%s#%05d", key, line)
}

// SaveInvoices writes records as INVOICE# items keyed by canonical invoice
// number and position in records. Saving a period again overwrites its items
// line by line.
func (r *DynamoDBRepository) SaveInvoices(ctx context.Context, tenantID, period string, records []reconcile.Record) (int, error) {
	if err := validatePeriod(tenantID, period); err != nil {
		return 0, err
	}

	now := r.now().UTC().Format(time.RFC3339)
	requests := make([]types.WriteRequest, 0, len(records))
	for i, rec := range records {
		key := reconcile.CanonicalKey(rec.Key)
		if key == "" {
			return 0, apperrors.NewInvalidArgumentError("invoice number is required")
		}
		item := invoiceItem{
			PK:            periodPK(tenantID, period),
			SK:            invoiceSK(key, i+1),
			Type:          "invoice",
			InvoiceNumber: rec.Key,
			Date:          rec.Date,
			Value:         rec.Value.String(),
			Party:         rec.Party,
			SourceRow:     rec.Row,
			UpdatedAt:     now,
		}
		if rec.TaxableValue.Valid {
			item.TaxableValue = rec.TaxableValue.Decimal.String()
		}
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return 0, apperrors.NewInternalError("failed to marshal invoice", err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	return r.batchWrite(ctx, requests)
}

// SaveBankTransactions writes txns as BANKTXN# items. Each item gets a fresh
// ULID, so importing the same statement twice stores it twice.
func (r *DynamoDBRepository) SaveBankTransactions(ctx context.Context, tenantID, accountID string, txns []models.BankTransaction) (int, error) {
	if tenantID == "" || accountID == "" {
		return 0, apperrors.NewInvalidArgumentError("tenantId and accountId are required")
	}

	now := r.now().UTC()
	requests := make([]types.WriteRequest, 0, len(txns))
	for _, t := range txns {
		id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
		date := t.Date.Format("2006-01-02")
		item := bankTxnItem{
			PK:          accountPK(tenantID, accountID),
			SK:          fmt.Sprintf("BANKTXN#%s#%s", date, id),
			Type:        "bank_transaction",
			ID:          id,
			Date:        date,
			Description: t.Description,
			Debit:       nullString(t.Debit),
			Credit:      nullString(t.Credit),
			Balance:     nullString(t.Balance),
			Reference:   t.Reference,
			SourceRow:   t.Row,
			ImportedAt:  now.Format(time.RFC3339),
		}
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return 0, apperrors.NewInternalError("failed to marshal bank transaction", err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	return r.batchWrite(ctx, requests)
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// batchWrite sends requests in chunks of maxBatchWrite and resubmits
// UnprocessedItems with a growing delay.
func (r *DynamoDBRepository) batchWrite(ctx context.Context, requests []types.WriteRequest) (int, error) {
	written := 0
	for start := 0; start < len(requests); start += maxBatchWrite {
		end := min(start+maxBatchWrite, len(requests))
		pending := requests[start:end]

		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt > maxBatchRetries {
				return written, apperrors.NewInternalError(
					fmt.Sprintf("%d items still unprocessed after %d retries", len(pending), maxBatchRetries), nil)
			}
			if attempt > 0 {
				delay := time.Duration(1<<uint(attempt-1)) * 50 * time.Millisecond
				select {
				case <-ctx.Done():
					return written, ctx.Err()
				case <-time.After(delay):
				}
			}

			out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{r.table: pending},
			})
			if err != nil {
				return written, apperrors.NewInternalError("failed to write batch", err)
			}

			unprocessed := out.UnprocessedItems[r.table]
			written += len(pending) - len(unprocessed)
			if len(unprocessed) > 0 {
				r.logger.Warn("retrying unprocessed items",
					zap.Int("count", len(unprocessed)),
					zap.Int("attempt", attempt+1))
			}
			pending = unprocessed
		}
	}
	return written, nil
}
