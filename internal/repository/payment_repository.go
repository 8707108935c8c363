package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"

	"github.com/TEswarreddy/shopez-sub000/internal/domain"
)

const reconcileConcurrency = 5

type PaymentRepository struct {
	client    *dynamodb.Client
	tableName string
}

func NewPaymentRepository(client *dynamodb.Client, tableName string) *PaymentRepository {
	return &PaymentRepository{
		client:    client,
		tableName: tableName,
	}
}

func (r *PaymentRepository) paymentKey(gatewayPaymentID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("GATEWAY#%s", gatewayPaymentID)},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

func (r *PaymentRepository) paymentItem(p *domain.Payment) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment: %w", err)
	}

	av["PK"] = &types.AttributeValueMemberS{Value: fmt.Sprintf("GATEWAY#%s", p.GatewayPaymentID)}
	av["SK"] = &types.AttributeValueMemberS{Value: "METADATA"}
	av["GSI1PK"] = &types.AttributeValueMemberS{Value: fmt.Sprintf("TXN#%s", p.TransactionID)}
	av["GSI1SK"] = &types.AttributeValueMemberS{Value: "METADATA"}
	return av, nil
}

// InsertSettled creates the ledger row with insert-if-absent semantics. The
// partition key is the gateway payment id, so a duplicate settlement (client
// confirmation racing the webhook) hits the condition instead of writing a
// second row. On conflict the existing row is returned together with
// domain.ErrDuplicateSettlement.
func (r *PaymentRepository) InsertSettled(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	av, err := r.paymentItem(p)
	if err != nil {
		return nil, err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			existing, getErr := r.GetByGatewayPaymentID(ctx, p.GatewayPaymentID)
			if getErr != nil {
				return nil, fmt.Errorf("settlement conflict on %s but existing row unreadable: %w", p.GatewayPaymentID, getErr)
			}
			return existing, domain.ErrDuplicateSettlement
		}
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            r.paymentKey(gatewayPaymentID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by gateway id %s: %w", gatewayPaymentID, err)
	}
	if len(out.Item) == 0 {
		return nil, domain.ErrPaymentNotFound
	}

	var p domain.Payment
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment: %w", err)
	}
	return &p, nil
}

func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("TXN#%s", transactionID)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query payment %s: %w", transactionID, err)
	}
	if len(out.Items) == 0 {
		return nil, domain.ErrPaymentNotFound
	}

	var p domain.Payment
	if err := attributevalue.UnmarshalMap(out.Items[0], &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment: %w", err)
	}
	return &p, nil
}

// ApplyRefund writes back a refunded payment. The version condition loses to
// any concurrent mutation of the same row, surfacing as ErrVersionConflict
// instead of a silent lost update.
func (r *PaymentRepository) ApplyRefund(ctx context.Context, p *domain.Payment) error {
	av, err := r.paymentItem(p)
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("version = :prev"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prev": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", p.Version-1)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("failed to apply refund on %s: %w", p.TransactionID, err)
	}
	return nil
}

// MarkReconciled stamps the reconciliation flag on each given transaction id,
// fanning out with bounded concurrency. Reconciliation is bookkeeping only;
// it bumps the row version but never touches status.
func (r *PaymentRepository) MarkReconciled(ctx context.Context, transactionIDs []string, actorID string, at time.Time) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)

	for _, txnID := range transactionIDs {
		txnID := txnID
		g.Go(func() error {
			p, err := r.GetByTransactionID(ctx, txnID)
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", txnID, err)
			}

			_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName:           aws.String(r.tableName),
				Key:                 r.paymentKey(p.GatewayPaymentID),
				UpdateExpression:    aws.String("SET reconciled = :t, reconciled_by = :by, reconciled_at = :at, version = version + :one, updated_at = :at"),
				ConditionExpression: aws.String("attribute_exists(PK)"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":t":   &types.AttributeValueMemberBOOL{Value: true},
					":by":  &types.AttributeValueMemberS{Value: actorID},
					":at":  &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339Nano)},
					":one": &types.AttributeValueMemberN{Value: "1"},
				},
			})
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", txnID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// ListByFilter scans the ledger with a server-side filter. Reporting accepts
// eventually-consistent reads, so a scan is fine here; writers are never
// blocked by it.
func (r *PaymentRepository) ListByFilter(ctx context.Context, f domain.PaymentFilter) ([]domain.Payment, error) {
	filterExpr, names, values := buildPaymentFilter(f)

	var payments []domain.Payment
	var startKey map[string]types.AttributeValue
	for {
		in := &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		}
		if filterExpr != "" {
			in.FilterExpression = aws.String(filterExpr)
			in.ExpressionAttributeValues = values
			if len(names) > 0 {
				in.ExpressionAttributeNames = names
			}
		}

		out, err := r.client.Scan(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payments: %w", err)
		}
		for _, item := range out.Items {
			var p domain.Payment
			if err := attributevalue.UnmarshalMap(item, &p); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payment: %w", err)
			}
			payments = append(payments, p)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return payments, nil
}

func buildPaymentFilter(f domain.PaymentFilter) (string, map[string]string, map[string]types.AttributeValue) {
	var parts []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}

	if len(f.Statuses) > 0 {
		placeholders := make([]string, 0, len(f.Statuses))
		for i, s := range f.Statuses {
			ph := fmt.Sprintf(":s%d", i)
			placeholders = append(placeholders, ph)
			values[ph] = &types.AttributeValueMemberS{Value: string(s)}
		}
		names["#st"] = "status"
		parts = append(parts, fmt.Sprintf("#st IN (%s)", strings.Join(placeholders, ", ")))
	}
	if f.VendorID != "" {
		values[":vendor"] = &types.AttributeValueMemberS{Value: f.VendorID}
		parts = append(parts, "vendor_id = :vendor")
	}
	if !f.From.IsZero() {
		values[":from"] = &types.AttributeValueMemberS{Value: f.From.UTC().Format(time.RFC3339Nano)}
		parts = append(parts, "created_at >= :from")
	}
	if !f.To.IsZero() {
		values[":to"] = &types.AttributeValueMemberS{Value: f.To.UTC().Format(time.RFC3339Nano)}
		parts = append(parts, "created_at <= :to")
	}
	if f.Reconciled != nil {
		values[":rec"] = &types.AttributeValueMemberBOOL{Value: *f.Reconciled}
		parts = append(parts, "reconciled = :rec")
	}

	if len(parts) == 0 {
		return "", nil, nil
	}
	return strings.Join(parts, " AND "), names, values
}
