package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/TEswarreddy/shopez-sub000/internal/domain"
)

type OrderRepository struct {
	client    *dynamodb.Client
	tableName string
}

func NewOrderRepository(client *dynamodb.Client, tableName string) *OrderRepository {
	return &OrderRepository{
		client:    client,
		tableName: tableName,
	}
}

func (r *OrderRepository) orderKey(orderNumber string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("ORDER#%s", orderNumber)},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

// CreateOrder persists a new order. The conditional put guards against order
// number collisions, which ULIDs make practically impossible but cheap to
// verify at the storage layer.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	av, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	av["PK"] = &types.AttributeValueMemberS{Value: fmt.Sprintf("ORDER#%s", order.OrderNumber)}
	av["SK"] = &types.AttributeValueMemberS{Value: "METADATA"}
	av["GSI1PK"] = &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", order.CustomerID)}
	av["GSI1SK"] = &types.AttributeValueMemberS{Value: fmt.Sprintf("ORDER#%s", order.CreatedAt.Format("2006-01-02T15:04:05Z"))}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("order number %s already exists", order.OrderNumber)
		}
		return fmt.Errorf("failed to put order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            r.orderKey(orderNumber),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderNumber, err)
	}
	if len(out.Item) == 0 {
		return nil, domain.ErrOrderNotFound
	}

	var order domain.Order
	if err := attributevalue.UnmarshalMap(out.Item, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return &order, nil
}

func (r *OrderRepository) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", customerID)},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query orders for customer %s: %w", customerID, err)
	}

	orders := make([]domain.Order, 0, len(out.Items))
	for _, item := range out.Items {
		var order domain.Order
		if err := attributevalue.UnmarshalMap(item, &order); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// UpdateItemStatus flips one line item's status and the rolled-up order
// status in a single write. The condition on the item's current status makes
// the transition atomic: a concurrent update loses and surfaces as an
// invalid transition.
func (r *OrderRepository) UpdateItemStatus(ctx context.Context, orderNumber string, index int, from, to domain.ItemStatus, rollup domain.OrderStatus) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 r.orderKey(orderNumber),
		UpdateExpression:    aws.String(fmt.Sprintf("SET items[%d].#st = :to, #st = :rollup, updated_at = :now", index)),
		ConditionExpression: aws.String(fmt.Sprintf("attribute_exists(PK) AND items[%d].#st = :from", index)),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":to":     &types.AttributeValueMemberS{Value: string(to)},
			":from":   &types.AttributeValueMemberS{Value: string(from)},
			":rollup": &types.AttributeValueMemberS{Value: string(rollup)},
			":now":    &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return domain.ErrInvalidTransition
		}
		return fmt.Errorf("failed to update item status on order %s: %w", orderNumber, err)
	}
	return nil
}

// SetPaymentOutcome records the settlement result on the order row.
func (r *OrderRepository) SetPaymentOutcome(ctx context.Context, orderNumber string, payState domain.PaymentState, status domain.OrderStatus) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 r.orderKey(orderNumber),
		UpdateExpression:    aws.String("SET payment_status = :ps, #st = :os, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ps":  &types.AttributeValueMemberS{Value: string(payState)},
			":os":  &types.AttributeValueMemberS{Value: string(status)},
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("failed to set payment outcome on order %s: %w", orderNumber, err)
	}
	return nil
}

// SetPaymentState updates only the order's payment status, leaving the
// fulfillment status alone. Used when a full refund lands on the ledger.
func (r *OrderRepository) SetPaymentState(ctx context.Context, orderNumber string, state domain.PaymentState) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 r.orderKey(orderNumber),
		UpdateExpression:    aws.String("SET payment_status = :ps, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ps":  &types.AttributeValueMemberS{Value: string(state)},
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("failed to set payment state on order %s: %w", orderNumber, err)
	}
	return nil
}

// MarkPaymentFailed flips payment status to failed only while it is still
// pending. An order that already settled keeps its completed status; the
// no-op is not an error.
func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, orderNumber string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 r.orderKey(orderNumber),
		UpdateExpression:    aws.String("SET payment_status = :failed, updated_at = :now"),
		ConditionExpression: aws.String("payment_status = :pending"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed":  &types.AttributeValueMemberS{Value: string(domain.PaymentStateFailed)},
			":pending": &types.AttributeValueMemberS{Value: string(domain.PaymentStatePending)},
			":now":     &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil
		}
		return fmt.Errorf("failed to mark payment failed on order %s: %w", orderNumber, err)
	}
	return nil
}

func (r *OrderRepository) SetGatewayOrder(ctx context.Context, orderNumber, gatewayOrderID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 r.orderKey(orderNumber),
		UpdateExpression:    aws.String("SET gateway_order_id = :g, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":g":   &types.AttributeValueMemberS{Value: gatewayOrderID},
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("failed to set gateway order on order %s: %w", orderNumber, err)
	}
	return nil
}

// ReplaceOrder rewrites the whole order row, used by cancellation which
// touches every item. The condition on the previous status serializes
// against concurrent lifecycle changes.
func (r *OrderRepository) ReplaceOrder(ctx context.Context, order *domain.Order, prevStatus domain.OrderStatus) error {
	av, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	av["PK"] = &types.AttributeValueMemberS{Value: fmt.Sprintf("ORDER#%s", order.OrderNumber)}
	av["SK"] = &types.AttributeValueMemberS{Value: "METADATA"}
	av["GSI1PK"] = &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", order.CustomerID)}
	av["GSI1SK"] = &types.AttributeValueMemberS{Value: fmt.Sprintf("ORDER#%s", order.CreatedAt.Format("2006-01-02T15:04:05Z"))}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("#st = :prev"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prev": &types.AttributeValueMemberS{Value: string(prevStatus)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return domain.ErrInvalidTransition
		}
		return fmt.Errorf("failed to replace order %s: %w", order.OrderNumber, err)
	}
	return nil
}
