package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/TEswarreddy/shopez-sub000/internal/domain"
)

// CatalogRepository implements the catalog store contract: product reads and
// the atomic conditional stock decrement the order flow depends on.
type CatalogRepository struct {
	client    *dynamodb.Client
	tableName string
}

func NewCatalogRepository(client *dynamodb.Client, tableName string) *CatalogRepository {
	return &CatalogRepository{
		client:    client,
		tableName: tableName,
	}
}

func (r *CatalogRepository) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("PRODUCT#%s", productID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", productID, err)
	}
	if len(out.Item) == 0 {
		return nil, domain.ErrProductNotFound
	}

	var product domain.Product
	if err := attributevalue.UnmarshalMap(out.Item, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	return &product, nil
}

func (r *CatalogRepository) GetVendorRate(ctx context.Context, vendorID string) (float64, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("VENDOR#%s", vendorID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get vendor %s: %w", vendorID, err)
	}
	if len(out.Item) == 0 {
		return 0, domain.ErrVendorNotFound
	}

	var vendor domain.Vendor
	if err := attributevalue.UnmarshalMap(out.Item, &vendor); err != nil {
		return 0, fmt.Errorf("failed to unmarshal vendor: %w", err)
	}
	return vendor.CommissionPercentage, nil
}

// DecrementStock applies a compare-and-set decrement: it succeeds only when
// the remaining stock covers the quantity, so concurrent orders can never
// drive stock negative.
func (r *CatalogRepository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("PRODUCT#%s", productID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		UpdateExpression:    aws.String("SET stock = stock - :qty"),
		ConditionExpression: aws.String("stock >= :qty"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", quantity)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return &domain.InsufficientStockError{ProductID: productID, Requested: quantity, Available: -1}
		}
		return fmt.Errorf("failed to decrement stock for product %s: %w", productID, err)
	}
	return nil
}

// RestoreStock returns quantity to a product, compensating a decrement that
// belongs to a failed or cancelled order.
func (r *CatalogRepository) RestoreStock(ctx context.Context, productID string, quantity int) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("PRODUCT#%s", productID)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		UpdateExpression:    aws.String("SET stock = stock + :qty"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", quantity)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return domain.ErrProductNotFound
		}
		return fmt.Errorf("failed to restore stock for product %s: %w", productID, err)
	}
	return nil
}
