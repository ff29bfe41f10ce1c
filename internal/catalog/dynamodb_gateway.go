package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"commerce-agent/internal/domain"
)

// ErrNotFound reports an id that resolves to no catalog product. Callers use
// it to distinguish a stale or hallucinated id from an infrastructure failure.
var ErrNotFound = errors.New("catalog: product not found")

// dynamodbAPI is the minimal DynamoDB interface required by Gateway.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Gateway reads products from the catalog table. All operations are
// side-effect-free reads; the catalog owns the records.
type Gateway struct {
	api           dynamodbAPI
	tableName     string
	categoryIndex string
}

// New creates a Gateway over the given table. categoryIndex names the GSI
// whose partition key is the product category.
func New(api dynamodbAPI, tableName, categoryIndex string) (*Gateway, error) {
	if api == nil {
		return nil, errors.New("catalog: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("catalog: table name must not be empty")
	}
	if strings.TrimSpace(categoryIndex) == "" {
		return nil, errors.New("catalog: category index must not be empty")
	}
	return &Gateway{api: api, tableName: tableName, categoryIndex: categoryIndex}, nil
}

// FindByID looks up one product by exact id. Returns ErrNotFound when the id
// does not exist.
func (g *Gateway) FindByID(ctx context.Context, id string) (domain.ProductSummary, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ProductSummary{}, errors.New("catalog: FindByID: id is required")
	}

	out, err := g.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(g.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return domain.ProductSummary{}, fmt.Errorf("catalog: FindByID get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.ProductSummary{}, ErrNotFound
	}

	product, err := itemToProduct(out.Item)
	if err != nil {
		return domain.ProductSummary{}, fmt.Errorf("catalog: FindByID unmarshal: %w", err)
	}
	return product, nil
}

// FindByCategory returns all products in a category via the category GSI.
// An unknown category yields an empty slice, not an error.
func (g *Gateway) FindByCategory(ctx context.Context, category string) ([]domain.ProductSummary, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, errors.New("catalog: FindByCategory: category is required")
	}

	out, err := g.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(g.tableName),
		IndexName:              aws.String(g.categoryIndex),
		KeyConditionExpression: aws.String("#cat = :cat"),
		ExpressionAttributeNames: map[string]string{
			"#cat": "category",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cat": &types.AttributeValueMemberS{Value: category},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: FindByCategory query: %w", err)
	}

	products := make([]domain.ProductSummary, 0, len(out.Items))
	for _, item := range out.Items {
		product, err := itemToProduct(item)
		if err != nil {
			return nil, fmt.Errorf("catalog: FindByCategory unmarshal: %w", err)
		}
		products = append(products, product)
	}
	return products, nil
}

// itemToProduct converts a DynamoDB attribute map to a ProductSummary.
func itemToProduct(item map[string]types.AttributeValue) (domain.ProductSummary, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.ProductSummary{}, err
	}
	name, err := strAttr(item, "name")
	if err != nil {
		return domain.ProductSummary{}, err
	}
	price, err := floatAttr(item, "price")
	if err != nil {
		return domain.ProductSummary{}, err
	}
	image, _ := strAttr(item, "image")       // allow empty
	category, _ := strAttr(item, "category") // allow empty

	return domain.ProductSummary{
		ID:       id,
		Name:     name,
		Image:    image,
		Price:    price,
		Category: category,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("catalog: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("catalog: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func floatAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("catalog: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("catalog: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("catalog: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
