package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	getOut      *dynamodb.GetItemOutput
	getErr      error
	queryOut    *dynamodb.QueryOutput
	queryErr    error
	lastGetIn   *dynamodb.GetItemInput
	lastQueryIn *dynamodb.QueryInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetIn = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQueryIn = in
	return f.queryOut, f.queryErr
}

func productItem(id, name, category, price string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id":       &types.AttributeValueMemberS{Value: id},
		"name":     &types.AttributeValueMemberS{Value: name},
		"image":    &types.AttributeValueMemberS{Value: "https://img/" + id + ".jpg"},
		"price":    &types.AttributeValueMemberN{Value: price},
		"category": &types.AttributeValueMemberS{Value: category},
	}
}

func mustNewGateway(t *testing.T, db *fakeDynamo) *Gateway {
	t.Helper()
	g, err := New(db, "catalog-table", "category-index")
	require.NoError(t, err)
	return g
}

func TestFindByID_HappyPath(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: productItem("p1", "Slim Jeans", "jeans", "59.99")}}
	g := mustNewGateway(t, db)

	product, err := g.FindByID(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", product.ID)
	require.Equal(t, "Slim Jeans", product.Name)
	require.Equal(t, 59.99, product.Price)
	require.Equal(t, "jeans", product.Category)
	require.Equal(t, "p1", db.lastGetIn.Key["id"].(*types.AttributeValueMemberS).Value)
}

func TestFindByID_NotFound(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	g := mustNewGateway(t, db)

	_, err := g.FindByID(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindByID_GetItemError(t *testing.T) {
	db := &fakeDynamo{getErr: errors.New("boom")}
	g := mustNewGateway(t, db)

	_, err := g.FindByID(context.Background(), "p1")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "FindByID")
}

func TestFindByID_EmptyID(t *testing.T) {
	g := mustNewGateway(t, &fakeDynamo{})
	_, err := g.FindByID(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestFindByID_MalformedPrice(t *testing.T) {
	item := productItem("p1", "Slim Jeans", "jeans", "59.99")
	item["price"] = &types.AttributeValueMemberS{Value: "not-a-number"}
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}}
	g := mustNewGateway(t, db)

	_, err := g.FindByID(context.Background(), "p1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "price")
}

func TestFindByCategory_HappyPath(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{
			productItem("p1", "Slim Jeans", "jeans", "59.99"),
			productItem("p2", "Wide Jeans", "jeans", "64.99"),
		},
	}}
	g := mustNewGateway(t, db)

	products, err := g.FindByCategory(context.Background(), "jeans")
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "p1", products[0].ID)
	require.Equal(t, "Wide Jeans", products[1].Name)
	require.Equal(t, "category-index", *db.lastQueryIn.IndexName)
	require.Equal(t, "category", db.lastQueryIn.ExpressionAttributeNames["#cat"])
}

func TestFindByCategory_EmptyMatch(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{}}
	g := mustNewGateway(t, db)

	products, err := g.FindByCategory(context.Background(), "hats")
	require.NoError(t, err)
	require.Empty(t, products)
}

func TestFindByCategory_QueryError(t *testing.T) {
	db := &fakeDynamo{queryErr: errors.New("throttled")}
	g := mustNewGateway(t, db)

	_, err := g.FindByCategory(context.Background(), "jeans")
	require.Error(t, err)
	require.Contains(t, err.Error(), "FindByCategory")
}

func TestFindByCategory_EmptyCategory(t *testing.T) {
	g := mustNewGateway(t, &fakeDynamo{})
	_, err := g.FindByCategory(context.Background(), "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "catalog-table", "category-index")
	require.Error(t, err)

	_, err = New(&fakeDynamo{}, " ", "category-index")
	require.Error(t, err)

	_, err = New(&fakeDynamo{}, "catalog-table", "")
	require.Error(t, err)
}
