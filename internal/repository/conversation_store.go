package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"commerce-agent/internal/domain"
)

const (
	skPrefixTurn = "TURN#"
	skMeta       = "META#"
	ttlDuration  = 30 * 24 * time.Hour // 30-day TTL bounds per-user history growth
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store defines the conversation state operations consumed by the chat service.
type Store interface {
	GetHistory(ctx context.Context, userID string) ([]domain.Turn, error)
	AppendTurn(ctx context.Context, userID, role, content string) error
}

// Client wraps a DynamoDB table holding per-user conversation turns.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new conversation store Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// userPK returns the DynamoDB partition key for a user's conversation.
func userPK(userID string) string {
	return "USER#" + userID
}

// turnSKTimeFormat is fixed-width so the sort keys order lexicographically
// by time. RFC3339Nano would not: it strips trailing fractional zeros, and a
// shorter fraction followed by 'Z' sorts after a longer one.
const turnSKTimeFormat = "2006-01-02T15:04:05.000000000Z"

// turnSK returns the sort key for a turn. The uuid suffix keeps concurrent
// appends within the same nanosecond from colliding; it carries no ordering.
func turnSK(ts time.Time) string {
	return skPrefixTurn + ts.UTC().Format(turnSKTimeFormat) + "#" + uuid.NewString()[:8]
}

// ttlValue returns a Unix timestamp 30 days in the future.
func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// GetHistory queries all TURN# items for a user in chronological order. The
// whole history is replayed to the model, so there is no item limit; TTL
// expiry is the only bound.
func (c *Client) GetHistory(ctx context.Context, userID string) ([]domain.Turn, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: userPK(userID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
		},
		ScanIndexForward: aws.Bool(true),
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: GetHistory query: %w", err)
	}

	turns := make([]domain.Turn, 0, len(out.Items))
	for _, item := range out.Items {
		turn, err := itemToTurn(item)
		if err != nil {
			return nil, fmt.Errorf("repository: GetHistory unmarshal: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// AppendTurn persists one turn and bumps the conversation metadata in a
// single transaction. The conditional put rejects sort-key collisions; it
// imposes no ordering between concurrent appends for the same user.
func (c *Client) AppendTurn(ctx context.Context, userID, role, content string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("repository: AppendTurn: userID is required")
	}
	if strings.TrimSpace(role) == "" {
		return errors.New("repository: AppendTurn: role is required")
	}

	turn := NewTurn(userID, role, content)

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                turnItem(turn),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
			{
				Update: &types.Update{
					TableName: aws.String(c.tableName),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
						"SK": &types.AttributeValueMemberS{Value: skMeta},
					},
					UpdateExpression: aws.String("SET lastActivity = :now, userId = :uid, #ttl = :ttl ADD turns :one"),
					ExpressionAttributeNames: map[string]string{
						"#ttl": "ttl",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
						":uid": &types.AttributeValueMemberS{Value: userID},
						":ttl": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttlValue())},
						":one": &types.AttributeValueMemberN{Value: "1"},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: AppendTurn: %w", err)
	}
	return nil
}

// NewTurn constructs a Turn with PK/SK/TTL set from userID and current time.
func NewTurn(userID, role, content string) domain.Turn {
	return domain.Turn{
		PK:      userPK(userID),
		SK:      turnSK(time.Now()),
		UserID:  userID,
		Role:    role,
		Content: content,
		TTL:     ttlValue(),
	}
}

// itemToTurn converts a DynamoDB attribute map to a Turn.
func itemToTurn(item map[string]types.AttributeValue) (domain.Turn, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.Turn{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.Turn{}, err
	}
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.Turn{}, err
	}
	content, err := strAttr(item, "content")
	if err != nil {
		return domain.Turn{}, err
	}
	userID, _ := strAttr(item, "userId") // allow empty

	return domain.Turn{
		PK:      pk,
		SK:      sk,
		UserID:  userID,
		Role:    role,
		Content: content,
	}, nil
}

func turnItem(turn domain.Turn) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":      &types.AttributeValueMemberS{Value: turn.PK},
		"SK":      &types.AttributeValueMemberS{Value: turn.SK},
		"userId":  &types.AttributeValueMemberS{Value: turn.UserID},
		"role":    &types.AttributeValueMemberS{Value: turn.Role},
		"content": &types.AttributeValueMemberS{Value: turn.Content},
		"ttl":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", turn.TTL)},
	}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
