package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/farmhub/auth-api/internal/domain"
)

// VerificationRepo manages the per-user email verification records.
// PK: user_id (exactly one record per user).
//
// Every mutation goes through Save, which performs a compare-and-swap on the
// record's version attribute. Concurrent verify/resend calls for the same
// user therefore surface as domain.ErrVersionConflict instead of lost updates.
type VerificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerificationRepo(client *dynamodb.Client, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

// Create inserts the record created alongside a new user. Duplicate creation
// is a conflict; registration never silently resets an existing record.
func (r *VerificationRepo) Create(ctx context.Context, v *domain.VerificationRecord) error {
	v.Version = 1
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(user_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("verification record exists: %w", domain.ErrConflict)
	}
	return err
}

func (r *VerificationRepo) Get(ctx context.Context, userID string) (*domain.VerificationRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification for user %s: %w", userID, domain.ErrNotFound)
	}
	var v domain.VerificationRecord
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Save writes the record's OTP state back, conditioned on the version the
// caller read. On success the in-memory record carries the new version; on a
// concurrent write it returns domain.ErrVersionConflict untouched.
func (r *VerificationRepo) Save(ctx context.Context, v *domain.VerificationRecord) error {
	readVersion := v.Version
	newVersion := readVersion + 1
	now := time.Now().UTC()

	ue, err := buildUpdateExpr(map[string]interface{}{
		"otp":            v.OTP,
		"otp_expires_at": v.OTPExpiresAt,
		"attempt_count":  v.AttemptCount,
		"last_sent_at":   v.LastSentAt,
		"verified":       v.Verified,
		"version":        newVersion,
		"updated_at":     now.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	ue.Names["#ver"] = "version"
	ue.Values[":expected"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", readVersion)}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", v.UserID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#ver = :expected"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("verification save for user %s: %w", v.UserID, domain.ErrVersionConflict)
	}
	if err != nil {
		return err
	}
	v.Version = newVersion
	v.UpdatedAt = now
	return nil
}
