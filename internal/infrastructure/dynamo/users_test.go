package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmhub/auth-api/internal/domain"
)

// username is the hash key of the username-index GSI, and DynamoDB rejects
// items carrying an empty string in an index key attribute. Registering
// without a username must therefore leave the attribute out entirely.
func TestUserMarshal_NoUsername_AttributeOmitted(t *testing.T) {
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       "01HZXW0000000000000000TEST",
		Email:        "ana@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Role:         domain.DefaultRole,
		Enable:       1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	item, err := attributevalue.MarshalMap(u)
	require.NoError(t, err)

	_, present := item["username"]
	assert.False(t, present, "empty username must not be written to the index key attribute")
}

func TestUserMarshal_WithUsername_AttributePresent(t *testing.T) {
	u := &domain.User{
		UserID:   "01HZXW0000000000000000TEST",
		Email:    "ana@example.com",
		Username: "ana",
		Role:     domain.DefaultRole,
		Enable:   1,
	}

	item, err := attributevalue.MarshalMap(u)
	require.NoError(t, err)

	av, present := item["username"]
	require.True(t, present)
	s, ok := av.(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "ana", s.Value)
}
