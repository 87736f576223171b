package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// IsDeleted checks if an item has an expired TTL (is marked for deletion).
func IsDeleted(item map[string]types.AttributeValue) bool {
	ttlNum, ok := item["ttl"].(*types.AttributeValueMemberN)
	if !ok {
		return false // No TTL = active
	}
	ttl, err := strconv.ParseInt(ttlNum.Value, 10, 64)
	if err != nil {
		return false
	}
	return ttl <= time.Now().Unix()
}

// TTLFilterExpr returns the filter expression to exclude deleted items.
func TTLFilterExpr() string {
	return "attribute_not_exists(#ttl) OR #ttl > :now"
}

// TTLFilterNames returns expression attribute names for TTL filter.
func TTLFilterNames() map[string]string {
	return map[string]string{"#ttl": "ttl"}
}

// TTLFilterValues returns expression attribute values for TTL filter.
func TTLFilterValues() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		":now": &types.AttributeValueMemberN{
			Value: strconv.FormatInt(time.Now().Unix(), 10),
		},
	}
}

// ParentExistsCondition returns the condition expression for parent
// validation: the parent exists, is not deleted and has one of the given
// kinds. The kinds are bound to :pk0, :pk1... by parentKindValues.
func ParentExistsCondition(kinds []Kind) string {
	expr := "attribute_exists(id) AND (attribute_not_exists(#ttl) OR #ttl > :now)"
	if len(kinds) == 0 {
		return expr
	}
	placeholders := make([]string, len(kinds))
	for i := range kinds {
		placeholders[i] = fmt.Sprintf(":pk%d", i)
	}
	return expr + " AND #kind IN (" + strings.Join(placeholders, ", ") + ")"
}

func parentKindValues(kinds []Kind) map[string]types.AttributeValue {
	values := make(map[string]types.AttributeValue, len(kinds))
	for i, k := range kinds {
		values[fmt.Sprintf(":pk%d", i)] = &types.AttributeValueMemberS{Value: string(k)}
	}
	return values
}

// mergeExprNames merges multiple expression attribute name maps.
func mergeExprNames(maps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// mergeExprValues merges multiple expression attribute value maps.
func mergeExprValues(maps ...map[string]types.AttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

func stringAttr(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func numberAttr(item map[string]types.AttributeValue, key string) int64 {
	v, ok := item[key].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
