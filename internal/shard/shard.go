// Package shard derives partition keys for the DynamoDB relationship and
// unique name tables.
package shard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
)

// RelationshipPK computes the sharded partition key for a relationship record.
// With numShards=1, all children of a parent go to shard "00".
// With numShards>1, children are distributed by a hash of childID.
func RelationshipPK(parentID, childID string, numShards int) string {
	if numShards <= 1 {
		return fmt.Sprintf("%s#00", parentID)
	}
	h := fnv.New32a()
	h.Write([]byte(childID))
	shard := h.Sum32() % uint32(numShards)
	return fmt.Sprintf("%s#%02x", parentID, shard)
}

// PartitionKeys returns every relationship partition key of parentID, in
// shard order.
func PartitionKeys(parentID string, numShards int) []string {
	if numShards < 1 {
		numShards = 1
	}
	keys := make([]string, numShards)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s#%02x", parentID, i)
	}
	return keys
}

// UniqueNamePK computes a hash-distributed partition key for the name of a
// record of the given kind under parentID.
func UniqueNamePK(parentID, kind, name string) string {
	data := fmt.Sprintf("%s#%s#name#%s", parentID, kind, name)
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:16]) // 128-bit hash as hex
}
