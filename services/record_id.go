package services

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecordKey is a resolved record handle. Records materialized by the bulk
// pipeline carry store-native ObjectIDs while directly created records carry
// generated string tokens; a caller-supplied handle is resolved into exactly
// one of the two forms so every lookup, update and delete shares one code
// path regardless of how the record was created.
type RecordKey struct {
	objectID primitive.ObjectID
	token    string
	native   bool
}

const nativeIDLength = 24

// ResolveRecordKey classifies an opaque handle. A 24-character string that
// parses as hexadecimal resolves to the native form; everything else falls
// back to an opaque token. Generated tokens are UUIDs (36 characters), so the
// two forms never collide in practice.
func ResolveRecordKey(handle string) RecordKey {
	if len(handle) == nativeIDLength {
		if objectID, err := primitive.ObjectIDFromHex(handle); err == nil {
			return RecordKey{objectID: objectID, native: true}
		}
	}
	return RecordKey{token: handle}
}

// IsNative reports whether the handle resolved to the store-native form.
func (k RecordKey) IsNative() bool {
	return k.native
}

// Filter returns the single-record lookup filter for the resolved form.
func (k RecordKey) Filter() bson.M {
	if k.native {
		return bson.M{"_id": k.objectID}
	}
	return bson.M{"_id": k.token}
}

// String renders the handle back to its caller-facing form.
func (k RecordKey) String() string {
	if k.native {
		return k.objectID.Hex()
	}
	return k.token
}
