package model

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vecbridge/internal/vserr"
)

// EncodeKey converts a typed application key into the opaque storage-level
// identifier. The backing store always keys documents by string. String keys
// pass through unchanged; integer and UUID keys use canonical, locale-free
// textual forms so that DecodeKey inverts EncodeKey exactly.
func EncodeKey(key any) (string, error) {
	switch k := key.(type) {
	case string:
		if k == "" {
			return "", &vserr.SchemaError{Reason: "key must not be empty"}
		}
		return k, nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	case uuid.UUID:
		return k.String(), nil
	}

	// Defined key types (type HotelID string) encode by their underlying
	// kind, matching what model building accepts.
	switch v := reflect.ValueOf(key); v.Kind() {
	case reflect.String:
		if v.Len() == 0 {
			return "", &vserr.SchemaError{Reason: "key must not be empty"}
		}
		return v.String(), nil
	case reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	}

	return "", &vserr.UnsupportedTypeError{
		Property:  "key",
		Type:      fmt.Sprintf("%T", key),
		Supported: supportedKeyTypes,
	}
}

// DecodeKey converts a storage-level identifier back into the typed key for
// the given key type.
func DecodeKey(id string, t Type) (any, error) {
	switch t {
	case TypeString:
		return id, nil
	case TypeInt64:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, &vserr.SchemaError{Property: "key", Reason: "not a valid int64 identifier: " + id}
		}
		return n, nil
	case TypeUUID:
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, &vserr.SchemaError{Property: "key", Reason: "not a valid UUID identifier: " + id}
		}
		return u, nil
	default:
		return nil, &vserr.UnsupportedTypeError{
			Property:  "key",
			Type:      string(t),
			Supported: supportedKeyTypes,
		}
	}
}
