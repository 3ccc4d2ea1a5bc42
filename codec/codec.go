// Package codec provides ready-made canonical transform nodes. A compiled
// validator's Parse runs their decoders after the wire value checks, and
// Encode runs their encoders before checking the produced wire value.
package codec

import (
	"fmt"
	"time"

	s "github.com/reoring/typebridge/schema"
)

// RFC3339 transforms an RFC 3339 date-time string into a time.Time and
// back. Encoded times are normalized to UTC with trailing zeros trimmed.
func RFC3339(opts ...s.Options) *s.Node {
	return s.Transform(s.String(s.Options{Format: "date-time"}), decodeRFC3339, encodeRFC3339, opts...)
}

// Identity wraps n in a transform whose codecs return their input.
func Identity(n *s.Node, opts ...s.Options) *s.Node {
	return s.Transform(n, identity, identity, opts...)
}

func identity(v any) (any, error) { return v, nil }

func decodeRFC3339(v any) (any, error) {
	str, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("codec: expected string, got %T", v)
	}
	t, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return nil, fmt.Errorf("codec: invalid RFC3339 time: %w", err)
	}
	return t, nil
}

func encodeRFC3339(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano), nil
	case *time.Time:
		if t != nil {
			return t.UTC().Format(time.RFC3339Nano), nil
		}
	case string:
		// Already encoded.
		return t, nil
	}
	return nil, fmt.Errorf("codec: expected time.Time, got %T", v)
}
