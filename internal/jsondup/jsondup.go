// Package jsondup finds repeated object keys in JSON documents, which
// decoding into map[string]any silently collapses.
package jsondup

import (
	"bytes"
	"errors"
	"io"

	j "github.com/goccy/go-json"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/i18n"
)

type frame struct {
	object    bool
	keys      map[string]struct{}
	expectKey bool
	key       string
	index     int
}

// Find returns one duplicate_key issue per repeated member, located at the
// member's path. limit > 0 stops after that many issues. A malformed
// document yields the issues found so far and the decode error.
func Find(data []byte, limit int) (tb.Issues, error) {
	return FindReader(bytes.NewReader(data), limit)
}

// FindReader is Find over a reader, which it consumes.
func FindReader(r io.Reader, limit int) (tb.Issues, error) {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	var (
		stack []frame
		out   tb.Issues
	)
	path := func() tb.Path {
		p := tb.Path{}
		for _, f := range stack {
			if f.object {
				p = p.Field(f.key)
			} else {
				p = p.Index(f.index)
			}
		}
		return p
	}
	// valueDone advances the enclosing container past a complete value.
	valueDone := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		if top.object {
			top.expectKey = true
		} else {
			top.index++
		}
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if len(stack) > 0 {
				return out, io.ErrUnexpectedEOF
			}
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if d, ok := tok.(j.Delim); ok {
			switch d {
			case '{':
				stack = append(stack, frame{object: true, keys: map[string]struct{}{}, expectKey: true})
			case '[':
				stack = append(stack, frame{})
			default:
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
				valueDone()
			}
			continue
		}
		if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].expectKey {
			top := &stack[n-1]
			k, _ := tok.(string)
			top.key, top.expectKey = k, false
			if _, dup := top.keys[k]; dup {
				out = append(out, path().Issue(tb.CodeDuplicateKey, i18n.T(tb.CodeDuplicateKey, map[string]string{"key": k}), "key", k))
				if limit > 0 && len(out) >= limit {
					return out, nil
				}
			}
			top.keys[k] = struct{}{}
			continue
		}
		valueDone()
	}
}
