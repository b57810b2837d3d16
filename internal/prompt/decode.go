package prompt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"roastcheck/pkg/types"
)

// ErrMalformedInput wraps every decoding failure of the stdin record.
var ErrMalformedInput = errors.New("malformed input")

// maxInputBytes bounds how much of stdin is read.
const maxInputBytes int64 = 1 << 20

// Decode reads a single JSON object from r. Only targetUsername and
// targetMessage are looked up: a string is used as-is, a missing key or null
// yields "", and any other JSON value is used as its compact JSON text.
// Non-string values are therefore never blanked or re-spelled: true renders as
// true (not True or ""), and objects keep JSON syntax.
func Decode(r io.Reader) (types.Target, error) {
	var target types.Target
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return target, fmt.Errorf("read input: %w", err)
	}
	if int64(len(data)) > maxInputBytes {
		return target, fmt.Errorf("%w: input exceeds %d bytes", ErrMalformedInput, maxInputBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return target, fmt.Errorf("%w: empty input", ErrMalformedInput)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return target, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if fields == nil {
		return target, fmt.Errorf("%w: expected a JSON object, got null", ErrMalformedInput)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return target, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedInput)
	}

	if target.TargetUsername, err = lookup(fields, "targetUsername"); err != nil {
		return target, err
	}
	if target.TargetMessage, err = lookup(fields, "targetMessage"); err != nil {
		return target, err
	}
	return target, nil
}

func lookup(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", nil
	}
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: field %s: %v", ErrMalformedInput, key, err)
		}
		return s, nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return "", fmt.Errorf("%w: field %s: %v", ErrMalformedInput, key, err)
	}
	return compact.String(), nil
}
