package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DecodeFields parses a JSON object literal into the field map Save
// expects. Bare scalars (numbers, quoted strings, true/false/null) are
// rejected up front since record fields are always a map.
func DecodeFields(s string) (map[string]interface{}, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("fields cannot be empty")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, fmt.Errorf("invalid json object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("invalid json object: null")
	}
	return fields, nil
}

// DecodeValue parses one bare scalar argument (an index value or a
// clause's comparison value) into the richest Go type it matches:
// int64, then float64, then bool, falling back to the literal string.
func DecodeValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
