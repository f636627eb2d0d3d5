// Package validate enforces the closed robot command schema.
//
// Validation is a pure function over (command name, parameter map): identical
// inputs always produce identical outcomes. Parameters are checked in schema
// declaration order and validation stops at the first violation. One variant
// function exists per command so the compiler keeps the command set closed.
package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"roverd/internal/command"
)

// Code classifies an invalid outcome.
type Code string

const (
	// CodeUnknownCommand marks command names outside the closed set.
	CodeUnknownCommand Code = "unknown_command"

	// CodeSchemaViolation marks a missing key, wrong type, invalid enum
	// value, or constraint violation on a known command.
	CodeSchemaViolation Code = "schema_violation"
)

// Outcome is the tagged result of validating one command proposal. Either the
// Valid fields (Command, Params, Message) or the invalid fields (Code, Error,
// Details) are populated, never both.
type Outcome struct {
	Valid bool

	// Command and Params are set on valid outcomes. Params is the
	// normalized parameter map with schema defaults applied.
	Command command.Name
	Params  map[string]any
	Message string

	// Code, Error and Details are set on invalid outcomes. Error is the
	// human-readable message fed back to the model on retry. Field names
	// the offending parameter for schema violations.
	Code    Code
	Error   string
	Details string
	Field   string
}

// violation is a single schema violation, reported fail-fast.
type violation struct {
	field  string
	msg    string
	detail string
}

// Validate checks a command proposal against the schema registry.
func Validate(name string, params map[string]any) Outcome {
	schema, ok := command.SchemaFor(command.Name(name))
	if !ok {
		return unknownCommand(name)
	}

	var (
		normalized map[string]any
		v          *violation
	)
	switch schema.Name {
	case command.MoveTo:
		normalized, v = validateMoveTo(schema, params)
	case command.Rotate:
		normalized, v = validateRotate(schema, params)
	case command.StartPatrol:
		normalized, v = validateStartPatrol(schema, params)
	default:
		// Unreachable while the registry and this switch stay in sync.
		return unknownCommand(name)
	}

	if v != nil {
		return Outcome{
			Valid:   false,
			Code:    CodeSchemaViolation,
			Error:   fmt.Sprintf("Invalid params for '%s': %s", name, v.msg),
			Details: v.detail,
			Field:   v.field,
		}
	}

	return Outcome{
		Valid:   true,
		Command: schema.Name,
		Params:  normalized,
		Message: fmt.Sprintf("Received and validated command: '%s' with params %s", name, FormatParams(normalized)),
	}
}

func unknownCommand(name string) Outcome {
	names := make([]string, 0, 3)
	for _, n := range command.Names() {
		names = append(names, string(n))
	}
	return Outcome{
		Valid:   false,
		Code:    CodeUnknownCommand,
		Error:   fmt.Sprintf("Invalid command. Reason: Unknown command name '%s'", name),
		Details: "Valid commands are: " + strings.Join(names, ", "),
	}
}

func validateMoveTo(schema command.Schema, params map[string]any) (map[string]any, *violation) {
	normalized, v := checkFields(schema, params)
	if v != nil {
		return nil, v
	}
	p := command.MoveToParams{
		X: normalized["x"].(float64),
		Y: normalized["y"].(float64),
	}
	return map[string]any{"x": p.X, "y": p.Y}, nil
}

func validateRotate(schema command.Schema, params map[string]any) (map[string]any, *violation) {
	normalized, v := checkFields(schema, params)
	if v != nil {
		return nil, v
	}
	p := command.RotateParams{
		Angle:     normalized["angle"].(float64),
		Direction: normalized["direction"].(string),
	}
	return map[string]any{"angle": p.Angle, "direction": p.Direction}, nil
}

func validateStartPatrol(schema command.Schema, params map[string]any) (map[string]any, *violation) {
	normalized, v := checkFields(schema, params)
	if v != nil {
		return nil, v
	}
	p := command.StartPatrolParams{
		RouteID:     normalized["route_id"].(string),
		Speed:       normalized["speed"].(string),
		RepeatCount: normalized["repeat_count"].(int),
	}

	// Loop-count contract: -1 means continuous, >= 1 means finite. Zero is
	// rejected explicitly because the model produces it often.
	switch {
	case p.RepeatCount == 0:
		return nil, &violation{
			field:  "repeat_count",
			msg:    "repeat_count cannot be 0. Use -1 for continuous or >= 1 for finite loops",
			detail: "repeat_count must be -1 or >= 1",
		}
	case p.RepeatCount < -1:
		return nil, &violation{
			field:  "repeat_count",
			msg:    fmt.Sprintf("repeat_count cannot be %d. Use -1 for continuous or >= 1 for finite loops", p.RepeatCount),
			detail: "repeat_count must be -1 or >= 1",
		}
	}

	return map[string]any{
		"route_id":     p.RouteID,
		"speed":        p.Speed,
		"repeat_count": p.RepeatCount,
	}, nil
}

// checkFields runs presence, kind and enum checks for every schema field in
// declaration order, stopping at the first violation. The returned map holds
// normalized values (float64, int or string) with defaults applied.
func checkFields(schema command.Schema, params map[string]any) (map[string]any, *violation) {
	normalized := make(map[string]any, len(schema.Fields))
	for _, f := range schema.Fields {
		raw, present := params[f.Key]
		if !present {
			if f.Required {
				return nil, &violation{
					field:  f.Key,
					msg:    fmt.Sprintf("Missing required key '%s'", f.Key),
					detail: fmt.Sprintf("field '%s' is required", f.Key),
				}
			}
			normalized[f.Key] = f.Default
			continue
		}

		val, v := checkKind(f, raw)
		if v != nil {
			return nil, v
		}
		normalized[f.Key] = val
	}
	return normalized, nil
}

func checkKind(f command.Field, raw any) (any, *violation) {
	switch f.Kind {
	case command.KindNumber:
		n, ok := asNumber(raw)
		if !ok {
			return nil, wrongType(f.Key, "a valid number", raw)
		}
		return n, nil

	case command.KindInteger:
		n, ok := asInteger(raw)
		if !ok {
			return nil, wrongType(f.Key, "a valid integer", raw)
		}
		return n, nil

	case command.KindEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, wrongType(f.Key, "a valid string", raw)
		}
		for _, allowed := range f.Enum {
			if s == allowed {
				return s, nil
			}
		}
		return nil, &violation{
			field:  f.Key,
			msg:    fmt.Sprintf("Invalid value for '%s'. Expected one of: %s", f.Key, strings.Join(f.Enum, ", ")),
			detail: fmt.Sprintf("got '%s'", s),
		}

	default:
		return raw, nil
	}
}

func wrongType(key, expected string, raw any) *violation {
	return &violation{
		field:  key,
		msg:    fmt.Sprintf("Wrong data type for '%s'. Expected %s", key, expected),
		detail: fmt.Sprintf("got %T", raw),
	}
}

// asNumber accepts the numeric representations a parameter map can carry:
// float64 from JSON decoding plus the native Go numeric types used in tests
// and in-process callers.
func asNumber(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// asInteger is asNumber restricted to integral values. JSON has no integer
// type, so a float64 with no fractional part passes.
func asInteger(raw any) (int, bool) {
	switch n := raw.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

// FormatParams renders a parameter map deterministically (JSON with sorted
// keys) for log records and validation messages.
func FormatParams(params map[string]any) string {
	b, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%v", params)
	}
	return string(b)
}
