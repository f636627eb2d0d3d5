// Package command defines the closed set of robot commands and the schema
// registry that describes their parameter contracts.
//
// The registry is immutable process-wide state: it is built once at package
// init and never mutated, so it is safe to share across request goroutines
// without locking.
package command

// Name identifies a robot command.
type Name string

// The closed command set. Anything outside it is rejected by validation.
const (
	MoveTo      Name = "move_to"
	Rotate      Name = "rotate"
	StartPatrol Name = "start_patrol"
)

// Kind is the primitive kind a parameter value must have.
type Kind string

const (
	// KindNumber accepts any numeric value (JSON numbers decode as float64).
	KindNumber Kind = "number"

	// KindInteger accepts numeric values with no fractional part.
	KindInteger Kind = "integer"

	// KindEnum accepts one of a fixed set of strings.
	KindEnum Kind = "enum"
)

// Field describes a single parameter of a command schema.
type Field struct {
	// Key is the parameter name as it appears on the wire.
	Key string

	// Kind is the required primitive kind.
	Kind Kind

	// Required marks parameters that must be present. Optional parameters
	// have a Default applied when absent.
	Required bool

	// Enum lists the allowed values for KindEnum fields.
	Enum []string

	// Default is substituted when an optional parameter is absent.
	Default any
}

// Schema is the parameter contract for one command. Fields are checked in
// declaration order during validation.
type Schema struct {
	Name   Name
	Fields []Field
}

// MoveToParams are the validated parameters of the move_to command.
type MoveToParams struct {
	X float64
	Y float64
}

// RotateParams are the validated parameters of the rotate command.
type RotateParams struct {
	Angle     float64
	Direction string
}

// StartPatrolParams are the validated parameters of the start_patrol command.
// Speed and RepeatCount carry schema defaults when absent from the request;
// RepeatCount is -1 for a continuous patrol or >= 1 for finite loops.
type StartPatrolParams struct {
	RouteID     string
	Speed       string
	RepeatCount int
}

// registry holds the schema table, keyed by command name. Declaration order
// of the slice fixes the order in which Names() reports valid commands.
var registry = []Schema{
	{
		Name: MoveTo,
		Fields: []Field{
			{Key: "x", Kind: KindNumber, Required: true},
			{Key: "y", Kind: KindNumber, Required: true},
		},
	},
	{
		Name: Rotate,
		Fields: []Field{
			{Key: "angle", Kind: KindNumber, Required: true},
			{Key: "direction", Kind: KindEnum, Required: true, Enum: []string{"clockwise", "counter-clockwise"}},
		},
	},
	{
		Name: StartPatrol,
		Fields: []Field{
			{Key: "route_id", Kind: KindEnum, Required: true, Enum: []string{"first_floor", "bedrooms", "second_floor"}},
			{Key: "speed", Kind: KindEnum, Enum: []string{"slow", "medium", "fast"}, Default: "medium"},
			{Key: "repeat_count", Kind: KindInteger, Default: 1},
		},
	},
}

// SchemaFor looks up the schema for a command name. The second return is
// false for commands outside the closed set.
func SchemaFor(name Name) (Schema, bool) {
	for _, s := range registry {
		if s.Name == name {
			return s, true
		}
	}
	return Schema{}, false
}

// Names returns the valid command names in declaration order.
func Names() []Name {
	names := make([]Name, len(registry))
	for i, s := range registry {
		names[i] = s.Name
	}
	return names
}
