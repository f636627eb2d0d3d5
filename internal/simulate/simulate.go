// Package simulate renders validated robot commands as textual action
// descriptions. It is the deterministic stand-in for driving real hardware.
package simulate

import (
	"fmt"
	"strconv"

	"roverd/internal/command"
)

// ErrInternal reports a command or parameter shape that validation should
// have made unreachable. It indicates a validator/registry inconsistency,
// not bad user input, so callers surface it instead of retrying.
var ErrInternal = fmt.Errorf("internal consistency error in simulation")

// Describe formats the action a robot would take for a validated command.
// It must only be called with the normalized parameters of a valid outcome.
func Describe(name command.Name, params map[string]any) (string, error) {
	switch name {
	case command.MoveTo:
		x, okX := params["x"].(float64)
		y, okY := params["y"].(float64)
		if !okX || !okY {
			return "", fmt.Errorf("%w: malformed move_to params", ErrInternal)
		}
		return fmt.Sprintf("Robot navigating to coordinates (%s, %s)", num(x), num(y)), nil

	case command.Rotate:
		angle, okA := params["angle"].(float64)
		direction, okD := params["direction"].(string)
		if !okA || !okD {
			return "", fmt.Errorf("%w: malformed rotate params", ErrInternal)
		}
		return fmt.Sprintf("Robot rotating %s degrees %s", num(angle), direction), nil

	case command.StartPatrol:
		route, okR := params["route_id"].(string)
		speed, okS := params["speed"].(string)
		repeat, okC := params["repeat_count"].(int)
		if !okR || !okS || !okC {
			return "", fmt.Errorf("%w: malformed start_patrol params", ErrInternal)
		}
		repeatMsg := fmt.Sprintf("%d time(s)", repeat)
		if repeat == -1 {
			repeatMsg = "continuous patrol"
		}
		return fmt.Sprintf("Robot starting %s patrol at %s speed, repeating %s", route, speed, repeatMsg), nil

	default:
		return "", fmt.Errorf("%w: unknown command '%s'", ErrInternal, name)
	}
}

// num prints a float without a trailing fractional part for whole values,
// so coordinates read "(5, 7)" rather than "(5.000000, 7.000000)".
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
