// Package envutil parses typed configuration values out of the process
// environment, the only configuration surface this module has: every
// tunable is read directly at the point of use, exactly as the original
// std::getenv call sites it is grounded on.
package envutil

import (
	"fmt"
	"os"
	"strconv"
)

// String returns the named variable, or def if unset or empty.
func String(name, def string) string {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def
	}
	return v
}

// Bool parses a boolean-valued variable. Accepts the forms understood by
// strconv.ParseBool (1/t/T/TRUE/true/True, 0/f/F/FALSE/false/False).
func Bool(name string, def bool) (bool, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("envutil: %s: invalid boolean value %q", name, v)
	}
	return b, nil
}

// Float64 parses a floating-point variable.
func Float64(name string, def float64) (float64, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("envutil: %s: invalid float value %q", name, v)
	}
	return f, nil
}

// Uint32 parses a non-negative integer variable that fits in 32 bits.
func Uint32(name string, def uint32) (uint32, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def, fmt.Errorf("envutil: %s: invalid uint32 value %q", name, v)
	}
	return uint32(n), nil
}

// Uint64 parses an unsigned 64-bit integer variable.
func Uint64(name string, def uint64) (uint64, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def, fmt.Errorf("envutil: %s: invalid uint64 value %q", name, v)
	}
	return n, nil
}
