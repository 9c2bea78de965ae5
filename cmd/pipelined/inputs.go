package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pipelined/pipelined/internal/pipeline"
)

// parseInputFlag parses one --input flag of the form name=kind:value into a
// pipeline.DataValue, e.g. "data=Text:hello" or "count=Integer:3".
func parseInputFlag(raw string) (string, pipeline.DataValue, error) {
	name, rest, ok := strings.Cut(raw, "=")
	if !ok {
		return "", pipeline.DataValue{}, fmt.Errorf("invalid --input %q: expected name=kind:value", raw)
	}
	kind, value, ok := strings.Cut(rest, ":")
	if !ok {
		return "", pipeline.DataValue{}, fmt.Errorf("invalid --input %q: expected name=kind:value", raw)
	}

	switch kind {
	case "Text":
		return name, pipeline.NewText(value), nil
	case "Integer":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return "", pipeline.DataValue{}, fmt.Errorf("--input %q: %w", raw, err)
		}
		return name, pipeline.NewInteger(n), nil
	case "Float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", pipeline.DataValue{}, fmt.Errorf("--input %q: %w", raw, err)
		}
		return name, pipeline.NewFloat(f), nil
	case "Boolean":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", pipeline.DataValue{}, fmt.Errorf("--input %q: %w", raw, err)
		}
		return name, pipeline.NewBoolean(b), nil
	default:
		return "", pipeline.DataValue{}, fmt.Errorf("--input %q: unsupported kind %q (want Text, Integer, Float, or Boolean)", raw, kind)
	}
}

func parseInputFlags(raws []string) (map[string]pipeline.DataValue, error) {
	inputs := make(map[string]pipeline.DataValue, len(raws))
	for _, raw := range raws {
		name, value, err := parseInputFlag(raw)
		if err != nil {
			return nil, err
		}
		inputs[name] = value
	}
	return inputs, nil
}
