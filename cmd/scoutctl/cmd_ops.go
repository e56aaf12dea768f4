// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func runListOperations(cmd *cobra.Command, args []string) {
	client := newScoutClient()
	list, err := client.listOperations(args[0])
	if err != nil {
		fail("Failed to list operations", err)
	}

	if jsonOutput {
		printJSON(list)
		return
	}

	for _, op := range list.Operations {
		fmt.Printf("%s\n  %s\n", styled(styleTitle, op.Name), op.Description)
		if op.Guidance != nil && op.Guidance.UseWhen != "" {
			fmt.Printf("  %s %s\n", styled(styleMuted, "use when:"), op.Guidance.UseWhen)
		}
		if op.Guidance != nil && op.Guidance.AvoidWhen != "" {
			fmt.Printf("  %s %s\n", styled(styleMuted, "avoid when:"), op.Guidance.AvoidWhen)
		}
		for name, p := range op.Params {
			line := fmt.Sprintf("  --param %s=<%s>  %s", name, p.Type, p.Description)
			if p.Default != nil {
				line += fmt.Sprintf(" (default %v)", p.Default)
			}
			fmt.Println(styled(styleMuted, line))
		}
		fmt.Println()
	}
	fmt.Printf("%d operation(s)\n", list.Count)
}

func runOperation(cmd *cobra.Command, args []string) {
	params, err := parseParams(runParams)
	if err != nil {
		fail("Invalid --param", err)
	}

	client := newScoutClient()
	result, err := client.runOperation(args[0], args[1], params)
	if err != nil {
		fail("Operation failed", err)
	}

	if jsonOutput {
		printJSON(result)
		return
	}

	if !result.Success {
		fmt.Printf("%s %s: %s\n", styled(styleError, "✗"), result.Operation, result.Error)
		return
	}
	fmt.Println(result.Output)
	note := fmt.Sprintf("%s finished in %dms", result.Operation, result.DurationMs)
	if result.Truncated {
		note += " (output truncated)"
	}
	fmt.Println(styled(styleMuted, note))
}

func runDecide(cmd *cobra.Command, args []string) {
	client := newScoutClient()
	decision, err := client.decide(args[0], decideIterations)
	if err != nil {
		fail("Failed to get a decision", err)
	}

	if jsonOutput {
		printJSON(decision)
		return
	}
	renderDecision(decision)
}

// parseParams converts repeated key=value flags into operation
// parameters. Values that parse as numbers are sent as numbers so
// int-typed operation parameters arrive with the right JSON type.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return map[string]any{}, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("%q is not key=value", pair)
		}
		params[key] = coerceParam(strings.TrimSpace(value))
	}
	return params, nil
}

// coerceParam turns numeric and boolean literals into typed values and
// leaves everything else as a string.
func coerceParam(value string) any {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}
