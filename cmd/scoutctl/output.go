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
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess = 0 // Operation completed successfully
	CLIExitError   = 1 // Operation failed
)

// colorize enables styled output. Set from the root command based on
// whether stdout is a terminal; tests leave it false.
var colorize bool

// Scout palette - the Aleutian ocean teals plus phase accents.
var (
	colorTealBright = lipgloss.Color("#2CD7C7") // highlights, success
	colorTealDeep   = lipgloss.Color("#16858E") // secondary accents
	colorGold       = lipgloss.Color("#F4D03F") // THINK phase, warnings
	colorGreen      = lipgloss.Color("#7EC636") // EXECUTE phase
	colorRed        = lipgloss.Color("#E74C3C") // errors
	colorSlate      = lipgloss.Color("#2C4A54") // muted text
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorTealBright)
	styleMuted   = lipgloss.NewStyle().Foreground(colorSlate)
	styleSuccess = lipgloss.NewStyle().Foreground(colorTealBright)
	styleWarning = lipgloss.NewStyle().Foreground(colorGold)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)

	phaseStyles = map[string]lipgloss.Style{
		"EXPLORE": lipgloss.NewStyle().Bold(true).Foreground(colorTealBright),
		"THINK":   lipgloss.NewStyle().Bold(true).Foreground(colorGold),
		"EXECUTE": lipgloss.NewStyle().Bold(true).Foreground(colorGreen),
		"REFLECT": lipgloss.NewStyle().Bold(true).Foreground(colorTealDeep),
	}
)

// styled applies the style only when colorize is on, so piped output
// stays clean.
func styled(s lipgloss.Style, text string) string {
	if !colorize {
		return text
	}
	return s.Render(text)
}

// renderPhase returns the phase name with its accent color.
func renderPhase(phase string) string {
	if style, ok := phaseStyles[phase]; ok {
		return styled(style, phase)
	}
	return phase
}

// renderConfidence formats a 0..1 score as a percentage, colored by
// how decision-ready it is.
func renderConfidence(score float64) string {
	text := fmt.Sprintf("%.0f%%", score*100)
	switch {
	case score > 0.8:
		return styled(styleSuccess, text)
	case score >= 0.5:
		return styled(styleWarning, text)
	default:
		return styled(styleError, text)
	}
}

// renderSession prints one session in the two-column detail layout.
func renderSession(s *sessionInfo) {
	fmt.Println(styled(styleTitle, s.SessionID))
	fmt.Printf("  %s %s\n", styled(styleMuted, "task:"), s.Task)
	fmt.Printf("  %s %s\n", styled(styleMuted, "phase:"), renderPhase(s.Phase))
	fmt.Printf("  %s %s\n", styled(styleMuted, "authority:"), s.DecisionAuthority)
	fmt.Printf("  %s %d entries, %d steps, %d thoughts\n",
		styled(styleMuted, "evidence:"), s.EntryCount, s.Steps, s.Thoughts)
	fmt.Printf("  %s %s\n", styled(styleMuted, "confidence:"), renderConfidence(s.Confidence))
	fmt.Printf("  %s %s\n", styled(styleMuted, "created:"),
		time.Unix(s.CreatedAt, 0).Format(time.RFC3339))
}

// renderSessionRow prints one session as a single list line.
func renderSessionRow(s sessionInfo) {
	task := s.Task
	if len(task) > 48 {
		task = task[:45] + "..."
	}
	fmt.Printf("%s  %-8s %-4s %s  %s\n",
		s.SessionID,
		renderPhase(s.Phase),
		renderConfidence(s.Confidence),
		styled(styleMuted, fmt.Sprintf("%2d entries", s.EntryCount)),
		task)
}

// renderDecision prints a decision verdict with its action plan.
func renderDecision(d *decisionInfo) {
	fmt.Println(styled(styleTitle, "Decision"))
	fmt.Printf("  %s\n", d.Decision)
	fmt.Printf("  %s %s", styled(styleMuted, "confidence:"), renderConfidence(d.Confidence))
	fmt.Printf("  %s %s", styled(styleMuted, "authority:"), d.Authority)
	if d.Iterations > 0 {
		fmt.Printf("  %s %d", styled(styleMuted, "iterations:"), d.Iterations)
		if d.Converged {
			fmt.Printf(" %s", styled(styleSuccess, "(converged)"))
		}
	}
	fmt.Println()
	if d.Reasoning != "" {
		fmt.Printf("  %s %s\n", styled(styleMuted, "reasoning:"), d.Reasoning)
	}
	if len(d.ActionPlan) > 0 {
		fmt.Println(styled(styleTitle, "Action plan"))
		for i, step := range d.ActionPlan {
			fmt.Printf("  %d. %s\n", i+1, step)
		}
	}
}

// renderEvent prints one stream event as a single line.
func renderEvent(ev streamEvent) {
	stamp := ev.Timestamp.Format("15:04:05.000")
	line := fmt.Sprintf("%s %s", styled(styleMuted, stamp), styled(styleTitle, ev.Type))
	if ev.Iteration > 0 {
		line += styled(styleMuted, fmt.Sprintf(" iter=%d", ev.Iteration))
	}
	if summary := eventSummary(ev); summary != "" {
		line += " " + summary
	}
	fmt.Println(line)
}

// eventSummary pulls the most useful fields out of an event's data
// payload without decoding it into a typed struct.
func eventSummary(ev streamEvent) string {
	if len(ev.Data) == 0 {
		return ""
	}
	var data map[string]any
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		return ""
	}

	var parts []string
	for _, key := range []string{"kind", "query", "strategy", "from_phase", "to_phase", "decision", "thought", "error"} {
		v, ok := data[key]
		if !ok {
			continue
		}
		text := fmt.Sprintf("%v", v)
		if len(text) > 60 {
			text = text[:57] + "..."
		}
		parts = append(parts, fmt.Sprintf("%s=%q", key, text))
	}
	if conf, ok := data["confidence"].(float64); ok {
		parts = append(parts, fmt.Sprintf("confidence=%.2f", conf))
	}
	if score, ok := data["score"].(float64); ok {
		parts = append(parts, fmt.Sprintf("score=%.2f", score))
	}
	return strings.Join(parts, " ")
}

// printJSON writes data as indented JSON to stdout for --json mode.
func printJSON(data any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(CLIExitError)
	}
}

// fail prints a styled error and exits with the error code.
func fail(msg string, err error) {
	if jsonOutput {
		printJSON(map[string]any{"error": fmt.Sprintf("%s: %v", msg, err)})
	} else {
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", styled(styleError, "✗"), msg, err)
	}
	os.Exit(CLIExitError)
}

// success prints a styled confirmation line.
func success(text string) {
	fmt.Printf("%s %s\n", styled(styleSuccess, "✓"), text)
}
