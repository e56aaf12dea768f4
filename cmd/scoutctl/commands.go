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
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL      string
	jsonOutput     bool
	requestTimeout time.Duration

	// new
	newIterations int
	newAuthority  string

	// run
	runParams []string

	// decide
	decideIterations int

	// watch
	watchTypes  string
	watchReplay bool

	// session events
	eventTypes   string
	eventSinceMs int64

	rootCmd = &cobra.Command{
		Use:   "scoutctl",
		Short: "A cli to inspect and drive Aleutian Scout investigation sessions",
		Long: `Scoutctl talks to a running Aleutian Scout server: create
				investigation sessions, dispatch operations against them, pull
				final decisions, and tail the live event stream.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Styled output only when a human is watching.
			colorize = isatty.IsTerminal(os.Stdout.Fd()) ||
				isatty.IsCygwinTerminal(os.Stdout.Fd())
		},
	}

	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check the Scout server health",
		Run:   runHealth, // Defined in cmd_session.go
	}

	newCmd = &cobra.Command{
		Use:   "new [task...]",
		Short: "Start a new investigation session",
		Args:  cobra.MinimumNArgs(1),
		Run:   runNewSession, // Defined in cmd_session.go
	}

	// --- Sessions ---
	sessionCmd = &cobra.Command{
		Use:   "session",
		Short: "Manage investigation sessions",
	}
	listSessionsCmd = &cobra.Command{
		Use:     "list",
		Short:   "List all investigation sessions",
		Aliases: []string{"ls"},
		Run:     runListSessions, // Defined in cmd_session.go
	}
	showSessionCmd = &cobra.Command{
		Use:   "show [session_id]",
		Short: "Show one session's phase, evidence volume, and confidence",
		Args:  cobra.ExactArgs(1),
		Run:   runShowSession, // Defined in cmd_session.go
	}
	deleteSessionCmd = &cobra.Command{
		Use:   "delete [session_id]",
		Short: "Stop and delete a session",
		Args:  cobra.ExactArgs(1),
		Run:   runDeleteSession, // Defined in cmd_session.go
	}
	eventsCmd = &cobra.Command{
		Use:   "events [session_id]",
		Short: "Dump a session's buffered events",
		Args:  cobra.ExactArgs(1),
		Run:   runEvents, // Defined in cmd_watch.go
	}

	// --- Operations ---
	opsCmd = &cobra.Command{
		Use:   "ops [session_id]",
		Short: "List the operations a session can dispatch",
		Args:  cobra.ExactArgs(1),
		Run:   runListOperations, // Defined in cmd_ops.go
	}
	runCmd = &cobra.Command{
		Use:   "run [session_id] [operation]",
		Short: "Dispatch one operation against a session",
		Args:  cobra.ExactArgs(2),
		Run:   runOperation, // Defined in cmd_ops.go
	}
	decideCmd = &cobra.Command{
		Use:   "decide [session_id]",
		Short: "Ask the session's decision authority for a verdict",
		Args:  cobra.ExactArgs(1),
		Run:   runDecide, // Defined in cmd_ops.go
	}

	// --- Events ---
	watchCmd = &cobra.Command{
		Use:   "watch [session_id]",
		Short: "Tail a session's live event stream over WebSocket",
		Args:  cobra.ExactArgs(1),
		Run:   runWatch, // Defined in cmd_watch.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"Scout server base URL (default: $SCOUT_SERVER_URL or http://localhost:8096)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Print raw JSON responses for scripting")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 60*time.Second,
		"HTTP request timeout")

	rootCmd.AddCommand(healthCmd)

	rootCmd.AddCommand(newCmd)
	newCmd.Flags().IntVar(&newIterations, "iterations", 0,
		"Iteration budget for the reasoning loop (0 uses the server default)")
	newCmd.Flags().StringVar(&newAuthority, "authority", "",
		"Decision authority: 'gate' or 'controller' (empty uses the server default)")

	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(listSessionsCmd)
	sessionCmd.AddCommand(showSessionCmd)
	sessionCmd.AddCommand(deleteSessionCmd)
	sessionCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVar(&eventTypes, "types", "",
		"Comma-separated event types to include (default all)")
	eventsCmd.Flags().Int64Var(&eventSinceMs, "since-ms", 0,
		"Only events at or after this Unix timestamp in milliseconds")

	rootCmd.AddCommand(opsCmd)

	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringArrayVar(&runParams, "param", nil,
		"Operation parameter as key=value (repeatable)")

	rootCmd.AddCommand(decideCmd)
	decideCmd.Flags().IntVar(&decideIterations, "iterations", 0,
		"Iteration budget override for controller decisions (0 uses the session budget)")

	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchTypes, "types", "",
		"Comma-separated event types to include (default all)")
	watchCmd.Flags().BoolVar(&watchReplay, "replay", false,
		"Replay the buffered event history before tailing live events")
}
