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
	"strings"

	"github.com/spf13/cobra"
)

func runHealth(cmd *cobra.Command, args []string) {
	client := newScoutClient()
	info, err := client.health()
	if err != nil {
		fail("Scout server unreachable", err)
	}

	if jsonOutput {
		printJSON(info)
		return
	}
	success(fmt.Sprintf("Scout %s is %s (%d active sessions) at %s",
		info.Version, info.Status, info.Sessions, client.baseURL))
}

func runNewSession(cmd *cobra.Command, args []string) {
	task := strings.TrimSpace(strings.Join(args, " "))

	client := newScoutClient()
	sess, err := client.createSession(task, newIterations, newAuthority)
	if err != nil {
		fail("Failed to create session", err)
	}

	if jsonOutput {
		printJSON(sess)
		return
	}
	success("Session created")
	renderSession(sess)
	fmt.Printf("\n%s scoutctl run %s exploration_summary\n",
		styled(styleMuted, "Next:"), sess.SessionID)
}

func runListSessions(cmd *cobra.Command, args []string) {
	client := newScoutClient()
	list, err := client.listSessions()
	if err != nil {
		fail("Failed to list sessions", err)
	}

	if jsonOutput {
		printJSON(list)
		return
	}
	if list.Count == 0 {
		fmt.Println(styled(styleMuted, "No sessions. Start one with: scoutctl new \"<task>\""))
		return
	}
	for _, sess := range list.Sessions {
		renderSessionRow(sess)
	}
	fmt.Printf("\n%d session(s)\n", list.Count)
}

func runShowSession(cmd *cobra.Command, args []string) {
	client := newScoutClient()
	sess, err := client.getSession(args[0])
	if err != nil {
		fail("Failed to fetch session", err)
	}

	if jsonOutput {
		printJSON(sess)
		return
	}
	renderSession(sess)
}

func runDeleteSession(cmd *cobra.Command, args []string) {
	client := newScoutClient()
	if err := client.deleteSession(args[0]); err != nil {
		fail("Failed to delete session", err)
	}

	if jsonOutput {
		printJSON(map[string]string{"deleted": args[0]})
		return
	}
	success(fmt.Sprintf("Session %s deleted", args[0]))
}
