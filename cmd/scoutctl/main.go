// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command scoutctl drives an Aleutian Scout server from the terminal.
//
// Usage:
//
//	scoutctl health
//	scoutctl new "why does the importer stall on large files?"
//	scoutctl ops <session-id>
//	scoutctl run <session-id> exploration_summary
//	scoutctl run <session-id> tough_reasoning --param max_iterations=5
//	scoutctl decide <session-id>
//	scoutctl watch <session-id> --replay
//
// The server address comes from --server, the SCOUT_SERVER_URL
// environment variable, or defaults to http://localhost:8096.
package main

import (
	"log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
