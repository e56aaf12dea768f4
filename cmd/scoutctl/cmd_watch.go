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
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func runEvents(cmd *cobra.Command, args []string) {
	client := newScoutClient()
	list, err := client.events(args[0], eventTypes, eventSinceMs)
	if err != nil {
		fail("Failed to fetch events", err)
	}

	if jsonOutput {
		printJSON(list)
		return
	}
	for _, ev := range list.Events {
		renderEvent(ev)
	}
	fmt.Printf("\n%d event(s)\n", list.Count)
}

func runWatch(cmd *cobra.Command, args []string) {
	wsURL, err := websocketURL(resolveServerURL(), args[0], watchTypes, watchReplay)
	if err != nil {
		fail("Invalid server URL", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		fail("Failed to connect to event stream", err)
	}
	defer conn.Close()

	if !jsonOutput {
		fmt.Println(styled(styleMuted, "Watching "+args[0]+" (Ctrl+C to stop)"))
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var ev streamEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					fmt.Fprintf(os.Stderr, "stream closed: %v\n", err)
				}
				return
			}
			if jsonOutput {
				raw, _ := json.Marshal(ev)
				fmt.Println(string(raw))
			} else {
				renderEvent(ev)
			}
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		// Ask the server to close cleanly, then give the reader a
		// moment to drain.
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
