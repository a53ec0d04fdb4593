package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	"raft-coordinator/internal/raft"
	"raft-coordinator/internal/raft/server"
)

var httpClient = &http.Client{Timeout: 5 * time.Second}

// Submits commands to a running cluster (see cmd/app) through the HTTP API and prints the state of every node.
func main() {
	nodes := flag.String("nodes", "http://localhost:8080,http://localhost:8081,http://localhost:8082", "Comma separated HTTP API base URLs")
	flag.Parse()

	servers := strings.Split(*nodes, ",")

	fmt.Println("========================================")
	fmt.Println("Submitting Commands to the Leader")
	fmt.Println("========================================")
	fmt.Println()

	commands := []map[string]any{
		{"op": "set", "key": "name", "value": "Alice"},
		{"op": "set", "key": "city", "value": "Sofia"},
		{"op": "set", "key": "language", "value": "Go"},
	}

	for i, cmd := range commands {
		fmt.Printf("[%d] Submitting: %v\n", i+1, cmd)

		success := false
		for retries := 0; retries < 3 && !success; retries++ {
			if retries > 0 {
				fmt.Printf("  Retrying (attempt %d)...\n", retries+1)
				time.Sleep(500 * time.Millisecond)
			}

			leader := findLeader(servers)
			if leader == "" {
				fmt.Printf("  Could not find leader\n")
				continue
			}

			success = submitCommand(leader, cmd)
		}

		if !success {
			fmt.Printf("  Failed after 3 attempts\n")
		}
	}

	fmt.Println()
	fmt.Println("Waiting for the next heartbeat to carry the commit index...")
	time.Sleep(2 * time.Second)

	fmt.Println()
	for _, addr := range servers {
		fmt.Printf("%s:\n", addr)
		queryServerState(addr)
		fmt.Println()
	}
}

func submitCommand(baseURL string, cmd map[string]any) bool {
	body, err := json.Marshal(map[string]any{"command": cmd})
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/client_command", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		fmt.Printf("  Request failed: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  Rejected with HTTP %d\n", resp.StatusCode)
		return false
	}

	var out raft.ClientCommandResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false
	}
	fmt.Printf("  %s\n", out.Status)
	return out.Status == raft.Committed
}

func getStatus(baseURL string) (*server.Status, error) {
	resp, err := httpClient.Get(baseURL + "/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var status server.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}
	return &status, nil
}

func findLeader(servers []string) string {
	for _, addr := range servers {
		status, err := getStatus(addr)
		if err == nil && status.Role == server.Leader.String() {
			return addr
		}
	}
	return ""
}

func queryServerState(addr string) {
	status, err := getStatus(addr)
	if err != nil {
		fmt.Printf("  Query failed: %v\n", err)
		return
	}

	leader := "-"
	if status.LeaderID != nil {
		leader = *status.LeaderID
	}
	fmt.Printf("  Server ID:      %s\n", status.ID)
	fmt.Printf("  Role:           %s\n", status.Role)
	fmt.Printf("  Term:           %d\n", status.Term)
	fmt.Printf("  Leader:         %s\n", leader)
	fmt.Printf("  Log Length:     %d\n", len(status.Log))
	fmt.Printf("  Commit Index:   %d\n", status.CommitIndex)
}
