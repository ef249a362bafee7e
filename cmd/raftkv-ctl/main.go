/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command raftkv-ctl is a small debug client for a running raftkv-node
// process: it fetches the node's /status endpoint and renders it as a
// colorized table.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"raftkv/pkg/cli"
)

type statusResponse struct {
	SelfID      string `json:"self_id"`
	Role        string `json:"role"`
	Term        uint64 `json:"term"`
	CommitIndex uint64 `json:"commit_index"`
	LastApplied uint64 `json:"last_applied"`
	LogSize     uint64 `json:"log_size"`
	PeerCount   int    `json:"peer_count"`
}

var rootCmd = &cobra.Command{
	Use:   "raftkv-ctl",
	Short: "Debug client for a running raftkv-node",
}

var statusAddr string
var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch and print a node's current Raft status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(statusAddr, statusFormat)
	},
}

func runStatus(addr, format string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/status")
	if err != nil {
		cli.PrintError("failed to reach %s: %v", addr, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		cli.PrintError("node at %s returned HTTP %d", addr, resp.StatusCode)
		return fmt.Errorf("raftkv-ctl: status %d", resp.StatusCode)
	}

	var st statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		cli.PrintError("malformed status response from %s: %v", addr, err)
		return err
	}

	table := cli.NewTable("FIELD", "VALUE")
	table.SetFormat(cli.ParseOutputFormat(format))
	table.AddRow("node_id", st.SelfID)
	table.AddRow("role", roleLabel(st.Role))
	table.AddRow("term", fmt.Sprintf("%d", st.Term))
	table.AddRow("commit_index", fmt.Sprintf("%d", st.CommitIndex))
	table.AddRow("last_applied", fmt.Sprintf("%d", st.LastApplied))
	table.AddRow("log_size", fmt.Sprintf("%d", st.LogSize))
	table.AddRow("peer_count", fmt.Sprintf("%d", st.PeerCount))
	table.Print()
	return nil
}

func roleLabel(role string) string {
	if role == "leader" {
		return cli.Success(role)
	}
	return role
}

func main() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "localhost:9090", "node metrics/status address (host:port)")
	statusCmd.Flags().StringVar(&statusFormat, "format", "table", "output format: table|json|plain")
	rootCmd.AddCommand(statusCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
