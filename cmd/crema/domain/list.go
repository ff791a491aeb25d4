/*
 * Copyright 2025 The Crema Authors. All rights reserved.
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

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/server/domain"
)

var (
	output     string
	databaseID string
)

// corruptedLog is a log the server would fail to restore.
type corruptedLog struct {
	Dir   string `json:"dir" yaml:"dir"`
	Error string `json:"error" yaml:"error"`
}

type logListing struct {
	Logs      []domain.LogSummary `json:"logs" yaml:"logs"`
	Corrupted []corruptedLog      `json:"corrupted,omitempty" yaml:"corrupted,omitempty"`
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls [domains-path]",
		Short:   "List the domain logs under the given path",
		Example: "crema domain ls crema-data/domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("domains path is required")
			}
			if output != "" && output != "yaml" && output != "json" {
				return errors.New(`--output must be 'yaml' or 'json'`)
			}

			listing, err := listLogs(args[0], types.ID(databaseID))
			if err != nil {
				return err
			}

			switch output {
			case "yaml":
				marshalled, err := yaml.Marshal(&listing)
				if err != nil {
					return errors.New("failed to marshal YAML")
				}
				cmd.Println(string(marshalled))
			case "json":
				marshalled, err := json.MarshalIndent(&listing, "", "  ")
				if err != nil {
					return errors.New("failed to marshal JSON")
				}
				cmd.Println(string(marshalled))
			default:
				cmd.Printf("%s\n", renderTable(listing))
			}

			return nil
		},
	}
}

// listLogs inspects the logs of the given database, or of every database
// under root when databaseID is empty.
func listLogs(root string, databaseID types.ID) (logListing, error) {
	var databaseIDs []types.ID
	if databaseID != "" {
		if err := databaseID.Validate(); err != nil {
			return logListing{}, err
		}
		databaseIDs = append(databaseIDs, databaseID)
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return logListing{}, fmt.Errorf("read %s: %w", root, err)
		}
		for _, entry := range entries {
			id := types.ID(entry.Name())
			if entry.IsDir() && id.Validate() == nil {
				databaseIDs = append(databaseIDs, id)
			}
		}
	}

	listing := logListing{Logs: []domain.LogSummary{}}
	options := domain.LogOptions{Root: root}
	for _, id := range databaseIDs {
		dirs, err := domain.FindLogs(options, id)
		if err != nil {
			return logListing{}, err
		}

		for _, dir := range dirs {
			summary, err := domain.InspectLog(dir)
			if err != nil {
				listing.Corrupted = append(listing.Corrupted, corruptedLog{Dir: dir, Error: err.Error()})
				continue
			}
			listing.Logs = append(listing.Logs, summary)
		}
	}

	return listing, nil
}

func renderTable(listing logListing) string {
	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateFooter = false
	tw.Style().Options.SeparateHeader = false
	tw.Style().Options.SeparateRows = false
	tw.AppendHeader(table.Row{
		"DATABASE ID",
		"DOMAIN ID",
		"ITEM PATH",
		"DOMAIN TYPE",
		"SNAPSHOT SEQ",
		"SEQ",
		"CREATED BY",
		"CREATED AT",
	})
	for _, summary := range listing.Logs {
		tw.AppendRow(table.Row{
			summary.Info.DataBaseID,
			summary.Info.ID,
			summary.Info.ItemPath,
			summary.Info.DomainType,
			summary.SnapshotSeq,
			summary.Seq,
			summary.Info.CreatedBy,
			summary.Info.CreatedAt.Format(time.RFC3339),
		})
	}
	for _, corrupted := range listing.Corrupted {
		tw.AppendRow(table.Row{"", "", corrupted.Dir, "corrupted", "", "", "", ""})
	}

	return tw.Render()
}

func init() {
	cmd := newListCommand()
	cmd.Flags().StringVarP(
		&output,
		"output",
		"o",
		output,
		"One of 'yaml' or 'json'.",
	)
	cmd.Flags().StringVar(
		&databaseID,
		"database",
		"",
		"List the logs of the given database only.",
	)

	SubCmd.AddCommand(cmd)
}
