// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	wmconfig "github.com/molaco/workflow-manager/pkg/config"
	"github.com/molaco/workflow-manager/pkg/store"
)

var (
	historyLimit  int
	historyOffset int
	historyStatus string
	pruneBefore   time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past workflow runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past runs, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		var runs []store.Run
		if historyStatus != "" {
			runs, err = st.QueryByStatus(cmd.Context(), store.Status(historyStatus))
		} else {
			runs, err = st.PaginateRuns(cmd.Context(), historyLimit, historyOffset)
		}
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tWORKFLOW\tSTATUS\tSTARTED\tDURATION\tEXIT")
		for _, r := range runs {
			duration := "-"
			if r.EndTime != nil {
				duration = r.EndTime.Sub(r.StartTime).Round(time.Second).String()
			}
			exit := "-"
			if r.ExitCode != nil {
				exit = fmt.Sprintf("%d", *r.ExitCode)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				shortRunID(r.ID), r.WorkflowID, r.Status,
				r.StartTime.Format(time.RFC3339), duration, exit)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one run's recorded events in sequence order (defaults to the last run)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var runID string
		if len(args) == 1 {
			runID = args[0]
		} else {
			session, err := wmconfig.LoadSession()
			if err != nil {
				return err
			}
			if session.LastRunID == "" {
				return fmt.Errorf("no run id given and no previous run recorded")
			}
			runID = session.LastRunID
		}

		st, err := store.Open(cmd.Context(), cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		run, err := st.GetRun(cmd.Context(), runID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "run %s  workflow %s  status %s\n\n", run.ID, run.WorkflowID, run.Status)

		entries, err := st.QueryByRun(cmd.Context(), runID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s  %s\n", e.Sequence, e.LogType, e.LogData)
		}
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than --before",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		cutoff := time.Now().Add(-pruneBefore)
		deleted, err := st.DeleteRunsBefore(cmd.Context(), cutoff)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d runs started before %s\n", deleted, cutoff.Format(time.RFC3339))
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats <workflow-id>",
	Short: "Show aggregate run statistics for one workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.WorkflowStats(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "workflow %s: %d runs, %d completed, %d failed, avg duration %.1fs\n",
			stats.WorkflowID, stats.TotalRuns, stats.Completed, stats.Failed, stats.AvgDurationSeconds)
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to list")
	historyListCmd.Flags().IntVar(&historyOffset, "offset", 0, "pagination offset")
	historyListCmd.Flags().StringVar(&historyStatus, "status", "", "filter by status (running, completed, failed)")
	historyPruneCmd.Flags().DurationVar(&pruneBefore, "before", 30*24*time.Hour, "delete runs started longer ago than this")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	historyCmd.AddCommand(historyStatsCmd)
}

func shortRunID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
