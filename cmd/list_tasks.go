package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listTasksCmd = &cobra.Command{
	Use:   "list-tasks",
	Short: "List tasks recorded in the durable task log",
	Long: `List every task directory under the durable task log (TASK_LOG_DIR),
showing its terminal status and duration where a summary.json was written,
or "in-progress" for a task directory with no summary yet.

Examples:
  go run . list-tasks`,
	Args: cobra.NoArgs,
	RunE: runListTasks,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listTasksCmd)
}

func runListTasks(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	entries, err := os.ReadDir(cfg.TaskLogDir)
	if os.IsNotExist(err) {
		fmt.Println("No tasks found.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read task log dir: %w", err)
	}

	taskIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			taskIDs = append(taskIDs, e.Name())
		}
	}
	sort.Strings(taskIDs)

	if len(taskIDs) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	fmt.Printf("%-38s %-14s %-10s %-10s\n", "Task ID", "Status", "Events", "Duration")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, id := range taskIDs {
		summary, events, err := readTaskSummary(cfg.TaskLogDir, id)
		if err != nil {
			fmt.Printf("%-38s %-14s %-10s %-10s\n", id, "in-progress", fmt.Sprintf("%d", events), "-")
			continue
		}
		fmt.Printf("%-38s %-14s %-10d %-10s\n", id, summary.FinalStatus, summary.EventCount, summary.Duration)
	}
	return nil
}

// readTaskSummary loads summary.json for taskID if present, otherwise counts
// the lines in events.jsonl so an in-progress task still reports a count.
func readTaskSummary(baseDir, taskID string) (*types.TaskSummary, int, error) {
	dir := filepath.Join(baseDir, taskID)
	events := countJSONLLines(filepath.Join(dir, "events.jsonl"))

	data, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	if err != nil {
		return nil, events, err
	}

	var summary types.TaskSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, events, fmt.Errorf("parse summary.json for %s: %w", taskID, err)
	}
	return &summary, events, nil
}
