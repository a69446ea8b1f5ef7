package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var replayTaskCmd = &cobra.Command{
	Use:   "replay-task <task-id>",
	Short: "Replay a task's durable event log",
	Long: `Print every event recorded for a task, in sequence order, from its
events.jsonl file under the durable task log (TASK_LOG_DIR). Pass
--snapshots to also print the orderbook snapshots captured alongside it.

Examples:
  go run . replay-task 7d1e2c4a-...
  go run . replay-task 7d1e2c4a-... --snapshots`,
	Args: cobra.ExactArgs(1),
	RunE: runReplayTask,
}

//nolint:gochecknoglobals // Cobra boilerplate
var replaySnapshots bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(replayTaskCmd)
	replayTaskCmd.Flags().BoolVar(&replaySnapshots, "snapshots", false, "Also replay orderbook snapshots")
}

func runReplayTask(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	taskID := args[0]
	dir := filepath.Join(cfg.TaskLogDir, taskID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("no task log found for %s", taskID)
	}

	fmt.Printf("=== Events: %s ===\n", taskID)
	if err := replayJSONL(filepath.Join(dir, "events.jsonl"), func(line []byte) error {
		var event types.TaskEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return err
		}
		fmt.Printf("[%4d] %-20s %-10s order=%s %s\n",
			event.Sequence, event.Kind, event.Priority, event.OrderID, event.OccurredAt.Format("15:04:05.000"))
		return nil
	}); err != nil {
		return fmt.Errorf("replay events: %w", err)
	}

	if replaySnapshots {
		fmt.Printf("\n=== Orderbook snapshots: %s ===\n", taskID)
		if err := replayJSONL(filepath.Join(dir, "orderbooks.jsonl"), func(line []byte) error {
			var snap types.OrderBookSnapshot
			if err := json.Unmarshal(line, &snap); err != nil {
				return err
			}
			fmt.Printf("[%s] cost=%.4f profit=%.4f%% valid=%v depth=%.2f\n",
				snap.CapturedAt.Format("15:04:05.000"), snap.TotalCost, snap.ProfitPct*100, snap.Valid, snap.MaxDepth)
			return nil
		}); err != nil {
			return fmt.Errorf("replay snapshots: %w", err)
		}
	}

	summary, _, err := readTaskSummary(cfg.TaskLogDir, taskID)
	if err != nil {
		fmt.Println("\n(task still in progress, no summary.json yet)")
		return nil
	}
	fmt.Printf("\n=== Summary ===\nFinal status: %s\nEvent count:  %d\nDuration:     %s\n",
		summary.FinalStatus, summary.EventCount, summary.Duration)
	return nil
}

// replayJSONL invokes fn for each line of path in order; a missing file is
// not an error since orderbooks.jsonl is only written for opportunity tasks.
func replayJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func countJSONLLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			count++
		}
	}
	return count
}
