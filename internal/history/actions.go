package history

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/drawing-sync/internal/common"
	"github.com/dtnitsch/drawing-sync/pkg/db"
)

// HistoryAction prints recent runs, or the details of one run with --run.
func HistoryAction(c *cli.Context) error {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if c.IsSet("run") {
		return runDetails(c, database, c.Int64("run"))
	}

	runs, err := database.ListRuns(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-6s %-20s %-14s %-10s %-22s %s\n", "ID", "Started", "Command", "Status", "Error", "Args")
	fmt.Println(strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Printf("%-6d %-20s %-14s %-10s %-22s %s\n",
			r.RunID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Command,
			r.Status,
			r.ErrorCode,
			strings.Join(r.Args, " "),
		)
	}
	fmt.Printf("\nTotal: %d runs\n", len(runs))
	fmt.Printf("\nTip: Use 'drawsync history --run <id>' to see details\n")
	return nil
}

type runReport struct {
	Run       db.Run              `json:"run" yaml:"run"`
	Offsets   []db.OffsetRecord   `json:"offsets,omitempty" yaml:"offsets,omitempty"`
	Transfers []db.TransferRecord `json:"transfers,omitempty" yaml:"transfers,omitempty"`
}

func runDetails(c *cli.Context, database *db.DB, runID int64) error {
	run, err := database.GetRun(runID)
	if err != nil {
		return err
	}
	report := runReport{Run: run}
	if report.Offsets, err = database.GetRunOffsets(runID); err != nil {
		return err
	}
	if report.Transfers, err = database.GetRunTransfers(runID); err != nil {
		return err
	}
	return common.Write(c, report)
}
