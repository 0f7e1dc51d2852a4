package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/arcade/internal/archive"
	"github.com/wonny/arcade/internal/scheduler/jobs"
	"github.com/wonny/arcade/pkg/database"
)

// resubmitCmd represents the resubmit command
var resubmitCmd = &cobra.Command{
	Use:   "resubmit",
	Short: "미제출 결과 재전송",
	Long: `아웃박스에 남아 있는 미제출 결과를 한 번 재전송합니다.

서버에 닿지 못한 결과만 대기 상태로 남으며,
거절된 결과는 rejected로 기록되어 다시 보내지 않습니다.
DATABASE_URL이 필요합니다.

Example:
  go run ./cmd/arcade resubmit`,
	RunE: runResubmit,
}

func init() {
	rootCmd.AddCommand(resubmitCmd)
}

func runResubmit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Database.Enabled() {
		return fmt.Errorf("resubmit requires DATABASE_URL")
	}

	db, err := database.New(cmd.Context(), a.cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := archive.NewRepository(db.Pool)
	if err := repo.EnsureSchema(cmd.Context()); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}

	job := jobs.NewResubmitJob(repo, a.submitter, "", a.log)
	report, err := job.Flush(cmd.Context())
	if err != nil {
		return err
	}

	PrintHeader("Resubmit Pending Submissions")
	PrintKeyValue("Checked", fmt.Sprintf("%d", report.Checked), 12)
	PrintKeyValue("Submitted", fmt.Sprintf("%d", report.Submitted), 12)
	PrintKeyValue("Rejected", fmt.Sprintf("%d", report.Rejected), 12)
	PrintKeyValue("Unconfirmed", fmt.Sprintf("%d", report.Unconfirmed), 12)
	PrintKeyValue("Pending", fmt.Sprintf("%d", report.Pending), 12)
	PrintSeparator()

	if report.Unconfirmed > 0 {
		PrintWarning("Backend stopped answering; unconfirmed rows are not resubmitted")
	} else if report.Pending > 0 {
		PrintWarning("Backend unreachable; remaining rows stay pending")
	} else {
		PrintSuccess("Outbox flushed")
	}
	return nil
}
