package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/arcade/internal/rankings"
	"github.com/wonny/arcade/internal/session"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "게임 완료 신호 감시",
	Long: `공유 저장소를 폴링하며 런타임의 게임 완료 신호를 기다립니다.

완료된 게임마다 결과 요약을 출력하고, --nickname이 주어지면
해당 닉네임으로 백엔드에 제출합니다.

Features:
- 같은 타임스탬프는 두 번 처리하지 않음
- 형식이 잘못된 결과는 무시
- Ctrl+C로 종료

Example:
  go run ./cmd/arcade watch
  go run ./cmd/arcade watch --nickname ace --model master
  go run ./cmd/arcade watch --nickname ace --once`,
	RunE: runWatch,
}

var (
	watchNickname string
	watchModel    string
	watchOnce     bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	// Flags
	watchCmd.Flags().StringVar(&watchNickname, "nickname", "", "결과를 제출할 닉네임 (비우면 제출하지 않음)")
	watchCmd.Flags().StringVar(&watchModel, "model", "", "플레이 모델 id")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "첫 결과를 처리한 뒤 종료")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if watchNickname != "" {
		if err := rankings.ValidateNickname(watchNickname); err != nil {
			return err
		}
	}

	manager := session.NewManager(a.store, a.submitter, a.log, session.WithPollInterval(a.cfg.Store.PollInterval))
	defer manager.Close()

	info, err := manager.Start(watchModel)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	events, unsubscribe, err := manager.Subscribe(info.ID)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer unsubscribe()

	fmt.Println("=== Arcade Session Watch ===")
	fmt.Printf("Session : %s\n", info.ID)
	fmt.Printf("Store   : %s (poll %v)\n", a.cfg.Store.Backend, a.cfg.Store.PollInterval)
	fmt.Printf("Press Ctrl+C to stop\n\n")
	a.warnMemoryStore()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Type != session.EventResultReady {
				continue
			}

			printResult(ev.Result)
			if watchNickname != "" {
				if err := submitResult(ctx, manager, info.ID); err != nil {
					return err
				}
			}
			if watchOnce {
				return nil
			}
		}
	}
}

func printResult(r *session.ResultSummary) {
	PrintHeader("Game Completed")
	PrintKeyValue("Timestamp", r.Timestamp, 12)
	PrintKeyValue("Score", strconv.FormatFloat(r.Score, 'f', -1, 64), 12)
	PrintKeyValue("Final stage", fmt.Sprintf("%d", r.FinalStage), 12)
	PrintKeyValue("Frames", fmt.Sprintf("%d", r.Statistics.TotalFrames), 12)
	PrintKeyValue("Duration", fmt.Sprintf("%.1fs", r.Statistics.PlayDuration), 12)
	PrintKeyValue("Accuracy", fmt.Sprintf("%.1f%%", r.Accuracy*100), 12)
	PrintSeparator()
}

// submitResult files the pending result; only a canceled context is fatal
func submitResult(ctx context.Context, manager *session.Manager, id string) error {
	res, err := manager.Submit(ctx, id, watchNickname)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	switch {
	case res.OK:
		PrintSuccess(fmt.Sprintf("Submitted as %s (id %s)", watchNickname, res.ID))
	case res.Err != nil:
		PrintError(res.Err.Error())
	}
	return nil
}
