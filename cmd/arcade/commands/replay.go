package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/arcade/internal/contracts"
	"github.com/wonny/arcade/internal/replays"
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay [id]",
	Short: "리플레이를 런타임에 전달",
	Long: `리플레이 메타데이터와 본문을 받아 공유 저장소를 통해 런타임에 넘깁니다.

--file을 주면 백엔드 대신 로컬 JSON 파일을 사용합니다.
--cancel은 아직 소비되지 않은 재생 요청을 지웁니다.

Example:
  go run ./cmd/arcade replay 42
  go run ./cmd/arcade replay --file ./replay.json
  go run ./cmd/arcade replay --cancel`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

var (
	replayFile   string
	replayCancel bool
)

func init() {
	rootCmd.AddCommand(replayCmd)

	// Flags
	replayCmd.Flags().StringVar(&replayFile, "file", "", "로컬 리플레이 JSON 파일")
	replayCmd.Flags().BoolVar(&replayCancel, "cancel", false, "대기 중인 재생 요청 취소")
}

func runReplay(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	a.warnMemoryStore()

	ctx := cmd.Context()

	switch {
	case replayCancel:
		if err := replays.CancelReplay(ctx, a.store); err != nil {
			return err
		}
		PrintSuccess("Replay request cleared")
		return nil

	case replayFile != "":
		data, err := os.ReadFile(replayFile)
		if err != nil {
			return fmt.Errorf("read replay file: %w", err)
		}
		if err := replays.RequestReplay(ctx, a.store, data); err != nil {
			return err
		}
		PrintHeader("Replay " + replayFile)
		printReplaySummary(replays.Summarize(data))

	case len(args) == 1:
		meta, replay, err := a.replays.Play(ctx, a.store, args[0])
		if err != nil {
			return fmt.Errorf("play replay %s: %w", args[0], err)
		}
		PrintHeader("Replay " + meta.ID)
		if secs := meta.DurationSeconds(); secs >= 0 {
			PrintKeyValue("Duration", (time.Duration(secs) * time.Second).String(), 10)
		}
		if meta.GeneratedBy != "" {
			PrintKeyValue("By", meta.GeneratedBy, 10)
		}
		printReplaySummary(replay.Summary)

	default:
		return fmt.Errorf("replay id, --file or --cancel is required")
	}

	PrintSeparator()
	PrintSuccess("Replay handed to runtime")
	return nil
}

func printReplaySummary(s contracts.ReplaySummary) {
	if s.Version != "" {
		PrintKeyValue("Version", s.Version, 10)
	}
	if s.ModelID != "" {
		PrintKeyValue("Model", s.ModelID, 10)
	}
	PrintKeyValue("Frames", fmt.Sprintf("%d", s.Frames), 10)
	PrintKeyValue("Enemies", fmt.Sprintf("%d", s.EnemyEvents), 10)
	PrintKeyValue("Events", fmt.Sprintf("%d", s.Events), 10)
	PrintKeyValue("Size", fmt.Sprintf("%d bytes", s.Bytes), 10)
}
