package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/arcade/internal/kvstore"
	"github.com/wonny/arcade/internal/session"
)

// storeCmd represents the store command
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "공유 저장소 점검 (개발용)",
	Long: `호스트와 런타임이 공유하는 키/값 저장소를 조회하고 수정합니다.

redis 백엔드에서만 다른 프로세스와 값을 공유합니다.

Example:
  go run ./cmd/arcade store get
  go run ./cmd/arcade store set pyxelReplayMode false
  go run ./cmd/arcade store clear
  go run ./cmd/arcade store complete --file ./run.json`,
}

var storeGetCmd = &cobra.Command{
	Use:   "get [key...]",
	Short: "키 조회 (기본값: 프로토콜 키 전체)",
	RunE:  runStoreGet,
}

var storeSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "키 저장",
	Args:  cobra.ExactArgs(2),
	RunE:  runStoreSet,
}

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "프로토콜 키 전체 삭제",
	RunE:  runStoreClear,
}

var storeCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "런타임 대신 게임 완료 신호 기록",
	Long: `런타임이 게임을 끝냈을 때와 같은 순서로 결과, 완료 플래그,
타임스탬프를 기록합니다. watch 또는 serve를 시험할 때 사용합니다.

Example:
  go run ./cmd/arcade store complete --file ./run.json
  go run ./cmd/arcade store complete --file ./run.json --timestamp 1700000000000`,
	RunE: runStoreComplete,
}

var (
	completeFile      string
	completeTimestamp string
)

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeGetCmd, storeSetCmd, storeClearCmd, storeCompleteCmd)

	// Flags
	storeCompleteCmd.Flags().StringVar(&completeFile, "file", "", "GameResultPayload JSON 파일")
	storeCompleteCmd.Flags().StringVar(&completeTimestamp, "timestamp", "", "완료 타임스탬프 (기본값: 현재 ms)")
	_ = storeCompleteCmd.MarkFlagRequired("file")
}

func runStoreGet(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	a.warnMemoryStore()

	PrintHeader("Shared Store (" + a.cfg.Store.Backend + ")")

	if len(args) == 0 {
		snap, err := kvstore.Snapshot(cmd.Context(), a.store)
		if err != nil {
			return err
		}
		for _, key := range kvstore.AllKeys() {
			value, ok := snap[key]
			if !ok {
				value = "(unset)"
			}
			PrintKeyValue(key, truncate(value, 60), 20)
		}
		return nil
	}

	for _, key := range args {
		value, ok, err := a.store.Get(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		if !ok {
			value = "(unset)"
		}
		PrintKeyValue(key, truncate(value, 60), 20)
	}
	return nil
}

func runStoreSet(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	a.warnMemoryStore()

	if err := a.store.Set(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("set %s: %w", args[0], err)
	}
	PrintSuccess("Set " + args[0])
	return nil
}

func runStoreClear(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	a.warnMemoryStore()

	if err := a.store.Delete(cmd.Context(), kvstore.AllKeys()...); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	PrintSuccess("Cleared protocol keys")
	return nil
}

func runStoreComplete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	a.warnMemoryStore()

	data, err := os.ReadFile(completeFile)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	ts := completeTimestamp
	if ts == "" {
		ts = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	if err := session.WriteCompletion(cmd.Context(), a.store, string(data), ts); err != nil {
		return err
	}
	PrintSuccess("Completion written (timestamp " + ts + ")")
	return nil
}
