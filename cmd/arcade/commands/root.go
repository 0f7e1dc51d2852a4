package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "arcade",
	Short: "Arcade host - 랭킹 클라이언트 + 게임 세션 브리지",
	Long: `Arcade Host Unified CLI

게임 런타임과 백엔드 랭킹 API 사이를 잇는 호스트.
런타임이 공유 저장소에 남긴 완료 신호를 감지하고,
결과를 닉네임과 함께 백엔드에 제출합니다.

Usage:
  go run ./cmd/arcade [command]

Examples:
  go run ./cmd/arcade serve
  go run ./cmd/arcade rankings --model master
  go run ./cmd/arcade watch --nickname ace --once
  go run ./cmd/arcade store get`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
