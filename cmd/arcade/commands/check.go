package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/arcade/internal/contracts"
	"github.com/wonny/arcade/pkg/database"
	"github.com/wonny/arcade/pkg/redis"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "의존 서비스 연결 테스트",
	Long: `호스트가 사용하는 외부 서비스 연결을 점검합니다.

이 명령어는:
- config 로드 및 검증
- 백엔드 랭킹 API 호출 (1건)
- Redis Ping (REDIS_ENABLED=true일 때)
- PostgreSQL Health Check (DATABASE_URL이 있을 때)

Example:
  go run ./cmd/arcade check
  go run ./cmd/arcade check --env production`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Arcade Host Connection Check ===")

	a, err := newApp()
	if err != nil {
		return fmt.Errorf("❌ Failed to initialize: %w", err)
	}
	defer a.Close()
	fmt.Printf("✅ Config loaded (ENV: %s)\n\n", a.cfg.Env)

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.API.Timeout+5*time.Second)
	defer cancel()

	failed := 0

	// Backend
	fmt.Printf("Backend %s ...\n", a.cfg.API.BaseURL)
	start := time.Now()
	if _, err := a.client.FetchRankings(ctx, contracts.RankingsQuery{Page: 1, PageSize: 1}); err != nil {
		PrintError(err.Error())
		failed++
	} else {
		PrintSuccess(fmt.Sprintf("Rankings reachable (%v)", time.Since(start).Round(time.Millisecond)))
	}

	// Redis
	if a.redis.Enabled() {
		fmt.Printf("Redis %s ...\n", redis.Addr(a.cfg))
		if err := a.redis.Redis().Ping(ctx).Err(); err != nil {
			PrintError(err.Error())
			failed++
		} else {
			PrintSuccess("Ping successful")
		}
	} else {
		PrintInfo("Redis disabled")
	}

	// Database
	if a.cfg.Database.Enabled() {
		fmt.Printf("Database %s ...\n", maskPassword(a.cfg.Database.URL))
		db, err := database.New(ctx, a.cfg)
		if err != nil {
			PrintError(err.Error())
			failed++
		} else {
			status := db.HealthCheck(ctx)
			db.Close()
			if !status.Healthy {
				PrintError(status.Error)
				failed++
			} else {
				PrintSuccess(fmt.Sprintf("Healthy (%v, %d conns)", status.ResponseTime.Round(time.Millisecond), status.TotalConns))
			}
		}
	} else {
		PrintInfo("Database disabled (outbox off)")
	}

	fmt.Println()
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	PrintSuccess("All checks passed!")
	return nil
}

// maskPassword hides the password in a connection URL for display
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
