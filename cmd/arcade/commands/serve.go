package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/arcade/internal/api"
	"github.com/wonny/arcade/internal/api/handlers"
	"github.com/wonny/arcade/internal/archive"
	"github.com/wonny/arcade/internal/scheduler"
	"github.com/wonny/arcade/internal/scheduler/jobs"
	"github.com/wonny/arcade/internal/session"
	"github.com/wonny/arcade/pkg/database"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "BFF 서버 시작",
	Long: `호스트 BFF 서버를 시작합니다.

이 명령어는:
- 랭킹 프록시, 모델 목록, 리플레이 재생 엔드포인트 제공
- 게임 세션 시작 및 결과 제출 (WebSocket 이벤트 스트림 포함)
- DATABASE_URL이 설정되면 제출 아웃박스와 재제출 스케줄러 실행

Endpoints:
  GET    /health                      - Health check
  GET    /api/rankings                - 랭킹 조회
  GET    /api/models                  - 모델 목록
  POST   /api/sessions                - 세션 시작
  POST   /api/sessions/{id}/submit    - 결과 제출
  GET    /api/sessions/{id}/events    - 세션 이벤트 (WebSocket)
  POST   /api/replays/{id}/play       - 리플레이 재생
  GET    /api/jobs                    - 스케줄러 상태

Example:
  go run ./cmd/arcade serve
  go run ./cmd/arcade serve --port 9090`,
	RunE: runServe,
}

var (
	servePort string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (기본값 PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Arcade Host Server ===")

	// 1. Config, logger, clients, store
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}
	log := a.log

	// 2. Optional submission outbox
	var (
		db   *database.DB
		repo *archive.Repository
	)
	if a.cfg.Database.Enabled() {
		db, err = database.New(cmd.Context(), a.cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		repo = archive.NewRepository(db.Pool)
		if err := repo.EnsureSchema(cmd.Context()); err != nil {
			return fmt.Errorf("ensure archive schema: %w", err)
		}
		log.Info("Connected to database")
	}

	// 3. Session manager
	opts := []session.Option{session.WithPollInterval(a.cfg.Store.PollInterval)}
	if repo != nil {
		opts = append(opts, session.WithArchive(repo))
	}
	manager := session.NewManager(a.store, a.submitter, log, opts...)
	defer manager.Close()

	// 4. Scheduler (only useful with an outbox)
	var sched *scheduler.Scheduler
	if repo != nil {
		sched = scheduler.New(log, scheduler.WithRetry(0, 0))
		job := jobs.NewResubmitJob(repo, a.submitter, a.cfg.ResubmitSchedule, log)
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("add resubmit job: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 5. Router + server
	h := api.Handlers{
		Health:   handlers.NewHealthHandler(db, a.redis),
		Rankings: handlers.NewRankingsHandler(a.client, log),
		Models:   handlers.NewModelsHandler(a.cfg),
		Sessions: handlers.NewSessionHandler(manager, log),
		Replays:  handlers.NewReplayHandler(a.replays, a.store, log),
	}
	if sched != nil {
		h.Jobs = handlers.NewJobsHandler(sched)
	}
	server := api.New(a.cfg, log, api.NewRouter(h, log))

	// 6. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Printf("   Backend : %s\n", a.cfg.API.BaseURL)
	fmt.Printf("   Store   : %s\n", a.cfg.Store.Backend)
	if repo == nil {
		fmt.Println("   Outbox  : disabled (DATABASE_URL not set)")
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
