package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/dqguard/internal/alert"
	"github.com/wonny/dqguard/internal/api"
	"github.com/wonny/dqguard/internal/api/handlers"
	"github.com/wonny/dqguard/internal/audit"
	"github.com/wonny/dqguard/internal/engine"
	"github.com/wonny/dqguard/internal/history"
	"github.com/wonny/dqguard/internal/metrics"
	"github.com/wonny/dqguard/internal/monitor"
	"github.com/wonny/dqguard/internal/scheduler"
	"github.com/wonny/dqguard/internal/scheduler/jobs"
	"github.com/wonny/dqguard/pkg/config"
	"github.com/wonny/dqguard/pkg/database"
	"github.com/wonny/dqguard/pkg/logger"
	"github.com/wonny/dqguard/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 + 모니터 루프 시작",
	Long: `평가 엔진, 모니터 루프, 스케줄러, REST API 서버를 시작합니다.

이 명령어는:
- Redis 이력 미러에서 소스별 이력 복원 (REDIS_ENABLED=true)
- 설정 파일의 소스를 주기적으로 수집/평가
- 평가 결과를 Postgres 감사 테이블에 기록 (DB_ENABLED=true)
- 웹소켓으로 평가 결과 실시간 전송

Endpoints:
  POST /api/assess                         - 배치 평가
  GET  /api/statistics                     - 전체 통계
  GET  /api/sources                        - 소스 목록
  GET  /api/sources/{source}/profile       - 소스 리스크 프로파일 (?days=)
  GET  /api/sources/{source}/history       - 소스 이력 (?limit=)
  GET  /api/sources/{source}/latest        - 최신 평가
  GET  /api/sources/{source}/audit         - 감사 기록 (?limit=)
  GET  /api/thresholds                     - 임계값 조회
  PUT  /api/thresholds                     - 임계값 변경
  GET  /api/monitor/status                 - 모니터 상태
  POST /api/monitor/run                    - 모니터 즉시 실행
  GET  /ws/assessments                     - 실시간 평가 (?source=)
  GET  /metrics                            - Prometheus
  GET  /health                             - Health check

Example:
  go run ./cmd/dqguard serve
  go run ./cmd/dqguard serve --port 8090 --no-monitor`,
	RunE: runServe,
}

var (
	servePort      string
	serveNoMonitor bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (기본 PORT)")
	serveCmd.Flags().BoolVar(&serveNoMonitor, "no-monitor", false, "모니터 루프 비활성화")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dqguard ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Settings
	settings, err := loadSettings(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Redis (optional)
	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()
	cache := redis.NewCache(rdb, "dqguard")

	// 5. Metrics
	var m *metrics.Metrics
	opts := engineOptions(cfg, settings)
	if cfg.MetricsEnabled {
		m = metrics.New()
		opts.Observer = m
	}
	if rdb.Enabled() {
		opts.Latest = engine.NewLatestCache(cache)
	}

	// 6. Engine
	eng, err := engine.New(opts, log)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	registerFallbacks(eng, settings)

	// 7. History mirror + warm start
	if rdb.Enabled() {
		mirror := history.NewRedisMirror(cache, cfg.Guard.HistoryCapacity, log)
		restored, err := mirror.Load(ctx, eng.History())
		if err != nil {
			log.WithError(err).Warn("History warm start failed, starting empty")
		} else {
			log.WithField("sources", restored).Info("History restored from redis")
		}
		eng.Dispatcher().Register(mirror)
	}

	// 8. Websocket hub
	hub := alert.NewHub(log)
	eng.Dispatcher().Register(hub)

	// 9. Audit (optional)
	checks := []api.HealthCheck{{Name: "redis", Check: rdb.Ping}}
	var repo *audit.Repository
	if cfg.Database.Enabled {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx, audit.SchemaStatements...); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
		repo = audit.NewRepository(db.Pool)
		checks = append(checks, api.HealthCheck{Name: "postgres", Check: db.Ping})
		eng.Dispatcher().Register(repo)
		log.Info("Audit persistence enabled")
	}

	if m != nil {
		m.RegisterDispatcher(eng.Dispatcher())
		m.RegisterHub(hub)
	}

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	// 10. Monitor loop
	var limiter *redis.RateLimiter
	if rdb.Enabled() {
		limiter = redis.NewRateLimiter(rdb, "dqguard")
	}
	var observer monitor.Observer
	if m != nil {
		observer = m
	}
	mon := monitor.New(monitor.Config{
		Interval:     cfg.Guard.MonitorInterval,
		Workers:      cfg.Guard.MonitorWorkers,
		FetchTimeout: cfg.Guard.MonitorFetchTimeout,
		FetchRPS:     cfg.Guard.MonitorFetchRPS,
	}, eng, observer, log)
	for _, src := range monitorSources(cfg, settings, limiter, log) {
		mon.AddSource(src)
	}
	if !serveNoMonitor {
		if err := mon.Start(ctx); err != nil {
			return fmt.Errorf("start monitor: %w", err)
		}
	}

	// 11. Scheduler
	sched := scheduler.New(log, scheduler.WithRetry(2, 30*time.Second))
	var statsCache *redis.Cache
	if rdb.Enabled() {
		statsCache = cache
	}
	jobList := []scheduler.Job{
		jobs.NewStatisticsReportJob(eng, statsCache, log),
		jobs.NewHistorySnapshotJob(eng.History(),
			func() time.Duration { return eng.Thresholds().RecentFailureWindow },
			func() int { return eng.Thresholds().ConsecutiveHigh },
			log,
		),
	}
	if repo != nil {
		jobList = append(jobList, jobs.NewAuditPruneJob(repo, cfg.Guard.AuditRetentionDays, log))
	}
	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("add job: %w", err)
		}
	}
	sched.Start()

	// 12. API server
	router := api.NewRouter(api.Handlers{
		Assess:     handlers.NewAssessHandler(eng, log),
		Sources:    handlers.NewSourceHandler(eng, repo, log),
		Thresholds: handlers.NewThresholdsHandler(eng, log),
		Monitor:    handlers.NewMonitorHandler(mon, log),
		Hub:        hub,
		Metrics:    m,
		Checks:     checks,
	}, log)
	server := api.New(cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("dqguard started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Printf("   Sources: %d, monitor: %v\n", len(settings.EnabledSources()), !serveNoMonitor)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case <-quit:
	case serveErr = <-errCh:
		log.WithError(serveErr).Error("API server stopped unexpectedly")
	}

	log.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	mon.Stop()
	sched.Stop()
	eng.Close()
	hub.Close()

	log.Info("Server stopped")
	return serveErr
}
