package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"jobhub/internal/config"
	"jobhub/internal/handler"
	"jobhub/internal/infrastructure/cache"
	"jobhub/internal/infrastructure/database"
	"jobhub/internal/infrastructure/lock"
	"jobhub/internal/infrastructure/mq"
	"jobhub/internal/infrastructure/search"
	"jobhub/internal/job"
	"jobhub/internal/metrics"
	"jobhub/internal/model"
	"jobhub/internal/repository"
	"jobhub/pkg/idgen"
	"jobhub/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 初始化 ID 生成器
	if err := idgen.Init(cfg.Server.WorkerID); err != nil {
		logger.Fatal("初始化 ID 生成器失败", zap.Error(err))
	}

	metrics.Register(prometheus.DefaultRegisterer)

	// 初始化 MySQL
	db, err := database.InitMySQL(&cfg.MySQL)
	if err != nil {
		logger.Fatal("初始化 MySQL 失败", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	index, err := initSearch(ctx, &cfg.Search)
	if err != nil {
		logger.Fatal("初始化搜索索引失败", zap.Error(err))
	}

	var notifier job.Notifier
	if cfg.Kafka.Enabled {
		producer, err := mq.InitKafka(&cfg.Kafka)
		if err != nil {
			logger.Fatal("初始化 Kafka 失败", zap.Error(err))
		}
		kafkaNotifier := mq.NewKafkaNotifier(producer, cfg.Kafka.Topic.IndexSynced)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}

	var newLock job.LockFactory
	if cfg.Scheduler.DistributedLock {
		rdb, err := cache.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Fatal("初始化 Redis 失败", zap.Error(err))
		}
		defer rdb.Close()
		newLock = taskLocks(rdb, cfg.Scheduler.LockTTL)
	}

	scheduler := job.NewScheduler(newLock)
	counters, err := registerTasks(scheduler, cfg, db, index, notifier)
	if err != nil {
		logger.Fatal("注册后台任务失败", zap.Error(err))
	}
	scheduler.Start(ctx)

	router := handler.SetupRouter(handler.NewHandler(handler.Deps{
		DB:        db,
		Index:     index,
		Counters:  counters,
		Scheduler: scheduler,
		MaxRetry:  cfg.Sync.MaxRetry,
	}), prometheus.DefaultGatherer)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("服务启动", zap.Int("port", cfg.Server.Port), zap.Strings("tasks", scheduler.Tasks()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务关闭异常", zap.Error(err))
	}

	// 停止定时任务，再把内存里剩余的计数写回
	cancel()
	scheduler.Stop()
	for _, cc := range counters {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.Counter.FlushTimeout)
		res := cc.Flush(flushCtx)
		flushCancel()
		if res.Failed > 0 {
			logger.Warn("退出前计数未完全落库",
				zap.String("target_type", cc.TargetType()),
				zap.String("column", cc.Column()),
				zap.Int("failed", res.Failed))
		}
	}

	logger.Info("服务已关闭")
}

func initSearch(ctx context.Context, cfg *config.SearchConfig) (search.Index, error) {
	if cfg.Driver == "memory" {
		logger.Warn("使用进程内索引，数据不会持久化")
		return search.NewMemoryIndex(), nil
	}
	index, err := search.NewTypesenseIndex(cfg.Typesense.APIKey, cfg.Typesense.Hosts, cfg.Typesense.ConnectionTimeout)
	if err != nil {
		return nil, err
	}
	ensureCtx, ensureCancel := context.WithTimeout(ctx, 30*time.Second)
	defer ensureCancel()
	if err := index.EnsureCollections(ensureCtx); err != nil {
		return nil, err
	}
	return index, nil
}

func taskLocks(rdb *redis.Client, ttl time.Duration) job.LockFactory {
	return func(taskName string) job.TaskLock {
		return lock.NewTaskLock(rdb, taskName, ttl)
	}
}

// registerTasks 每种实体一个同步任务，每种实体的浏览数一个 flush 任务
func registerTasks(s *job.Scheduler, cfg *config.Config, db *gorm.DB, index search.Index, notifier job.Notifier) ([]*cache.CounterCache, error) {
	outboxRepo := repository.NewOutboxRepository(db)
	jobs := repository.NewJobRepository(db)
	techBlogs := repository.NewTechBlogRepository(db)
	communityPosts := repository.NewCommunityPostRepository(db)

	syncOpts := func(t config.SyncTaskConfig) job.SyncOptions {
		return job.SyncOptions{
			BatchSize:            t.BatchSize,
			UpdateTypes:          t.UpdateTypes,
			MaxRetry:             cfg.Sync.MaxRetry,
			RetryInitialInterval: cfg.Sync.RetryInitialInterval,
			RetryMaxInterval:     cfg.Sync.RetryMaxInterval,
			ProcessingLease:      cfg.Sync.ProcessingLease,
		}
	}

	tasks := []job.Task{
		job.SyncTask(
			job.NewIndexSynchronizer(job.JobDescriptor(jobs), outboxRepo, index, syncOpts(cfg.Sync.Job), notifier),
			cfg.Sync.Job.Interval, cfg.Sync.Job.Timeout),
		job.SyncTask(
			job.NewIndexSynchronizer(job.TechBlogDescriptor(techBlogs), outboxRepo, index, syncOpts(cfg.Sync.TechBlog), notifier),
			cfg.Sync.TechBlog.Interval, cfg.Sync.TechBlog.Timeout),
		job.SyncTask(
			job.NewIndexSynchronizer(job.CommunityPostDescriptor(communityPosts), outboxRepo, index, syncOpts(cfg.Sync.CommunityPost), notifier),
			cfg.Sync.CommunityPost.Interval, cfg.Sync.CommunityPost.Timeout),
	}

	counters := []*cache.CounterCache{
		cache.NewCounterCache(db, model.TargetTypeJob, model.CounterViewCount, jobs, outboxRepo),
		cache.NewCounterCache(db, model.TargetTypeTechBlog, model.CounterViewCount, techBlogs, outboxRepo),
		cache.NewCounterCache(db, model.TargetTypeCommunityPost, model.CounterViewCount, communityPosts, outboxRepo),
	}
	for _, cc := range counters {
		tasks = append(tasks, job.FlushTask(cc, cfg.Counter.FlushInterval, cfg.Counter.FlushTimeout))
	}

	for _, t := range tasks {
		if err := s.Register(t); err != nil {
			return nil, err
		}
	}
	logger.Info("后台任务已注册", zap.Int("tasks", len(tasks)))
	return counters, nil
}
