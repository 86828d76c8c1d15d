package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"jobhub/internal/metrics"
	"jobhub/pkg/logger"
)

// Handler 一轮任务，ctx 在 Task.Timeout 后取消
type Handler func(ctx context.Context) error

type Task struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Handler  Handler
}

// TaskLock 跨实例的任务锁
type TaskLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// LockFactory 每轮执行前创建一把锁，nil 表示只做实例内的 single-flight
type LockFactory func(taskName string) TaskLock

type taskRunner struct {
	task    Task
	running atomic.Bool
}

// Scheduler 固定间隔的后台任务调度
//
// 每个任务独立一个 ticker 协程，互不阻塞。同一任务上一轮未结束时新的触发直接跳过；
// 一轮超过 Timeout 时释放运行标记，让下一轮接着处理剩余的数据。
type Scheduler struct {
	mu      sync.Mutex
	runners map[string]*taskRunner
	order   []string
	newLock LockFactory

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(newLock LockFactory) *Scheduler {
	return &Scheduler{
		runners: make(map[string]*taskRunner),
		newLock: newLock,
		stopCh:  make(chan struct{}),
	}
}

func (s *Scheduler) Register(t Task) error {
	if t.Name == "" || t.Handler == nil {
		return errors.New("任务名称和处理函数不能为空")
	}
	if t.Interval <= 0 || t.Timeout <= 0 {
		return fmt.Errorf("任务 %s 的 interval 和 timeout 必须为正数", t.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.runners[t.Name]; dup {
		return fmt.Errorf("任务 %s 重复注册", t.Name)
	}
	s.runners[t.Name] = &taskRunner{task: t}
	s.order = append(s.order, t.Name)
	return nil
}

// Tasks 已注册的任务名，按注册顺序
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.order {
		r := s.runners[name]
		s.wg.Add(1)
		go s.loop(ctx, r)
	}
	logger.Info("[Scheduler] 调度器启动", zap.Strings("tasks", s.order))
}

// Stop 停止所有任务并等待进行中的一轮返回（最长为该任务的 Timeout）
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// IsRunning 任务是否处于运行标记中
func (s *Scheduler) IsRunning(name string) bool {
	s.mu.Lock()
	r, ok := s.runners[name]
	s.mu.Unlock()
	return ok && r.running.Load()
}

// Trigger 立即触发一轮，返回是否真正开始执行
func (s *Scheduler) Trigger(ctx context.Context, name string) bool {
	s.mu.Lock()
	r, ok := s.runners[name]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return s.fire(ctx, r)
}

func (s *Scheduler) loop(ctx context.Context, r *taskRunner) {
	defer s.wg.Done()

	ticker := time.NewTicker(r.task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[Scheduler] 收到停止信号，任务退出", zap.String("task", r.task.Name))
			return
		case <-s.stopCh:
			logger.Info("[Scheduler] 任务停止", zap.String("task", r.task.Name))
			return
		case <-ticker.C:
			s.fire(ctx, r)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, r *taskRunner) bool {
	if !r.running.CompareAndSwap(false, true) {
		metrics.TaskRuns.WithLabelValues(r.task.Name, "skipped").Inc()
		logger.Warn("[Scheduler] 上一轮仍在执行，跳过本轮", zap.String("task", r.task.Name))
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, r)
	}()
	return true
}

func (s *Scheduler) run(parent context.Context, r *taskRunner) {
	name := r.task.Name
	ctx, cancel := context.WithTimeout(parent, r.task.Timeout)
	defer cancel()

	var released atomic.Bool
	release := func() {
		if released.CompareAndSwap(false, true) {
			r.running.Store(false)
		}
	}
	defer release()

	if s.newLock != nil {
		l := s.newLock(name)
		ok, err := l.TryLock(ctx)
		if err != nil {
			metrics.TaskRuns.WithLabelValues(name, "error").Inc()
			logger.Error("[Scheduler] 获取任务锁失败", zap.String("task", name), zap.Error(err))
			return
		}
		if !ok {
			metrics.TaskRuns.WithLabelValues(name, "locked").Inc()
			logger.Debug("[Scheduler] 任务正在其他实例执行，跳过本轮", zap.String("task", name))
			return
		}
		defer func() {
			unlockCtx, unlockCancel := context.WithTimeout(context.WithoutCancel(parent), 3*time.Second)
			defer unlockCancel()
			if err := l.Unlock(unlockCtx); err != nil {
				logger.Warn("[Scheduler] 释放任务锁失败", zap.String("task", name), zap.Error(err))
			}
		}()
	}

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("panic: %v", p)
			}
		}()
		done <- r.task.Handler(ctx)
	}()

	select {
	case err := <-done:
		metrics.TaskDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.TaskRuns.WithLabelValues(name, "error").Inc()
			logger.Error("[Scheduler] 任务执行失败", zap.String("task", name), zap.Error(err))
			return
		}
		metrics.TaskRuns.WithLabelValues(name, "ok").Inc()
	case <-ctx.Done():
		// 处理函数可能还在收尾，这里不再等待
		metrics.TaskRuns.WithLabelValues(name, "timeout").Inc()
		logger.Warn("[Scheduler] 任务超时，释放运行标记",
			zap.String("task", name),
			zap.Duration("timeout", r.task.Timeout),
			zap.Error(ctx.Err()))
	}
}
