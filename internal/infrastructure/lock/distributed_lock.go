package lock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// 调度任务的分布式锁
// ============================================================================
//
// 单实例内的 single-flight 由调度器的原子标记保证；多实例部署时，同一个同步任务
// 会在每个实例上各跑一份，两份同时拉取同一批 outbox 事件只会互相抢占、白白重试。
// 开启 scheduler.distributed_lock 后，每轮执行前先抢 Redis 锁，抢不到就跳过本轮。
//
// 加锁：SET key owner NX PX ttl
//   - owner 为实例内随机生成的 uuid，释放时校验，避免删掉别人续上的锁
//   - ttl 至少要覆盖一轮任务的超时时间
//
// 释放锁：Lua 脚本原子地“比较 owner + 删除”
//
// ============================================================================

var ErrLockNotHeld = errors.New("锁不存在或已被他人持有")

const taskLockPrefix = "jobhub:scheduler:lock:"

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// DistributedLock 分布式锁
type DistributedLock struct {
	client     redis.Cmdable
	key        string        // 锁的 key
	value      string        // 锁持有者标识
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client redis.Cmdable, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TaskLockKey 调度任务锁在 Redis 中的 key
func TaskLockKey(taskName string) string {
	return taskLockPrefix + taskName
}

// NewTaskLock 创建调度任务锁，每次调用生成新的持有者标识
func NewTaskLock(client redis.Cmdable, taskName string, ttl time.Duration) *DistributedLock {
	return NewDistributedLock(client, TaskLockKey(taskName), uuid.NewString(), ttl)
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Unlock 释放锁，只删除自己持有的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	n, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
