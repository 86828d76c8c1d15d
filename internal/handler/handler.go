package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jobhub/internal/infrastructure/cache"
	"jobhub/internal/infrastructure/search"
	"jobhub/internal/model"
	"jobhub/internal/projection"
	"jobhub/internal/query"
	"jobhub/internal/repository"
	"jobhub/internal/service"
	"jobhub/pkg/response"
)

// TaskTrigger 手动触发定时任务
type TaskTrigger interface {
	Tasks() []string
	IsRunning(name string) bool
	Trigger(ctx context.Context, name string) bool
}

// Deps 处理器依赖
type Deps struct {
	DB        *gorm.DB
	Index     search.Index
	Counters  []*cache.CounterCache
	Scheduler TaskTrigger
	MaxRetry  int
}

// Handler 统一处理器
type Handler struct {
	jobs           *contentHandler[model.Job, service.JobRequest, projection.JobDocument]
	techBlogs      *contentHandler[model.TechBlog, service.TechBlogRequest, projection.TechBlogDocument]
	communityPosts *contentHandler[model.CommunityPost, service.CommunityPostRequest, projection.CommunityPostDocument]

	outboxRepo *repository.OutboxRepository
	counters   map[string][]*cache.CounterCache
	scheduler  TaskTrigger
	maxRetry   int
}

func NewHandler(d Deps) *Handler {
	counters := make(map[string][]*cache.CounterCache)
	for _, cc := range d.Counters {
		counters[cc.TargetType()] = append(counters[cc.TargetType()], cc)
	}
	viewsOf := func(targetType string) *cache.CounterCache {
		for _, cc := range counters[targetType] {
			if cc.Column() == model.CounterViewCount {
				return cc
			}
		}
		return nil
	}

	return &Handler{
		jobs: &contentHandler[model.Job, service.JobRequest, projection.JobDocument]{
			commands: service.NewJobService(d.DB, viewsOf(model.TargetTypeJob)),
			search:   service.NewJobSearchService(d.Index),
		},
		techBlogs: &contentHandler[model.TechBlog, service.TechBlogRequest, projection.TechBlogDocument]{
			commands: service.NewTechBlogService(d.DB, viewsOf(model.TargetTypeTechBlog)),
			search:   service.NewTechBlogSearchService(d.Index),
		},
		communityPosts: &contentHandler[model.CommunityPost, service.CommunityPostRequest, projection.CommunityPostDocument]{
			commands: service.NewCommunityPostService(d.DB, viewsOf(model.TargetTypeCommunityPost)),
			search:   service.NewCommunityPostSearchService(d.Index),
		},
		outboxRepo: repository.NewOutboxRepository(d.DB),
		counters:   counters,
		scheduler:  d.Scheduler,
		maxRetry:   d.MaxRetry,
	}
}

// ============================================================
// 运维接口
// ============================================================

// ListDeadLetters 查询达到重试上限的事件
// GET /api/v1/ops/outbox/dead-letters?target_type=JOB&limit=50
func (h *Handler) ListDeadLetters(c *gin.Context) {
	targetType := c.Query("target_type")
	if targetType != "" && !model.IsValidTargetType(targetType) {
		response.ParamError(c, "target_type 参数错误")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		response.ParamError(c, "limit 参数错误")
		return
	}

	events, err := h.outboxRepo.ListDeadLetters(c.Request.Context(), targetType, h.maxRetry, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"list":      events,
		"max_retry": h.maxRetry,
	})
}

// RequeueEvent 把失败事件重新放回 WAIT
// POST /api/v1/ops/outbox/:id/requeue
func (h *Handler) RequeueEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.outboxRepo.Requeue(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "status": model.OutboxStatusWait})
}

// ListTargetEvents 查询某个实体的全部变更事件，排查索引为何没有跟上
// GET /api/v1/ops/outbox/events?target_type=JOB&target_id=123
func (h *Handler) ListTargetEvents(c *gin.Context) {
	targetType := c.Query("target_type")
	if !model.IsValidTargetType(targetType) {
		response.ParamError(c, "target_type 参数错误")
		return
	}
	targetID, err := strconv.ParseInt(c.Query("target_id"), 10, 64)
	if err != nil || targetID <= 0 {
		response.ParamError(c, "target_id 参数错误")
		return
	}

	events, err := h.outboxRepo.ListByTarget(c.Request.Context(), targetType, targetID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"list": events})
}

// PendingCounters 查询尚未落库的计数
// GET /api/v1/ops/counters/:target_type/:id
func (h *Handler) PendingCounters(c *gin.Context) {
	targetType := c.Param("target_type")
	caches, ok := h.counters[targetType]
	if !ok {
		response.ParamError(c, "target_type 参数错误")
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	pending := make(map[string]int64, len(caches))
	for _, cc := range caches {
		pending[cc.Column()] = cc.Pending(id)
	}
	response.Success(c, gin.H{
		"target_type": targetType,
		"id":          id,
		"pending":     pending,
	})
}

// ListTasks GET /api/v1/ops/tasks
func (h *Handler) ListTasks(c *gin.Context) {
	names := h.scheduler.Tasks()
	list := make([]gin.H, 0, len(names))
	for _, name := range names {
		list = append(list, gin.H{"name": name, "running": h.scheduler.IsRunning(name)})
	}
	response.Success(c, gin.H{"list": list})
}

// TriggerTask 立即执行一次任务，仍受单飞约束
// POST /api/v1/ops/tasks/:name/trigger
func (h *Handler) TriggerTask(c *gin.Context) {
	name := c.Param("name")
	known := false
	for _, n := range h.scheduler.Tasks() {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		response.NotFound(c, "任务不存在: "+name)
		return
	}
	if !h.scheduler.Trigger(context.WithoutCancel(c.Request.Context()), name) {
		response.BusinessError(c, response.CodeTaskAlreadyActive, "任务正在执行: "+name)
		return
	}
	response.Success(c, gin.H{"name": name})
}

// writeError 把领域错误转换成响应码
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrJobNotFound),
		errors.Is(err, repository.ErrTechBlogNotFound),
		errors.Is(err, repository.ErrCommunityPostNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, repository.ErrOutboxEventNotFound):
		response.BusinessError(c, response.CodeEventNotRequeued, err.Error())
	case errors.Is(err, service.ErrContentDeleted):
		response.BusinessError(c, response.CodeContentDeleted, err.Error())
	case errors.Is(err, search.ErrUnsupportedQuery):
		response.BusinessError(c, response.CodeUnsupportedQuery, err.Error())
	case errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, query.ErrFieldNotResolvable),
		errors.Is(err, query.ErrMalformedRange),
		errors.Is(err, query.ErrInvalidCondition),
		errors.Is(err, query.ErrInvalidPage),
		errors.Is(err, query.ErrFieldNotSortable):
		response.ParamError(c, err.Error())
	default:
		_ = c.Error(err)
		response.ServerError(c, err.Error())
	}
}
