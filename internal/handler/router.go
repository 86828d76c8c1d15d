package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler, gatherer prometheus.Gatherer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1")
	{
		h.jobs.register(api.Group("/jobs"))
		h.techBlogs.register(api.Group("/tech-blogs"))
		h.communityPosts.register(api.Group("/community-posts"))

		ops := api.Group("/ops")
		{
			ops.GET("/outbox/dead-letters", h.ListDeadLetters)
			ops.GET("/outbox/events", h.ListTargetEvents)
			ops.POST("/outbox/:id/requeue", h.RequeueEvent)
			ops.GET("/counters/:target_type/:id", h.PendingCounters)
			ops.GET("/tasks", h.ListTasks)
			ops.POST("/tasks/:name/trigger", h.TriggerTask)
		}
	}

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
