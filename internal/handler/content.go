package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"jobhub/internal/query"
	"jobhub/internal/service"
	"jobhub/pkg/response"
)

// contentCommands 三类内容服务共有的写操作
type contentCommands[T any, R any] interface {
	Create(ctx context.Context, req *R) (*T, error)
	Update(ctx context.Context, id int64, req *R) (*T, error)
	Get(ctx context.Context, id int64) (*T, error)
	SoftDelete(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	IncreaseLikeCount(ctx context.Context, id int64, delta int64) error
	IncreaseCommentCount(ctx context.Context, id int64, delta int64) error
}

// contentHandler 某一类内容的接口，只做参数绑定和错误码转换
type contentHandler[T any, R any, D any] struct {
	commands contentCommands[T, R]
	search   *service.SearchService[D]
}

func (h *contentHandler[T, R, D]) register(g *gin.RouterGroup) {
	g.POST("", h.Create)
	g.POST("/search", h.Search)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/like", h.Like)
	g.POST("/:id/comment-count", h.AdjustCommentCount)
}

// Create POST /api/v1/{jobs|tech-blogs|community-posts}
func (h *contentHandler[T, R, D]) Create(c *gin.Context) {
	var req R
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	entity, err := h.commands.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, entity)
}

// Update PUT /api/v1/{...}/:id
func (h *contentHandler[T, R, D]) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req R
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	entity, err := h.commands.Update(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, entity)
}

// Get GET /api/v1/{...}/:id，同时累加一次浏览
func (h *contentHandler[T, R, D]) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entity, err := h.commands.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, entity)
}

// Delete DELETE /api/v1/{...}/:id?hard=true
// 默认软删除；hard=true 时物理删除，索引文档一并移除
func (h *contentHandler[T, R, D]) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var err error
	if hard, _ := strconv.ParseBool(c.DefaultQuery("hard", "false")); hard {
		err = h.commands.Delete(c.Request.Context(), id)
	} else {
		err = h.commands.SoftDelete(c.Request.Context(), id)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

// Like POST /api/v1/{...}/:id/like
func (h *contentHandler[T, R, D]) Like(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.commands.IncreaseLikeCount(c.Request.Context(), id, 1); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

type adjustRequest struct {
	Delta int64 `json:"delta" binding:"required"`
}

// AdjustCommentCount POST /api/v1/{...}/:id/comment-count
// 评论的增删由评论模块完成，这里只接收计数变化
func (h *contentHandler[T, R, D]) AdjustCommentCount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if err := h.commands.IncreaseCommentCount(c.Request.Context(), id, req.Delta); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

type conditionRequest struct {
	Field string      `json:"field" binding:"required"`
	Value interface{} `json:"value"`
	GTE   interface{} `json:"gte"`
	LTE   interface{} `json:"lte"`
}

type sortRequest struct {
	Field string `json:"field" binding:"required"`
	Desc  bool   `json:"desc"`
}

// SearchRequest 时间范围用 unix 秒；gte / lte 只给一侧时为单边范围
type SearchRequest struct {
	Conditions []conditionRequest `json:"conditions"`
	Sort       []sortRequest      `json:"sort"`
	From       int                `json:"from"`
	To         int                `json:"to"`
}

func (r *SearchRequest) conditions() []query.Condition {
	out := make([]query.Condition, 0, len(r.Conditions)+1)
	filtersDeleted := false
	for _, cr := range r.Conditions {
		if cr.Field == "deleted" {
			filtersDeleted = true
		}
		switch {
		case cr.GTE != nil && cr.LTE != nil:
			out = append(out, query.Between(cr.Field, cr.GTE, cr.LTE))
		case cr.GTE != nil:
			out = append(out, query.AtLeast(cr.Field, cr.GTE))
		case cr.LTE != nil:
			out = append(out, query.AtMost(cr.Field, cr.LTE))
		default:
			out = append(out, query.Eq(cr.Field, cr.Value))
		}
	}
	// 没有显式指定时默认不返回已软删除的内容
	if !filtersDeleted {
		out = append(out, query.Eq("deleted", false))
	}
	return out
}

func (r *SearchRequest) sorts() []query.SortField {
	out := make([]query.SortField, 0, len(r.Sort))
	for _, s := range r.Sort {
		out = append(out, query.SortField{Field: s.Field, Desc: s.Desc})
	}
	return out
}

// bindSearchRequest 条件值保留为 json.Number，雪花 ID 不经过 float64
func bindSearchRequest(c *gin.Context, req *SearchRequest) error {
	if c.Request.Body == nil {
		return errors.New("请求体为空")
	}
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(req); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(req)
}

// Search POST /api/v1/{...}/search
func (h *contentHandler[T, R, D]) Search(c *gin.Context) {
	var req SearchRequest
	if err := bindSearchRequest(c, &req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if req.To == 0 {
		req.To = req.From + 20
	}
	page, err := h.search.Search(c.Request.Context(), req.conditions(), req.From, req.To, req.sorts()...)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, page)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "id 参数错误")
		return 0, false
	}
	return id, true
}
