// Package projection 把规范存储中的实体投影成搜索索引文档。
//
// 投影只依赖实体当前状态，每次同步都整篇覆盖写入，文档本身没有独立的生命周期。
package projection

import (
	"fmt"
	"strings"
	"time"

	"jobhub/internal/model"
)

// 实体 ID 是雪花 ID，超出 float64 的精确整数范围，索引文档里一律存十进制字符串

// Popularity 文档中的嵌套热度块
type Popularity struct {
	ViewCount    int64 `json:"view_count"`
	CommentCount int64 `json:"comment_count"`
	LikeCount    int64 `json:"like_count"`
}

type JobDocument struct {
	ID             string     `json:"id"`
	JobID          int64      `json:"job_id,string"`
	Title          string     `json:"title"`
	Company        string     `json:"company"`
	Description    string     `json:"description"`
	Location       string     `json:"location"`
	EmploymentType string     `json:"employment_type"`
	CareerLevel    string     `json:"career_level"`
	MinYears       int        `json:"min_years"`
	MaxYears       int        `json:"max_years"`
	Tags           []string   `json:"tags"`
	SourceURL      string     `json:"source_url"`
	Deadline       int64      `json:"deadline"` // 无截止日期时为 0
	Deleted        bool       `json:"deleted"`
	CreatedAt      int64      `json:"created_at"`
	UpdatedAt      int64      `json:"updated_at"`
	Popularity     Popularity `json:"popularity"`
}

type TechBlogDocument struct {
	ID          string     `json:"id"`
	BlogID      int64      `json:"blog_id,string"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Content     string     `json:"content"`
	Company     string     `json:"company"`
	URL         string     `json:"url"`
	Tags        []string   `json:"tags"`
	PublishedAt int64      `json:"published_at"`
	Deleted     bool       `json:"deleted"`
	CreatedAt   int64      `json:"created_at"`
	UpdatedAt   int64      `json:"updated_at"`
	Popularity  Popularity `json:"popularity"`
}

type CommunityPostDocument struct {
	ID         string     `json:"id"`
	PostID     int64      `json:"post_id,string"`
	AuthorID   int64      `json:"author_id,string"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Category   string     `json:"category"`
	Tags       []string   `json:"tags"`
	Deleted    bool       `json:"deleted"`
	CreatedAt  int64      `json:"created_at"`
	UpdatedAt  int64      `json:"updated_at"`
	Popularity Popularity `json:"popularity"`
}

// DocumentID 由 (实体类型, 实体ID) 派生的稳定文档 ID，重放时覆盖同一篇文档
func DocumentID(targetType string, id int64) string {
	return fmt.Sprintf("%s-%d", strings.ToLower(targetType), id)
}

func Job(j *model.Job) *JobDocument {
	return &JobDocument{
		ID:             DocumentID(model.TargetTypeJob, j.ID),
		JobID:          j.ID,
		Title:          j.Title,
		Company:        j.Company,
		Description:    j.Description,
		Location:       j.Location,
		EmploymentType: j.EmploymentType,
		CareerLevel:    j.CareerLevel,
		MinYears:       j.MinYears,
		MaxYears:       j.MaxYears,
		Tags:           splitTags(j.Tags),
		SourceURL:      j.SourceURL,
		Deadline:       unixOrZero(j.Deadline),
		Deleted:        j.Deleted,
		CreatedAt:      j.CreatedAt.Unix(),
		UpdatedAt:      j.UpdatedAt.Unix(),
		Popularity:     popularity(j.Popularity),
	}
}

func TechBlog(b *model.TechBlog) *TechBlogDocument {
	return &TechBlogDocument{
		ID:          DocumentID(model.TargetTypeTechBlog, b.ID),
		BlogID:      b.ID,
		Title:       b.Title,
		Summary:     b.Summary,
		Content:     b.Content,
		Company:     b.Company,
		URL:         b.URL,
		Tags:        splitTags(b.Tags),
		PublishedAt: b.PublishedAt.Unix(),
		Deleted:     b.Deleted,
		CreatedAt:   b.CreatedAt.Unix(),
		UpdatedAt:   b.UpdatedAt.Unix(),
		Popularity:  popularity(b.Popularity),
	}
}

func CommunityPost(p *model.CommunityPost) *CommunityPostDocument {
	return &CommunityPostDocument{
		ID:         DocumentID(model.TargetTypeCommunityPost, p.ID),
		PostID:     p.ID,
		AuthorID:   p.AuthorID,
		Title:      p.Title,
		Content:    p.Content,
		Category:   p.Category,
		Tags:       splitTags(p.Tags),
		Deleted:    p.Deleted,
		CreatedAt:  p.CreatedAt.Unix(),
		UpdatedAt:  p.UpdatedAt.Unix(),
		Popularity: popularity(p.Popularity),
	}
}

func popularity(p model.Popularity) Popularity {
	return Popularity{
		ViewCount:    p.ViewCount,
		CommentCount: p.CommentCount,
		LikeCount:    p.LikeCount,
	}
}

func splitTags(raw string) []string {
	tags := make([]string, 0)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func unixOrZero(t *time.Time) int64 {
	if t == nil || t.IsZero() {
		return 0
	}
	return t.Unix()
}
