// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"sop-rag-api/internal/application/rag"
	"sop-rag-api/internal/domain/entity"
)

// DocumentSummaryResponse 授权文档目录条目
type DocumentSummaryResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	AccessLevel string `json:"access_level"`
	ChunkCount  int    `json:"chunk_count"`
}

// ToDocumentSummaryResponse 目录摘要转换为响应
func ToDocumentSummaryResponse(s *rag.DocumentSummary) *DocumentSummaryResponse {
	if s == nil {
		return nil
	}
	return &DocumentSummaryResponse{
		ID:          s.ID,
		Title:       s.Title,
		Source:      s.Source,
		AccessLevel: string(s.AccessLevel),
		ChunkCount:  s.ChunkCount,
	}
}

// CreateDocumentRequest 登记文档请求（管理端）
type CreateDocumentRequest struct {
	Title       string   `json:"title" binding:"required,max=255"`
	Source      string   `json:"source" binding:"required,max=255"`
	AccessLevel string   `json:"access_level" binding:"omitempty,oneof=employee manager admin"`
	Tags        []string `json:"tags,omitempty"`
}

// ToDocument 组装文档实体
func (r *CreateDocumentRequest) ToDocument(tenantID string) *entity.Document {
	doc := entity.NewDocument(tenantID, r.Title, r.Source, entity.AccessLevel(r.AccessLevel))
	doc.Tags = r.Tags
	return doc
}

// UpdateDocumentRequest 更新文档元数据请求（管理端）
type UpdateDocumentRequest struct {
	Title       *string  `json:"title" binding:"omitempty,max=255"`
	AccessLevel *string  `json:"access_level" binding:"omitempty,oneof=employee manager admin"`
	Tags        []string `json:"tags"`
}

// ApplyToDocument 更新实体
func (r *UpdateDocumentRequest) ApplyToDocument(d *entity.Document) {
	if r.Title != nil {
		d.Title = *r.Title
	}
	if r.AccessLevel != nil {
		d.AccessLevel = entity.AccessLevel(*r.AccessLevel)
	}
	if r.Tags != nil {
		d.Tags = r.Tags
	}
	d.UpdatedAt = time.Now()
}

// DocumentResponse 文档登记项完整响应（管理端）
type DocumentResponse struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id,omitempty"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	AccessLevel string    `json:"access_level"`
	Status      string    `json:"status"`
	ChunkCount  int       `json:"chunk_count"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToDocumentResponse 实体转换为响应
func ToDocumentResponse(d *entity.Document) *DocumentResponse {
	if d == nil {
		return nil
	}
	return &DocumentResponse{
		ID:          d.ID,
		TenantID:    d.TenantID,
		Title:       d.Title,
		Source:      d.Source,
		AccessLevel: string(d.AccessLevel),
		Status:      string(d.Status),
		ChunkCount:  d.ChunkCount,
		Tags:        d.Tags,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
