// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/lib/pq"
)

// DocumentStatus 文档状态
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"  // 已登记，尚未入库
	DocumentStatusIndexed  DocumentStatus = "indexed"  // 切分并写入向量库完成
	DocumentStatusFailed   DocumentStatus = "failed"   // 入库失败
	DocumentStatusArchived DocumentStatus = "archived" // 已归档，不参与检索
)

// Document 文档实体，是 SOP 文档在目录中的登记项
// TenantID 为空表示全局文档，任何租户的用户都可见
type Document struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id,omitempty"`
	Title       string         `json:"title"`
	Source      string         `json:"source"` // 文档来源标识，引用锚点用
	AccessLevel AccessLevel    `json:"access_level"`
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count"`
	Tags        pq.StringArray `json:"tags,omitempty" gorm:"type:text[]"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewDocument 创建新文档登记项
func NewDocument(tenantID, title, source string, level AccessLevel) *Document {
	now := time.Now()
	return &Document{
		TenantID:    tenantID,
		Title:       title,
		Source:      source,
		AccessLevel: level,
		Status:      DocumentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsGlobal 判断文档是否为全局文档（无租户归属）
func (d *Document) IsGlobal() bool {
	return d.TenantID == ""
}

// Searchable 判断文档是否参与检索
func (d *Document) Searchable() bool {
	return d.Status == DocumentStatusIndexed
}

// Chunk 文档切片，是向量库中的最小检索单元
// AccessLevel 为空表示历史未分级内容，按最低分级处理，所有角色可见
// TenantID 为空表示全局切片，对所有租户可见
type Chunk struct {
	ID          string      `json:"id"`
	DocumentID  string      `json:"document_id"`
	TenantID    string      `json:"tenant_id,omitempty"`
	Source      string      `json:"source"`
	AccessLevel AccessLevel `json:"access_level,omitempty"`
	Page        int         `json:"page"`
	Section     string      `json:"section,omitempty"`
	Text        string      `json:"text"`
	Vector      []float32   `json:"-"`
}
