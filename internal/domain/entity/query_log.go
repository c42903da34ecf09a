// Package entity 定义领域实体
package entity

import "time"

// QueryLog 查询审计记录，由 audit-worker 从消息流异步落库
type QueryLog struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID    string    `json:"tenant_id" gorm:"type:uuid;index"`
	UserID      string    `json:"user_id" gorm:"type:uuid;index"`
	Role        Role      `json:"role" gorm:"type:varchar(16);not null"`
	Query       string    `json:"query" gorm:"type:text;not null"`
	Outcome     string    `json:"outcome" gorm:"type:varchar(32);not null"` // answered / refused / failed
	ErrorTag    string    `json:"error_tag,omitempty" gorm:"type:varchar(32)"`
	ChunkCount  int       `json:"chunk_count" gorm:"not null;default:0"`
	FactCount   int       `json:"fact_count" gorm:"not null;default:0"`
	SourceCount int       `json:"source_count" gorm:"not null;default:0"`
	DurationMs  int       `json:"duration_ms" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (QueryLog) TableName() string {
	return "query_logs"
}
