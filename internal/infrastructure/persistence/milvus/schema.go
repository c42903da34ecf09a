// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionSopChunks SOP 文档切片集合
	CollectionSopChunks = "sop_chunks"

	// GlobalPartition 无租户归属切片的分区，对所有租户可见
	GlobalPartition = "global"
)

func varcharField(name string, maxLen int) *entity.Field {
	return &entity.Field{
		Name:     name,
		DataType: entity.FieldTypeVarChar,
		TypeParams: map[string]string{
			"max_length": fmt.Sprintf("%d", maxLen),
		},
	}
}

// SopChunksSchema SOP 切片 Collection Schema
// access_level 为空字符串表示历史未分级内容，检索侧按最低分级放行
func SopChunksSchema(dim int) *entity.Schema {
	id := varcharField("id", 64)
	id.PrimaryKey = true

	return &entity.Schema{
		CollectionName: CollectionSopChunks,
		Description:    "SOP document chunks for role-gated semantic search",
		Fields: []*entity.Field{
			id,
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", dim),
				},
			},
			varcharField("tenant_id", 64),
			varcharField("access_level", 32),
			varcharField("document_id", 64),
			varcharField("source", 256),
			{Name: "page", DataType: entity.FieldTypeInt64},
			varcharField("section", 256),
			varcharField("text_content", 65535),
		},
	}
}

// PartitionName 按租户生成分区名称；无租户切片落在全局分区
func PartitionName(tenantID string) string {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return GlobalPartition
	}
	return "tenant_" + tenantID
}
