// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"sop-rag-api/internal/application/rag"
	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
	"sop-rag-api/internal/interfaces/http/dto"
	"sop-rag-api/internal/interfaces/http/middleware"
	"sop-rag-api/pkg/logger"
)

// DocumentHandler 文档目录处理器
type DocumentHandler struct {
	catalog *rag.Catalog
	docs    repository.DocumentRepository
	vectors rag.VectorStore
}

// NewDocumentHandler 创建文档目录处理器
func NewDocumentHandler(catalog *rag.Catalog, docs repository.DocumentRepository, vectors rag.VectorStore) *DocumentHandler {
	return &DocumentHandler{
		catalog: catalog,
		docs:    docs,
		vectors: vectors,
	}
}

// List 列出当前角色有权访问的已入库文档
// 和向量检索共用同一套访问策略，未识别角色返回空列表
func (h *DocumentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	role := entity.Role(middleware.GetRoleFromGin(c))
	tenantID := middleware.GetTenantIDFromGin(c)
	page := dto.BindPage(c)

	result, err := h.catalog.ListAuthorizedDocuments(ctx, role, tenantID, page.Pagination())
	if err != nil {
		logger.Error(ctx, "failed to list authorized documents", err)
		dto.InternalError(c, "failed to list documents")
		return
	}

	items := make([]*dto.DocumentSummaryResponse, 0, len(result.Items))
	for _, s := range result.Items {
		items = append(items, dto.ToDocumentSummaryResponse(s))
	}
	dto.SuccessWithPage(c, items, dto.NewPageMeta(result.Page, result.PageSize, result.Total))
}

// Create 登记文档（管理端）
// 登记后状态为 pending，切片入库完成后由入库流程置为 indexed
func (h *DocumentHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	tenantID := middleware.GetTenantIDFromGin(c)

	existing, err := h.docs.GetBySource(ctx, tenantID, req.Source)
	if err != nil {
		logger.Error(ctx, "failed to check document source", err)
		dto.InternalError(c, "failed to create document")
		return
	}
	if existing != nil {
		dto.Conflict(c, "document source already registered")
		return
	}

	doc := req.ToDocument(tenantID)
	if err := h.docs.Create(ctx, doc); err != nil {
		logger.Error(ctx, "failed to create document", err)
		dto.InternalError(c, "failed to create document")
		return
	}

	dto.Created(c, dto.ToDocumentResponse(doc))
}

// Get 获取文档登记项（管理端）
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, ok := h.loadOwnedDocument(c)
	if !ok {
		return
	}
	dto.Success(c, dto.ToDocumentResponse(doc))
}

// Update 更新文档元数据（管理端）
// 分级变更只改目录登记项，向量库切片需重新入库才会生效
func (h *DocumentHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	doc, ok := h.loadOwnedDocument(c)
	if !ok {
		return
	}

	req.ApplyToDocument(doc)
	if err := h.docs.Update(ctx, doc); err != nil {
		logger.Error(ctx, "failed to update document", err)
		dto.InternalError(c, "failed to update document")
		return
	}

	dto.Success(c, dto.ToDocumentResponse(doc))
}

// Delete 删除文档（管理端）
// 先清理向量库切片再删目录登记项，顺序不能反：
// 登记项先消失会留下无人认领的切片继续参与检索
func (h *DocumentHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	doc, ok := h.loadOwnedDocument(c)
	if !ok {
		return
	}

	if h.vectors != nil {
		if err := h.vectors.DeleteByDocument(ctx, doc.TenantID, doc.ID); err != nil {
			logger.Error(ctx, "failed to delete document chunks", err, "document_id", doc.ID)
			dto.InternalError(c, "failed to delete document chunks")
			return
		}
	}

	if err := h.docs.Delete(ctx, doc.ID); err != nil {
		logger.Error(ctx, "failed to delete document", err, "document_id", doc.ID)
		dto.InternalError(c, "failed to delete document")
		return
	}

	dto.NoContent(c)
}

// loadOwnedDocument 加载文档并校验租户归属；失败时已写入响应
// 全局文档（无租户归属）只允许无租户的平台管理员操作
func (h *DocumentHandler) loadOwnedDocument(c *gin.Context) (*entity.Document, bool) {
	ctx := c.Request.Context()

	doc, err := h.docs.GetByID(ctx, dto.BindID(c))
	if err != nil {
		logger.Error(ctx, "failed to get document", err)
		dto.InternalError(c, "failed to get document")
		return nil, false
	}
	if doc == nil {
		dto.NotFound(c, "document not found")
		return nil, false
	}

	tenantID := middleware.GetTenantIDFromGin(c)
	if doc.TenantID != tenantID {
		dto.NotFound(c, "document not found")
		return nil, false
	}
	return doc, true
}
