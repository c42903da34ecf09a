// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sop-rag-api/pkg/errors"
)

// Response 统一响应结构
type Response[T any] struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    T         `json:"data,omitempty"`
	Meta    *PageMeta `json:"meta,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// PageMeta 分页元数据
type PageMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPageMeta 创建分页元数据
func NewPageMeta(page, pageSize int, total int64) *PageMeta {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &PageMeta{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	ErrorCode string `json:"error_code,omitempty"`
	Details   string `json:"details,omitempty"`
}

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

func traceID(c *gin.Context) string {
	return c.GetString("trace_id")
}

func respond[T any](c *gin.Context, status int, message string, data T, meta *PageMeta) {
	c.JSON(status, Response[T]{
		Code:    status,
		Message: message,
		Data:    data,
		Meta:    meta,
		TraceID: traceID(c),
	})
}

// Success 返回成功响应
func Success[T any](c *gin.Context, data T) {
	respond(c, http.StatusOK, "success", data, nil)
}

// SuccessWithPage 返回带分页的成功响应
func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	respond(c, http.StatusOK, "success", data, meta)
}

// Created 返回创建成功响应 (201)
func Created[T any](c *gin.Context, data T) {
	respond(c, http.StatusCreated, "created", data, nil)
}

// NoContent 返回无内容响应 (204)
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// AppError 按应用错误返回对应状态码和错误码。
// 所有错误响应都走这条路径，error_code 对客户端保持稳定，
// message 才是允许随版本调整的人类可读文案。
func AppError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		Code:    appErr.HTTPStatus,
		Message: appErr.Message,
		Error: &ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		},
		TraceID: traceID(c),
	})
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, message string) {
	AppError(c, errors.New(errors.CodeInvalidParam, message))
}

// Unauthorized 返回 401 错误
func Unauthorized(c *gin.Context, message string) {
	AppError(c, errors.New(errors.CodeUnauthorized, message))
}

// Forbidden 返回 403 错误
func Forbidden(c *gin.Context, message string) {
	AppError(c, errors.New(errors.CodeForbidden, message))
}

// NotFound 返回 404 错误
func NotFound(c *gin.Context, message string) {
	AppError(c, errors.New(errors.CodeNotFound, message))
}

// Conflict 返回 409 错误
func Conflict(c *gin.Context, message string) {
	AppError(c, errors.New(errors.CodeConflict, message))
}

// InternalError 返回 500 错误
func InternalError(c *gin.Context, message string) {
	AppError(c, errors.New(errors.CodeInternalError, message))
}

// ServiceUnavailable 返回 503 错误
func ServiceUnavailable(c *gin.Context, message string) {
	AppError(c, errors.New(errors.CodeServiceUnavailable, message))
}
