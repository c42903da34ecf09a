// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"sop-rag-api/internal/config"
	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/domain/repository"
	"sop-rag-api/internal/interfaces/http/dto"
	"sop-rag-api/pkg/logger"
	"sop-rag-api/pkg/utils"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtManager *utils.JWTManager
	jwtCfg     config.JWTConfig
	userRepo   repository.UserRepository
	tenantRepo repository.TenantRepository
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg config.JWTConfig, userRepo repository.UserRepository, tenantRepo repository.TenantRepository) *AuthHandler {
	return &AuthHandler{
		jwtManager: utils.NewJWTManager(cfg.Secret, cfg.Issuer),
		jwtCfg:     cfg,
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
	}
}

// Register 用户注册
// 未指定租户时创建无租户归属的用户，只能访问全局语料
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if req.TenantID != "" {
		tenant, err := h.tenantRepo.GetByID(ctx, req.TenantID)
		if err != nil {
			logger.Error(ctx, "failed to check tenant", err)
			dto.InternalError(c, "registration failed")
			return
		}
		if tenant == nil || !tenant.IsActive() {
			dto.BadRequest(c, "tenant not found or inactive")
			return
		}
	}

	exists, err := h.userRepo.ExistsByEmail(ctx, req.TenantID, req.Email)
	if err != nil {
		logger.Error(ctx, "failed to check email existence", err)
		dto.InternalError(c, "registration failed")
		return
	}
	if exists {
		dto.Conflict(c, "email already registered")
		return
	}

	user := entity.NewUser(req.TenantID, req.Email, req.Name)
	if err := user.SetPassword(req.Password); err != nil {
		logger.Error(ctx, "failed to hash password", err)
		dto.InternalError(c, "registration failed")
		return
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		logger.Error(ctx, "failed to create user", err)
		dto.InternalError(c, "registration failed")
		return
	}

	tokens, err := h.jwtManager.GenerateTokenPair(user.TenantID, user.ID, string(user.Role), h.jwtCfg.Expiration, h.jwtCfg.RefreshExpiration)
	if err != nil {
		dto.InternalError(c, "user created but failed to generate tokens")
		return
	}

	dto.Created(c, &dto.AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    int(h.jwtCfg.Expiration.Seconds()),
		User:         dto.ToAuthUserDTO(user),
	})
}

// Login 用户登录，验证邮箱密码并返回双 Token
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.userRepo.GetByEmail(ctx, req.TenantID, req.Email)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "login failed")
		return
	}

	// 不区分用户不存在与密码错误，避免账号枚举
	if user == nil || !user.CheckPassword(req.Password) {
		dto.Unauthorized(c, "invalid email or password")
		return
	}

	if err := h.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to update last login time", "error", err.Error(), "user_id", user.ID)
	}

	tokens, err := h.jwtManager.GenerateTokenPair(user.TenantID, user.ID, string(user.Role), h.jwtCfg.Expiration, h.jwtCfg.RefreshExpiration)
	if err != nil {
		dto.InternalError(c, "failed to generate tokens")
		return
	}

	dto.Success(c, &dto.AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    int(h.jwtCfg.Expiration.Seconds()),
		User:         dto.ToAuthUserDTO(user),
	})
}

// RefreshToken 用 RefreshToken 换取新的 AccessToken
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	claims, err := h.jwtManager.ParseToken(req.RefreshToken)
	if err != nil || claims.TokenType != utils.TokenRefresh {
		dto.Unauthorized(c, "invalid refresh token")
		return
	}

	newAccessToken, err := h.jwtManager.GenerateToken(claims.TenantID, claims.UserID, claims.Role, utils.TokenAccess, h.jwtCfg.Expiration)
	if err != nil {
		dto.InternalError(c, "failed to generate access token")
		return
	}

	dto.Success(c, &dto.AuthResponse{
		AccessToken: newAccessToken,
		ExpiresIn:   int(h.jwtCfg.Expiration.Seconds()),
	})
}
