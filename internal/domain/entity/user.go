// Package entity 定义领域实体
package entity

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User 用户实体。角色决定问答时可检索的文档访问级别，
// 平台级用户 TenantID 为空，只能访问全局语料。
type User struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewUser 创建新用户，默认角色为 employee
func NewUser(tenantID, email, name string) *User {
	now := time.Now()
	return &User{
		TenantID:  tenantID,
		Email:     email,
		Name:      name,
		Role:      RoleEmployee,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetPassword 散列并设置密码
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword 校验密码
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
