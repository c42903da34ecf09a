// Package main 系统初始化：建表、建向量集合、种子数据
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"sop-rag-api/internal/config"
	"sop-rag-api/internal/domain/entity"
	"sop-rag-api/internal/infrastructure/persistence/milvus"
	"sop-rag-api/internal/infrastructure/persistence/postgres"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer pgClient.Close()

	// 1. 建表
	fmt.Println("Running database migrations...")
	if err := pgClient.DB().AutoMigrate(
		&entity.Tenant{},
		&entity.User{},
		&entity.Document{},
		&entity.ConversationSession{},
		&entity.ConversationTurn{},
		&entity.QueryLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// 2. 建向量集合和索引
	fmt.Println("Ensuring vector collection...")
	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		log.Fatalf("failed to connect milvus: %v", err)
	}
	defer milvusClient.Close()

	vectorRepo := milvus.NewRepository(milvusClient, cfg.Embedding.Dimension)
	if err := vectorRepo.EnsureCollection(ctx); err != nil {
		log.Fatalf("failed to ensure vector collection: %v", err)
	}

	tenantRepo := postgres.NewTenantRepository(pgClient)
	userRepo := postgres.NewUserRepository(pgClient)

	// 3. 创建默认租户
	defaultTenantSlug := "default"
	exists, err := tenantRepo.ExistsBySlug(ctx, defaultTenantSlug)
	if err != nil {
		log.Fatalf("failed to check tenant existence: %v", err)
	}

	var tenantID string
	if !exists {
		fmt.Printf("Creating default tenant: %s...\n", defaultTenantSlug)
		tenant := entity.NewTenant("Default Tenant", defaultTenantSlug)
		if err := tenantRepo.Create(ctx, tenant); err != nil {
			log.Fatalf("failed to create default tenant: %v", err)
		}
		tenantID = tenant.ID
		fmt.Printf("Default tenant created with ID: %s\n", tenantID)
	} else {
		tenant, err := tenantRepo.GetBySlug(ctx, defaultTenantSlug)
		if err != nil {
			log.Fatalf("failed to get existing tenant: %v", err)
		}
		tenantID = tenant.ID
		fmt.Printf("Default tenant already exists with ID: %s\n", tenantID)
	}

	// 4. 创建首个管理员
	adminEmail := os.Getenv("BOOTSTRAP_ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@example.com"
	}
	adminPassword := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123" // 生产环境请务必通过环境变量设置
	}

	userExists, err := userRepo.ExistsByEmail(ctx, tenantID, adminEmail)
	if err != nil {
		log.Fatalf("failed to check admin existence: %v", err)
	}

	if !userExists {
		fmt.Printf("Creating admin user: %s...\n", adminEmail)
		admin := entity.NewUser(tenantID, adminEmail, "System Admin")
		admin.Role = entity.RoleAdmin
		if err := admin.SetPassword(adminPassword); err != nil {
			log.Fatalf("failed to hash admin password: %v", err)
		}

		if err := userRepo.Create(ctx, admin); err != nil {
			log.Fatalf("failed to create admin user: %v", err)
		}
		fmt.Println("Admin user created successfully.")
	} else {
		fmt.Printf("Admin user %s already exists.\n", adminEmail)
	}

	fmt.Println("Bootstrap completed successfully.")
}
