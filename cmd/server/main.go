package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hr_vacation_go/internal/config"
	"hr_vacation_go/internal/handler"
	"hr_vacation_go/internal/middleware"
	"hr_vacation_go/internal/repository"
	"hr_vacation_go/internal/service"
	"hr_vacation_go/pkg/database"
	"hr_vacation_go/pkg/log"
	"hr_vacation_go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	config.Init("configs/config.yaml")
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	log.Info("Server started")

	database.InitMySQL(cfg.Database.MySQL.DSN)
	if err := database.RunMigrate(); err != nil {
		log.Fatal("Failed to run migrations", err)
		return
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	jwtManager := token.NewJWTManager(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpireHours)*time.Hour,
		time.Duration(cfg.JWT.RefreshTokenExpireDays)*24*time.Hour,
	)

	// 仓库层
	userRepo := repository.NewUserRepository(database.DB)
	orgRepo := repository.NewOrganizationRepository(database.DB)
	vacationRepo := repository.NewVacationRepository(database.DB)
	auditRepo := repository.NewAuditRepository(database.DB)

	// 服务层
	auditService := service.NewAuditService(auditRepo)
	userService := service.NewUserService(userRepo, jwtManager, auditService)
	orgService := service.NewOrganizationService(orgRepo, auditService)
	vacationService := service.NewVacationService(vacationRepo, orgRepo, userRepo, auditService)

	// Handler 层
	userHandler := handler.NewUserHandler(userService)
	orgHandler := handler.NewOrganizationHandler(orgService)
	vacationHandler := handler.NewVacationHandler(vacationService)
	auditHandler := handler.NewAuditHandler(auditService)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})

	api := r.Group("/api")

	// 公开路由
	auth := api.Group("/auth")
	auth.POST("/register", userHandler.Register)
	auth.POST("/login", userHandler.Login)

	// 登录后路由
	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(jwtManager, userService))
	{
		authed.POST("/auth/logout", userHandler.Logout)
		authed.GET("/auth/profile", userHandler.GetProfile)

		// 组织树与节点查询对所有登录用户开放
		authed.GET("/org/tree", orgHandler.GetTree)
		authed.GET("/org/nodes/:id", orgHandler.GetNode)
		authed.GET("/org/nodes/:id/subordinates", orgHandler.GetSubordinates)
		authed.GET("/org/nodes/by-user/:userId", orgHandler.GetNodeByUserID)

		// 请假申请
		authed.POST("/vacations/requests", vacationHandler.Create)
		authed.GET("/vacations/requests/mine", vacationHandler.ListMine)
		authed.GET("/vacations/requests/pending-approvals", vacationHandler.ListPendingApprovals)
		authed.GET("/vacations/requests/:id", vacationHandler.Get)
		authed.POST("/vacations/requests/:id/approve", vacationHandler.Approve)
		authed.POST("/vacations/requests/:id/reject", vacationHandler.Reject)
		authed.POST("/vacations/requests/:id/cancel", vacationHandler.Cancel)
		authed.GET("/vacations/balance", vacationHandler.GetMyBalance)
	}

	// 管理员路由
	admin := api.Group("")
	admin.Use(middleware.AuthMiddleware(jwtManager, userService), middleware.AdminAuthMiddleware())
	{
		admin.GET("/users", userHandler.ListUsers)

		admin.POST("/org/nodes", orgHandler.CreateNode)
		admin.PUT("/org/nodes/:id", orgHandler.UpdateNode)
		admin.DELETE("/org/nodes/:id", orgHandler.DeleteNode)
		admin.PUT("/org/nodes/:id/supervisor", orgHandler.AssignSupervisor)

		admin.GET("/vacations/requests", vacationHandler.ListAll)
		admin.PUT("/vacations/balances/:userId", vacationHandler.SetBalance)
		admin.GET("/vacations/balances", vacationHandler.ListBalances)

		admin.GET("/audit/logs", auditHandler.List)
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
