/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/api"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/config"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/container"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/metrics"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the HAL Workflow API server.
The server will listen on the configured host and port,
and provide REST API interfaces for process workflow approval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := api.ConfigureLogger(&cfg.Log); err != nil {
			return fmt.Errorf("failed to configure logging: %w", err)
		}

		// 配置文件热加载,目前只动态调整日志级别
		if configPath != "" {
			watcher := config.NewWatcher(cfg, configPath)
			watcher.OnChange(func(next *config.Config) {
				_ = api.ConfigureLogger(&next.Log)
			})
			if err := watcher.Start(); err != nil {
				log.Printf("config watcher disabled: %v", err)
			} else {
				defer watcher.Stop()
			}
		}

		// 分布式追踪按需开启,collector 不可达时启动失败
		if cfg.Tracing.Enabled {
			if err := api.InitTracing(cfg.Tracing); err != nil {
				return fmt.Errorf("failed to init tracing: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := api.ShutdownTracing(ctx); err != nil {
					log.Printf("tracing shutdown: %v", err)
				}
			}()
		}

		// 2. 初始化容器
		ctr, err := container.NewContainer(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 3. 启动 WebSocket Hub 与后台组件
		go ctr.Hub().Run()

		rootCtx, cancelRoot := context.WithCancel(context.Background())
		defer cancelRoot()
		ctr.SLAMonitor().Start(rootCtx)
		if exporter := ctr.ArchiveExporter(); exporter != nil {
			exporter.Start(rootCtx)
		}

		collector := metrics.NewCollector(ctr.DB(), 15*time.Second)
		collector.Start()
		defer collector.Stop()

		// 4. 初始化控制器并设置路由
		ctrl := api.NewControllers(
			ctr.ProcessService(),
			ctr.WorkflowService(),
			ctr.QueryService(),
			ctr.NotificationService(),
			ctr.StatisticsService(),
		)
		router := api.SetupRoutes(cfg, ctrl, ctr.Hub(), ctr.KeycloakValidator(), ctr.DB(), ctr.OpenFGAClient())

		// 5. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		// 启动服务器（在 goroutine 中）
		go func() {
			log.Printf("Server starting on %s", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down server...")

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		log.Println("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("config", "c", "", "config file path")
}
