package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"candlestick-service/internal/container"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	envFile := flag.String("env", ".env", "可选的 .env 文件，不存在时忽略")
	flag.Parse()

	// .env 只补充未设置的环境变量
	_ = godotenv.Load(*envFile)

	c, err := container.New(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := c.Build(); err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx); err != nil {
		c.Logger().Error("start failed", zap.Error(err))
		_ = c.Stop()
		os.Exit(1)
	}
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		c.Logger().Warn("sd_notify ready failed", zap.Error(err))
	} else if ok {
		c.Logger().Info("notified systemd ready")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		c.Logger().Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-c.Fatal():
		c.Logger().Error("upstream stream failed, shutting down", zap.Error(err))
		exitCode = 1
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	cancel()
	if err := c.Stop(); err != nil {
		exitCode = 1
	}
	os.Exit(exitCode)
}
