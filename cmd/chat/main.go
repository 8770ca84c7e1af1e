package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"netwise_relay/internal/chat"
	"netwise_relay/internal/config"
	"netwise_relay/internal/logger"
	"netwise_relay/internal/ui"

	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	url := flag.String("url", "", "中继服务器地址，覆盖配置文件")
	debug := flag.Bool("debug", false, "把调试日志写入 logs/chat.log")
	flag.Parse()

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if *url != "" {
		cfg.URL = *url
	}

	// 界面运行时日志不能写到终端
	log.SetOutput(io.Discard)
	if *debug {
		if err := logger.Setup(config.LogConfig{Level: "debug", ToFile: true, Dir: "logs", File: "chat.log", MaxMB: 10}); err != nil {
			fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
			os.Exit(1)
		}
		defer logger.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	view := ui.NewView()
	client := chat.NewClient(cfg.URL, view)
	defer client.Close()

	_ = client.Connect(ctx)

	if err := view.Run(ctx, client); err != nil {
		fmt.Fprintf(os.Stderr, "界面运行失败: %v\n", err)
		os.Exit(1)
	}
}
