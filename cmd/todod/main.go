package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"HTMX-Todo/internal/cli"
)

// main 是待办服务的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		log.Fatalf("todod 运行失败: %v", err)
	}
}
