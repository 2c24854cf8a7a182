package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	app "github.com/ezgisubasi/multimodal-research-agent/internal/app/server"
)

func main() {
	cfgPath := flag.String("config", "./configs/server.yaml", "path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	a := app.New(ctx, *cfgPath)
	if err := a.Run(ctx); err != nil {
		log.Fatalln("server:", err)
	}
}
