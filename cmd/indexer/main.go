package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	app "github.com/ezgisubasi/multimodal-research-agent/internal/app/indexer"
)

func main() {
	cfgPath := flag.String("config", "./configs/indexer.yaml", "path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	a := app.New(ctx, *cfgPath)
	if err := a.Run(ctx); err != nil {
		log.Fatalln("indexer:", err)
	}
}
