// Command client runs the scouting shell on a device. With a trailing
// "sync" argument it performs one push and pull and exits, which suits cron
// or a mobile background job.
//
//	client -a 10.0.0.5:50051 -m farm-1 -n tablet-7
//	client -m farm-1 -k $TOKEN sync
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/katlaang/pestscan-sub001/internal/client/cli"
	"github.com/katlaang/pestscan-sub001/internal/client/config"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if len(os.Args) > 1 && os.Args[len(os.Args)-1] == "sync" {
		if err := app.RunSync(ctx); err != nil {
			log.Fatalf("sync: %v", err)
		}
		return
	}

	app.Run(ctx)

}
