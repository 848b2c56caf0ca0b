package main

import (
	"context"
	"log"
	"os"

	"github.com/dvasilkov/catalogsync/internal/buildinfo"
	"github.com/dvasilkov/catalogsync/internal/client/cli"
	"github.com/dvasilkov/catalogsync/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
