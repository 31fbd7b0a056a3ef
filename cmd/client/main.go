package main

import (
	"context"
	"log"
	"os"

	"github.com/d-madiou/to-meet-yours/internal/buildinfo"
	"github.com/d-madiou/to-meet-yours/internal/client/cli"
	"github.com/d-madiou/to-meet-yours/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
