// Command wjdeploy packages and deploys Azure App Service WebJobs.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/balaji-balu/wjdeploy/cmd/wjdeploy/cmd"
)

func init() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("ignoring .env: %v", err)
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cmd.Execute(ctx)
	cancel()
	os.Exit(code)
}
