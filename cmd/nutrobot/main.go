package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/m3rciful/nutrobot/core/cmd"
	"github.com/m3rciful/nutrobot/internal/app"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "configs/config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("nutrobot: %v", err)
	}
}
