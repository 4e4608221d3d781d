package main

import (
	"experiment-bridge/internal/app/server"
	"experiment-bridge/internal/config"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel)
	server.Run(cfg)
}
