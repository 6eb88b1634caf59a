package main

import (
	"practiceflow-api/core/logger"
	"practiceflow-api/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", "error", err)
	}
}
