package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// loadDotEnv reads .env files from the working directory and its parent.
// Variables already set in the environment win.
func loadDotEnv() {
	loadEnvFile(".env")
	loadEnvFile("../.env")
}

func loadEnvFile(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Printf("Warning: failed to load %s: %v", path, err)
	}
}
