package main

import (
	"fmt"
	"os"

	"github.com/arnavshah/team-builder-go/pkg/auth"
	"github.com/arnavshah/team-builder-go/pkg/config"
)

func main() {
	// Load .env from project root
	config.LoadDotEnv("../.env", ".env")

	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <userID>")
		os.Exit(1)
	}

	cfg, err := config.Unmarshal(config.New(""))
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	if cfg.APIMasterSecret == "" {
		fmt.Println("Error: API_MASTER_SECRET not found in .env")
		os.Exit(1)
	}

	userID := os.Args[1]
	apiKey := auth.NewService(cfg).GenerateHMACKey(userID)
	fmt.Printf("Generated Key for %s:\n%s\n", userID, apiKey)
}
