// Command helper is an interactive tool for operators: it hashes passwords for
// manual seeding and decodes identity tokens issued with the configured secret.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"researchhub/internal/auth"
	"researchhub/internal/config"
	"researchhub/internal/utils/logger"

	"github.com/joho/godotenv"
)

func main() {
	var log = logger.New("helper")
	log.Info("🔑 Starting credential helper CLI")

	if err := godotenv.Load(); err != nil {
		log.Warn("No .env loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		_ = log.Error("❌ Failed to load configuration", err)
		os.Exit(1)
	}
	tokens, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
	if err != nil {
		_ = log.Error("❌ Failed to initialize token service", err)
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("Enter 'h' to hash a password, 't' to decode a token, or 'q' to quit: ")
		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)

		if choice == "q" {
			log.Info("👋 Exiting helper CLI")
			break
		}

		fmt.Print("Enter the string to process: ")
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch choice {
		case "h":
			digest, err := auth.HashPassword(input)
			if err != nil {
				_ = log.Error("❌ Hashing failed", err)
			} else {
				log.Success("✅ Password digest: %s", digest)
			}
		case "t":
			id, err := tokens.Verify(input)
			if err != nil {
				_ = log.Error("❌ Token rejected", err)
			} else {
				log.Success("✅ Token identity: id=%d username=%s role=%s", id.UserID, id.Username, id.Role)
			}
		default:
			log.Warn("⚠️ Invalid choice. Please enter 'h', 't', or 'q'.")
		}
	}
}
