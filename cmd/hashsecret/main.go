// Command hashsecret prints the bcrypt hash of a shared secret for the
// AUTH_AGENT_SECRET_HASH and AUTH_OPERATOR_SECRET_HASH settings.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spec-kit/locate-service/internal/auth"
	"github.com/spec-kit/locate-service/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var secret string
	if len(os.Args) > 1 {
		secret = os.Args[1]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("read secret: %v", err)
		}
		secret = strings.TrimRight(line, "\r\n")
	}
	if secret == "" {
		log.Fatal("usage: hashsecret <secret>  (or pipe the secret on stdin)")
	}

	hash, err := auth.HashSecret(secret, cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatalf("hash secret: %v", err)
	}
	fmt.Println(hash)
}
