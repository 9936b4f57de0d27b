// Command devtoken mints a bearer token for local calls against the user
// service. It signs with JWT_SECRET, read from the environment or .env.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/markwinap/t3-antd-postgress-template/shared/middleware"
	"github.com/markwinap/t3-antd-postgress-template/shared/models"
)

func main() {
	userID := flag.String("user", "usr-dev", "user id placed in the token")
	email := flag.String("email", "dev@example.com", "email placed in the token")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	token, err := middleware.IssueToken([]byte(secret), models.Actor{UserID: *userID, Email: *email}, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
