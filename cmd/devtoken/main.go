// Command devtoken prints an access token for a user ID so the API and the
// websocket endpoint can be exercised locally without the identity service.
//
//	NUDGE_AUTH_JWT_SECRET=... devtoken -user 6f1c... -ttl 2h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/service/auth"
)

const minSecretLength = 32

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("devtoken", flag.ContinueOnError)
	userFlag := fs.String("user", "", "user ID to issue the token for (random if empty)")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	secret := fs.String("secret", os.Getenv("NUDGE_AUTH_JWT_SECRET"), "signing secret")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if len(*secret) < minSecretLength {
		return fmt.Errorf("secret must be at least %d characters", minSecretLength)
	}
	if *ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", *ttl)
	}

	userID := uuid.New()
	if *userFlag != "" {
		id, err := uuid.Parse(*userFlag)
		if err != nil {
			return fmt.Errorf("invalid user ID %q: %w", *userFlag, err)
		}
		userID = id
	}

	token, err := auth.SignAccessToken(*secret, userID, time.Now(), *ttl)
	if err != nil {
		return err
	}
	fmt.Printf("user_id: %s\ntoken:   %s\n", userID, token)
	return nil
}
