package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/serverwatch/notifier/internal/middleware"
	"github.com/serverwatch/notifier/pkg/config"
)

// Issues a service token for the delivery layer (bot, dashboard) to call the API with.
//
//	go run ./tools/issue-token.go -service discord-bot -ttl 720h
func main() {
	service := flag.String("service", "", "name of the calling service (required)")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()

	if *service == "" {
		fmt.Fprintln(os.Stderr, "Error: -service is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	validator := middleware.NewTokenValidator(cfg.APITokenSecret)
	if validator == nil {
		fmt.Fprintln(os.Stderr, "Error: API_TOKEN_SECRET is not set, the API accepts unauthenticated requests")
		os.Exit(1)
	}

	token, err := validator.IssueToken(*service, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
