package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"rating-engine/internal/auth"
	"rating-engine/internal/config"
)

func main() {
	service := flag.String("service", "", "name of the service the token is issued to")
	scopes := flag.String("scopes", auth.ScopeSubmitOutcomes, "comma-separated scopes")
	env := flag.String("env", config.GetEnv(), "config environment to read the signing secret from")
	flag.Parse()

	if *service == "" {
		fmt.Fprintln(os.Stderr, "error: --service is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*env)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	jwtService, err := auth.NewJWTService(cfg.JWT.ServiceSecret, time.Duration(cfg.JWT.ServiceTTL)*time.Hour)
	if err != nil {
		log.Fatalf("No usable service secret for %s: %v", *env, err)
	}
	token, err := jwtService.GenerateServiceToken(*service, splitScopes(*scopes)...)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	log.Printf("Issued token for %s, valid %s", *service, jwtService.GetServiceTTL())
	fmt.Println(token)
}

func splitScopes(s string) []string {
	var out []string
	for _, scope := range strings.Split(s, ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			out = append(out, scope)
		}
	}
	return out
}
