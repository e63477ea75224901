// Command dompet-token mints a bearer token for local development.
//
//	dompet-token -user 3f0c...      # token for a known user id
//	dompet-token -email a@b.id      # look the user up in DATA_BACKEND first
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"dompet/internal/auth"
	"dompet/internal/backend"
	"dompet/internal/cli"
	"dompet/internal/config"
	"dompet/internal/core"
)

func main() {
	userID := flag.String("user", "", "user id to put in the token subject")
	email := flag.String("email", "", "resolve the user id from this email")
	ttl := flag.Duration("ttl", 0, "token lifetime (default JWT_TTL)")
	flag.Parse()

	envErr := cli.LoadEnvFile()
	bootCfg := config.Load()
	logger := cli.SetupLogger(bootCfg.LogLevel, bootCfg.LogFormat)
	if envErr != nil {
		logger.Warn("Failed to load .env file", "error", envErr)
	}

	if (*userID == "") == (*email == "") {
		fmt.Fprintln(os.Stderr, "set exactly one of -user or -email")
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)
	if *ttl > 0 {
		cfg.JWTTTL = *ttl
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	subject := *userID
	if *email != "" {
		id, err := lookupUser(ctx, cfg, *email)
		if err != nil {
			logger.Error("User lookup failed", "error", err, "email", *email)
			os.Exit(1)
		}
		subject = id
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Error("Failed to configure tokens", "error", err)
		os.Exit(1)
	}
	token, exp, err := tokens.Issue(subject)
	if err != nil {
		logger.Error("Failed to issue token", "error", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "subject %s, expires %s\n", subject, exp.Format(time.RFC3339))
}

func lookupUser(ctx context.Context, cfg *config.Config, email string) (string, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return "", err
	}
	res, err := backend.NewFactory(nil).CreateBackend(ctx, backendCfg)
	if err != nil {
		return "", err
	}
	defer res.Cleanup()

	u, err := res.Store.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		return "", fmt.Errorf("find %s: %w", email, err)
	}
	return u.ID, nil
}
