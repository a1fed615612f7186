package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/product-catalog/catalog/internal/catalogapi"
)

type globalOptions struct {
	apiURL    string
	username  string
	password  string
	redisAddr string
	redisPass string
	timeout   time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Operator tools for the product catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", envOr("CATALOG_API_URL", "http://127.0.0.1:8080"), "Catalog API base URL")
	flags.StringVar(&opts.username, "username", envOr("CATALOG_USERNAME", "admin"), "API username")
	flags.StringVar(&opts.password, "password", os.Getenv("CATALOG_PASSWORD"), "API password (defaults to $CATALOG_PASSWORD)")
	flags.StringVar(&opts.redisAddr, "redis-addr", envOr("REDIS_ADDR", "127.0.0.1:6379"), "Redis address of the job queue")
	flags.StringVar(&opts.redisPass, "redis-password", os.Getenv("REDIS_PASSWORD"), "Redis password (defaults to $REDIS_PASSWORD)")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout for API calls")

	cmd.AddCommand(newTreeCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	cmd.AddCommand(newJobsCmd(opts))
	return cmd
}

// apiSession is a signed-in API client.
type apiSession struct {
	client *catalogapi.Client
	token  string
}

// signIn logs into the API. The returned func revokes the token.
func (o *globalOptions) signIn(ctx context.Context) (*apiSession, func(), error) {
	if o.password == "" {
		return nil, nil, errors.New("--password or $CATALOG_PASSWORD is required")
	}
	client := catalogapi.New(catalogapi.Config{BaseURL: o.apiURL, Timeout: o.timeout, RetryCount: 2})
	res, err := client.Login(ctx, o.username, o.password)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("login to %s: %w", o.apiURL, err)
	}
	done := func() {
		_ = client.Logout(context.Background(), res.Token)
		_ = client.Close()
	}
	return &apiSession{client: client, token: res.Token}, done, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
