// Command tokengen mints bearer tokens and service-key hashes for local
// development.  Production tokens come from the identity service.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/utils"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var (
		secret  string
		userID  uint64
		role    string
		ttl     time.Duration
		hashKey string
		cost    int
	)
	flagSet := pflag.NewFlagSet("tokengen", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HS256 signing secret (default: $JWT_SECRET)")
	flagSet.Uint64Var(&userID, "user", 1, "user id placed in the sub claim")
	flagSet.StringVar(&role, "role", string(model.RoleRegularUser), "role claim")
	flagSet.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	flagSet.StringVar(&hashKey, "hash-key", "", "print the bcrypt hash of this service key instead of a token")
	flagSet.IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost used with --hash-key")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	if hashKey != "" {
		hash, err := utils.HashSecret(hashKey, cost)
		if err != nil {
			return fmt.Errorf("hash service key: %w", err)
		}
		fmt.Fprintln(out, hash)
		return nil
	}

	if secret == "" {
		return fmt.Errorf("--secret or JWT_SECRET is required")
	}
	if !model.Role(role).Known() {
		return fmt.Errorf("unknown role %q", role)
	}
	if userID == 0 {
		return fmt.Errorf("--user must be positive")
	}
	tok, err := utils.NewAccessToken(secret, userID, model.Role(role), ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(out, tok.Token)
	return nil
}
