package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/housecup/backend/internal/auth"
)

// tokenCommand mints a bearer token for local testing and operator scripts
func tokenCommand() *cobra.Command {
	var (
		userID  int
		role    string
		houseID int
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			id := auth.Identity{UserID: userID, Role: auth.Role(role)}
			if id.UserID <= 0 {
				return errors.New("--user must be a positive id")
			}
			if !id.Role.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if houseID > 0 {
				id.HouseID = &houseID
			}

			token, err := auth.NewVerifier(cfg.JWTSecret).Issue(id, ttl)
			if err != nil {
				return fmt.Errorf("error signing token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().IntVar(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleStudent), "admin or student")
	cmd.Flags().IntVar(&houseID, "house", 0, "house id, omitted when zero")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
