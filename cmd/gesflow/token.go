package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/auditsink"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/redis"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/sentinel"
	"github.com/Kabinet98/gesflow-manager-sub003/internal/tokenstore"
)

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint sink tokens and manage the stored auth token",
	}
	cmd.AddCommand(
		newTokenMintCmd(a),
		newTokenSetCmd(a),
		newTokenGetCmd(a),
		newTokenDeleteCmd(a),
	)
	return cmd
}

func newTokenMintCmd(a *app) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
		store   bool
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a bearer token accepted by the development sink",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := auditsink.NewTokenService(a.cfg.Sink.JWTSigningKey, a.cfg.Sink.Issuer)
			if err != nil {
				return err
			}
			token, err := svc.Mint(subject, a.cfg.Source, ttl)
			if err != nil {
				return err
			}
			if store {
				if err := a.withTokenStore(cmd.Context(), func(s *tokenstore.Fallback) error {
					return s.Set(cmd.Context(), tokenstore.AuthTokenKey, token)
				}); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "dev-user", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().BoolVar(&store, "store", false, "Also save the token as the auth token")
	return cmd
}

func newTokenSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <token>",
		Short: "Store the auth token used by audit posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTokenStore(cmd.Context(), func(s *tokenstore.Fallback) error {
				return s.Set(cmd.Context(), tokenstore.AuthTokenKey, args[0])
			})
		},
	}
}

func newTokenGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the stored auth token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withTokenStore(cmd.Context(), func(s *tokenstore.Fallback) error {
				token, err := s.Get(cmd.Context(), tokenstore.AuthTokenKey)
				if errors.Is(err, sentinel.ErrNotFound) {
					return fmt.Errorf("no auth token stored")
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
}

func newTokenDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored auth token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withTokenStore(cmd.Context(), func(s *tokenstore.Fallback) error {
				return s.Delete(cmd.Context(), tokenstore.AuthTokenKey)
			})
		},
	}
}

// withTokenStore opens the tiered token store for the duration of fn.
func (a *app) withTokenStore(ctx context.Context, fn func(*tokenstore.Fallback) error) error {
	client, err := redis.New(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Close()
	}

	if client == nil && a.cfg.TokenStore.SecureFile == "" {
		a.logger.Warn("no secure file or redis configured; the token will not outlive this process")
	}

	store, err := tokenstore.FromConfig(a.cfg, client, a.logger)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	return fn(store)
}
