package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/learnlab-assistant/internal/app"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "learnlab-assistant",
		Short:         "LearnLab support assistant backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and the session expiry worker",
			RunE:  runServe,
		},
		newSessionsCmd(),
	)
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	a.Start()

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("Server listening", "port", a.Cfg.Port)
		errCh <- a.Run(":" + a.Cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.Log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func newSessionsCmd() *cobra.Command {
	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and maintain chatbot sessions",
	}

	var user string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's most recent active sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.Services.Store.ListRecent(ctx, user, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			})
		},
	}
	list.Flags().StringVar(&user, "user", "", "user id")
	list.Flags().IntVar(&limit, "limit", 5, "maximum sessions to show")

	end := &cobra.Command{
		Use:   "end TOKEN",
		Short: "Deactivate a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				sess, err := a.Services.Store.End(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, sess)
			})
		},
	}

	var days int
	expire := &cobra.Command{
		Use:   "expire",
		Short: "Deactivate sessions idle for more than --days",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 {
				return errors.New("--days must be at least 1")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Services.Store.ExpireOlderThan(ctx, time.Duration(days)*24*time.Hour)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"deactivated": n, "days": days})
			})
		},
	}
	expire.Flags().IntVar(&days, "days", 30, "idle age in days")

	sessions.AddCommand(list, end, expire)
	return sessions
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
