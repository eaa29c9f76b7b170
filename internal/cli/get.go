package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/querykit/cache"
	"github.com/jonwraymond/querykit/query"
	"github.com/jonwraymond/querykit/transport"
)

func newGetCmd() *cobra.Command {
	var (
		watch bool
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Fetch a resource through the query engine",
		Long: `Fetches a resource with GET and prints each state change as a JSON line.

Without --watch the command exits once the first load settles, with a
non-zero status if it failed. With --watch the subscription stays alive
until interrupted; when visibility.source is "process", SIGUSR1 marks the
process visible and forces a refetch, and SIGUSR2 marks it hidden.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl < 0 {
				return fmt.Errorf("ttl must be >= 0, got %v", ttl)
			}
			return runGet(cmd, args[0], watch, ttl)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep the subscription alive until interrupted")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "cache TTL for this query (0 = config default)")

	return cmd
}

func runGet(cmd *cobra.Command, path string, watch bool, ttl time.Duration) error {
	ctx := cmd.Context()
	if watch {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := newRuntime(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	engine, err := rt.engine(cfg.QueryDefaults())
	if err != nil {
		return err
	}
	defer engine.Close()

	key, err := cache.NewDefaultKeyer().Key(http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	if watch {
		rt.bindVisibility()
	}

	out := newStatePrinter(cmd.OutOrStdout())
	sub, err := engine.Subscribe(ctx, key, transport.Get(rt.client, path), query.Options{
		TTL:           ttl,
		OnStateChange: out.print,
	})
	if err != nil {
		return err
	}

	if !watch {
		select {
		case <-sub.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
		if st := sub.State(); st.IsError {
			return fmt.Errorf("get %s: %w", path, st.Error)
		}
		return nil
	}

	<-ctx.Done()
	return nil
}
