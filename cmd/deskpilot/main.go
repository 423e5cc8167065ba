package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deskpilot/deskpilot/internal/profile"
	"github.com/deskpilot/deskpilot/server"
	"github.com/deskpilot/deskpilot/server/kb"
	"github.com/deskpilot/deskpilot/server/support"
	"github.com/deskpilot/deskpilot/store"
	"github.com/deskpilot/deskpilot/store/db"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "deskpilot",
		Short: "Customer support assistant backed by a retrieval pipeline",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file; DESKPILOT_* env vars override")

	rootCmd.AddCommand(newServeCmd(), newIngestCmd(), newAskCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads the profile, opens the database and assembles the
// server. Callers own the returned server's shutdown.
func bootstrap(ctx context.Context) (*server.Server, error) {
	p, err := profile.New(configFile)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(newLogger(p))

	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	st := store.New(driver, p)
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	s, err := server.NewServer(ctx, p, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return s, nil
}

func newLogger(p *profile.Profile) *slog.Logger {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := bootstrap(ctx)
			if err != nil {
				return err
			}

			go func() {
				<-ctx.Done()
				s.Shutdown(context.Background())
			}()
			return s.Start(ctx)
		},
	}
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Load, chunk and embed every document in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer s.Shutdown(context.Background())

			docs, err := kb.LoadDirectory(args[0])
			if err != nil {
				return err
			}
			report, err := s.Ingestor.IngestAll(ctx, docs)
			if err != nil {
				return err
			}
			fmt.Printf("ingested %d documents (%d chunks)\n", report.Documents, report.Chunks)
			if len(report.Failed) > 0 {
				fmt.Printf("failed: %s\n", strings.Join(report.Failed, ", "))
			}
			return nil
		},
	}
}

func newAskCmd() *cobra.Command {
	var conversationID string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Run a single question through the support pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer s.Shutdown(context.Background())

			resp, err := s.Pipeline.HandleTurn(ctx, support.Query{
				Text:           strings.Join(args, " "),
				ConversationID: conversationID,
			})
			if err != nil {
				return err
			}

			fmt.Println(resp.Text)
			fmt.Printf("\n[category=%s tier=%s confidence=%.2f", resp.Category, resp.Tier, resp.Confidence)
			if resp.Escalated {
				fmt.Print(" escalated")
			}
			if resp.Degraded {
				fmt.Print(" degraded")
			}
			fmt.Println("]")
			for _, src := range resp.Sources {
				fmt.Printf("  source: %s\n", src)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "cli", "conversation id for multi-turn context")
	return cmd
}
