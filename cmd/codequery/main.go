// Command codequery indexes a source tree into a vector store and answers
// natural-language questions about the code.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/codequery-ai/codequery/internal/chunker"
	"github.com/codequery-ai/codequery/internal/config"
	"github.com/codequery-ai/codequery/internal/discovery"
	"github.com/codequery-ai/codequery/internal/embedder"
	"github.com/codequery-ai/codequery/internal/indexer"
	"github.com/codequery-ai/codequery/internal/query"
	"github.com/codequery-ai/codequery/internal/server"
	"github.com/codequery-ai/codequery/internal/vector"
)

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "codequery",
		Short: "Semantic code search and question answering",
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging(verbose)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newIndexCmd(), newQueryCmd(), newServeCmd(), newConfigCmd(), newBugCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func newIndexCmd() *cobra.Command {
	var watch bool
	var excludes []string

	cmd := &cobra.Command{
		Use:   "index [paths...]",
		Short: "Index source trees into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			roots := args
			if len(roots) == 0 {
				roots = cfg.Paths.IndexRoot
			}

			ix, err := buildIndexer(cfg, excludes)
			if err != nil {
				return err
			}

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("indexing"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			ix.OnProgress = func(done, total int) {
				bar.ChangeMax(total)
				_ = bar.Set(done)
			}

			ctx := cmd.Context()
			if watch {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				_, err = ix.Watch(ctx, roots)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			stats, err := ix.Index(ctx, roots)
			if err != nil {
				return err
			}
			_ = bar.Finish()

			fmt.Printf("Indexed %d/%d files (%d chunks, %d failed)\n",
				stats.IndexedFiles, stats.TotalFiles, stats.TotalChunks, stats.FailedFiles)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep watching for file changes after the initial pass")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "glob patterns to exclude (doublestar syntax)")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var topK int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a question about the indexed code",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			engine, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			question := strings.Join(args, " ")

			if asJSON {
				resp, err := engine.Query(cmd.Context(), question, topK, false)
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			engine.OnDelta = func(text string) { fmt.Print(text) }
			resp, err := engine.Query(cmd.Context(), question, topK, true)
			if err != nil {
				return err
			}
			fmt.Println()

			if len(resp.References) > 0 {
				fmt.Println("\nReferences:")
				for _, ref := range resp.References {
					fmt.Printf("  %s:%d-%d (score %.3f)\n", ref.FilePath, ref.LineStart, ref.LineEnd, ref.RelevanceScore)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 5, "number of code chunks to retrieve")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	return cmd
}

func newServeCmd() *cobra.Command {
	var port int
	var token string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP and MCP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			engine, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			srv := server.New(cfg, engine, token)

			// Index the configured roots up front so status reports are
			// meaningful from the first request.
			ix, err := buildIndexer(cfg, nil)
			if err != nil {
				return err
			}
			stats, err := ix.Index(cmd.Context(), cfg.Paths.IndexRoot)
			if err != nil {
				return err
			}
			srv.SetStats(*stats)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port (MCP serves on port+1)")
	cmd.Flags().StringVar(&token, "token", "", "bearer token required on the HTTP API")
	return cmd
}

func newConfigCmd() *cobra.Command {
	var sets []string
	var print bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the configuration",
		RunE: func(_ *cobra.Command, _ []string) error {
			manager, err := config.NewManager()
			if err != nil {
				return err
			}

			for _, kv := range sets {
				key, value, found := strings.Cut(kv, "=")
				if !found {
					return fmt.Errorf("--set expects key=value, got %q", kv)
				}
				if err := manager.Set(key, value); err != nil {
					return err
				}
				fmt.Printf("set %s\n", key)
			}

			if print || len(sets) == 0 {
				cfg, err := manager.Load()
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return err
				}
				fmt.Printf("# %s\n%s\n", manager.Path(), out)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "set a configuration key (key=value, repeatable)")
	cmd.Flags().BoolVar(&print, "print", false, "print the resolved configuration")
	return cmd
}

func newBugCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "bug",
		Short: "File a bug report",
		RunE: func(*cobra.Command, []string) error {
			fmt.Println("Bug reporting is not implemented yet.")
			if description != "" {
				fmt.Printf("Please include this description when filing manually: %s\n", description)
			}
			fmt.Println("Open an issue at https://github.com/codequery-ai/codequery/issues")
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "short description of the problem")
	return cmd
}

func loadConfig() (*config.Config, error) {
	manager, err := config.NewManager()
	if err != nil {
		return nil, err
	}
	return manager.Load()
}

// buildProvider layers the embedding cache over the configured provider.
// A cache that cannot be opened is logged and skipped, never fatal.
func buildProvider(cfg *config.Config) (embedder.Provider, error) {
	provider, err := embedder.New(cfg)
	if err != nil {
		return nil, err
	}

	var disk *embedder.DiskCache
	if dir, err := config.DataDir(); err == nil {
		disk, err = embedder.OpenDiskCache(filepath.Join(dir, "embeddings.db"))
		if err != nil {
			log.Warn().Err(err).Msg("embedding cache unavailable, continuing without it")
			disk = nil
		}
	}

	return embedder.NewCached(provider, disk), nil
}

func buildEngine(cfg *config.Config) (*query.Engine, error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}
	store, err := vector.New(cfg)
	if err != nil {
		return nil, err
	}
	return query.NewEngine(provider, store, query.NewLLMClient(cfg)), nil
}

func buildIndexer(cfg *config.Config, excludes []string) (*indexer.Indexer, error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}
	store, err := vector.New(cfg)
	if err != nil {
		return nil, err
	}

	walker := discovery.NewWalker()
	if len(excludes) > 0 {
		walker = walker.WithExcludeGlobs(excludes)
	}

	return indexer.New(walker, chunker.New(), provider, store, cfg.Embedding.BatchSize), nil
}
