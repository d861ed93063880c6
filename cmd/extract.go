package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/arie/internal/logger"
	"github.com/spigell/arie/internal/pipeline"
	"github.com/spigell/arie/internal/resume"
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE...",
	Short: "Extract profiles from PDF resumes and print them as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd, args)
	},
}

func init() {
	extractCmd.Flags().IntP("workers", "w", 1, "number of documents processed in parallel")
	extractCmd.Flags().StringP("output", "o", "", "directory for <name>.json results (default is stdout)")
	askKeyFlag(extractCmd)

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, files []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	workers, _ := cmd.Flags().GetInt("workers")
	output, _ := cmd.Flags().GetString("output")

	workers = min(max(workers, 1), len(files))

	w := &resultWriter{dir: output}
	if output != "" {
		names, err := outputPaths(output, files)
		if err != nil {
			return err
		}
		w.names = names
	}

	boot := prepare(ctx, cmd, workers)
	defer boot.close()
	lg := boot.logger

	if output != "" {
		if err := os.MkdirAll(output, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	paths := make(chan string)

	var (
		mu     sync.Mutex
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(paths)
		for _, f := range files {
			select {
			case paths <- f:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for path := range paths {
				docLog := lg.With(zap.String(logger.FieldDocument, path))

				profile, err := extractFile(gctx, boot.service, path)
				if err == nil {
					err = w.write(path, profile)
				}
				if err != nil {
					docLog.Error("document failed", zap.Error(err), zap.Stringer("kind", pipeline.KindOf(err)))
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				docLog.Info("document extracted", zap.Int("skills", len(profile.Skills)), zap.Int("links", len(profile.Links)))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	lg.Info("extraction finished", zap.Int("documents", len(files)), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(files))
	}
	return nil
}

func extractFile(ctx context.Context, svc *pipeline.Service, path string) (*resume.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return svc.Extract(ctx, data)
}

// resultWriter prints profiles to stdout or stores them as files in dir.
type resultWriter struct {
	dir   string
	names map[string]string
	mu    sync.Mutex
}

func (w *resultWriter) write(source string, profile *resume.Profile) error {
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}

	if w.dir == "" {
		w.mu.Lock()
		defer w.mu.Unlock()
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}

	return os.WriteFile(w.names[source], append(data, '\n'), 0o644)
}

// outputPaths maps every input to <dir>/<name>.json. Inputs that would
// share a result file are rejected before any work starts.
func outputPaths(dir string, files []string) (map[string]string, error) {
	names := make(map[string]string, len(files))
	owners := make(map[string]string, len(files))

	for _, source := range files {
		base := filepath.Base(source)
		out := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".json")

		if prev, ok := owners[out]; ok {
			return nil, fmt.Errorf("%s and %s would both be written to %s", prev, source, out)
		}
		owners[out] = source
		names[source] = out
	}

	return names, nil
}
