package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/smithygen/compiler/gen"
	"github.com/syssam/smithygen/compiler/gen/rust"
	"github.com/syssam/smithygen/compiler/load"
)

const debouncePeriod = 300 * time.Millisecond

// modelFlags are shared by the commands that load a model.
type modelFlags struct {
	model    string
	settings string
	flavor   string
	services []string
	workers  int
	verify   bool
}

func (f *modelFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.model, "model", "m", "", "Path to the model (JSON AST, YAML or msgpack)")
	flags.StringVarP(&f.settings, "settings", "s", "", "Path to a settings file")
	flags.StringVarP(&f.flavor, "flavor", "f", "client", "Crate flavor: client, server or sdk")
	flags.StringSliceVar(&f.services, "service", nil, "Service shape ids to generate (default: all)")
	flags.IntVar(&f.workers, "workers", 0, "Parallel resolution workers (default: GOMAXPROCS)")
	flags.BoolVar(&f.verify, "verify", false, "Resolve twice and fail on non-deterministic symbols")
	_ = cmd.MarkFlagRequired("model")
}

// options builds config options: settings file first, then explicit flags.
func (f *modelFlags) options(cmd *cobra.Command) ([]gen.Option, error) {
	opts := []gen.Option{gen.WithDialect(rust.New()), gen.WithLogger(zap.L())}
	if f.settings != "" {
		s, err := gen.LoadSettings(f.settings)
		if err != nil {
			return nil, err
		}
		sopts, err := s.Options()
		if err != nil {
			return nil, err
		}
		opts = append(opts, sopts...)
	}
	if cmd.Flags().Changed("flavor") || f.settings == "" {
		flavor, err := gen.ParseFlavor(f.flavor)
		if err != nil {
			return nil, err
		}
		opts = append(opts, gen.WithFlavor(flavor))
	}
	for _, s := range f.services {
		opts = append(opts, gen.WithService(load.ShapeID(s)))
	}
	if f.workers > 0 {
		opts = append(opts, gen.WithWorkers(f.workers))
	}
	if f.verify {
		opts = append(opts, gen.WithFeatures(gen.FeatureVerifyDeterminism))
	}
	return opts, nil
}

var generateCfg struct {
	modelFlags
	out      string
	snapshot string
	watch    bool
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a crate from a model",
		RunE:  runGenerate,
	}
	generateCfg.register(cmd)
	flags := cmd.Flags()
	flags.StringVarP(&generateCfg.out, "out", "o", ".", "Output directory of the crate")
	flags.StringVar(&generateCfg.snapshot, "snapshot", "", "Write the symbol table as Go source to this path")
	flags.BoolVarP(&generateCfg.watch, "watch", "w", false, "Regenerate when the model or settings change")
	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := generateOnce(ctx, cmd); err != nil {
		if !generateCfg.watch {
			return err
		}
		zap.L().Error("generation failed", zap.Error(err))
	}
	if !generateCfg.watch {
		return nil
	}
	paths := []string{generateCfg.model}
	if generateCfg.settings != "" {
		paths = append(paths, generateCfg.settings)
	}
	return watch(ctx, paths, func() error { return generateOnce(ctx, cmd) })
}

func generateOnce(ctx context.Context, cmd *cobra.Command) error {
	opts, err := generateCfg.options(cmd)
	if err != nil {
		return err
	}
	opts = append(opts, gen.WithTarget(generateCfg.out))
	if generateCfg.snapshot != "" {
		opts = append(opts, gen.WithSnapshot(generateCfg.snapshot))
	}
	start := time.Now()
	g, err := load.Load(generateCfg.model)
	if err != nil {
		return err
	}
	generator, err := rust.GenerateGraph(ctx, g, opts...)
	if err != nil {
		return err
	}
	stats := generator.Stats()
	zap.L().Info("generated",
		zap.String("model", generateCfg.model),
		zap.String("out", generateCfg.out),
		zap.Int64("symbols", stats.Resolved),
		zap.Int64("emissions", stats.Emitted),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// watch calls fn after each change to one of paths until ctx is done.
// Rapid successive events are collapsed into one call.
func watch(ctx context.Context, paths []string, fn func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch directories so editors that replace files are still seen.
	watched := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = struct{}{}
		if err := w.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}
	log := zap.L().With(zap.Strings("paths", paths))
	log.Info("watching for changes")

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if _, ok := watched[ev.Name]; !ok {
				if abs, err := filepath.Abs(ev.Name); err != nil || !contains(watched, abs) {
					continue
				}
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			log.Debug("change detected", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debouncePeriod, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			if err := fn(); err != nil {
				log.Error("generation failed", zap.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))
		}
	}
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
