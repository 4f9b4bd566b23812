// Command spriteplay keys, plays and exports chroma-keyed sprite sheets.
//
// Usage:
//
//	spriteplay [-config file] [-v] <command> [flags]
//
// Commands:
//
//	play      play a sheet in the terminal
//	serve     serve the player over HTTP
//	export    write one row as an animated GIF or PNG frames
//	generate  generate a sheet with the configured image provider
//	inspect   check a sheet against the grid and key color
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/gogpu/sprite"
	spriteimage "github.com/gogpu/sprite/internal/image"
	"github.com/gogpu/sprite/internal/server"
	"github.com/gogpu/sprite/internal/settings"
	"github.com/gogpu/sprite/internal/termview"
	"github.com/gogpu/sprite/provider"
)

func main() {
	var (
		config  = flag.String("config", defaultConfigPath(), "settings file")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Usage = usage
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	sprite.SetLogger(logger)

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := settings.Open(*config)
	if err != nil {
		logger.Error("settings", "path", *config, "err", err)
		os.Exit(1)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "play":
		err = runPlay(ctx, store, args)
	case "serve":
		err = runServe(ctx, store, logger, args)
	case "export":
		err = runExport(ctx, store, args)
	case "generate":
		err = runGenerate(ctx, store, logger, args)
	case "inspect":
		err = runInspect(store, args)
	default:
		fmt.Fprintf(os.Stderr, "spriteplay: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error(cmd, "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: spriteplay [-config file] [-v] <command> [flags]

commands:
  play      play a sheet in the terminal
  serve     serve the player over HTTP
  export    write one row as an animated GIF or PNG frames
  generate  generate a sheet with the configured image provider
  inspect   check a sheet against the grid and key color

global flags:
`)
	flag.PrintDefaults()
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "spriteplay.yaml"
	}
	return filepath.Join(dir, "spriteplay", "settings.yaml")
}

// sheetFlags are shared by commands that load a sheet.
type sheetFlags struct {
	row       string
	threshold float64
}

func (f *sheetFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.row, "row", "", "animation row name or index (default from settings)")
	fs.Float64Var(&f.threshold, "threshold", 0, "chroma key threshold (default from settings)")
}

func (f *sheetFlags) apply(s *settings.Settings) {
	if f.row != "" {
		s.Row = f.row
	}
	if f.threshold > 0 {
		s.Threshold = f.threshold
	}
	*s = s.Clamp()
}

// loadPlayer creates a Player configured by s and waits for path to be
// keyed.
func loadPlayer(ctx context.Context, s settings.Settings, path string, opts ...sprite.Option) (*sprite.Player, error) {
	p := sprite.NewPlayer(append(s.PlayerOptions(), opts...)...)
	p.SetAnimation(s.AnimationRow())
	if _, err := p.SetSourceFile(path); err != nil {
		p.Close()
		return nil, err
	}
	if state, err := p.Wait(ctx); state != sprite.StateSuccess {
		p.Close()
		if err == nil {
			err = ctx.Err()
		}
		return nil, err
	}
	return p, nil
}

func runPlay(ctx context.Context, store *settings.Store, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	var sf sheetFlags
	sf.register(fs)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("play: expected one sheet path")
	}

	s := store.Get()
	sf.apply(&s)
	p, err := loadPlayer(ctx, s, fs.Arg(0), sprite.WithRenderParams(sprite.RenderParams{
		FPS:        s.FPS,
		Inset:      s.Padding,
		Scale:      s.Scale,
		OutputSize: 128,
	}))
	if err != nil {
		return err
	}
	defer p.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	defer screen.Fini()

	view := termview.New(screen, p, termview.WithBackground(s.BackgroundMode()))
	if err := view.Run(ctx); err != nil {
		return err
	}

	rp := p.RenderParams()
	_, err = store.Update(func(cur *settings.Settings) {
		cur.Row = sprite.AnimationRow(p.Row()).String()
		cur.FPS = rp.FPS
		cur.Padding = rp.Inset
		cur.Scale = rp.Scale
		cur.Background = view.Background().String()
	})
	return err
}

func runServe(ctx context.Context, store *settings.Store, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "localhost:8080", "listen address")
	_ = fs.Parse(args)

	s := store.Get()
	p := sprite.NewPlayer(s.PlayerOptions()...)
	defer p.Close()
	p.SetAnimation(s.AnimationRow())

	if fs.NArg() > 0 {
		if _, err := p.SetSourceFile(fs.Arg(0)); err != nil {
			return err
		}
	}

	opts := []server.Option{server.WithStore(store), server.WithLogger(logger)}
	if prov, err := provider.New(s.ProviderConfig()); err == nil {
		opts = append(opts, server.WithProvider(prov))
	} else {
		logger.Warn("serve: generation disabled", "err", err)
	}

	if err := p.Start(ctx); err != nil {
		return err
	}
	return server.New(p, opts...).ListenAndServe(ctx, *addr)
}

func runExport(ctx context.Context, store *settings.Store, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var sf sheetFlags
	sf.register(fs)
	out := fs.String("o", "sprite.gif", "output GIF file, or directory with -frames")
	frames := fs.Bool("frames", false, "write numbered PNG frames instead of a GIF")
	loops := fs.Int("loops", 1, "times the row is played")
	bg := fs.String("bg", "", "background: checkerboard, dark, light or none (default from settings)")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("export: expected one sheet path")
	}

	s := store.Get()
	sf.apply(&s)
	if *bg != "" {
		s.Background = *bg
	}
	background, err := sprite.ParseBackground(s.Background)
	if err != nil {
		return err
	}

	p, err := loadPlayer(ctx, s, fs.Arg(0), sprite.WithStatusOverlay(false))
	if err != nil {
		return err
	}
	defer p.Close()

	opts := sprite.ExportOptions{
		Grid:       s.Grid(),
		Row:        int(s.AnimationRow()),
		Params:     s.RenderParams(),
		Background: background,
		Loops:      *loops,
	}
	if *frames {
		paths, err := sprite.ExportFrames(*out, p.Sheet(), opts)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d frames to %s\n", len(paths), *out)
		return nil
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := sprite.ExportGIF(f, p.Sheet(), opts); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}

func runGenerate(ctx context.Context, store *settings.Store, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	out := fs.String("o", "sheet.png", "output file")
	character := fs.String("character", provider.DefaultCharacter, "character description")
	timeout := fs.Duration("timeout", provider.DefaultTimeout, "request timeout")
	_ = fs.Parse(args)

	s := store.Get()
	prov, err := provider.New(s.ProviderConfig())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	start := time.Now()
	logger.Info("generate: requesting sheet", "provider", prov.Name())
	data, err := prov.Generate(ctx, provider.PromptFor(*character, s.Grid()))
	if err != nil {
		return err
	}

	// Round-trip through the Player so data URIs and broken images are
	// caught before anything is written.
	p := sprite.NewPlayer(append(s.PlayerOptions(), sprite.WithStatusOverlay(false))...)
	defer p.Close()
	p.SetSource(data)
	if state, err := p.Wait(ctx); state != sprite.StateSuccess {
		return fmt.Errorf("generate: %w", err)
	}
	if err := spriteimage.SavePNG(*out, p.Sheet().Image); err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	logger.Info("generate: saved", "path", *out, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func runInspect(store *settings.Store, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("inspect: expected at least one sheet path")
	}

	s := store.Get()
	failed := false
	for _, path := range fs.Args() {
		data, err := spriteimage.ReadFile(path)
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		img, _, err := spriteimage.DecodeBytes(data)
		if err != nil {
			return fmt.Errorf("inspect: %s: %w", path, err)
		}
		r := sprite.Inspect(img, s.Grid(), s.Key())
		fmt.Printf("%s: %dx%d, cell %dx%d, dominant %s (%.0f%%, distance %.3f)\n",
			path, r.Size.X, r.Size.Y, r.Cell.X, r.Cell.Y,
			sprite.KeyColorHex(color.NRGBAModel.Convert(r.Dominant).(color.NRGBA)), r.DominantWeight*100, r.KeyDistance)
		for _, w := range r.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		if !r.OK() {
			failed = true
		}
	}
	if failed {
		return errors.New("inspect: warnings found")
	}
	return nil
}
