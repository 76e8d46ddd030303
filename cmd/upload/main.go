package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/lmittmann/tint"
	"github.com/molpadia/molpaupload/uploads"
)

var (
	kind    = flag.String("kind", "file", "media kind: image, video, file or audio")
	file    = flag.String("file", "", `path of the file to upload, "-" reads stdin`)
	timeout = flag.Duration("timeout", 0, "deadline of the upload, the configured timeout when zero")
	verbose = flag.Bool("v", false, "log chunk progress")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))

	if err := run(logger); err != nil {
		logger.Error("upload failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	mediaKind, err := uploads.ParseMediaKind(*kind)
	if err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file must be required")
	}
	cfg, err := uploads.LoadConfig()
	if err != nil {
		return err
	}

	var src uploads.FileSource
	if *file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("cannot read stdin: %w", err)
		}
		src = uploads.Buffer(data)
	} else {
		src = uploads.Path(*file)
	}
	f, err := uploads.Normalize(src)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var opts []uploads.CallOption
	if *timeout > 0 {
		opts = append(opts, uploads.WithTimeout(*timeout))
	}
	u := uploads.New(cfg, uploads.WithLogger(logger))
	res, err := u.Upload(ctx, mediaKind, f, opts...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
