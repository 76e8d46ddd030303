package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/gorilla/mux"
	"github.com/kelseyhightower/envconfig"
	"github.com/lmittmann/tint"
	"github.com/molpadia/molpaupload/internal/app"
	"github.com/molpadia/molpaupload/internal/infrastructure/persistence"
)

type settings struct {
	Addr        string `default:":4443"`
	PublicURL   string `split_words:"true"`
	CertFile    string `split_words:"true"`
	CertKey     string `split_words:"true"`
	Bucket      string `default:"molpaupload-media"`
	Table       string `default:"molpaupload-uploads"`
	MinPartSize int64  `split_words:"true" default:"5242880"`
}

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.DateTime}))
	slog.SetDefault(logger)

	var s settings
	if err := envconfig.Process("molpaupload_server", &s); err != nil {
		slog.Error("failed to load settings", "error", err)
		os.Exit(1)
	}
	flag.StringVar(&s.Addr, "addr", s.Addr, "web server address")
	flag.StringVar(&s.PublicURL, "public-url", s.PublicURL, "base URL of the upload links handed to clients")
	flag.StringVar(&s.CertFile, "cert", s.CertFile, "path of TLS certificate file")
	flag.StringVar(&s.CertKey, "key", s.CertKey, "path of TLS private key file")
	flag.Int64Var(&s.MinPartSize, "min-part-size", s.MinPartSize, "smallest accepted chunk except the last one, 0 accepts any size")
	flag.Parse()
	if s.MinPartSize > 0 && s.MinPartSize < app.DefaultMinPartSize {
		slog.Warn("chunks below the S3 minimum part size will fail on completion", "min_part_size", s.MinPartSize)
	}

	sess, err := session.NewSessionWithOptions(session.Options{SharedConfigState: session.SharedConfigEnable})
	if err != nil {
		slog.Error("failed to create AWS session", "error", err)
		os.Exit(1)
	}

	r := mux.NewRouter()
	app.SetupRoutes(r,
		persistence.NewUploadRepository(sess, s.Table),
		persistence.NewStorage(sess, s.Bucket),
		app.Options{PublicURL: s.PublicURL, MinPartSize: s.MinPartSize},
	)

	srv := &http.Server{
		Handler:      r,
		Addr:         s.Addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down server", "error", err)
		}
	}()

	slog.Info("the server started", "addr", s.Addr, "bucket", s.Bucket, "table", s.Table)
	if s.CertFile != "" && s.CertKey != "" {
		err = srv.ListenAndServeTLS(s.CertFile, s.CertKey)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
