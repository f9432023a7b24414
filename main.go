package main

import (
	"bitwise74/capture-api/app"
	"bitwise74/capture-api/config"
	"bitwise74/capture-api/db"
	"bitwise74/capture-api/internal"
	"bitwise74/capture-api/internal/service"
	"bitwise74/capture-api/internal/storage"
	"bitwise74/capture-api/pkg/security"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var configPath = pflag.StringP("config", "c", "", "Path to the TOML config file (default ./config.toml)")

func main() {
	pflag.Parse()
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup(*configPath)
	if errors.Is(err, config.ErrNoSecret) {
		fmt.Println("WARNING: You haven't set a JWT secret. Please set it as the JWT_SECRET environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + config.GenSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(1)
	}
	if err != nil {
		panic(err)
	}

	if err := app.MakeLogger(viper.GetString("app.log_level")); err != nil {
		panic(err)
	}
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		zap.L().Fatal("Server stopped", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	conn, err := db.New(viper.GetString("db.driver"), viper.GetString("db.dsn"))
	if err != nil {
		return err
	}
	defer db.Close(conn)

	blobs, err := newStore(ctx)
	if err != nil {
		return err
	}

	d := &internal.Deps{
		DB: conn,
		Argon: security.NewArgon(
			viper.GetUint32("security.argon.memory"),
			viper.GetUint32("security.argon.iterations"),
			uint8(viper.GetUint("security.argon.parallelism")),
		),
		Tokens:        security.NewTokenCodec([]byte(viper.GetString("jwt.secret")), viper.GetDuration("jwt.ttl")),
		Blobs:         blobs,
		Analyzer:      service.NewAnalyzer(conn, blobs),
		AllowedTypes:  viper.GetStringSlice("upload.allowed_types"),
		MaxUploadSize: config.MaxUploadBytes(),
		SecureCookies: viper.GetBool("host.ssl.enabled"),
		EnableSeed:    !config.IsProduction(),
	}

	router, err := app.NewRouter(d, viper.GetStringSlice("host.cors"))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", viper.GetInt("host.port")),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("Server starting", zap.String("addr", srv.Addr), zap.String("env", viper.GetString("app.env")))

		var err error
		if viper.GetBool("host.ssl.enabled") {
			err = srv.ListenAndServeTLS(viper.GetString("host.ssl.certificate_path"), viper.GetString("host.ssl.certificate_key_path"))
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func newStore(ctx context.Context) (storage.Store, error) {
	switch viper.GetString("storage.type") {
	case "s3":
		s, err := storage.NewS3(ctx, storage.S3Options{
			Region:          viper.GetString("aws.region"),
			Bucket:          viper.GetString("aws.bucket"),
			AccessKey:       viper.GetString("aws.access_key"),
			SecretAccessKey: viper.GetString("aws.secret_access_key"),
			Endpoint:        viper.GetString("aws.endpoint"),
			PublicURL:       viper.GetString("aws.public_url"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}
		return s, nil
	default:
		return storage.NewLocal(viper.GetString("storage.local_dir"))
	}
}
