package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/pyramid/internal/server"
	"github.com/kiesman99/pyramid/internal/sink"
	"github.com/kiesman99/pyramid/internal/tiler"
	"github.com/kiesman99/pyramid/pkg/tile"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for a tile pyramid",
	Long: `Start an HTTP server that serves a generated pyramid and builds new ones on request.

Endpoints (under /api/v1):
  GET  /health               server status
  GET  /manifest             pyramid.json of the served pyramid
  GET  /tiles/{z}/{x}/{y}    one tile (a .png/.jpg suffix is accepted)
  POST /pyramid?zoom=N       body is an image, response is a tar.zst pyramid

Examples:
  # Serve ./tiles on default port 8080
  pyramid serve --dir ./tiles

  # Serve a bbolt store on a custom bind address
  pyramid serve --dir ./tiles --store bolt --bind 0.0.0.0 --port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 60*time.Second, "request timeout")
	serveCmd.Flags().String("dir", "", "pyramid directory to serve (empty serves only POST /pyramid)")
	serveCmd.Flags().String("store", "", "tile store of the served pyramid (dir|bolt, default from manifest)")
	serveCmd.Flags().String("format", "", "tile format of the served pyramid (default from manifest)")
	serveCmd.Flags().Int("cache-size", server.DefaultCacheSize, "number of tiles cached in memory")
	serveCmd.Flags().Int("max-upload-zoom", server.DefaultMaxUploadZoom, "highest zoom accepted by POST /pyramid")
	serveCmd.Flags().Int64("max-upload-pixels", server.DefaultMaxUploadPixels, "largest image or canvas (width*height) accepted by POST /pyramid")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.dir", serveCmd.Flags().Lookup("dir"))
	viper.BindPFlag("server.store", serveCmd.Flags().Lookup("store"))
	viper.BindPFlag("server.format", serveCmd.Flags().Lookup("format"))
	viper.BindPFlag("server.cache-size", serveCmd.Flags().Lookup("cache-size"))
	viper.BindPFlag("server.max-upload-zoom", serveCmd.Flags().Lookup("max-upload-zoom"))
	viper.BindPFlag("server.max-upload-pixels", serveCmd.Flags().Lookup("max-upload-pixels"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")
	addr := fmt.Sprintf("%s:%d", bind, port)

	opts := server.Options{
		CacheSize:       viper.GetInt("server.cache-size"),
		MaxUploadZoom:   viper.GetInt("server.max-upload-zoom"),
		MaxUploadPixels: viper.GetInt64("server.max-upload-pixels"),
		Logger:          logger,
	}

	if dir := viper.GetString("server.dir"); dir != "" {
		dir, err = tiler.ValidateDestination(dir)
		if err != nil {
			return err
		}

		storeName, formatName := viper.GetString("server.store"), viper.GetString("server.format")
		m, err := tiler.ReadManifest(dir)
		switch {
		case err == nil:
			if storeName == "" {
				storeName = m.Store
			}
			if formatName == "" {
				formatName = m.Format
			}
		case !errors.Is(err, fs.ErrNotExist):
			return err
		}

		kind, err := sink.ParseKind(storeName)
		if err != nil {
			return err
		}
		format, err := tile.ParseFormat(formatName)
		if err != nil {
			return err
		}
		store, closer, err := sink.OpenStore(kind, dir, format)
		if err != nil {
			return err
		}
		defer closer.Close()

		opts.Dir = dir
		opts.Store = store
		opts.Format = format
		logger.WithField("dir", dir).WithField("store", kind).Info("Serving tile pyramid")
	}

	apiServer, err := server.NewServer(Version, opts)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.NewRouter(apiServer, timeout),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Server shutdown error")
		}
	}()

	logger.WithField("addr", addr).Info("Starting pyramid server")
	fmt.Fprintf(cmd.ErrOrStderr(), "Health check: http://%s/api/v1/health\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Tiles: http://%s/api/v1/tiles/{z}/{x}/{y}.png\n", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}

	return nil
}
