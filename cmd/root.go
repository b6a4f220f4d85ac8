package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/pyramid/internal/tiler"
	"github.com/kiesman99/pyramid/pkg/tile"
)

// Version is reported by the server health endpoint.
const Version = "1.0.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pyramid <source-image>",
	Short: "Cut an image into a slippy-map tile pyramid",
	Long: `pyramid scales a source image onto square canvases of 256*2^z pixels for every
zoom level z up to --zoom and cuts each canvas into 2^z x 2^z tiles.

Tiles are written to <destination>/{z}/{x}/{y}.png. Zoom levels that would need
the source magnified more than 2x are skipped.

Examples:
  # Five zoom levels into ./tiles
  pyramid photo.jpg --zoom 5 -d ./tiles

  # 512px tiles on a white background, written as JPEG
  pyramid scan.tif -z 4 -t 512 --background "#ffffff" -f jpeg -d ./tiles

  # Pack the pyramid into tiles/tiles.tar.zst instead of a directory tree
  pyramid photo.jpg -z 6 -d ./tiles --store archive

  # Serve a generated pyramid
  pyramid serve --dir ./tiles --port 8080`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && viper.GetString("source") == "" {
			return cmd.Help()
		}
		return runTile(cmd, args)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pyramid.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text|json)")

	// Output options
	rootCmd.Flags().StringP("destination", "d", ".", "existing directory the pyramid is written to")
	rootCmd.Flags().StringP("format", "f", "png", "tile format (png|jpeg)")
	rootCmd.Flags().Int("quality", tile.DefaultJPEGQuality, "JPEG quality")
	rootCmd.Flags().String("store", "dir", "tile store (dir|archive|bolt)")
	rootCmd.Flags().Bool("manifest", true, "write pyramid.json next to the tiles")

	// Pyramid options
	rootCmd.Flags().IntP("zoom", "z", 0, "highest zoom level to render")
	rootCmd.Flags().IntP("tilesize", "t", tile.DefaultTileSize, "tile size in pixels")
	rootCmd.Flags().String("background", "transparent", "canvas fill (transparent|auto|#rrggbb|#rrggbbaa)")
	rootCmd.Flags().String("resample", string(tile.ResampleLanczos), "resampling filter (lanczos|catmullrom|linear|box|nearest)")
	rootCmd.Flags().IntP("workers", "w", runtime.NumCPU(), "tiles written concurrently")

	// Bind flags to viper for root command
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("destination", rootCmd.Flags().Lookup("destination"))
	viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	viper.BindPFlag("quality", rootCmd.Flags().Lookup("quality"))
	viper.BindPFlag("store", rootCmd.Flags().Lookup("store"))
	viper.BindPFlag("manifest", rootCmd.Flags().Lookup("manifest"))
	viper.BindPFlag("zoom", rootCmd.Flags().Lookup("zoom"))
	viper.BindPFlag("tilesize", rootCmd.Flags().Lookup("tilesize"))
	viper.BindPFlag("background", rootCmd.Flags().Lookup("background"))
	viper.BindPFlag("resample", rootCmd.Flags().Lookup("resample"))
	viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".pyramid" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pyramid")
	}

	viper.SetEnvPrefix("pyramid")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the logger selected by --log-level and --log-format.
func newLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	return tiler.NewLogger(viper.GetString("log-level"), viper.GetString("log-format"), cmd.ErrOrStderr())
}

// paramsFromViper collects the tiling settings from flags, config and environment.
func paramsFromViper(args []string) tiler.Params {
	source := viper.GetString("source")
	if len(args) > 0 {
		source = args[0]
	}
	return tiler.Params{
		Source:      source,
		Destination: viper.GetString("destination"),
		Zoom:        viper.GetInt("zoom"),
		TileSize:    viper.GetInt("tilesize"),
		Background:  viper.GetString("background"),
		Format:      viper.GetString("format"),
		Quality:     viper.GetInt("quality"),
		Resample:    viper.GetString("resample"),
		Workers:     viper.GetInt("workers"),
		Store:       viper.GetString("store"),
		Manifest:    viper.GetBool("manifest"),
	}
}

func runTile(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	// Validate everything before touching the destination
	cfg, err := tiler.NewConfig(paramsFromViper(args))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := tiler.New(cfg, logger).Run(ctx)
	if err != nil {
		return fmt.Errorf("tiling %s failed: %w", cfg.Source, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d tiles for zoom levels %v to %s\n", res.Tiles, res.Levels, cfg.Destination)
	return nil
}
