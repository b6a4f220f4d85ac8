package tiler

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/kiesman99/pyramid/pkg/tile"
)

// NewLogger creates a logrus logger writing to out. format is "text" or "json".
func NewLogger(level, format string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	switch format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)
	return logger, nil
}

// LogObserver reports build events through logger.
func LogObserver(logger logrus.FieldLogger) tile.Observer {
	return func(e tile.Event) {
		switch e.Kind {
		case tile.EventBuildStarted:
			logger.WithFields(logrus.Fields{
				"source":         dims(e.Source.X, e.Source.Y),
				"requested_zoom": e.Zoom,
			}).Info("Building tile pyramid")
		case tile.EventLevelSkipped:
			logger.WithFields(logrus.Fields{
				"zoom":   e.Zoom,
				"source": dims(e.Source.X, e.Source.Y),
				"canvas": dims(e.CanvasSize, e.CanvasSize),
				"ratio":  fmt.Sprintf("%.3f", e.Ratio),
			}).Info("Source image cannot be stretched to this level, skipping")
		case tile.EventLevelStarted:
			logger.WithFields(logrus.Fields{
				"zoom":   e.Zoom,
				"canvas": dims(e.CanvasSize, e.CanvasSize),
			}).Info("Scaling image to zoom level")
		case tile.EventTileWritten:
			logger.WithFields(logrus.Fields{
				"zoom": e.Tile.Z,
				"x":    e.Tile.X,
				"y":    e.Tile.Y,
			}).Debug("Tile written")
		case tile.EventLevelCompleted:
			logger.WithFields(logrus.Fields{
				"zoom":    e.Zoom,
				"tiles":   humanize.Comma(int64(e.Tiles)),
				"elapsed": e.Elapsed.Round(time.Millisecond).String(),
			}).Info("Zoom level complete")
		case tile.EventBuildCompleted:
			logger.WithFields(logrus.Fields{
				"max_zoom": e.Zoom,
				"tiles":    humanize.Comma(int64(e.Tiles)),
				"elapsed":  e.Elapsed.Round(time.Millisecond).String(),
			}).Info("Tile pyramid complete")
		}
	}
}

func dims(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}
