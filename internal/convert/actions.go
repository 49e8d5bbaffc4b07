package convert

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/dtnitsch/lilypads/data"
	"github.com/dtnitsch/lilypads/internal/common"
	convertpkg "github.com/dtnitsch/lilypads/pkg/convert"
	"github.com/dtnitsch/lilypads/pkg/geolocation"
	"github.com/dtnitsch/lilypads/pkg/language"
	"github.com/dtnitsch/lilypads/pkg/manifest"
	"github.com/dtnitsch/lilypads/pkg/stopwords"
	"github.com/dtnitsch/lilypads/pkg/storage"
	"github.com/urfave/cli/v2"
)

// WordcloudFields are the columns a wordcloud may be computed from.
var WordcloudFields = []string{"Text", "translated"}

// Flags are the options of lilypads convert.
var Flags = []cli.Flag{
	&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "write indented JSON"},
	&cli.StringFlag{Name: "wordcloud-field", Aliases: []string{"w"}, Value: "Text", Usage: "column the wordclouds are computed from (Text|translated)"},
	&cli.StringFlag{Name: "geolocations", Usage: "directory of geolocation JSON files", EnvVars: []string{"LILYPADS_GEOLOCATIONS"}},
	&cli.StringFlag{Name: "stopwords", Usage: "directory of stopwords.<iso>.txt files (default: built-in lists)", EnvVars: []string{"LILYPADS_STOPWORDS"}},
	&cli.StringFlag{Name: "language", Usage: "stopword language used for extraction"},
	&cli.BoolFlag{Name: "per-row-language", Usage: "extract each row with the stopwords of its own Language"},
	&cli.BoolFlag{Name: "detect-language", Usage: "detect the Language of rows that have none"},
	&cli.BoolFlag{Name: "strip-markup", Usage: "remove HTML markup from the wordcloud text"},
	&cli.StringSliceFlag{Name: "extra-words", Usage: "words forced into every wordcloud they occur in"},
	&cli.IntFlag{Name: "workers", Usage: "number of extraction workers (default: CPU count)"},
	&cli.StringFlag{Name: "report", Usage: "also save the YAML run report to this file"},
	&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors and do not print the report"},
}

// loadStopwords reads the stopword lists from dir, or the built-in lists
// when dir is empty.
func loadStopwords(dir string) (*stopwords.Registry, error) {
	var fsys fs.FS
	if dir != "" {
		fsys = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(data.Stopwords, "stopwords")
		if err != nil {
			return nil, fmt.Errorf("failed to open built-in stopwords: %w", err)
		}
		fsys = sub
	}
	return stopwords.Load(fsys, stopwords.DefaultLanguages)
}

// ConvertAction converts CSV METADATA OUTPUT into a dataset artifact.
func ConvertAction(c *cli.Context) error {
	logger := common.NewLogger(c, os.Stderr)
	startTime := time.Now()

	args, err := common.Args(c, 3)
	if err != nil {
		return err
	}
	csvPath, metadataPath, output := args[0], args[1], args[2]

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}
	cc := cfg.Convert
	if c.IsSet("geolocations") {
		cc.Geolocations = c.String("geolocations")
	}
	if c.IsSet("stopwords") {
		cc.Stopwords = c.String("stopwords")
	}
	if c.IsSet("language") {
		cc.Language = c.String("language")
	}
	if c.IsSet("workers") {
		cc.Workers = c.Int("workers")
	}

	field := c.String("wordcloud-field")
	if !slices.Contains(WordcloudFields, field) {
		return fmt.Errorf("invalid wordcloud field %q (want one of %v)", field, WordcloudFields)
	}

	registry, err := loadStopwords(cc.Stopwords)
	if err != nil {
		return fmt.Errorf("failed to load stopwords: %w", err)
	}

	geo, err := geolocation.LoadDir(cc.Geolocations)
	if err != nil {
		return fmt.Errorf("failed to load geolocations: %w", err)
	}
	logger.Info("loaded geolocations", "files", geo.Files(), "places", geo.Len())

	opts := convertpkg.DefaultOptions()
	opts.WordcloudField = field
	opts.Language = language.Normalize(cc.Language)
	opts.PerRowLanguage = c.Bool("per-row-language")
	opts.StripMarkup = c.Bool("strip-markup")
	opts.DropColumns = cc.DropColumns
	opts.ExtraWords = slices.Concat(cc.ExtraWordsFor(csvPath), c.StringSlice("extra-words"))
	if cc.Workers > 0 {
		opts.Workers = cc.Workers
	}
	if c.Bool("detect-language") {
		opts.Detector, err = language.NewDetector(registry.Languages())
		if err != nil {
			return fmt.Errorf("failed to build language detector: %w", err)
		}
	}

	converter, err := convertpkg.New(registry, geo, opts, logger)
	if err != nil {
		return err
	}

	metadata, err := os.ReadFile(metadataPath)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := converter.Convert(ctx, f, metadata)
	if err != nil {
		return fmt.Errorf("failed to convert %s: %w", csvPath, err)
	}

	s := &storage.Storage{}
	size, err := ds.WriteFile(s, output, c.Bool("debug"))
	if err != nil {
		return err
	}
	logger.Info("wrote dataset",
		"output", output,
		"articles", len(ds.Articles),
		"size_bytes", size,
		"duration", time.Since(startTime).String(),
	)

	report := manifest.Generate(ds, ds.Name, output, size)
	if c.IsSet("report") {
		if err := report.Save(s, c.String("report")); err != nil {
			return err
		}
	}
	if !common.Quiet(c) {
		return report.Write(os.Stdout)
	}
	return nil
}
