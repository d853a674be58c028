package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/common/version"
	"github.com/spf13/afero"
	"gopkg.in/alecthomas/kingpin.v2"
)

var cfg struct {
	verbose    bool
	configFile string
}

var (
	consoleOutput = os.Stderr
	logger        = log.NewLogfmtLogger(consoleOutput)
)

func main() {
	ctx := withOutput(context.Background(), os.Stdout)

	app := kingpin.New(filepath.Base(os.Args[0]), "Attach source line debug locations to lifted control-flow graphs.").UsageWriter(os.Stdout)
	app.Version(version.Print("dbgloc"))
	app.HelpFlag.Short('h')
	app.Flag("verbose", "Enable verbose logging.").Short('v').Default("0").BoolVar(&cfg.verbose)
	app.Flag("config.file", "YAML file overriding the default configuration.").StringVar(&cfg.configFile)

	linesCmd := app.Command("lines", "Parse an address to line table and print its contents.")
	linesParams := addLinesParams(linesCmd)

	annotateCmd := app.Command("annotate", "Replay lifting of a module description and print the debug line of every instruction.")
	annotateParams := addAnnotateParams(annotateCmd)

	parsedCmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	// enable verbose logging if requested
	if !cfg.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	fs := afero.NewOsFs()
	conf, err := loadConfig(fs, cfg.configFile)
	if err != nil {
		os.Exit(checkError(err))
	}

	switch parsedCmd {
	case linesCmd.FullCommand():
		os.Exit(checkError(printLines(ctx, fs, conf, linesParams)))
	case annotateCmd.FullCommand():
		os.Exit(checkError(annotate(ctx, fs, conf, annotateParams)))
	default:
		level.Error(logger).Log("msg", "unknown command", "cmd", parsedCmd)
	}
}

func checkError(err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return 1
}

type contextKey uint8

const (
	contextKeyOutput contextKey = iota
)

func withOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, contextKeyOutput, w)
}

func output(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(contextKeyOutput).(io.Writer); ok {
		return w
	}
	return os.Stdout
}
