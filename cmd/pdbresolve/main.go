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

	app := kingpin.New(filepath.Base(os.Args[0]), "Resolve managed stack frames to source lines using decoded PDB symbols.").UsageWriter(os.Stdout)
	app.Version(version.Print("pdbresolve"))
	app.HelpFlag.Short('h')
	app.Flag("verbose", "Enable verbose logging.").Short('v').Default("0").BoolVar(&cfg.verbose)
	app.Flag("config.file", "YAML file with symbolizer settings.").Default("").StringVar(&cfg.configFile)

	resolveCmd := app.Command("resolve", "Resolve a method and IL offset to a source line.")
	resolveParams := addResolveParams(resolveCmd)

	infoCmd := app.Command("info", "Print the identity and size of a symbol file.")
	infoFile := infoCmd.Arg("file", "pdbx file path").Required().ExistingFile()

	methodsCmd := app.Command("methods", "List the methods indexed in a symbol file.")
	methodsFile := methodsCmd.Arg("file", "pdbx file path").Required().ExistingFile()

	packCmd := app.Command("pack", "Write a pdbx file from a YAML listing of decoded symbols.")
	packParams := addPackParams(packCmd)

	uploadCmd := app.Command("upload", "Upload symbol file(s) to the symbol store.")
	uploadParams := addUploadParams(uploadCmd)

	symbolizeCmd := app.Command("symbolize", "Symbolize frames read from stdin, one per line: PDBNAME DEBUGID CLASS METHOD [OFFSET].")
	symbolizeParams := addSymbolizeParams(symbolizeCmd)

	// parse command line arguments
	parsedCmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	// enable verbose logging if requested
	if !cfg.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	switch parsedCmd {
	case resolveCmd.FullCommand():
		os.Exit(checkError(resolve(ctx, resolveParams)))
	case infoCmd.FullCommand():
		os.Exit(checkError(info(ctx, *infoFile)))
	case methodsCmd.FullCommand():
		os.Exit(checkError(methods(ctx, *methodsFile)))
	case packCmd.FullCommand():
		os.Exit(checkError(pack(ctx, packParams)))
	case uploadCmd.FullCommand():
		os.Exit(checkError(upload(ctx, uploadParams)))
	case symbolizeCmd.FullCommand():
		os.Exit(checkError(symbolize(ctx, symbolizeParams, os.Stdin)))
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

type commander interface {
	Flag(name, help string) *kingpin.FlagClause
	Arg(name, help string) *kingpin.ArgClause
}
