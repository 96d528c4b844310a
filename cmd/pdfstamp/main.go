// Command pdfstamp draws a line of text on every page of a PDF.
//
//	pdfstamp -in in.pdf -out out.pdf -text DRAFT [-x 72 -y 72 -size 24 -prefix -optimize]
//
// Coordinates are in points from the top-left corner of each page's media
// box.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/wudi/pdfcore/contentstream"
	"github.com/wudi/pdfcore/editor"
	"github.com/wudi/pdfcore/fonts"
	"github.com/wudi/pdfcore/ir/raw"
	"github.com/wudi/pdfcore/observability"
	"github.com/wudi/pdfcore/optimize"
	"github.com/wudi/pdfcore/parser"
)

type options struct {
	in, out  string
	text     string
	font     string
	x, y     float64
	size     float64
	prefix   bool
	optimize bool
	verbose  bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "pdfstamp: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "pdfstamp: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pdfstamp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: pdfstamp -in in.pdf -out out.pdf -text TEXT [flags]\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.in, "in", "", "input PDF")
	fs.StringVar(&opts.out, "out", "", "output PDF")
	fs.StringVar(&opts.text, "text", "", "text to draw")
	fs.StringVar(&opts.font, "font", "Helvetica", "standard font name")
	fs.Float64Var(&opts.x, "x", 72, "left edge of the text")
	fs.Float64Var(&opts.y, "y", 72, "baseline, measured down from the top of the page")
	fs.Float64Var(&opts.size, "size", 24, "font size")
	fs.BoolVar(&opts.prefix, "prefix", false, "draw beneath the existing content")
	fs.BoolVar(&opts.optimize, "optimize", false, "merge duplicate objects, drop unreachable ones and compress streams")
	fs.BoolVar(&opts.verbose, "v", false, "log progress")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	switch {
	case opts.in == "" || opts.out == "":
		fs.Usage()
		return options{}, errors.New("-in and -out are required")
	case opts.text == "":
		return options{}, errors.New("-text is required")
	case opts.size <= 0:
		return options{}, fmt.Errorf("-size %g must be positive", opts.size)
	}
	return opts, nil
}

func run(opts options, stderr io.Writer) error {
	var log observability.Logger = observability.NopLogger{}
	if opts.verbose {
		log = observability.NewSlogLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	data, err := os.ReadFile(opts.in)
	if err != nil {
		return err
	}
	file, err := parser.Parse(data, parser.Config{Logger: log})
	if err != nil {
		return fmt.Errorf("parse %s: %w", opts.in, err)
	}
	font, err := fonts.NewStandardFont(opts.font)
	if err != nil {
		return err
	}
	font.SetSize(opts.size)

	edOpts := []editor.Option{editor.WithLogger(log)}
	if opts.optimize {
		edOpts = append(edOpts, editor.WithOptimize(optimize.DefaultConfig()))
	}
	ed := editor.New(file, edOpts...)
	pages := ed.Pages()
	if len(pages) == 0 {
		return fmt.Errorf("%s has no pages", opts.in)
	}
	for i, page := range pages {
		name, err := ed.AddFont(page, font)
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		top := pageTop(file, page)
		content := stamp(font, name, opts.text, opts.x, top-opts.y)
		if opts.prefix {
			_, err = ed.AddPrefixContent(page, content)
		} else {
			err = appendIsolated(ed, file, page, content, log)
		}
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if _, err := ed.WriteTo(&buf); err != nil {
		return err
	}
	log.Info("stamped", observability.Int("pages", len(pages)), observability.String("out", opts.out))
	return os.WriteFile(opts.out, buf.Bytes(), 0o644)
}

// appendIsolated draws content after the page's own content with the
// graphics state the page started with. The old content is wrapped in q
// and closed with as many Q as it leaves open.
func appendIsolated(ed *editor.Editor, file *parser.File, page *parser.Object, content []byte, log observability.Logger) error {
	old, err := file.Contents(page)
	if err != nil {
		return err
	}
	ops, err := contentstream.Parse(old)
	depth := 0
	if err == nil {
		depth, err = contentstream.Depth(ops)
	}
	if err != nil {
		log.Warn("page content not isolated",
			observability.Int(observability.KeyPage, page.Num),
			observability.Error("error", err))
		_, err = ed.AddContent(page, content)
		return err
	}
	if _, err := ed.AddPrefixContent(page, []byte("q\n")); err != nil {
		return err
	}
	closing := bytes.Repeat([]byte("Q\n"), depth+1)
	_, err = ed.AddContent(page, append(closing, content...))
	return err
}

// pageTop is the y coordinate of the top of the page's media box, or
// 792 when the box is missing or malformed.
func pageTop(file *parser.File, page *parser.Object) float64 {
	v, ok := file.Inherited(page, "MediaBox")
	if !ok {
		return 792
	}
	box, ok := file.Resolve(v).(*raw.ArrayObj)
	if !ok || box.Len() != 4 {
		return 792
	}
	if n, ok := file.Resolve(box.Items[3]).(raw.NumberObj); ok {
		return n.Float()
	}
	return 792
}

// stamp is a content stream showing text at (x, y) in page space,
// wrapped in q/Q so it leaves the graphics state as it found it.
func stamp(f *fonts.Font, name, text string, x, y float64) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "q BT /%s %.3f Tf %.3f %.3f Td [", name, f.Size(), x, y)
	for i, p := range f.Pieces(text) {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "<%X>", p.Codes)
		if p.Adjust != 0 {
			fmt.Fprintf(&b, " %d", p.Adjust)
		}
	}
	b.WriteString("] TJ ET Q\n")
	return b.Bytes()
}
