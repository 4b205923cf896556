package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/camera"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/compositor"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/config"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/detector"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/pipeline"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/selection"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/ui"
)

func init() {
	// Lock the main goroutine to the main OS thread.
	// This is required on macOS for OpenCV's highgui (window creation).
	runtime.LockOSThread()
}

type Options struct {
	Input       string
	Output      string
	Dir         string
	OutputDir   string
	Mode        string
	Emoji       string
	IDs         string
	Preview     bool
	Interactive bool
	Camera      int
	ModelPath   string
	Backend     string
}

func main() {
	opts := parseFlags()

	if opts.Input == "" && opts.Dir == "" && opts.Camera < 0 {
		fmt.Fprintln(os.Stderr, "Error: one of --in, --dir or --camera is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() Options {
	opts := Options{}

	flag.StringVar(&opts.Input, "in", "", "Input image")
	flag.StringVar(&opts.Input, "i", "", "Input image (shorthand)")
	flag.StringVar(&opts.Output, "out", "", "Output image (default <input>_blurred<ext>)")
	flag.StringVar(&opts.Output, "o", "", "Output image (shorthand)")
	flag.StringVar(&opts.Dir, "dir", "", "Process every image in a directory")
	flag.StringVar(&opts.OutputDir, "out-dir", "", "Directory for batch results (default next to inputs)")
	flag.StringVar(&opts.Mode, "mode", "blur", "Masking mode: blur, emoji or style")
	flag.StringVar(&opts.Mode, "m", "blur", "Masking mode (shorthand)")
	flag.StringVar(&opts.Emoji, "emoji", "", "Emoji override: one glyph, or several to pick from")
	flag.StringVar(&opts.IDs, "ids", "", "Comma separated face ids to treat (default all)")
	flag.BoolVar(&opts.Preview, "preview", false, "Write a preview with numbered boxes instead of masking")
	flag.BoolVar(&opts.Interactive, "interactive", false, "Select faces in a window")
	flag.IntVar(&opts.Camera, "camera", -1, "Take the input from this camera device")
	flag.StringVar(&opts.ModelPath, "model", "", "Face model path (overrides MODEL_PATH)")
	flag.StringVar(&opts.Backend, "backend", "", "Inference backend: onnx or opencv (overrides MODEL_BACKEND)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "faceblur - detect faces and mask the ones you pick\n\n")
		fmt.Fprintf(os.Stderr, "Usage: faceblur [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  faceblur --in group.jpg --preview\n")
		fmt.Fprintf(os.Stderr, "  faceblur --in group.jpg --ids 1,3 --mode emoji\n")
		fmt.Fprintf(os.Stderr, "  faceblur --dir ./photos --mode blur\n")
		fmt.Fprintf(os.Stderr, "  faceblur --camera 0 --interactive\n")
	}

	flag.Parse()
	return opts
}

func run(opts Options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.ModelPath != "" {
		cfg.ModelPath = opts.ModelPath
	}
	if opts.Backend != "" {
		cfg.ModelBackend = opts.Backend
	}
	log.NewLogger(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	mode, err := compositor.ParseMode(opts.Mode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Loading model %s (backend: %s)...\n", cfg.ModelPath, cfg.ModelBackend)
	p, err := pipeline.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer p.Close()

	if opts.Dir != "" {
		return runBatch(ctx, p, opts, mode)
	}

	source, name, closeSource, err := openSource(opts)
	if err != nil {
		return err
	}
	defer closeSource()

	data, err := source()
	if err != nil {
		return err
	}

	det, err := p.Detect(data)
	if err != nil {
		return err
	}
	fmt.Println(detector.Summary(det.Faces))

	output := opts.Output
	if output == "" {
		output = pipeline.OutputPath(name, "")
	}

	if opts.Interactive {
		// The session owns det from here on
		session := ui.NewSession(p, det, opts.Emoji, source)
		defer session.Close()

		window := ui.NewWindow("faceblur")
		defer window.Close()

		fmt.Println(ui.Help)
		return window.Run(ctx, session, output)
	}
	defer det.Close()

	state := selection.New(det.Registry)
	if opts.IDs == "" {
		state.SelectAll()
	} else {
		ids, err := parseIDs(opts.IDs)
		if err != nil {
			return err
		}
		state.Select(ids...)
	}

	if opts.Preview {
		preview := p.Preview(det.Image, det.Faces, state)
		defer preview.Close()
		return write(output, preview)
	}

	if len(det.Faces) == 0 {
		fmt.Println("Nothing to mask")
		return nil
	}

	res, err := p.Composite(ctx, det.Image, state.Targets(), mode, opts.Emoji)
	if err != nil {
		return err
	}
	defer res.Close()
	if res.Fallback {
		fmt.Println("Warning: stylization failed, the original image was kept")
	}

	fmt.Printf("%s applied to faces %v (detect %dms, composite %dms)\n",
		mode, state.Selected(), det.Timing.Detection.Milliseconds(), res.Timing.Composite.Milliseconds())
	return write(output, res.Image)
}

func runBatch(ctx context.Context, p *pipeline.Pipeline, opts Options, mode compositor.Mode) error {
	paths, err := pipeline.ListImages(opts.Dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", opts.Dir, err)
	}
	fmt.Printf("Processing %d image(s) in %s...\n", len(paths), opts.Dir)

	report := p.ProcessFiles(ctx, paths, pipeline.BatchOptions{
		Mode:      mode,
		Emoji:     opts.Emoji,
		OutputDir: opts.OutputDir,
	})

	for in, out := range report.Processed {
		fmt.Printf("  %s -> %s\n", in, out)
	}
	for _, path := range report.Skipped {
		fmt.Printf("  %s: no faces, skipped\n", path)
	}
	for _, fe := range report.Failed {
		fmt.Printf("  %v\n", fe)
	}
	fmt.Printf("Done: %d processed, %d skipped, %d failed\n",
		len(report.Processed), len(report.Skipped), len(report.Failed))

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d file(s) failed", len(report.Failed))
	}
	return nil
}

// openSource returns a reader for the input image and the path outputs are
// named after. A camera stays open until the returned close func runs, so
// every call captures a new frame.
func openSource(opts Options) (ui.Source, string, func(), error) {
	if opts.Camera >= 0 {
		fmt.Printf("Opening camera %d...\n", opts.Camera)
		cam, err := camera.NewCapture(opts.Camera)
		if err != nil {
			return nil, "", nil, err
		}
		return cam.SnapshotJPEG, "camera.jpg", func() { cam.Close() }, nil
	}

	path := opts.Input
	read := func() ([]byte, error) {
		return os.ReadFile(path)
	}
	return read, path, func() {}, nil
}

func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid face id %q", field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func write(path string, img gocv.Mat) error {
	if !gocv.IMWrite(path, img) {
		return fmt.Errorf("failed to write %s", path)
	}
	fmt.Printf("Saved %s\n", path)
	return nil
}
