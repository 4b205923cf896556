package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/compositor"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
)

// OutputSuffix is appended to the base name of every batch output
const OutputSuffix = "_blurred"

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true, ".tif": true, ".tiff": true,
}

// BatchOptions configures ProcessFiles
type BatchOptions struct {
	Mode  compositor.Mode
	Emoji string
	// OutputDir receives the results; empty writes next to each input
	OutputDir string
}

// FileError is a failure for a single input
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// BatchReport lists what happened to every input
type BatchReport struct {
	Processed map[string]string // input path to output path
	Skipped   []string          // inputs without faces
	Failed    []FileError
}

// OutputPath returns where the result for path is written
func OutputPath(path, outputDir string) string {
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext) + OutputSuffix + ext
	if outputDir == "" {
		outputDir = filepath.Dir(path)
	}
	return filepath.Join(outputDir, name)
}

// ListImages returns the image files directly inside dir, sorted, excluding
// previous outputs
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !imageExts[strings.ToLower(ext)] || strings.HasSuffix(strings.TrimSuffix(name, ext), OutputSuffix) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// ProcessFiles treats every detected face in each file and writes the result.
// A failing file is recorded and the batch continues; files without faces are
// skipped. Cancelling ctx stops before the next file.
func (p *Pipeline) ProcessFiles(ctx context.Context, paths []string, opts BatchOptions) *BatchReport {
	report := &BatchReport{Processed: make(map[string]string)}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			for _, rest := range paths[i:] {
				report.Failed = append(report.Failed, FileError{Path: rest, Err: err})
			}
			break
		}

		out, skipped, err := p.processFile(ctx, path, opts)
		switch {
		case err != nil:
			log.Warn(log.Fields{"path": path, "error": err.Error()}, "batch file failed")
			report.Failed = append(report.Failed, FileError{Path: path, Err: err})
		case skipped:
			log.Info(log.Fields{"path": path}, "no faces detected, file skipped")
			report.Skipped = append(report.Skipped, path)
		default:
			report.Processed[path] = out
		}
	}

	log.Info(log.Fields{
		"processed": len(report.Processed),
		"skipped":   len(report.Skipped),
		"failed":    len(report.Failed),
		"mode":      string(opts.Mode),
	}, "batch finished")
	return report
}

func (p *Pipeline) processFile(ctx context.Context, path string, opts BatchOptions) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}

	res, faces, err := p.DetectAndComposite(ctx, data, opts.Mode, opts.Emoji)
	if err != nil {
		return "", false, err
	}
	defer res.Close()

	if len(faces) == 0 {
		return "", true, nil
	}

	out := OutputPath(path, opts.OutputDir)
	if !gocv.IMWrite(out, res.Image) {
		return "", false, fmt.Errorf("failed to write %s", out)
	}
	return out, false, nil
}
