package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/compositor"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/detector"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/selection"
)

// fakeDetector decodes for real and reports a fixed face list
type fakeDetector struct {
	faces []detector.Face
}

func (f *fakeDetector) Detect(data []byte) (gocv.Mat, []detector.Face, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || img.Empty() {
		img.Close()
		return gocv.Mat{}, nil, detector.ErrImageDecode
	}
	faces, _ := f.DetectMat(img)
	return img, faces, nil
}

func (f *fakeDetector) DetectMat(gocv.Mat) ([]detector.Face, error) {
	out := make([]detector.Face, len(f.faces))
	copy(out, f.faces)
	return out, nil
}

type failingStylizer struct {
	calls int
}

func (s *failingStylizer) Stylize(context.Context, []byte, string) ([]byte, error) {
	s.calls++
	return nil, errors.New("service unavailable")
}

var testFaces = []detector.Face{
	{ID: 1, BoundingBox: detector.BoundingBox{X1: 100, Y1: 80, X2: 220, Y2: 200}, Confidence: 0.8},
	{ID: 2, BoundingBox: detector.BoundingBox{X1: 260, Y1: 40, X2: 320, Y2: 100}, Confidence: 0.9},
}

func testImage(t *testing.T) []byte {
	t.Helper()
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 90, 160, 0), 240, 360, gocv.MatTypeCV8UC3)
	defer img.Close()
	for _, f := range testFaces {
		gocv.Circle(&img, f.BoundingBox.Center(), f.BoundingBox.Width()/3, color.RGBA{R: 250, G: 230, B: 200, A: 255}, -1)
		gocv.Line(&img, image.Pt(f.BoundingBox.X1, f.BoundingBox.Y1), image.Pt(f.BoundingBox.X2, f.BoundingBox.Y2), color.RGBA{A: 255}, 3)
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...)
}

func newTestPipeline(stylizer compositor.Stylizer, fallback Fallback, faces []detector.Face) *Pipeline {
	return New(&fakeDetector{faces: faces}, compositor.New(nil, stylizer), fallback)
}

func TestDetect(t *testing.T) {
	p := newTestPipeline(nil, FallbackOriginal, testFaces)

	det, err := p.Detect(testImage(t))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	defer det.Close()

	if det.Image.Cols() != 360 || det.Image.Rows() != 240 {
		t.Errorf("image = %dx%d", det.Image.Cols(), det.Image.Rows())
	}
	if det.Registry.Len() != 2 {
		t.Errorf("registry has %d faces", det.Registry.Len())
	}
	if id, ok := det.Registry.FaceAt(150, 150); !ok || id != 1 {
		t.Errorf("FaceAt = %d, %v", id, ok)
	}
}

func TestDetectInvalidImage(t *testing.T) {
	p := newTestPipeline(nil, FallbackOriginal, testFaces)

	if _, err := p.Detect([]byte("plain text")); !errors.Is(err, detector.ErrImageDecode) {
		t.Errorf("error = %v, want ErrImageDecode", err)
	}
}

func TestStyleFallbackPolicy(t *testing.T) {
	data := testImage(t)

	t.Run("original", func(t *testing.T) {
		stylizer := &failingStylizer{}
		p := newTestPipeline(stylizer, FallbackOriginal, testFaces)

		res, faces, err := p.DetectAndComposite(context.Background(), data, compositor.ModeStyle, "")
		if err != nil {
			t.Fatalf("DetectAndComposite: %v", err)
		}
		defer res.Close()

		if !res.Fallback {
			t.Error("fallback not flagged")
		}
		if len(faces) != 2 || stylizer.calls != 1 {
			t.Errorf("faces = %d, stylizer calls = %d", len(faces), stylizer.calls)
		}

		original, _ := gocv.IMDecode(data, gocv.IMReadColor)
		defer original.Close()
		diff := gocv.NewMat()
		defer diff.Close()
		gocv.AbsDiff(original, res.Image, &diff)
		gray := gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)
		if n := gocv.CountNonZero(gray); n != 0 {
			t.Errorf("fallback image differs in %d pixels", n)
		}
	})

	t.Run("error", func(t *testing.T) {
		p := newTestPipeline(&failingStylizer{}, FallbackError, testFaces)

		_, _, err := p.DetectAndComposite(context.Background(), data, compositor.ModeStyle, "")
		if !errors.Is(err, compositor.ErrStylizationUnavailable) {
			t.Errorf("error = %v, want ErrStylizationUnavailable", err)
		}
	})
}

func TestCompositeNoFacesSkipsStylizer(t *testing.T) {
	stylizer := &failingStylizer{}
	p := newTestPipeline(stylizer, FallbackError, nil)

	res, faces, err := p.DetectAndComposite(context.Background(), testImage(t), compositor.ModeStyle, "")
	if err != nil {
		t.Fatalf("DetectAndComposite: %v", err)
	}
	defer res.Close()

	if len(faces) != 0 || faces == nil {
		t.Errorf("faces = %v, want empty non-nil", faces)
	}
	if stylizer.calls != 0 {
		t.Errorf("stylizer called %d times", stylizer.calls)
	}
	if res.Fallback {
		t.Error("fallback flagged without a failure")
	}
}

func TestServicePreviewAppliesClicks(t *testing.T) {
	svc := NewService(newTestPipeline(nil, FallbackOriginal, testFaces))

	out, err := svc.Preview(testImage(t), PreviewRequest{
		SelectedIDs: []int{1, 2, 7},
		Clicks:      []image.Point{{X: 290, Y: 70}, {X: 5, Y: 5}},
		Tool:        selection.ToolRemove,
		HoverID:     1,
	})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	if len(out.Selected) != 1 || out.Selected[0] != 1 {
		t.Errorf("selected = %v, want [1]", out.Selected)
	}
	if out.Faces != 2 {
		t.Errorf("faces = %d", out.Faces)
	}

	img, err := gocv.IMDecode(out.JPEG, gocv.IMReadColor)
	if err != nil || img.Empty() {
		t.Fatalf("preview is not a decodable JPEG: %v", err)
	}
	img.Close()
}

func TestServiceBlur(t *testing.T) {
	svc := NewService(newTestPipeline(nil, FallbackOriginal, nil))

	out, err := svc.Blur(context.Background(), testImage(t),
		[]detector.BoundingBox{{X1: 100, Y1: 80, X2: 220, Y2: 200}}, compositor.ModeBlur, "")
	if err != nil {
		t.Fatalf("Blur: %v", err)
	}
	if len(out.JPEG) == 0 || out.Faces != 1 {
		t.Errorf("output = %d bytes, %d faces", len(out.JPEG), out.Faces)
	}

	if _, err := svc.Blur(context.Background(), nil, nil, compositor.ModeBlur, ""); !errors.Is(err, detector.ErrImageDecode) {
		t.Errorf("empty input error = %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		path, dir, want string
	}{
		{"/photos/a.jpg", "", "/photos/a_blurred.jpg"},
		{"/photos/b.final.png", "/out", "/out/b.final_blurred.png"},
	}

	for _, tc := range tests {
		if got := OutputPath(tc.path, tc.dir); got != filepath.FromSlash(tc.want) {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", tc.path, tc.dir, got, tc.want)
		}
	}
}

func TestProcessFiles(t *testing.T) {
	dir := t.TempDir()
	data := testImage(t)

	withFaces := filepath.Join(dir, "group.png")
	broken := filepath.Join(dir, "broken.jpg")
	files := []struct {
		path string
		data []byte
	}{
		{withFaces, data},
		{broken, []byte("not an image")},
		{filepath.Join(dir, "notes.txt"), []byte("ignored")},
		{filepath.Join(dir, "old_blurred.png"), data},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, f.data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := ListImages(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || paths[0] != broken || paths[1] != withFaces {
		t.Fatalf("ListImages = %v", paths)
	}

	p := newTestPipeline(nil, FallbackOriginal, testFaces)
	report := p.ProcessFiles(context.Background(), paths, BatchOptions{Mode: compositor.ModeBlur})

	if len(report.Failed) != 1 || report.Failed[0].Path != broken {
		t.Errorf("failed = %v", report.Failed)
	}
	out, ok := report.Processed[withFaces]
	if !ok {
		t.Fatalf("processed = %v", report.Processed)
	}
	if out != filepath.Join(dir, "group_blurred.png") {
		t.Errorf("output path = %s", out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestProcessFilesSkipsFaceless(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.png")
	if err := os.WriteFile(path, testImage(t), 0o644); err != nil {
		t.Fatal(err)
	}

	report := newTestPipeline(nil, FallbackOriginal, nil).
		ProcessFiles(context.Background(), []string{path}, BatchOptions{Mode: compositor.ModeBlur})

	if len(report.Skipped) != 1 || len(report.Processed) != 0 || len(report.Failed) != 0 {
		t.Errorf("report = %+v", report)
	}
	if _, err := os.Stat(OutputPath(path, "")); !os.IsNotExist(err) {
		t.Error("output written for an image without faces")
	}
}

func TestProcessFilesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := newTestPipeline(nil, FallbackOriginal, testFaces).
		ProcessFiles(ctx, []string{"a.png", "b.png"}, BatchOptions{Mode: compositor.ModeBlur})

	if len(report.Failed) != 2 || !errors.Is(report.Failed[0].Err, context.Canceled) {
		t.Errorf("failed = %v", report.Failed)
	}
}
