package detector

import (
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"

	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/inference"
)

// prediction is one model output row in S×S input space
type prediction struct {
	cx, cy, w, h, conf float32
}

// fakeRunner returns a fixed [1,5,N] output and records the input shape
type fakeRunner struct {
	preds      []prediction
	fieldsLast bool
	lastShape  []int64
	lastLen    int
	err        error
}

func (f *fakeRunner) Run(input inference.Tensor) (inference.Tensor, error) {
	f.lastShape = input.Shape
	f.lastLen = len(input.Data)
	if f.err != nil {
		return inference.Tensor{}, f.err
	}

	n := len(f.preds)
	data := make([]float32, 5*n)
	for i, p := range f.preds {
		row := []float32{p.cx, p.cy, p.w, p.h, p.conf}
		for k, v := range row {
			if f.fieldsLast {
				data[i*5+k] = v
			} else {
				data[k*n+i] = v
			}
		}
	}

	shape := []int64{1, 5, int64(n)}
	if f.fieldsLast {
		shape = []int64{1, int64(n), 5}
	}
	return inference.Tensor{Shape: shape, Data: data}, nil
}

func (f *fakeRunner) Close() error { return nil }

func encodeTestImage(t *testing.T, width, height int) []byte {
	t.Helper()

	img := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	defer img.Close()
	img.SetTo(gocv.NewScalar(40, 80, 120, 0))
	gocv.Circle(&img, image.Pt(width/2, height/2), min(width, height)/4,
		color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out
}

// scenarioPredictions yields, for a 1000×800 image, a 100×50 face (5000px²)
// with high confidence and a 200×100 face (20000px²) with lower confidence
func scenarioPredictions() []prediction {
	return []prediction{
		{cx: 96, cy: 100, w: 64, h: 40, conf: 0.9},
		{cx: 384, cy: 360, w: 128, h: 80, conf: 0.6},
		{cx: 20, cy: 20, w: 10, h: 10, conf: 0.1}, // below threshold
	}
}

func TestDetectScenario(t *testing.T) {
	runner := &fakeRunner{preds: scenarioPredictions()}
	det := New(runner, DefaultConfig())

	img, faces, err := det.Detect(encodeTestImage(t, 1000, 800))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	defer img.Close()

	if !reflect.DeepEqual(runner.lastShape, []int64{1, 3, 640, 640}) {
		t.Errorf("input shape = %v", runner.lastShape)
	}
	if runner.lastLen != 3*640*640 {
		t.Errorf("input length = %d", runner.lastLen)
	}

	if len(faces) != 2 {
		t.Fatalf("got %d faces, want 2", len(faces))
	}

	want := []Face{
		{ID: 1, BoundingBox: BoundingBox{500, 400, 700, 500}, Confidence: 0.6},
		{ID: 2, BoundingBox: BoundingBox{100, 100, 200, 150}, Confidence: 0.9},
	}
	if !reflect.DeepEqual(faces, want) {
		t.Errorf("faces = %+v, want %+v", faces, want)
	}
	if faces[0].Area() != 20000 || faces[1].Area() != 5000 {
		t.Errorf("areas = %v, %v", faces[0].Area(), faces[1].Area())
	}
}

func TestDetectDeterministic(t *testing.T) {
	data := encodeTestImage(t, 640, 480)
	det := New(&fakeRunner{preds: scenarioPredictions()}, DefaultConfig())

	img1, faces1, err := det.Detect(data)
	if err != nil {
		t.Fatal(err)
	}
	img1.Close()

	img2, faces2, err := det.Detect(data)
	if err != nil {
		t.Fatal(err)
	}
	img2.Close()

	if !reflect.DeepEqual(faces1, faces2) {
		t.Errorf("runs differ:\n%+v\n%+v", faces1, faces2)
	}
}

func TestDetectNoFaces(t *testing.T) {
	det := New(&fakeRunner{}, DefaultConfig())

	img, faces, err := det.Detect(encodeTestImage(t, 320, 240))
	if err != nil {
		t.Fatalf("no faces must not be an error: %v", err)
	}
	defer img.Close()

	if faces == nil || len(faces) != 0 {
		t.Errorf("faces = %#v, want empty non-nil", faces)
	}
}

func TestDetectInvalidImage(t *testing.T) {
	det := New(&fakeRunner{}, DefaultConfig())

	for _, data := range [][]byte{nil, []byte("definitely not an image")} {
		_, _, err := det.Detect(data)
		if !errors.Is(err, ErrImageDecode) {
			t.Errorf("Detect(%q) err = %v, want ErrImageDecode", data, err)
		}
	}
}

func TestDetectRunnerError(t *testing.T) {
	boom := errors.New("boom")
	det := New(&fakeRunner{err: boom}, DefaultConfig())

	_, _, err := det.Detect(encodeTestImage(t, 100, 100))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestDecodeLayouts(t *testing.T) {
	preds := scenarioPredictions()

	for _, fieldsLast := range []bool{false, true} {
		out, _ := (&fakeRunner{preds: preds, fieldsLast: fieldsLast}).Run(inference.Tensor{})
		cands, err := decode(out, 640, 1000, 800, 0.25)
		if err != nil {
			t.Fatalf("fieldsLast=%v: %v", fieldsLast, err)
		}
		if len(cands) != 2 {
			t.Fatalf("fieldsLast=%v: got %d candidates", fieldsLast, len(cands))
		}
		if cands[0].box != (BoundingBox{100, 100, 200, 150}) {
			t.Errorf("fieldsLast=%v: box = %+v", fieldsLast, cands[0].box)
		}
	}
}

func TestDecodeClampsAndDropsDegenerate(t *testing.T) {
	out, _ := (&fakeRunner{preds: []prediction{
		{cx: 0, cy: 0, w: 100, h: 100, conf: 0.8},      // crosses top-left corner
		{cx: 700, cy: 700, w: 20, h: 20, conf: 0.8},    // fully outside
		{cx: 320, cy: 320, w: 0, h: 50, conf: 0.8},     // zero width
		{cx: 320, cy: 320, w: 64, h: 64, conf: 0.25},   // exactly at threshold
		{cx: 320, cy: 320, w: 64, h: 64, conf: 0.2499}, // just below
	}}).Run(inference.Tensor{})

	cands, err := decode(out, 640, 640, 640, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates: %+v", len(cands), cands)
	}
	if cands[0].box != (BoundingBox{0, 0, 50, 50}) {
		t.Errorf("clamped box = %+v", cands[0].box)
	}
	if cands[1].score != 0.25 {
		t.Errorf("threshold is inclusive, got score %v", cands[1].score)
	}
}

func TestPredictionLayoutErrors(t *testing.T) {
	tests := []struct {
		name  string
		shape []int64
		size  int
	}{
		{"no width axis", []int64{1, 6, 100}, 600},
		{"size mismatch", []int64{1, 5, 100}, 400},
		{"too many dims", []int64{1, 1, 5, 100}, 500},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := predictionLayout(tc.shape, tc.size); err == nil {
				t.Error("expected error")
			}
		})
	}
}
