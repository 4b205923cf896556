// Package camera grabs still images from a local capture device.
package camera

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned when the device delivers no usable frame
var ErrNoFrame = errors.New("camera: no frame captured")

// warmupFrames are discarded so auto exposure can settle
const warmupFrames = 5

// Capture manages a capture device
type Capture struct {
	webcam   *gocv.VideoCapture
	deviceID int
	width    int
	height   int
	mu       sync.Mutex
}

// NewCapture opens a device with default 720p resolution
func NewCapture(deviceID int) (*Capture, error) {
	return NewCaptureWithResolution(deviceID, 1280, 720)
}

// NewCaptureWithResolution opens a device and requests a resolution
func NewCaptureWithResolution(deviceID int, width, height int) (*Capture, error) {
	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", deviceID, err)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(height))

	// The device may not support the requested resolution
	actualWidth := int(webcam.Get(gocv.VideoCaptureFrameWidth))
	actualHeight := int(webcam.Get(gocv.VideoCaptureFrameHeight))

	return &Capture{
		webcam:   webcam,
		deviceID: deviceID,
		width:    actualWidth,
		height:   actualHeight,
	}, nil
}

// Read captures a frame into the provided Mat
func (c *Capture) Read(frame *gocv.Mat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil {
		return false
	}

	return c.webcam.Read(frame)
}

// Snapshot returns one still frame after letting the device settle. The
// caller owns the returned Mat.
func (c *Capture) Snapshot() (gocv.Mat, error) {
	frame := gocv.NewMat()
	for i := 0; i < warmupFrames; i++ {
		c.Read(&frame)
	}

	if !c.Read(&frame) || frame.Empty() {
		frame.Close()
		return gocv.Mat{}, fmt.Errorf("%w from device %d", ErrNoFrame, c.deviceID)
	}
	return frame, nil
}

// SnapshotJPEG captures one frame and encodes it
func (c *Capture) SnapshotJPEG() ([]byte, error) {
	frame, err := c.Snapshot()
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// Width returns frame width
func (c *Capture) Width() int {
	return c.width
}

// Height returns frame height
func (c *Capture) Height() int {
	return c.height
}

// Close releases the camera
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam != nil {
		err := c.webcam.Close()
		c.webcam = nil
		return err
	}
	return nil
}
