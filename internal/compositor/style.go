package compositor

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
)

// stylizeRegions sends the whole image to the stylizer and copies the
// stylized pixels back into the regions only
func (c *Compositor) stylizeRegions(ctx context.Context, img *gocv.Mat, regions []region) error {
	if c.stylizer == nil {
		return fmt.Errorf("%w: no stylizer configured", ErrStylizationUnavailable)
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, *img)
	if err != nil {
		return fmt.Errorf("encode image for stylization: %w", err)
	}
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	buf.Close()

	styled, err := c.stylizer.Stylize(ctx, data, "png")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStylizationUnavailable, err)
	}

	stylized, err := gocv.IMDecode(styled, gocv.IMReadColor)
	if err != nil || stylized.Empty() {
		stylized.Close()
		return fmt.Errorf("%w: undecodable response of %d bytes", ErrStylizationUnavailable, len(styled))
	}
	defer stylized.Close()

	width, height := img.Cols(), img.Rows()
	if stylized.Cols() != width || stylized.Rows() != height {
		log.Debug(log.Fields{
			"width":         width,
			"height":        height,
			"styled_width":  stylized.Cols(),
			"styled_height": stylized.Rows(),
		}, "resizing stylized image")

		resized := gocv.NewMat()
		gocv.Resize(stylized, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
		stylized.Close()
		stylized = resized
	}

	for _, r := range regions {
		src := stylized.Region(r.rect)
		dst := img.Region(r.rect)
		src.CopyTo(&dst)
		dst.Close()
		src.Close()
	}
	return nil
}
