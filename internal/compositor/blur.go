package compositor

import (
	"image"

	"gocv.io/x/gocv"
)

const (
	blurKernel = 99
	blurSigma  = 30
)

// blurRegions replaces every region with a heavy Gaussian blur of itself.
// Each region is blurred in isolation, so neighbouring pixels never bleed in.
func blurRegions(img *gocv.Mat, regions []region) error {
	for _, r := range regions {
		roi := img.Region(r.rect)

		// Clone detaches the region from its parent so the border is reflected
		// from the region itself
		isolated := roi.Clone()
		blurred := gocv.NewMat()
		gocv.GaussianBlur(isolated, &blurred, image.Pt(blurKernel, blurKernel),
			blurSigma, blurSigma, gocv.BorderDefault)
		blurred.CopyTo(&roi)

		blurred.Close()
		isolated.Close()
		roi.Close()
	}
	return nil
}
