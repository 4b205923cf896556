package stylize

// CartoonizeFaces is the instruction sent with every image. The service
// restyles the whole frame; only selected face regions are kept afterwards.
const CartoonizeFaces = "Apply cartoon style ONLY to the facial skin areas of the people in this photo. " +
	"Focus specifically on: forehead, eyes, nose, cheeks, mouth, chin. " +
	"DO NOT cartoonize: hair, neck, shoulders, body, clothing, or any area outside the facial skin. " +
	"Keep hair, neck, body, clothing, and background exactly as the original photo. " +
	"Keep the output image at exactly the same resolution and framing as the input. " +
	"Important: Blend the cartoonized facial skin naturally with the hairline, ears, and jawline to avoid sharp edges."
