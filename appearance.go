package pdfsign

// Appearance represents the visual signature widget placed on a page.
// It supports an optional raster image (JPEG or PNG) such as a scanned
// signature, a logo, or an ICP-Brasil/gov.br style QR code; the signer's
// name is always drawn as text unless the image is configured as a watermark.
type Appearance struct {
	width, height float64
	image         []byte
	watermark     bool
}

// NewAppearance initializes a new signature appearance box with the given width and height.
// Dimensions are in PDF user space units (typically 1/72 inch).
// You can use the Millimeter or Centimeter constants for conversion (e.g., pdfsign.Millimeter * 50).
func NewAppearance(width, height float64) *Appearance {
	return &Appearance{
		width:  width,
		height: height,
	}
}

// Image attaches a raster image (JPEG or PNG bytes) to the signature widget.
// When watermark is true, the signer's name is still drawn on top of the image;
// otherwise the image replaces the text entirely.
func (a *Appearance) Image(data []byte, watermark bool) *Appearance {
	a.image = data
	a.watermark = watermark
	return a
}

// Width returns the appearance width.
func (a *Appearance) Width() float64 {
	return a.width
}

// Height returns the appearance height.
func (a *Appearance) Height() float64 {
	return a.height
}
