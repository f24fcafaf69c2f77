package variant

import (
	"fmt"

	"github.com/gdrec/gdrec/errs"
)

// ImageFormatV2 enumerates the engine-2 image pixel formats, including
// the palettized and vendor-compressed ones later engines dropped.
type ImageFormatV2 uint32

const (
	ImageV2Grayscale ImageFormatV2 = iota
	ImageV2Intensity
	ImageV2GrayscaleAlpha
	ImageV2RGB
	ImageV2RGBA
	ImageV2Indexed
	ImageV2IndexedAlpha
	ImageV2YUV422
	ImageV2YUV444
	ImageV2BC1
	ImageV2BC2
	ImageV2BC3
	ImageV2BC4
	ImageV2BC5
	ImageV2PVRTC2
	ImageV2PVRTC2Alpha
	ImageV2PVRTC4
	ImageV2PVRTC4Alpha
	ImageV2ETC
	ImageV2ATC
	ImageV2ATCAlphaExplicit
	ImageV2ATCAlphaInterp
	ImageV2Custom
)

func (f ImageFormatV2) String() string {
	names := [...]string{
		"Grayscale", "Intensity", "GrayscaleAlpha", "RGB", "RGBA",
		"Indexed", "IndexedAlpha", "YUV422", "YUV444",
		"BC1", "BC2", "BC3", "BC4", "BC5",
		"PVRTC2", "PVRTC2Alpha", "PVRTC4", "PVRTC4Alpha",
		"ETC", "ATC", "ATCAlphaExplicit", "ATCAlphaInterp", "Custom",
	}
	if int(f) < len(names) {
		return names[f]
	}
	return "Unknown"
}

// Image is the object form of an embedded engine-2 image, compatible
// with modern consumers. ConvertedFrom records the original format
// when palettized pixels were reconstituted into truecolor.
type Image struct {
	Format        ImageFormatV2
	Width, Height uint32
	Mipmaps       uint32
	Data          []byte

	ConvertedFrom ImageFormatV2
	Converted     bool
}

// decodeImageV2 reads the legacy embedded image payload:
// format enum, mipmap count, width, height, length-prefixed data padded
// to four bytes.
func (d *Decoder) decodeImageV2() (Value, error) {
	formatWord, err := d.R.GetU32()
	if err != nil {
		return nil, err
	}
	mipmaps, err := d.R.GetU32()
	if err != nil {
		return nil, err
	}
	width, err := d.R.GetU32()
	if err != nil {
		return nil, err
	}
	height, err := d.R.GetU32()
	if err != nil {
		return nil, err
	}
	dataLen, err := d.R.GetU32()
	if err != nil {
		return nil, err
	}
	data, err := d.R.GetBuffer(int(dataLen))
	if err != nil {
		return nil, err
	}
	if err := d.R.AdvancePadding(int(dataLen)); err != nil {
		return nil, err
	}

	img := &Image{
		Format:  ImageFormatV2(formatWord),
		Width:   width,
		Height:  height,
		Mipmaps: mipmaps,
		Data:    data,
	}

	switch img.Format {
	case ImageV2YUV422, ImageV2YUV444:
		// Dropped entirely by later engines; nothing modern can hold it.
		return nil, fmt.Errorf("variant: image format %s: %w", img.Format, errs.ErrUnavailable)
	case ImageV2Indexed, ImageV2IndexedAlpha:
		if d.ConvertIndexed {
			converted, err := convertIndexedImage(img)
			if err != nil {
				return nil, err
			}
			return converted, nil
		}
	}
	return img, nil
}

// convertIndexedImage reconstitutes palettized pixels into truecolor.
// The payload starts with a 256-entry palette (3 or 4 bytes per entry)
// followed by one index byte per pixel across all mip levels.
func convertIndexedImage(img *Image) (*Image, error) {
	entrySize := 3
	outFormat := ImageV2RGB
	if img.Format == ImageV2IndexedAlpha {
		entrySize = 4
		outFormat = ImageV2RGBA
	}
	paletteSize := 256 * entrySize
	if len(img.Data) < paletteSize {
		return nil, fmt.Errorf("variant: indexed image palette truncated: %w", errs.ErrCorrupt)
	}
	palette := img.Data[:paletteSize]
	indices := img.Data[paletteSize:]

	out := make([]byte, 0, len(indices)*entrySize)
	for _, idx := range indices {
		off := int(idx) * entrySize
		out = append(out, palette[off:off+entrySize]...)
	}
	return &Image{
		Format:        outFormat,
		Width:         img.Width,
		Height:        img.Height,
		Mipmaps:       img.Mipmaps,
		Data:          out,
		ConvertedFrom: img.Format,
		Converted:     true,
	}, nil
}

// encodeImageV2 writes the legacy payload back. Converted images are
// stored in their truecolor form; the original indexed bytes are gone.
func (e *Encoder) encodeImageV2(img *Image) error {
	e.W.StoreU32(uint32(img.Format))
	e.W.StoreU32(img.Mipmaps)
	e.W.StoreU32(img.Width)
	e.W.StoreU32(img.Height)
	e.W.StoreU32(uint32(len(img.Data)))
	e.W.StoreBuffer(img.Data)
	e.W.Pad(len(img.Data))
	return nil
}
