// Package av1source provides a seekable frame source for AV1 video in MP4
// containers, decoding through libaom.
package av1source

/*
#cgo pkg-config: aom
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* av1_dx_iface() {
    return aom_codec_av1_dx();
}

static aom_codec_err_t dec_init(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface) {
    return aom_codec_dec_init(ctx, iface, NULL, 0);
}

static unsigned char* img_plane(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int img_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

static unsigned int img_width(aom_image_t *img) {
    return img->d_w;
}

static unsigned int img_height(aom_image_t *img) {
    return img->d_h;
}
*/
import "C"

import (
	"fmt"
	"image"
	"unsafe"
)

// decoder wraps a libaom decode context.
type decoder struct {
	codec *C.aom_codec_ctx_t
}

func newDecoder() (*decoder, error) {
	codec := (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if codec == nil {
		return nil, fmt.Errorf("allocate decoder context")
	}
	C.memset(unsafe.Pointer(codec), 0, C.sizeof_aom_codec_ctx_t)

	if res := C.dec_init(codec, C.av1_dx_iface()); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(codec))
		return nil, fmt.Errorf("initialize decoder: %d", res)
	}
	return &decoder{codec: codec}, nil
}

// decode feeds one sample into libaom and returns the decoded frame.
func (d *decoder) decode(data []byte) (*image.RGBA, error) {
	if d.codec == nil {
		return nil, fmt.Errorf("decoder closed")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty sample")
	}

	res := C.aom_codec_decode(
		d.codec,
		(*C.uint8_t)(unsafe.Pointer(&data[0])),
		C.size_t(len(data)),
		nil,
	)
	if res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("decode sample: %d", res)
	}

	var iter C.aom_codec_iter_t
	img := C.aom_codec_get_frame(d.codec, &iter)
	if img == nil {
		return nil, fmt.Errorf("no frame produced")
	}
	return yuvToRGBA(img), nil
}

func (d *decoder) close() {
	if d.codec != nil {
		C.aom_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
}

// yuvToRGBA converts a decoded I420 image to RGBA with BT.601 coefficients.
func yuvToRGBA(img *C.aom_image_t) *image.RGBA {
	width := int(C.img_width(img))
	height := int(C.img_height(img))

	yStride := int(C.img_stride(img, 0))
	uStride := int(C.img_stride(img, 1))
	vStride := int(C.img_stride(img, 2))

	yPlane := unsafe.Slice((*byte)(C.img_plane(img, 0)), yStride*height)
	uPlane := unsafe.Slice((*byte)(C.img_plane(img, 1)), uStride*((height+1)/2))
	vPlane := unsafe.Slice((*byte)(C.img_plane(img, 2)), vStride*((height+1)/2))

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := int(yPlane[y*yStride+x]) - 16
			d := int(uPlane[(y/2)*uStride+x/2]) - 128
			e := int(vPlane[(y/2)*vStride+x/2]) - 128

			idx := y*rgba.Stride + x*4
			rgba.Pix[idx] = clamp((298*c + 409*e + 128) >> 8)
			rgba.Pix[idx+1] = clamp((298*c - 100*d - 208*e + 128) >> 8)
			rgba.Pix[idx+2] = clamp((298*c + 516*d + 128) >> 8)
			rgba.Pix[idx+3] = 255
		}
	}

	return rgba
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
