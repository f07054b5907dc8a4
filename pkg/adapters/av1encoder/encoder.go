// Package av1encoder provides an AV1 video encoder using libaom.
package av1encoder

/*
#cgo !windows pkg-config: aom
#cgo windows CFLAGS: -IC:/vcpkg/installed/x64-windows-static/include
#cgo windows LDFLAGS: -LC:/vcpkg/installed/x64-windows-static/lib -laom -static -lpthread
#include <aom/aom_encoder.h>
#include <aom/aomcx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* av1_iface() {
    return aom_codec_av1_cx();
}

static aom_codec_err_t enc_init(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface,
                                aom_codec_enc_cfg_t *cfg, aom_codec_flags_t flags) {
    return aom_codec_enc_init_ver(ctx, iface, cfg, flags, AOM_ENCODER_ABI_VERSION);
}

static int pkt_is_frame(const aom_codec_cx_pkt_t *pkt) {
    return pkt->kind == AOM_CODEC_CX_FRAME_PKT;
}

static void* pkt_buf(const aom_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.buf;
}

static size_t pkt_size(const aom_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.sz;
}

static int pkt_is_keyframe(const aom_codec_cx_pkt_t *pkt) {
    return (pkt->data.frame.flags & AOM_FRAME_IS_KEY) != 0;
}

static aom_codec_pts_t pkt_pts(const aom_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.pts;
}

static unsigned char* plane_ptr(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int plane_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

// aom_codec_control is a variadic macro and cannot be called from Go directly.
static aom_codec_err_t set_cpu_used(aom_codec_ctx_t *ctx, int value) {
    return aom_codec_control(ctx, AOME_SET_CPUUSED, value);
}
*/
import "C"

import (
	"fmt"
	"image"
	"image/draw"
	"sync"
	"unsafe"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
)

// Frames are stamped on a millisecond timebase so caller timestamps map to
// PTS values without rounding through the frame rate.
const timescale = 1000

// keyframeIntervalSec bounds the distance between forced keyframes. Seeking
// players need periodic sync samples even in a single-fragment file.
const keyframeIntervalSec = 2.0

// Encoder implements ports.VideoEncoder using libaom.
//
// Encoded frames accumulate in memory and are muxed into a fragmented MP4 by
// End. Abort drops everything without flushing libaom's lookahead.
type Encoder struct {
	mu sync.Mutex

	codec *C.aom_codec_ctx_t
	cfg   *C.aom_codec_enc_cfg_t
	raw   *C.aom_image_t

	width  int
	height int
	fps    float64

	frames       []encodedFrame
	framesPushed int
	lastKeyframe int
}

type encodedFrame struct {
	data        []byte
	timestampMs int64
	isKeyframe  bool
}

// New creates a new AV1 encoder.
func New() *Encoder {
	return &Encoder{}
}

// Begin initializes the libaom session.
func (e *Encoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.codec != nil {
		return fmt.Errorf("encoder session already open")
	}

	e.width = width
	e.height = height
	e.fps = fps
	e.frames = nil
	e.framesPushed = 0
	e.lastKeyframe = 0

	e.codec = (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if e.codec == nil {
		return fmt.Errorf("allocate codec context")
	}
	C.memset(unsafe.Pointer(e.codec), 0, C.sizeof_aom_codec_ctx_t)

	e.cfg = (*C.aom_codec_enc_cfg_t)(C.malloc(C.sizeof_aom_codec_enc_cfg_t))
	if e.cfg == nil {
		C.free(unsafe.Pointer(e.codec))
		e.codec = nil
		return fmt.Errorf("allocate encoder config")
	}

	iface := C.av1_iface()
	if res := C.aom_codec_enc_config_default(iface, e.cfg, 0); res != C.AOM_CODEC_OK {
		e.release()
		return fmt.Errorf("default config: %d", res)
	}

	e.cfg.g_w = C.uint(width)
	e.cfg.g_h = C.uint(height)
	e.cfg.g_timebase.num = 1
	e.cfg.g_timebase.den = timescale
	e.cfg.g_error_resilient = 0
	e.cfg.g_threads = 4
	e.cfg.g_usage = C.AOM_USAGE_REALTIME

	if opts.Bitrate > 0 {
		e.cfg.rc_target_bitrate = C.uint(opts.Bitrate)
	} else {
		e.cfg.rc_target_bitrate = C.uint(width * height / 1000)
	}

	e.cfg.rc_end_usage = C.AOM_CQ
	if opts.Quality > 0 && opts.Quality <= 63 {
		e.cfg.rc_min_quantizer = C.uint(opts.Quality)
		e.cfg.rc_max_quantizer = C.uint(opts.Quality + 10)
		if e.cfg.rc_max_quantizer > 63 {
			e.cfg.rc_max_quantizer = 63
		}
	}

	if res := C.enc_init(e.codec, iface, e.cfg, 0); res != C.AOM_CODEC_OK {
		e.release()
		return fmt.Errorf("initialize encoder: %d", res)
	}

	// 0 = slowest/best, 10 = fastest.
	C.set_cpu_used(e.codec, 8)

	e.raw = (*C.aom_image_t)(C.malloc(C.sizeof_aom_image_t))
	if e.raw == nil {
		C.aom_codec_destroy(e.codec)
		e.release()
		return fmt.Errorf("allocate raw frame")
	}
	if C.aom_img_alloc(e.raw, C.AOM_IMG_FMT_I420, C.uint(width), C.uint(height), 32) == nil {
		C.free(unsafe.Pointer(e.raw))
		e.raw = nil
		C.aom_codec_destroy(e.codec)
		e.release()
		return fmt.Errorf("allocate image buffer")
	}

	return nil
}

// EncodeFrame converts the frame to I420 and pushes it into libaom.
func (e *Encoder) EncodeFrame(img image.Image, timestampMs int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.codec == nil {
		return fmt.Errorf("encoder session not open")
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Bounds().Min != (image.Point{}) {
		bounds := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	e.fillI420(rgba)

	flags := C.aom_enc_frame_flags_t(0)
	interval := int(keyframeIntervalSec * e.fps)
	if e.framesPushed == 0 || (interval > 0 && e.framesPushed-e.lastKeyframe >= interval) {
		flags = C.AOM_EFLAG_FORCE_KF
		e.lastKeyframe = e.framesPushed
	}

	res := C.aom_codec_encode(e.codec, e.raw, C.aom_codec_pts_t(timestampMs), 1, flags)
	if res != C.AOM_CODEC_OK {
		return fmt.Errorf("encode frame: %d", res)
	}

	e.drainPackets()
	e.framesPushed++
	return nil
}

// End flushes the lookahead, muxes the fragmented MP4 and closes the session.
func (e *Encoder) End() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.codec == nil {
		return nil, fmt.Errorf("encoder session not open")
	}

	if res := C.aom_codec_encode(e.codec, nil, 0, 1, 0); res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("flush: %d", res)
	}
	e.drainPackets()

	data, err := e.muxMP4()
	if err != nil {
		return nil, fmt.Errorf("mux mp4: %w", err)
	}

	e.release()
	return data, nil
}

// Abort discards the session and all buffered frames. No-op after End.
func (e *Encoder) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.codec != nil {
		C.aom_codec_destroy(e.codec)
	}
	e.release()
	e.frames = nil
}

// drainPackets moves finished packets out of libaom into e.frames.
func (e *Encoder) drainPackets() {
	var iter C.aom_codec_iter_t
	for {
		pkt := C.aom_codec_get_cx_data(e.codec, &iter)
		if pkt == nil {
			return
		}
		if C.pkt_is_frame(pkt) == 0 {
			continue
		}
		e.frames = append(e.frames, encodedFrame{
			data:        C.GoBytes(C.pkt_buf(pkt), C.int(C.pkt_size(pkt))),
			timestampMs: int64(C.pkt_pts(pkt)),
			isKeyframe:  C.pkt_is_keyframe(pkt) != 0,
		})
	}
}

// release frees the C allocations. The codec must already be destroyed or
// never initialized.
func (e *Encoder) release() {
	if e.raw != nil {
		C.aom_img_free(e.raw)
		C.free(unsafe.Pointer(e.raw))
		e.raw = nil
	}
	if e.codec != nil {
		C.free(unsafe.Pointer(e.codec))
		e.codec = nil
	}
	if e.cfg != nil {
		C.free(unsafe.Pointer(e.cfg))
		e.cfg = nil
	}
}

// fillI420 converts the RGBA frame into the preallocated I420 buffer using
// BT.601 limited-range coefficients.
func (e *Encoder) fillI420(rgba *image.RGBA) {
	yStride := int(C.plane_stride(e.raw, 0))
	uStride := int(C.plane_stride(e.raw, 1))
	vStride := int(C.plane_stride(e.raw, 2))

	ySize := yStride * e.height
	cSize := uStride * ((e.height + 1) / 2)
	yPlane := unsafe.Slice((*byte)(C.plane_ptr(e.raw, 0)), ySize)
	uPlane := unsafe.Slice((*byte)(C.plane_ptr(e.raw, 1)), cSize)
	vPlane := unsafe.Slice((*byte)(C.plane_ptr(e.raw, 2)), vStride*((e.height+1)/2))

	clamp := func(v int) byte {
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return byte(v)
	}

	for y := 0; y < e.height; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < e.width; x++ {
			r := int(row[x*4])
			g := int(row[x*4+1])
			b := int(row[x*4+2])

			yPlane[y*yStride+x] = clamp(((66*r + 129*g + 25*b + 128) >> 8) + 16)

			if y%2 == 0 && x%2 == 0 {
				uPlane[(y/2)*uStride+x/2] = clamp(((-38*r - 74*g + 112*b + 128) >> 8) + 128)
				vPlane[(y/2)*vStride+x/2] = clamp(((112*r - 94*g - 18*b + 128) >> 8) + 128)
			}
		}
	}
}

var _ ports.VideoEncoder = (*Encoder)(nil)
