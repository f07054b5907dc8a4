package av1source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
)

// sample is one AV1 sample from the MP4 sample tables, held compressed until
// a seek lands on it.
type sample struct {
	data       []byte
	startSec   float64
	durSec     float64
	isKeyframe bool
}

// Source implements ports.FrameSource for AV1 in fragmented MP4.
//
// The full sample index is built at open time; decoding is lazy. A seek
// rewinds to the nearest preceding keyframe and decodes forward, so
// monotonically increasing seeks (the export access pattern) decode each
// sample at most once.
type Source struct {
	mu sync.Mutex

	dec     *decoder
	samples []sample

	width    int
	height   int
	duration float64

	// nextIndex is the sample the decoder would consume next. The libaom
	// context holds reference frames for samples before it.
	nextIndex int

	closed bool
}

// Open reads an MP4 file and prepares a decode session.
func Open(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return FromBytes(data)
}

// FromBytes prepares a decode session over in-memory MP4 data.
func FromBytes(data []byte) (*Source, error) {
	samples, width, height, err := buildSampleIndex(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no video samples")
	}

	dec, err := newDecoder()
	if err != nil {
		return nil, err
	}

	last := samples[len(samples)-1]
	return &Source{
		dec:      dec,
		samples:  samples,
		width:    width,
		height:   height,
		duration: last.startSec + last.durSec,
	}, nil
}

// Dimensions returns the natural pixel size of the video track.
func (s *Source) Dimensions() (int, int) {
	return s.width, s.height
}

// DurationSec returns the track duration in seconds.
func (s *Source) DurationSec() float64 {
	return s.duration
}

// SeekFrame decodes and returns the frame covering tSec.
func (s *Source) SeekFrame(ctx context.Context, tSec float64) (ports.DecodedFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ports.DecodedFrame{}, fmt.Errorf("source closed")
	}

	target := s.sampleAt(tSec)

	// Forward seeks decode on from the current position; backward seeks
	// rewind to the keyframe preceding the target.
	start := s.nextIndex
	if target < s.nextIndex {
		start = s.keyframeBefore(target)
	}

	var frame ports.DecodedFrame
	for i := start; i <= target; i++ {
		if err := ctx.Err(); err != nil {
			return ports.DecodedFrame{}, err
		}
		img, err := s.dec.decode(s.samples[i].data)
		if err != nil {
			return ports.DecodedFrame{}, fmt.Errorf("decode sample %d: %w", i, err)
		}
		if i == target {
			frame = ports.DecodedFrame{
				Image:        img,
				TimestampSec: s.samples[i].startSec,
				DurationSec:  s.samples[i].durSec,
			}
		}
	}
	s.nextIndex = target + 1

	return frame, nil
}

// Close releases the decoder. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.dec.close()
		s.closed = true
	}
	return nil
}

// sampleAt returns the index of the sample whose presentation interval covers
// tSec, clamped to the track bounds.
func (s *Source) sampleAt(tSec float64) int {
	if tSec <= 0 {
		return 0
	}
	idx := sort.Search(len(s.samples), func(i int) bool {
		return s.samples[i].startSec > tSec
	}) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.samples) {
		idx = len(s.samples) - 1
	}
	return idx
}

// keyframeBefore returns the nearest keyframe index at or before i.
func (s *Source) keyframeBefore(i int) int {
	for ; i > 0; i-- {
		if s.samples[i].isKeyframe {
			break
		}
	}
	return i
}

// buildSampleIndex walks the fragmented MP4 and collects the video track's
// samples with wall-clock timing.
func buildSampleIndex(reader io.ReadSeeker) ([]sample, int, int, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode mp4: %w", err)
	}
	if !mp4File.IsFragmented() {
		return nil, 0, 0, fmt.Errorf("progressive MP4 not supported")
	}
	if mp4File.Init == nil || mp4File.Init.Moov == nil {
		return nil, 0, 0, fmt.Errorf("missing init segment")
	}

	var trackID uint32
	var timescale uint32 = 1000
	var width, height int
	for _, trak := range mp4File.Init.Moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		trackID = trak.Tkhd.TrackID
		width = int(trak.Tkhd.Width >> 16)
		height = int(trak.Tkhd.Height >> 16)
		if trak.Mdia.Mdhd != nil {
			timescale = trak.Mdia.Mdhd.Timescale
		}
		break
	}
	if trackID == 0 {
		return nil, 0, 0, fmt.Errorf("no video track found")
	}

	var trex *mp4.TrexBox
	if mp4File.Init.Moov.Mvex != nil {
		for _, t := range mp4File.Init.Moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var samples []sample
	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != trackID {
					continue
				}

				var baseDecodeTime uint64
				if traf.Tfdt != nil {
					baseDecodeTime = traf.Tfdt.BaseMediaDecodeTime()
				}

				fullSamples, err := frag.GetFullSamples(trex)
				if err != nil {
					return nil, 0, 0, fmt.Errorf("get samples: %w", err)
				}

				currentTime := baseDecodeTime
				for _, fs := range fullSamples {
					samples = append(samples, sample{
						data:       fs.Data,
						startSec:   float64(currentTime) / float64(timescale),
						durSec:     float64(fs.Dur) / float64(timescale),
						isKeyframe: fs.Flags == mp4.SyncSampleFlags,
					})
					currentTime += uint64(fs.Dur)
				}
			}
		}
	}

	return samples, width, height, nil
}

var _ ports.FrameSource = (*Source)(nil)
