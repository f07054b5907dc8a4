package av1encoder

import (
	"bytes"
	"fmt"

	"github.com/Eyevinn/mp4ff/av1"
	"github.com/Eyevinn/mp4ff/mp4"
)

// muxMP4 wraps the buffered AV1 frames into a single-fragment MP4.
func (e *Encoder) muxMP4() ([]byte, error) {
	if len(e.frames) == 0 {
		return nil, fmt.Errorf("no frames encoded")
	}

	const trackID = uint32(1)

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(timescale, "video", "en")

	trak := init.Moov.Trak
	av01 := mp4.CreateVisualSampleEntryBox("av01", uint16(e.width), uint16(e.height), e.configRecord())
	trak.Mdia.Minf.Stbl.Stsd.AddChild(av01)
	trak.Tkhd.Width = mp4.Fixed32(e.width << 16)
	trak.Tkhd.Height = mp4.Fixed32(e.height << 16)

	frag, err := mp4.CreateFragment(1, trackID)
	if err != nil {
		return nil, fmt.Errorf("create fragment: %w", err)
	}

	// Nominal frame duration on the millisecond timebase, for the last
	// sample and any zero-delta pair.
	nominalDur := uint32(float64(timescale) / e.fps)
	if nominalDur == 0 {
		nominalDur = 1
	}

	for i, frame := range e.frames {
		dur := nominalDur
		if i < len(e.frames)-1 {
			if delta := e.frames[i+1].timestampMs - frame.timestampMs; delta > 0 {
				dur = uint32(delta)
			}
		}

		flags := mp4.NonSyncSampleFlags
		if frame.isKeyframe {
			flags = mp4.SyncSampleFlags
		}

		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags: flags,
				Size:  uint32(len(frame.data)),
				Dur:   dur,
			},
			DecodeTime: uint64(frame.timestampMs),
			Data:       frame.data,
		})
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "av01", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}
	if err := frag.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode fragment: %w", err)
	}

	return buf.Bytes(), nil
}

// configRecord builds the Av1C box, carrying the sequence header OBU from the
// first keyframe when one can be located.
func (e *Encoder) configRecord() *mp4.Av1CBox {
	var seqHdr []byte
	for _, f := range e.frames {
		if f.isKeyframe && len(f.data) > 0 {
			seqHdr = extractSequenceHeader(f.data)
			break
		}
	}

	return &mp4.Av1CBox{
		CodecConfRec: av1.CodecConfRec{
			Version:              1,
			SeqProfile:           0,
			SeqLevelIdx0:         8, // Level 4.0
			SeqTier0:             0,
			HighBitdepth:         0,
			TwelveBit:            0,
			MonoChrome:           0,
			ChromaSubsamplingX:   1, // 4:2:0
			ChromaSubsamplingY:   1,
			ChromaSamplePosition: 0,
			ConfigOBUs:           seqHdr,
		},
	}
}

// extractSequenceHeader scans the OBU stream for the sequence header (type 1)
// and returns it with its header bytes.
func extractSequenceHeader(data []byte) []byte {
	offset := 0
	for offset < len(data) {
		header := data[offset]
		obuType := (header >> 3) & 0x0F
		hasExtension := header>>2&0x01 == 1
		hasSizeField := header>>1&0x01 == 1
		start := offset

		offset++
		if hasExtension && offset < len(data) {
			offset++
		}

		var obuSize int
		if hasSizeField {
			obuSize, offset = readLeb128(data, offset)
		} else {
			obuSize = len(data) - offset
		}

		end := offset + obuSize
		if end > len(data) {
			end = len(data)
		}

		if obuType == 1 {
			return data[start:end]
		}
		offset = end
	}
	return nil
}

// readLeb128 decodes a LEB128 value, returning it and the next offset.
func readLeb128(data []byte, offset int) (int, int) {
	value := 0
	for i := 0; i < 8 && offset < len(data); i++ {
		b := data[offset]
		offset++
		value |= int(b&0x7F) << (i * 7)
		if b&0x80 == 0 {
			break
		}
	}
	return value, offset
}
