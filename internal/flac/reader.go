package flac

// minAudioFrameLen is the minimum accumulated audio-data length before the
// reader starts scanning for the next frame sync sequence.
const minAudioFrameLen = 5000

// audioChunkLen bounds how many bytes AudioData accumulates per Push
// iteration, so a single large fragment doesn't force one giant re-clone of
// the buffer.
const audioChunkLen = 5000

var magicBytes = [4]byte{0x66, 0x4C, 0x61, 0x43}

type readerState int

const (
	stateMagicBits readerState = iota
	stateMetablockHeader
	stateMetaBlock
	stateAudioData
	stateDone
)

// BlockReader is a push-driven decoder that turns an arbitrarily-fragmented
// FLAC byte stream into a lazy sequence of typed blocks. Feed
// it with Push, drain emitted blocks with PopBlock, and call Finish exactly
// once when the stream is exhausted.
type BlockReader struct {
	selector BlockSelector
	state    readerState

	hdrBuf    [4]byte
	hdrFilled int
	isFirst   bool

	curHeader metablockHeader
	metaBuf   []byte

	audioBuf      []byte
	audioScanFrom int
	syncChecked   bool

	out []Block
}

// NewBlockReader returns a reader positioned at the start of a FLAC stream,
// keeping only the block kinds selector picks.
func NewBlockReader(selector BlockSelector) *BlockReader {
	return &BlockReader{
		selector: selector,
		state:    stateMagicBits,
		isFirst:  true,
	}
}

// PopBlock returns the next emitted block, if any.
func (r *BlockReader) PopBlock() (Block, bool) {
	if len(r.out) == 0 {
		return nil, false
	}
	b := r.out[0]
	r.out = r.out[1:]
	return b, true
}

// HasBlock reports whether PopBlock will return a block right now.
func (r *BlockReader) HasBlock() bool { return len(r.out) > 0 }

// IsDone reports whether Finish has completed successfully.
func (r *BlockReader) IsDone() bool { return r.state == stateDone }

// Push feeds the next fragment of the FLAC byte stream. Fragments may be any
// size ≥ 1 and the emitted block sequence is independent of how the stream
// was partitioned.
func (r *BlockReader) Push(data []byte) error {
	if r.state == stateDone {
		return errAlreadyFinished
	}

	for len(data) > 0 {
		switch r.state {
		case stateMagicBits:
			n := copy(r.hdrBuf[r.hdrFilled:4], data)
			r.hdrFilled += n
			data = data[n:]
			if r.hdrFilled == 4 {
				if r.hdrBuf != magicBytes {
					r.state = stateDone
					return decodeErr(DecodeBadMagicBytes, "stream does not open with fLaC")
				}
				r.state = stateMetablockHeader
				r.hdrFilled = 0
				r.isFirst = true
			}

		case stateMetablockHeader:
			n := copy(r.hdrBuf[r.hdrFilled:4], data)
			r.hdrFilled += n
			data = data[n:]
			if r.hdrFilled == 4 {
				hdr, err := decodeMetablockHeader(r.hdrBuf)
				if err != nil {
					r.state = stateDone
					return &ReaderError{Decode: err.(*DecodeError)}
				}
				if r.isFirst && hdr.blockType != metaStreaminfo {
					r.state = stateDone
					return decodeErr(DecodeBadFirstBlock, "first metadata block must be STREAMINFO, got %s", blockTypeName(hdr.blockType))
				}
				r.curHeader = hdr
				r.metaBuf = r.metaBuf[:0]
				r.state = stateMetaBlock
			}

		case stateMetaBlock:
			need := int(r.curHeader.length) - len(r.metaBuf)
			take := min(need, len(data))
			r.metaBuf = append(r.metaBuf, data[:take]...)
			data = data[take:]

			if len(r.metaBuf) == int(r.curHeader.length) {
				if r.selector.shouldPickMeta(r.curHeader.blockType) {
					block, err := decodeBlock(r.curHeader.blockType, r.metaBuf)
					if err != nil {
						r.state = stateDone
						return &ReaderError{Decode: err.(*DecodeError)}
					}
					r.out = append(r.out, block)
				}
				if r.curHeader.isLast {
					r.state = stateAudioData
					r.audioBuf = r.audioBuf[:0]
					r.audioScanFrom = minAudioFrameLen
					r.syncChecked = false
				} else {
					r.state = stateMetablockHeader
					r.hdrFilled = 0
					r.isFirst = false
				}
			}

		case stateAudioData:
			take := min(audioChunkLen, len(data))
			r.audioBuf = append(r.audioBuf, data[:take]...)
			data = data[take:]

			if err := r.scanAudioData(); err != nil {
				r.state = stateDone
				return err
			}
		}
	}

	return nil
}

// scanAudioData checks the leading sync header once enough bytes have
// arrived, then repeatedly looks for the next frame sync sequence, emitting
// an AudioFrame and restarting AudioData each time one is found. A frame is
// assumed to be at least minAudioFrameLen bytes, so the search for the next
// sync never starts before that offset into the current frame: scanning
// from the two bytes just verified or preserved would otherwise match them
// immediately and split off a zero-length frame.
func (r *BlockReader) scanAudioData() *ReaderError {
	if !r.syncChecked && len(r.audioBuf) >= 2 {
		if !isFrameSync(r.audioBuf[0], r.audioBuf[1]) {
			return decodeErr(DecodeBadSyncBytes, "audio data does not open with a frame sync sequence")
		}
		r.syncChecked = true
	}

	for len(r.audioBuf) >= minAudioFrameLen {
		found := -1
		start := r.audioScanFrom
		if start < minAudioFrameLen {
			start = minAudioFrameLen
		}
		for i := start; i < len(r.audioBuf); i++ {
			if isFrameSync(r.audioBuf[i-2], r.audioBuf[i-1]) {
				found = i
				break
			}
		}
		if found == -1 {
			// Nothing found yet; don't rescan what we've already checked,
			// but leave the last byte available in case a sync sequence
			// spans the next chunk's boundary.
			r.audioScanFrom = len(r.audioBuf) - 1
			if r.audioScanFrom < minAudioFrameLen {
				r.audioScanFrom = minAudioFrameLen
			}
			return nil
		}

		i := found
		if r.selector.PickAudio {
			frame := append([]byte(nil), r.audioBuf[:i-2]...)
			r.out = append(r.out, &AudioFrame{Data: frame})
		}
		r.audioBuf = append([]byte(nil), r.audioBuf[i-2:]...)
		r.audioScanFrom = minAudioFrameLen
		r.syncChecked = true
	}
	return nil
}

// Finish tells the reader it has received the entire stream. It is legal
// only once, and only in the AudioData state with at least two buffered
// bytes and a valid sync header.
func (r *BlockReader) Finish() error {
	if r.state == stateDone {
		return errAlreadyFinished
	}
	if r.state != stateAudioData {
		r.state = stateDone
		return decodeErr(DecodeMalformedBlock, "finish() called outside AudioData state")
	}
	if len(r.audioBuf) < 2 {
		r.state = stateDone
		return decodeErr(DecodeMalformedBlock, "not enough trailing audio data to finish")
	}
	if !isFrameSync(r.audioBuf[0], r.audioBuf[1]) {
		r.state = stateDone
		return decodeErr(DecodeBadSyncBytes, "trailing audio data does not open with a frame sync sequence")
	}
	if r.selector.PickAudio {
		r.out = append(r.out, &AudioFrame{Data: append([]byte(nil), r.audioBuf...)})
	}
	r.state = stateDone
	return nil
}

func isFrameSync(b0, b1 byte) bool {
	return b0 == 0xFF && b1&0xFC == 0xF8
}

func blockTypeName(t metaBlockType) string {
	switch t {
	case metaStreaminfo:
		return "STREAMINFO"
	case metaPadding:
		return "PADDING"
	case metaApplication:
		return "APPLICATION"
	case metaSeektable:
		return "SEEKTABLE"
	case metaVorbisComment:
		return "VORBIS_COMMENT"
	case metaCuesheet:
		return "CUESHEET"
	case metaPicture:
		return "PICTURE"
	default:
		return "UNKNOWN"
	}
}
