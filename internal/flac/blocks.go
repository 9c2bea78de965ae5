package flac

import (
	"encoding/binary"
	"io"
)

// Block is the common shape of every FLAC structural unit BlockReader can
// emit: one of seven metadata kinds or an audio frame.
// Encode reproduces the block's canonical wire form, sufficient to round-trip
// a stream when every original block was kept.
type Block interface {
	Kind() BlockKind
	Encode(isLast, withHeader bool, w io.Writer) error
}

type metablockHeader struct {
	blockType metaBlockType
	length    uint32
	isLast    bool
}

func decodeMetablockHeader(b [4]byte) (metablockHeader, error) {
	blockType := metaBlockType(b[0] & 0x7F)
	if !blockType.valid() {
		return metablockHeader{}, newDecodeError(DecodeMalformedBlock, "unrecognized metadata block type %d", b[0]&0x7F)
	}
	return metablockHeader{
		blockType: blockType,
		isLast:    b[0]&0x80 != 0,
		length:    getUint24BE(b[1:4]),
	}, nil
}

func writeMetablockHeader(w io.Writer, t metaBlockType, length int, isLast bool) error {
	var hdr [4]byte
	hdr[0] = byte(t) & 0x7F
	if isLast {
		hdr[0] |= 0x80
	}
	putUint24BE(hdr[1:4], uint32(length))
	_, err := w.Write(hdr[:])
	return err
}

func getUint24BE(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func putUint24BE(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// decodeBlock dispatches a metadata block's raw payload to its per-type
// decoder.
func decodeBlock(t metaBlockType, data []byte) (Block, error) {
	switch t {
	case metaStreaminfo:
		return decodeStreaminfo(data)
	case metaPadding:
		return decodePadding(data)
	case metaApplication:
		return decodeApplication(data)
	case metaSeektable:
		return decodeSeektable(data)
	case metaVorbisComment:
		return decodeVorbisComment(data)
	case metaCuesheet:
		return decodeCuesheet(data)
	case metaPicture:
		return decodePicture(data)
	default:
		return nil, newDecodeError(DecodeMalformedBlock, "unrecognized metadata block type %d", t)
	}
}

// --- STREAMINFO ---

// StreaminfoBlock is the mandatory first metadata block (FLAC §METADATA_BLOCK_STREAMINFO).
type StreaminfoBlock struct {
	MinBlockSize  uint16
	MaxBlockSize  uint16
	MinFrameSize  uint32 // 24-bit
	MaxFrameSize  uint32 // 24-bit
	SampleRate    uint32 // 20-bit
	Channels      uint8  // 1..8, stored as channels-1 on the wire
	BitsPerSample uint8  // 4..32, stored as bits-1 on the wire
	TotalSamples  uint64 // 36-bit
	MD5Signature  [16]byte

	raw []byte
}

func decodeStreaminfo(data []byte) (*StreaminfoBlock, error) {
	if len(data) != 34 {
		return nil, newDecodeError(DecodeMalformedBlock, "STREAMINFO must be 34 bytes, got %d", len(data))
	}
	packed := binary.BigEndian.Uint64(data[10:18])
	b := &StreaminfoBlock{
		MinBlockSize:  binary.BigEndian.Uint16(data[0:2]),
		MaxBlockSize:  binary.BigEndian.Uint16(data[2:4]),
		MinFrameSize:  getUint24BE(data[4:7]),
		MaxFrameSize:  getUint24BE(data[7:10]),
		SampleRate:    uint32(packed >> 44),
		Channels:      uint8((packed>>41)&0x7) + 1,
		BitsPerSample: uint8((packed>>36)&0x1F) + 1,
		TotalSamples:  packed & 0xFFFFFFFFF,
		raw:           append([]byte(nil), data...),
	}
	copy(b.MD5Signature[:], data[18:34])
	return b, nil
}

func (b *StreaminfoBlock) Kind() BlockKind { return KindStreaminfo }

func (b *StreaminfoBlock) Encode(isLast, withHeader bool, w io.Writer) error {
	if withHeader {
		if err := writeMetablockHeader(w, metaStreaminfo, len(b.raw), isLast); err != nil {
			return err
		}
	}
	_, err := w.Write(b.raw)
	return err
}

// --- PADDING ---

// PaddingBlock is an unused-space reservation block; its bytes are
// conventionally zero but are preserved verbatim regardless.
type PaddingBlock struct {
	Size int
	raw  []byte
}

func decodePadding(data []byte) (*PaddingBlock, error) {
	return &PaddingBlock{Size: len(data), raw: append([]byte(nil), data...)}, nil
}

func (b *PaddingBlock) Kind() BlockKind { return KindPadding }

func (b *PaddingBlock) Encode(isLast, withHeader bool, w io.Writer) error {
	if withHeader {
		if err := writeMetablockHeader(w, metaPadding, len(b.raw), isLast); err != nil {
			return err
		}
	}
	_, err := w.Write(b.raw)
	return err
}

// --- APPLICATION ---

// ApplicationBlock carries application-specific data tagged by a 4-byte ID.
type ApplicationBlock struct {
	ApplicationID [4]byte
	Data          []byte
	raw           []byte
}

func decodeApplication(data []byte) (*ApplicationBlock, error) {
	if len(data) < 4 {
		return nil, newDecodeError(DecodeMalformedBlock, "APPLICATION block must be at least 4 bytes, got %d", len(data))
	}
	b := &ApplicationBlock{Data: append([]byte(nil), data[4:]...), raw: append([]byte(nil), data...)}
	copy(b.ApplicationID[:], data[0:4])
	return b, nil
}

func (b *ApplicationBlock) Kind() BlockKind { return KindApplication }

func (b *ApplicationBlock) Encode(isLast, withHeader bool, w io.Writer) error {
	if withHeader {
		if err := writeMetablockHeader(w, metaApplication, len(b.raw), isLast); err != nil {
			return err
		}
	}
	_, err := w.Write(b.raw)
	return err
}

// --- SEEKTABLE ---

// SeekPoint is one 18-byte entry of a SEEKTABLE block.
type SeekPoint struct {
	SampleNumber uint64
	StreamOffset uint64
	FrameSamples uint16
}

// SeektableBlock is a sequence of fixed-size seek points.
type SeektableBlock struct {
	Points []SeekPoint
	raw    []byte
}

func decodeSeektable(data []byte) (*SeektableBlock, error) {
	if len(data)%18 != 0 {
		return nil, newDecodeError(DecodeMalformedBlock, "SEEKTABLE length %d is not a multiple of 18", len(data))
	}
	b := &SeektableBlock{raw: append([]byte(nil), data...)}
	for off := 0; off < len(data); off += 18 {
		entry := data[off : off+18]
		b.Points = append(b.Points, SeekPoint{
			SampleNumber: binary.BigEndian.Uint64(entry[0:8]),
			StreamOffset: binary.BigEndian.Uint64(entry[8:16]),
			FrameSamples: binary.BigEndian.Uint16(entry[16:18]),
		})
	}
	return b, nil
}

func (b *SeektableBlock) Kind() BlockKind { return KindSeektable }

func (b *SeektableBlock) Encode(isLast, withHeader bool, w io.Writer) error {
	if withHeader {
		if err := writeMetablockHeader(w, metaSeektable, len(b.raw), isLast); err != nil {
			return err
		}
	}
	_, err := w.Write(b.raw)
	return err
}

// --- VORBIS_COMMENT ---

// VorbisCommentBlock is the only FLAC metadata block encoded little-endian.
type VorbisCommentBlock struct {
	Vendor   string
	Comments []string
	raw      []byte
}

func decodeVorbisComment(data []byte) (*VorbisCommentBlock, error) {
	if len(data) < 8 {
		return nil, newDecodeError(DecodeMalformedBlock, "VORBIS_COMMENT block must be at least 8 bytes, got %d", len(data))
	}
	off := 0
	readU32 := func() (uint32, error) {
		if off+4 > len(data) {
			return 0, newDecodeError(DecodeMalformedBlock, "VORBIS_COMMENT: truncated length field")
		}
		v := binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
		return v, nil
	}
	readString := func(n uint32) (string, error) {
		if off+int(n) > len(data) {
			return "", newDecodeError(DecodeMalformedBlock, "VORBIS_COMMENT: truncated string field")
		}
		s := string(data[off : off+int(n)])
		off += int(n)
		return s, nil
	}

	vlen, err := readU32()
	if err != nil {
		return nil, err
	}
	vendor, err := readString(vlen)
	if err != nil {
		return nil, err
	}
	count, err := readU32()
	if err != nil {
		return nil, err
	}

	b := &VorbisCommentBlock{Vendor: vendor, raw: append([]byte(nil), data...)}
	for i := uint32(0); i < count; i++ {
		clen, err := readU32()
		if err != nil {
			return nil, err
		}
		comment, err := readString(clen)
		if err != nil {
			return nil, err
		}
		b.Comments = append(b.Comments, comment)
	}
	if off != len(data) {
		return nil, newDecodeError(DecodeMalformedBlock, "VORBIS_COMMENT: %d trailing bytes after declared comments", len(data)-off)
	}
	return b, nil
}

func (b *VorbisCommentBlock) Kind() BlockKind { return KindVorbisComment }

func (b *VorbisCommentBlock) Encode(isLast, withHeader bool, w io.Writer) error {
	if withHeader {
		if err := writeMetablockHeader(w, metaVorbisComment, len(b.raw), isLast); err != nil {
			return err
		}
	}
	_, err := w.Write(b.raw)
	return err
}

// --- CUESHEET ---

// CuesheetBlock describes a CD-style table of contents. Track records are
// kept only as raw bytes (the track layout is variable-length and nested);
// the fixed header fields are decoded for inspection.
type CuesheetBlock struct {
	CatalogNumber  string
	LeadInSamples  uint64
	IsCompactDisc  bool
	NumTracks      uint8
	TrackDataBytes []byte
	raw            []byte
}

func decodeCuesheet(data []byte) (*CuesheetBlock, error) {
	const headerLen = 128 + 8 + 1 + 258 + 1
	if len(data) < headerLen {
		return nil, newDecodeError(DecodeMalformedBlock, "CUESHEET block must be at least %d bytes, got %d", headerLen, len(data))
	}
	catalog := data[0:128]
	// Catalog number is a null-padded ASCII string.
	end := 0
	for end < len(catalog) && catalog[end] != 0 {
		end++
	}
	b := &CuesheetBlock{
		CatalogNumber:  string(catalog[:end]),
		LeadInSamples:  binary.BigEndian.Uint64(data[128:136]),
		IsCompactDisc:  data[136]&0x80 != 0,
		NumTracks:      data[headerLen-1],
		TrackDataBytes: append([]byte(nil), data[headerLen:]...),
		raw:            append([]byte(nil), data...),
	}
	return b, nil
}

func (b *CuesheetBlock) Kind() BlockKind { return KindCuesheet }

func (b *CuesheetBlock) Encode(isLast, withHeader bool, w io.Writer) error {
	if withHeader {
		if err := writeMetablockHeader(w, metaCuesheet, len(b.raw), isLast); err != nil {
			return err
		}
	}
	_, err := w.Write(b.raw)
	return err
}

// --- PICTURE ---

// PictureBlock embeds cover art or other imagery alongside the stream.
type PictureBlock struct {
	PictureType uint32
	MIME        string
	Description string
	Width       uint32
	Height      uint32
	ColorDepth  uint32
	ColorsUsed  uint32
	ImageData   []byte
	raw         []byte
}

func decodePicture(data []byte) (*PictureBlock, error) {
	off := 0
	readU32 := func(field string) (uint32, error) {
		if off+4 > len(data) {
			return 0, newDecodeError(DecodeMalformedBlock, "PICTURE: truncated %s field", field)
		}
		v := binary.BigEndian.Uint32(data[off : off+4])
		off += 4
		return v, nil
	}
	readBytes := func(n uint32, field string) ([]byte, error) {
		if off+int(n) > len(data) {
			return nil, newDecodeError(DecodeMalformedBlock, "PICTURE: truncated %s field", field)
		}
		v := data[off : off+int(n)]
		off += int(n)
		return v, nil
	}

	picType, err := readU32("picture type")
	if err != nil {
		return nil, err
	}
	mimeLen, err := readU32("mime length")
	if err != nil {
		return nil, err
	}
	mime, err := readBytes(mimeLen, "mime")
	if err != nil {
		return nil, err
	}
	descLen, err := readU32("description length")
	if err != nil {
		return nil, err
	}
	desc, err := readBytes(descLen, "description")
	if err != nil {
		return nil, err
	}
	width, err := readU32("width")
	if err != nil {
		return nil, err
	}
	height, err := readU32("height")
	if err != nil {
		return nil, err
	}
	depth, err := readU32("color depth")
	if err != nil {
		return nil, err
	}
	colors, err := readU32("colors used")
	if err != nil {
		return nil, err
	}
	dataLen, err := readU32("picture data length")
	if err != nil {
		return nil, err
	}
	img, err := readBytes(dataLen, "picture data")
	if err != nil {
		return nil, err
	}
	if off != len(data) {
		return nil, newDecodeError(DecodeMalformedBlock, "PICTURE: %d trailing bytes after declared data", len(data)-off)
	}

	return &PictureBlock{
		PictureType: picType,
		MIME:        string(mime),
		Description: string(desc),
		Width:       width,
		Height:      height,
		ColorDepth:  depth,
		ColorsUsed:  colors,
		ImageData:   append([]byte(nil), img...),
		raw:         append([]byte(nil), data...),
	}, nil
}

func (b *PictureBlock) Kind() BlockKind { return KindPicture }

func (b *PictureBlock) Encode(isLast, withHeader bool, w io.Writer) error {
	if withHeader {
		if err := writeMetablockHeader(w, metaPicture, len(b.raw), isLast); err != nil {
			return err
		}
	}
	_, err := w.Write(b.raw)
	return err
}

// --- AudioFrame ---

// AudioFrame is a heuristically-split slice of audio data between two frame
// sync sequences. Over-segmentation is possible but harmless: emitted frames
// concatenate back into the original audio bytes. It has no metadata header;
// isLast/withHeader are accepted for interface symmetry and ignored.
type AudioFrame struct {
	Data []byte
}

func (b *AudioFrame) Kind() BlockKind { return KindAudioFrame }

func (b *AudioFrame) Encode(_, _ bool, w io.Writer) error {
	_, err := w.Write(b.Data)
	return err
}
