package flac

// BlockKind tags the concrete variant of an emitted Block.
type BlockKind int

const (
	KindStreaminfo BlockKind = iota
	KindPadding
	KindApplication
	KindSeektable
	KindVorbisComment
	KindCuesheet
	KindPicture
	KindAudioFrame
)

func (k BlockKind) String() string {
	switch k {
	case KindStreaminfo:
		return "Streaminfo"
	case KindPadding:
		return "Padding"
	case KindApplication:
		return "Application"
	case KindSeektable:
		return "Seektable"
	case KindVorbisComment:
		return "VorbisComment"
	case KindCuesheet:
		return "Cuesheet"
	case KindPicture:
		return "Picture"
	case KindAudioFrame:
		return "AudioFrame"
	default:
		return "Unknown"
	}
}

// metaBlockType is the on-the-wire metadata block type tag (FLAC §METADATA_BLOCK_HEADER).
type metaBlockType uint8

const (
	metaStreaminfo metaBlockType = iota
	metaPadding
	metaApplication
	metaSeektable
	metaVorbisComment
	metaCuesheet
	metaPicture
)

func (t metaBlockType) valid() bool {
	return t <= metaPicture
}

// BlockSelector chooses which block kinds a BlockReader keeps; all fields
// are false by default.
type BlockSelector struct {
	PickStreaminfo    bool
	PickPadding       bool
	PickApplication   bool
	PickSeektable     bool
	PickVorbisComment bool
	PickCuesheet      bool
	PickPicture       bool
	PickAudio         bool
}

// AllBlocks returns a selector that picks every block kind.
func AllBlocks() BlockSelector {
	return BlockSelector{
		PickStreaminfo:    true,
		PickPadding:       true,
		PickApplication:   true,
		PickSeektable:     true,
		PickVorbisComment: true,
		PickCuesheet:      true,
		PickPicture:       true,
		PickAudio:         true,
	}
}

func (s BlockSelector) shouldPickMeta(t metaBlockType) bool {
	switch t {
	case metaStreaminfo:
		return s.PickStreaminfo
	case metaPadding:
		return s.PickPadding
	case metaApplication:
		return s.PickApplication
	case metaSeektable:
		return s.PickSeektable
	case metaVorbisComment:
		return s.PickVorbisComment
	case metaCuesheet:
		return s.PickCuesheet
	case metaPicture:
		return s.PickPicture
	default:
		return false
	}
}
