package flac

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildSyntheticStream assembles a small, valid FLAC byte stream exercising
// every metadata block kind plus several audio frames.
func buildSyntheticStream(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(magicBytes[:])

	streaminfo := make([]byte, 34)
	// min/max block size
	streaminfo[0], streaminfo[1] = 0x10, 0x00
	streaminfo[2], streaminfo[3] = 0x10, 0x00
	// min/max frame size (24-bit)
	putUint24BE(streaminfo[4:7], 1000)
	putUint24BE(streaminfo[7:10], 2000)
	packed := (uint64(44100) << 44) | (uint64(1) << 41) | (uint64(15) << 36) | uint64(123456)
	var packedBytes [8]byte
	for i := 0; i < 8; i++ {
		packedBytes[i] = byte(packed >> uint(8*(7-i)))
	}
	copy(streaminfo[10:18], packedBytes[:])
	for i := 18; i < 34; i++ {
		streaminfo[i] = byte(i)
	}
	require.NoError(t, writeMetablockHeader(&buf, metaStreaminfo, len(streaminfo), false))
	buf.Write(streaminfo)

	padding := make([]byte, 16)
	require.NoError(t, writeMetablockHeader(&buf, metaPadding, len(padding), false))
	buf.Write(padding)

	vendor := "synthtest 1.0"
	comment := "TITLE=unit test"
	var vc bytes.Buffer
	writeLE32(&vc, uint32(len(vendor)))
	vc.WriteString(vendor)
	writeLE32(&vc, 1)
	writeLE32(&vc, uint32(len(comment)))
	vc.WriteString(comment)
	require.NoError(t, writeMetablockHeader(&buf, metaVorbisComment, vc.Len(), true))
	buf.Write(vc.Bytes())

	// Audio data: several frames big enough to force at least one
	// sync-scan pass (> minAudioFrameLen total).
	frame := make([]byte, 2000)
	frame[0], frame[1] = 0xFF, 0xF8
	for i := 2; i < len(frame); i++ {
		frame[i] = byte(i * 7)
	}
	for i := 0; i < 4; i++ {
		buf.Write(frame)
	}

	return buf.Bytes()
}

func writeLE32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 24))
}

func drainAll(t *testing.T, r *BlockReader) []Block {
	t.Helper()
	var blocks []Block
	for {
		b, ok := r.PopBlock()
		if !ok {
			break
		}
		blocks = append(blocks, b)
	}
	return blocks
}

func pushInFragments(t *testing.T, r *BlockReader, data []byte, fragSize int) error {
	t.Helper()
	for off := 0; off < len(data); off += fragSize {
		end := off + fragSize
		if end > len(data) {
			end = len(data)
		}
		if err := r.Push(data[off:end]); err != nil {
			return err
		}
	}
	return nil
}

func TestBlockReader_WholeStream(t *testing.T) {
	data := buildSyntheticStream(t)

	r := NewBlockReader(AllBlocks())
	require.NoError(t, r.Push(data))
	require.NoError(t, r.Finish())

	blocks := drainAll(t, r)
	require.True(t, r.IsDone())

	require.IsType(t, &StreaminfoBlock{}, blocks[0])
	si := blocks[0].(*StreaminfoBlock)
	require.EqualValues(t, 44100, si.SampleRate)
	require.EqualValues(t, 2, si.Channels)
	require.EqualValues(t, 16, si.BitsPerSample)

	var kinds []BlockKind
	for _, b := range blocks {
		kinds = append(kinds, b.Kind())
	}
	require.Contains(t, kinds, KindPadding)
	require.Contains(t, kinds, KindVorbisComment)
	require.Contains(t, kinds, KindAudioFrame)

	// Metadata blocks must precede the first audio frame.
	sawAudio := false
	for _, k := range kinds {
		if k == KindAudioFrame {
			sawAudio = true
			continue
		}
		require.False(t, sawAudio, "metadata block emitted after an audio frame")
	}
}

// TestBlockReader_FragmentIndependence checks that the emitted block
// sequence does not depend on how the input was partitioned into
// fragments.
func TestBlockReader_FragmentIndependence(t *testing.T) {
	data := buildSyntheticStream(t)

	whole := NewBlockReader(AllBlocks())
	require.NoError(t, whole.Push(data))
	require.NoError(t, whole.Finish())
	wholeBlocks := drainAll(t, whole)

	for _, fragSize := range []int{1, 3, 7, 64, 4096} {
		r := NewBlockReader(AllBlocks())
		require.NoError(t, pushInFragments(t, r, data, fragSize))
		require.NoError(t, r.Finish())
		blocks := drainAll(t, r)

		require.Equal(t, len(wholeBlocks), len(blocks), "fragment size %d produced a different block count", fragSize)
		for i := range wholeBlocks {
			require.Equal(t, wholeBlocks[i].Kind(), blocks[i].Kind(), "fragment size %d: block %d kind mismatch", fragSize, i)
		}
	}
}

// TestBlockReader_RoundTrip checks that re-encoding every emitted block
// reproduces the source byte stream.
func TestBlockReader_RoundTrip(t *testing.T) {
	data := buildSyntheticStream(t)
	inHash := sha256.Sum256(data)

	r := NewBlockReader(AllBlocks())
	require.NoError(t, pushInFragments(t, r, data, 1))
	require.NoError(t, r.Finish())
	blocks := drainAll(t, r)

	var out bytes.Buffer
	out.Write(magicBytes[:])
	for i, b := range blocks {
		isLast := false
		if _, ok := b.(*AudioFrame); !ok {
			nextIsAudio := i+1 < len(blocks)
			if nextIsAudio {
				_, nextIsFrame := blocks[i+1].(*AudioFrame)
				isLast = nextIsFrame
			}
		}
		require.NoError(t, b.Encode(isLast, true, &out))
	}

	outHash := sha256.Sum256(out.Bytes())
	require.Equal(t, hex.EncodeToString(inHash[:]), hex.EncodeToString(outHash[:]))
}

// TestBlockReader_BadMagic checks that a stream with a wrong magic prefix
// fails the first Push with DecodeBadMagicBytes.
func TestBlockReader_BadMagic(t *testing.T) {
	data := append([]byte{0x00, 0x00, 0x00, 0x00}, buildSyntheticStream(t)[4:]...)

	r := NewBlockReader(AllBlocks())
	err := r.Push(data)
	require.Error(t, err)

	var rerr *ReaderError
	require.ErrorAs(t, err, &rerr)
	require.NotNil(t, rerr.Decode)
	require.Equal(t, DecodeBadMagicBytes, rerr.Decode.Kind)
}

func TestBlockReader_BadFirstBlock(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(magicBytes[:])
	padding := make([]byte, 4)
	require.NoError(t, writeMetablockHeader(&buf, metaPadding, len(padding), true))
	buf.Write(padding)

	r := NewBlockReader(AllBlocks())
	err := r.Push(buf.Bytes())
	require.Error(t, err)

	var rerr *ReaderError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, DecodeBadFirstBlock, rerr.Decode.Kind)
}

func TestBlockReader_PushAfterFinishFails(t *testing.T) {
	data := buildSyntheticStream(t)
	r := NewBlockReader(AllBlocks())
	require.NoError(t, r.Push(data))
	require.NoError(t, r.Finish())

	err := r.Push([]byte{0x00})
	require.Error(t, err)
	var rerr *ReaderError
	require.ErrorAs(t, err, &rerr)
	require.True(t, rerr.AlreadyFinished)

	err = r.Finish()
	require.Error(t, err)
	require.ErrorAs(t, err, &rerr)
	require.True(t, rerr.AlreadyFinished)
}

func TestBlockReader_SelectorFiltersBlocks(t *testing.T) {
	data := buildSyntheticStream(t)

	sel := BlockSelector{PickStreaminfo: true}
	r := NewBlockReader(sel)
	require.NoError(t, r.Push(data))
	require.NoError(t, r.Finish())
	blocks := drainAll(t, r)

	require.Len(t, blocks, 1)
	require.Equal(t, KindStreaminfo, blocks[0].Kind())
}
