package flac

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeApplication(t *testing.T) {
	data := append([]byte("abcd"), []byte("payload")...)
	b, err := decodeApplication(data)
	require.NoError(t, err)
	require.Equal(t, [4]byte{'a', 'b', 'c', 'd'}, b.ApplicationID)
	require.Equal(t, []byte("payload"), b.Data)
	require.Equal(t, KindApplication, b.Kind())

	var out bytes.Buffer
	require.NoError(t, b.Encode(false, false, &out))
	require.Equal(t, data, out.Bytes())
}

func TestDecodeApplication_TooShort(t *testing.T) {
	_, err := decodeApplication([]byte{0x01, 0x02})
	require.Error(t, err)
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, DecodeMalformedBlock, derr.Kind)
}

func TestDecodeSeektable(t *testing.T) {
	var data []byte
	for i := 0; i < 3; i++ {
		point := make([]byte, 18)
		point[7] = byte(i + 1)
		data = append(data, point...)
	}
	b, err := decodeSeektable(data)
	require.NoError(t, err)
	require.Len(t, b.Points, 3)
	require.EqualValues(t, 2, b.Points[1].SampleNumber)

	var out bytes.Buffer
	require.NoError(t, b.Encode(true, false, &out))
	require.Equal(t, data, out.Bytes())
}

func TestDecodeSeektable_BadLength(t *testing.T) {
	_, err := decodeSeektable(make([]byte, 17))
	require.Error(t, err)
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, DecodeMalformedBlock, derr.Kind)
}

func TestDecodeVorbisComment_TrailingBytes(t *testing.T) {
	var buf bytes.Buffer
	writeLE32(&buf, 0)
	writeLE32(&buf, 0)
	buf.WriteByte(0xFF)

	_, err := decodeVorbisComment(buf.Bytes())
	require.Error(t, err)
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, DecodeMalformedBlock, derr.Kind)
}

func TestDecodePicture(t *testing.T) {
	var buf bytes.Buffer
	writeBE32(&buf, 3)
	mime := "image/png"
	writeBE32(&buf, uint32(len(mime)))
	buf.WriteString(mime)
	writeBE32(&buf, 0) // description length
	writeBE32(&buf, 100)
	writeBE32(&buf, 100)
	writeBE32(&buf, 24)
	writeBE32(&buf, 0)
	img := []byte{1, 2, 3, 4}
	writeBE32(&buf, uint32(len(img)))
	buf.Write(img)

	b, err := decodePicture(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "image/png", b.MIME)
	require.EqualValues(t, 100, b.Width)
	require.Equal(t, img, b.ImageData)

	var out bytes.Buffer
	require.NoError(t, b.Encode(false, false, &out))
	require.Equal(t, buf.Bytes(), out.Bytes())
}

func writeBE32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v >> 24))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
}

func TestDecodeCuesheet(t *testing.T) {
	data := make([]byte, 128+8+1+258+1+10)
	copy(data[0:], "CATALOG123")
	data[136] = 0x80 // compact disc flag
	data[128+8+1+258] = 2
	copy(data[128+8+1+258+1:], []byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9})

	b, err := decodeCuesheet(data)
	require.NoError(t, err)
	require.Equal(t, "CATALOG123", b.CatalogNumber)
	require.True(t, b.IsCompactDisc)
	require.EqualValues(t, 2, b.NumTracks)
	require.Len(t, b.TrackDataBytes, 10)

	var out bytes.Buffer
	require.NoError(t, b.Encode(true, false, &out))
	require.Equal(t, data, out.Bytes())
}

func TestDecodeMetablockHeader_UnknownType(t *testing.T) {
	_, err := decodeMetablockHeader([4]byte{0x7F, 0, 0, 0})
	require.Error(t, err)
}

func TestMetablockHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMetablockHeader(&buf, metaSeektable, 36, true))
	var hdr [4]byte
	copy(hdr[:], buf.Bytes())
	decoded, err := decodeMetablockHeader(hdr)
	require.NoError(t, err)
	require.Equal(t, metaSeektable, decoded.blockType)
	require.EqualValues(t, 36, decoded.length)
	require.True(t, decoded.isLast)
}
