package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff, '\n'}
	for _, kind := range []Kind{KindImage, KindFile} {
		encoded, err := Encode(kind, data, "photo.png", "look at this")
		require.NoError(t, err)

		got := Decode(encoded)
		require.True(t, got.IsAttachment(), "kind %s", kind)
		assert.Equal(t, kind, got.Attachment.Kind)
		assert.Equal(t, data, got.Attachment.Data)
		assert.Equal(t, "photo.png", got.Attachment.Name)
		assert.Equal(t, "look at this", got.Attachment.Caption)
	}
}

func TestRoundTripWithoutCaption(t *testing.T) {
	encoded, err := Encode(KindFile, []byte("pdf bytes"), "report.pdf", "")
	require.NoError(t, err)

	got := Decode(encoded)
	require.True(t, got.IsAttachment())
	assert.Empty(t, got.Attachment.Caption)
	assert.False(t, got.Attachment.Inline())
	assert.Equal(t, "[file] report.pdf", got.Preview())
}

func TestEncodeRejectsUnknownKind(t *testing.T) {
	_, err := Encode(Kind("video"), []byte("x"), "v.mp4", "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRoundTripZeroByteFile(t *testing.T) {
	encoded, err := Encode(KindFile, []byte{}, "empty.txt", "nothing inside")
	require.NoError(t, err)

	got := Decode(encoded)
	require.True(t, got.IsAttachment())
	assert.Equal(t, KindFile, got.Attachment.Kind)
	assert.Empty(t, got.Attachment.Data)
	assert.Equal(t, "empty.txt", got.Attachment.Name)
	assert.Equal(t, "nothing inside", got.Attachment.Caption)
}

func TestDecodePlainText(t *testing.T) {
	for _, in := range []string{
		"hello there",
		"",
		`{"type":"image"}`,
		`{"content":"aGk="}`,
		`{"type":"video","content":"aGk="}`,
		`["type","content"]`,
		`42`,
	} {
		got := Decode(in)
		assert.False(t, got.IsAttachment(), "input %q", in)
		assert.Equal(t, in, got.Text)
		assert.Equal(t, in, got.Preview())
	}
}

// Literal text shaped like an envelope is read as an attachment. This is the
// documented behavior of the codec, not a bug to paper over.
func TestDecodeMisclassifiesEnvelopeShapedText(t *testing.T) {
	typed := `{"type":"file","content":"aGk="}`

	got := Decode(typed)
	require.True(t, got.IsAttachment())
	assert.Equal(t, KindFile, got.Attachment.Kind)
	assert.Equal(t, []byte("hi"), got.Attachment.Data)
	assert.Empty(t, got.Text)

	// the content need not even be base64
	got = Decode(`{"type":"image","content":"hello world"}`)
	require.True(t, got.IsAttachment())
	assert.Equal(t, KindImage, got.Attachment.Kind)
	assert.Equal(t, []byte("hello world"), got.Attachment.Data)
}

func TestImagesRenderInline(t *testing.T) {
	encoded, err := Encode(KindImage, []byte{1, 2, 3}, "cat.jpg", "")
	require.NoError(t, err)
	got := Decode(encoded)
	require.True(t, got.IsAttachment())
	assert.True(t, got.Attachment.Inline())
	assert.Equal(t, "[image] cat.jpg", got.Preview())
}
