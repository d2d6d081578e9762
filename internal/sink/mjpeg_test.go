package sink

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/stylecam/internal/frame"
)

func TestMJPEGPublishBeforeOpen(t *testing.T) {
	m := NewMJPEG()
	err := m.Publish(frame.New(8, 8))
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestMJPEGPublishEncodesFrame(t *testing.T) {
	m := NewMJPEG()
	require.NoError(t, m.Open(32, 24, 30))
	assert.True(t, m.IsRunning())

	require.NoError(t, m.Publish(frame.New(32, 24)))

	data := m.LastJPEG()
	require.NotNil(t, data)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())
}

func TestMJPEGOpenTwiceFails(t *testing.T) {
	m := NewMJPEG()
	require.NoError(t, m.Open(32, 24, 30))
	assert.Error(t, m.Open(32, 24, 30))
}

func TestMJPEGCloseAndReopen(t *testing.T) {
	m := NewMJPEG()
	require.NoError(t, m.Open(32, 24, 30))
	require.NoError(t, m.Close())
	assert.False(t, m.IsRunning())

	// Close is idempotent and the sink can be reused.
	require.NoError(t, m.Close())
	require.NoError(t, m.Open(64, 48, 30))
	require.NoError(t, m.Publish(frame.New(64, 48)))
}

func TestSinkFactory(t *testing.T) {
	s, err := New(KindMJPEG, "")
	require.NoError(t, err)
	assert.Equal(t, KindMJPEG, s.Name())

	// Empty kind defaults to MJPEG.
	s, err = New("", "")
	require.NoError(t, err)
	assert.Equal(t, KindMJPEG, s.Name())

	_, err = New("pipewire", "")
	assert.ErrorIs(t, err, ErrUnsupported)
}
