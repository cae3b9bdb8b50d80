package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbeOutput(t *testing.T) {
	out := `{
		"streams": [
			{"codec_type": "audio"},
			{"codec_type": "video", "width": 1280, "height": 720}
		],
		"format": {"duration": "93.400000", "size": "1048576", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
	}`

	info, err := parseProbeOutput(out)
	require.NoError(t, err)
	assert.Equal(t, 1280, info.Width)
	assert.Equal(t, 720, info.Height)
	assert.InDelta(t, 93.4, info.Duration, 0.0001)
	assert.Equal(t, int64(1048576), info.Size)
	assert.Equal(t, "mov", info.Format)

	_, err = parseProbeOutput("not json")
	assert.Error(t, err)
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("lesson.MP4", AllowedVideoExtensions))
	assert.False(t, HasExtension("lesson.exe", AllowedVideoExtensions))
	assert.True(t, HasExtension("essay.pdf", AllowedAttachmentExtensions))
}
