package callback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chewangneko/qqcallback/pkg/audience"
	"github.com/chewangneko/qqcallback/pkg/boterr"
)

func TestSendRoutesByAudience(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTransport{}

	require.NoError(t, groupCallback(t, "x", tr).Send(ctx, "hi", WithSeq(3)))
	require.NoError(t, channelCallback(t, "x", tr).Send(ctx, "hi"))
	require.NoError(t, directCallback(t, "x", tr).Send(ctx, "hi"))

	require.Len(t, tr.sent, 3)
	assert.Equal(t, sent{
		audience: audience.Group,
		target:   "group-1",
		msg:      Outbound{Content: "hi", ReplyTo: "msg-1", Seq: 3},
	}, tr.sent[0])
	assert.Equal(t, audience.Channel, tr.sent[1].audience)
	assert.Equal(t, "chan-1", tr.sent[1].target)
	assert.Equal(t, audience.Direct, tr.sent[2].audience)
	assert.Equal(t, "user-9", tr.sent[2].target)

	for _, s := range tr.sent[1:] {
		assert.GreaterOrEqual(t, s.msg.Seq, uint32(1))
		assert.LessOrEqual(t, s.msg.Seq, uint32(maxSeq))
	}
}

func TestSendEmptyContent(t *testing.T) {
	tr := &fakeTransport{}
	err := groupCallback(t, "x", tr).Send(context.Background(), "")

	var be *boterr.Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, boterr.KindEmptyContent, be.Kind)
	assert.Equal(t, 200, be.Code)
	assert.Zero(t, tr.calls())
}

func TestSendMedia(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTransport{}
	cb := groupCallback(t, "x", tr)

	require.NoError(t, cb.SendImage(ctx, "https://img.example/cat.png", "a cat"))
	require.NoError(t, cb.SendAudio(ctx, "https://cdn.example/v.silk"))
	require.NoError(t, cb.SendVideo(ctx, "https://cdn.example/v.mp4"))

	require.Len(t, tr.sent, 3)
	assert.Equal(t, &Media{Type: MediaImage, URL: "https://img.example/cat.png"}, tr.sent[0].msg.Media)
	assert.Equal(t, "a cat", tr.sent[0].msg.Content)
	assert.Equal(t, MediaAudio, tr.sent[1].msg.Media.Type)
	assert.Equal(t, MediaVideo, tr.sent[2].msg.Media.Type)
}

func TestSendMediaValidation(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTransport{}

	err := groupCallback(t, "x", tr).SendImage(ctx, "", "caption")
	assert.ErrorIs(t, err, boterr.ErrEmptyContent)

	ch := channelCallback(t, "x", tr)
	err = ch.SendAudio(ctx, "https://cdn.example/v.silk")
	assert.ErrorIs(t, err, boterr.ErrIncompatibility)
	err = ch.SendVideo(ctx, "https://cdn.example/v.mp4")
	assert.ErrorIs(t, err, boterr.ErrIncompatibility)
	assert.Zero(t, tr.calls())

	require.NoError(t, ch.SendImage(ctx, "https://img.example/cat.png", ""))
	assert.Equal(t, 1, tr.calls())
}

func TestSendWrapsTransportFailure(t *testing.T) {
	cause := errors.New("connection reset")
	tr := &fakeTransport{err: cause}

	err := directCallback(t, "x", tr).Send(context.Background(), "hi")
	assert.ErrorIs(t, err, boterr.ErrRuntime)
	assert.ErrorIs(t, err, cause)
}

func TestSendWithoutTransport(t *testing.T) {
	err := directCallback(t, "x", nil).Send(context.Background(), "hi")
	assert.ErrorIs(t, err, boterr.ErrRuntime)
}

func TestMediaTypeString(t *testing.T) {
	assert.Equal(t, "image", MediaImage.String())
	assert.Equal(t, "video", MediaVideo.String())
	assert.Equal(t, "audio", MediaAudio.String())
	assert.Equal(t, "unknown", MediaType(9).String())
}
