package callback

import (
	"context"
	"errors"
	"math/rand"

	"github.com/chewangneko/qqcallback/pkg/audience"
	"github.com/chewangneko/qqcallback/pkg/boterr"
)

// MediaType is QQ's rich-media file type code.
type MediaType int

const (
	MediaImage MediaType = 1
	MediaVideo MediaType = 2
	MediaAudio MediaType = 3
)

func (t MediaType) String() string {
	switch t {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	}
	return "unknown"
}

type Media struct {
	Type MediaType
	URL  string
}

// Outbound is one reply. ReplyTo is the inbound message id, which makes the
// reply passive and keeps it inside QQ's reply window.
type Outbound struct {
	Content string
	ReplyTo string
	Seq     uint32
	Media   *Media
}

// Transport performs the network sends. Each method is one request; failures
// are returned as-is and wrapped by the caller.
type Transport interface {
	PostChannelMessage(ctx context.Context, channelID string, msg *Outbound) error
	PostGroupMessage(ctx context.Context, groupOpenID string, msg *Outbound) error
	PostDirectMessage(ctx context.Context, userOpenID string, msg *Outbound) error
}

const maxSeq = 1_000_000

var errNoTransport = errors.New("callback has no transport")

type sendOptions struct {
	seq uint32
}

type SendOption func(*sendOptions)

// WithSeq pins the message sequence number. Replies to the same inbound
// message need distinct sequence numbers.
func WithSeq(seq uint32) SendOption {
	return func(o *sendOptions) { o.seq = seq }
}

func newSendOptions(opts []SendOption) sendOptions {
	o := sendOptions{seq: uint32(rand.Intn(maxSeq)) + 1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Send replies with a text message.
func (c *Callback) Send(ctx context.Context, content string, opts ...SendOption) error {
	if len(content) == 0 {
		return boterr.EmptyContent("message content must not be empty", 200)
	}
	o := newSendOptions(opts)
	return c.post(ctx, &Outbound{
		Content: content,
		ReplyTo: c.MessageID(),
		Seq:     o.seq,
	})
}

// SendImage replies with the image at imageURL and an optional caption.
func (c *Callback) SendImage(ctx context.Context, imageURL, caption string, opts ...SendOption) error {
	return c.sendMedia(ctx, MediaImage, imageURL, caption, opts)
}

// SendAudio replies with a silk voice clip. Channels cannot receive audio.
func (c *Callback) SendAudio(ctx context.Context, audioURL string, opts ...SendOption) error {
	return c.sendMedia(ctx, MediaAudio, audioURL, "", opts)
}

// SendVideo replies with an mp4 video. Channels cannot receive video.
func (c *Callback) SendVideo(ctx context.Context, videoURL string, opts ...SendOption) error {
	return c.sendMedia(ctx, MediaVideo, videoURL, "", opts)
}

func (c *Callback) sendMedia(ctx context.Context, mediaType MediaType, url, caption string, opts []SendOption) error {
	if len(url) == 0 {
		return boterr.EmptyContent("media url must not be empty", 500)
	}
	if c.kind == audience.Channel && mediaType != MediaImage {
		return boterr.Incompatibility("channel messages cannot carry "+mediaType.String(), 500)
	}
	o := newSendOptions(opts)
	return c.post(ctx, &Outbound{
		Content: caption,
		ReplyTo: c.MessageID(),
		Seq:     o.seq,
		Media:   &Media{Type: mediaType, URL: url},
	})
}

func (c *Callback) post(ctx context.Context, out *Outbound) error {
	if c.transport == nil {
		return boterr.Runtime(errNoTransport)
	}

	var err error
	switch m := c.msg.(type) {
	case *ChannelMessage:
		err = c.transport.PostChannelMessage(ctx, m.ChannelID, out)
	case *GroupMessage:
		err = c.transport.PostGroupMessage(ctx, m.GroupOpenID, out)
	case *DirectMessage:
		err = c.transport.PostDirectMessage(ctx, m.Author.UserOpenID, out)
	default:
		return boterr.ContentType("unsupported message type", 500)
	}
	return boterr.Wrap(err)
}
