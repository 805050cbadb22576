// Package callback wraps one inbound QQ message in a uniform facade and routes
// it to bound command handlers.
//
// A Callback is built per message and must be dropped once the triggering
// request is done: QQ reply windows expire, so a long-lived Callback will
// eventually fail to send. Do not mutate the wrapped Message after New.
package callback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chewangneko/qqcallback/pkg/audience"
	"github.com/chewangneko/qqcallback/pkg/boterr"
	"github.com/chewangneko/qqcallback/pkg/store"
	"github.com/chewangneko/qqcallback/pkg/usage"
)

const (
	DefaultAvatarAPI  = "https://thirdqq.qlogo.cn/qqapp/%s/%s/%d"
	DefaultAvatarSize = 640
)

type Callback struct {
	msg       Message
	kind      audience.Kind
	transport Transport
	db        *store.Database
	botAppID  string
}

type Option func(*Callback)

// WithDatabase binds a user store to the callback.
func WithDatabase(db *store.Database) Option {
	return func(c *Callback) { c.db = db }
}

// WithBotAppID sets the bot app id used for avatar URLs.
func WithBotAppID(appID string) Option {
	return func(c *Callback) { c.botAppID = appID }
}

// New wraps msg. It fails with a content-type error when msg is nil or not
// one of the three known variants.
func New(msg Message, transport Transport, opts ...Option) (*Callback, error) {
	var kind audience.Kind
	switch m := msg.(type) {
	case *ChannelMessage:
		if m != nil {
			kind = audience.Channel
		}
	case *GroupMessage:
		if m != nil {
			kind = audience.Group
		}
	case *DirectMessage:
		if m != nil {
			kind = audience.Direct
		}
	}
	if kind == "" {
		return nil, boterr.ContentType(fmt.Sprintf("unsupported message type %T", msg), 400)
	}

	c := &Callback{
		msg:       msg,
		kind:      kind,
		transport: transport,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FromPayload is FromEvent followed by New.
func FromPayload(payload any, transport Transport, opts ...Option) (*Callback, error) {
	msg, err := FromEvent(payload)
	if err != nil {
		return nil, err
	}
	return New(msg, transport, opts...)
}

func (c *Callback) Audience() audience.Kind { return c.kind }

func (c *Callback) Message() Message { return c.msg }

// Database returns the bound store, or nil.
func (c *Callback) Database() *store.Database { return c.db }

func (c *Callback) BotAppID() string { return c.botAppID }

// MessageID is the id of the inbound message, used as the reply target.
func (c *Callback) MessageID() string {
	switch m := c.msg.(type) {
	case *ChannelMessage:
		return m.ID
	case *GroupMessage:
		return m.ID
	case *DirectMessage:
		return m.ID
	}
	return ""
}

// UserOpenID is the sender's open id. Channel ids differ from group and
// direct ids for the same person.
func (c *Callback) UserOpenID() string {
	switch m := c.msg.(type) {
	case *ChannelMessage:
		return m.Author.ID
	case *GroupMessage:
		return m.Author.MemberOpenID
	case *DirectMessage:
		return m.Author.UserOpenID
	}
	return ""
}

// ContextID is the channel id or group open id the message arrived in, and
// "" for direct messages.
func (c *Callback) ContextID() string {
	switch m := c.msg.(type) {
	case *ChannelMessage:
		return m.ChannelID
	case *GroupMessage:
		return m.GroupOpenID
	}
	return ""
}

func (c *Callback) rawContent() string {
	switch m := c.msg.(type) {
	case *ChannelMessage:
		return m.Content
	case *GroupMessage:
		return m.Content
	case *DirectMessage:
		return m.Content
	}
	return ""
}

// Content returns the trimmed message text.
func (c *Callback) Content() string {
	return strings.TrimSpace(c.rawContent())
}

// Timestamp returns the send time reported by QQ, if any.
func (c *Callback) Timestamp() (string, bool) {
	var ts string
	switch m := c.msg.(type) {
	case *ChannelMessage:
		ts = m.Timestamp
	case *GroupMessage:
		ts = m.Timestamp
	case *DirectMessage:
		ts = m.Timestamp
	}
	return ts, ts != ""
}

// Date returns today's local date as YYYY-MM-DD.
func (c *Callback) Date() string {
	return time.Now().Format("2006-01-02")
}

// Usage samples host CPU and memory. It returns nil without error when the
// platform exposes no counters.
func (c *Callback) Usage(ctx context.Context) (*usage.Usage, error) {
	u, err := usage.Sample(ctx, usage.DefaultInterval)
	if errors.Is(err, usage.ErrUnavailable) {
		return nil, nil
	}
	if err != nil {
		return nil, boterr.Wrap(err)
	}
	return u, nil
}

// ParsedCommand is the result of Command: either the raw trimmed text or,
// when IsCommand is set, the arguments following the prefix.
type ParsedCommand struct {
	Text      string
	Args      []string
	IsCommand bool
}

// Command splits the message into arguments when it starts with prefix and
// split is true. Otherwise Text holds the trimmed content untouched.
func (c *Callback) Command(prefix string, split bool) ParsedCommand {
	text := c.Content()
	if split && strings.HasPrefix(text, prefix) {
		rest := strings.TrimSpace(text[len(prefix):])
		return ParsedCommand{
			Text:      text,
			Args:      strings.Fields(rest),
			IsCommand: true,
		}
	}
	return ParsedCommand{Text: text}
}

type avatarOptions struct {
	botAppID string
	openID   string
	api      string
	size     int
}

type AvatarOption func(*avatarOptions)

// WithAvatarBotAppID overrides the bot app id bound at construction.
func WithAvatarBotAppID(appID string) AvatarOption {
	return func(o *avatarOptions) { o.botAppID = appID }
}

// WithAvatarOpenID asks for another member's avatar.
func WithAvatarOpenID(openID string) AvatarOption {
	return func(o *avatarOptions) { o.openID = openID }
}

// WithAvatarAPI replaces the URL template. It receives bot app id, open id
// and size, in that order.
func WithAvatarAPI(api string) AvatarOption {
	return func(o *avatarOptions) { o.api = api }
}

func WithAvatarSize(size int) AvatarOption {
	return func(o *avatarOptions) { o.size = size }
}

// HeadURL returns the sender's avatar URL. Channel messages carry their own
// avatar URL; group and direct avatars are built from the template.
func (c *Callback) HeadURL(opts ...AvatarOption) string {
	if m, ok := c.msg.(*ChannelMessage); ok {
		return m.Author.Avatar
	}

	o := avatarOptions{
		botAppID: c.botAppID,
		api:      DefaultAvatarAPI,
		size:     DefaultAvatarSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.openID == "" {
		o.openID = c.UserOpenID()
	}
	return fmt.Sprintf(o.api, o.botAppID, o.openID, o.size)
}
