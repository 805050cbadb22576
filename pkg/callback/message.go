package callback

import (
	"fmt"

	"github.com/tencent-connect/botgo/dto"

	"github.com/chewangneko/qqcallback/pkg/audience"
	"github.com/chewangneko/qqcallback/pkg/boterr"
)

// Message is one inbound QQ message. The set of implementations is closed:
// *ChannelMessage, *GroupMessage and *DirectMessage.
type Message interface {
	Audience() audience.Kind
	sealed()
}

// ChannelMessage is a guild channel message that @-mentions the bot.
type ChannelMessage struct {
	ID        string
	ChannelID string
	GuildID   string
	Content   string
	Timestamp string
	Author    ChannelAuthor
}

type ChannelAuthor struct {
	ID       string
	Username string
	// Avatar is a ready-to-use URL supplied by QQ.
	Avatar string
}

// GroupMessage is a group message that @-mentions the bot.
type GroupMessage struct {
	ID          string
	GroupOpenID string
	Content     string
	Timestamp   string
	Author      GroupAuthor
}

type GroupAuthor struct {
	MemberOpenID string
}

// DirectMessage is a C2C (one-to-one) message.
type DirectMessage struct {
	ID        string
	Content   string
	Timestamp string
	Author    DirectAuthor
}

type DirectAuthor struct {
	UserOpenID string
}

func (*ChannelMessage) Audience() audience.Kind { return audience.Channel }
func (*GroupMessage) Audience() audience.Kind   { return audience.Group }
func (*DirectMessage) Audience() audience.Kind  { return audience.Direct }

func (*ChannelMessage) sealed() {}
func (*GroupMessage) sealed()   {}
func (*DirectMessage) sealed()  {}

// FromEvent converts a botgo websocket payload into a Message. Payloads of
// any other type fail with a content-type error.
func FromEvent(payload any) (Message, error) {
	switch data := payload.(type) {
	case *dto.WSATMessageData:
		if data == nil {
			break
		}
		return channelFromDTO((*dto.Message)(data)), nil
	case *dto.WSMessageData:
		if data == nil {
			break
		}
		return channelFromDTO((*dto.Message)(data)), nil
	case *dto.WSGroupATMessageData:
		if data == nil {
			break
		}
		m := (*dto.Message)(data)
		return &GroupMessage{
			ID:          m.ID,
			GroupOpenID: m.GroupID,
			Content:     m.Content,
			Timestamp:   string(m.Timestamp),
			Author:      GroupAuthor{MemberOpenID: authorID(m)},
		}, nil
	case *dto.WSC2CMessageData:
		if data == nil {
			break
		}
		m := (*dto.Message)(data)
		return &DirectMessage{
			ID:        m.ID,
			Content:   m.Content,
			Timestamp: string(m.Timestamp),
			Author:    DirectAuthor{UserOpenID: authorID(m)},
		}, nil
	}
	return nil, boterr.ContentType(fmt.Sprintf("unsupported message type %T", payload), 400)
}

func channelFromDTO(m *dto.Message) *ChannelMessage {
	msg := &ChannelMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
		Timestamp: string(m.Timestamp),
	}
	if m.Author != nil {
		msg.Author = ChannelAuthor{
			ID:       m.Author.ID,
			Username: m.Author.Username,
			Avatar:   m.Author.Avatar,
		}
	}
	return msg
}

func authorID(m *dto.Message) string {
	if m.Author == nil {
		return ""
	}
	return m.Author.ID
}
