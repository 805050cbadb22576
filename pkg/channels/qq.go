package channels

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tencent-connect/botgo"
	"github.com/tencent-connect/botgo/dto"
	"github.com/tencent-connect/botgo/event"
	"github.com/tencent-connect/botgo/openapi"
	"github.com/tencent-connect/botgo/token"
	"golang.org/x/oauth2"

	"github.com/chewangneko/qqcallback/pkg/callback"
	"github.com/chewangneko/qqcallback/pkg/config"
	"github.com/chewangneko/qqcallback/pkg/logger"
	"github.com/chewangneko/qqcallback/pkg/store"
)

const maxProcessedIDs = 10000

// QQChannel connects to the QQ bot gateway, turns every inbound event into a
// Callback and runs it through the session. It is also the Transport those
// callbacks reply through.
type QQChannel struct {
	cfg            *config.Config
	session        *callback.Session
	db             *store.Database
	api            openapi.OpenAPI
	tokenSource    oauth2.TokenSource
	ctx            context.Context
	cancel         context.CancelFunc
	sessionManager botgo.SessionManager
	processedIDs   map[string]bool
	running        atomic.Bool
	mu             sync.RWMutex
}

// NewQQChannel binds session to the bot described by cfg. db may be nil when
// the user store is disabled.
func NewQQChannel(cfg *config.Config, session *callback.Session, db *store.Database) (*QQChannel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("qq channel needs a config")
	}
	if session == nil {
		session = callback.NewSession()
	}
	return &QQChannel{
		cfg:          cfg,
		session:      session,
		db:           db,
		processedIDs: make(map[string]bool),
	}, nil
}

func (c *QQChannel) Start(ctx context.Context) error {
	if err := c.cfg.ValidateBot(); err != nil {
		return fmt.Errorf("QQ bot not configured: %w", err)
	}
	bot := c.cfg.Bot

	logger.InfoCF("qq", "Starting QQ bot (WebSocket mode)", map[string]interface{}{
		"sandbox":  bot.Sandbox,
		"handlers": c.session.Len(),
	})

	credentials := &token.QQBotCredentials{
		AppID:     bot.AppID,
		AppSecret: bot.AppSecret,
	}
	c.tokenSource = token.NewQQBotTokenSource(credentials)

	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := token.StartRefreshAccessToken(c.ctx, c.tokenSource); err != nil {
		return fmt.Errorf("failed to start token refresh: %w", err)
	}

	timeout := time.Duration(bot.TimeoutSeconds) * time.Second
	if bot.Sandbox {
		c.api = botgo.NewSandboxOpenAPI(bot.AppID, c.tokenSource).WithTimeout(timeout)
	} else {
		c.api = botgo.NewOpenAPI(bot.AppID, c.tokenSource).WithTimeout(timeout)
	}

	intent := event.RegisterHandlers(
		c.handleATMessage(),
		c.handleGroupATMessage(),
		c.handleC2CMessage(),
	)

	wsInfo, err := c.api.WS(c.ctx, nil, "")
	if err != nil {
		return fmt.Errorf("failed to get websocket info: %w", err)
	}

	logger.InfoCF("qq", "Got WebSocket info", map[string]interface{}{
		"shards": wsInfo.Shards,
	})

	c.sessionManager = botgo.NewSessionManager()

	go func() {
		if err := c.sessionManager.Start(wsInfo, c.tokenSource, &intent); err != nil {
			logger.ErrorCF("qq", "WebSocket session error", map[string]interface{}{
				"error": err.Error(),
			})
			c.running.Store(false)
		}
	}()

	c.running.Store(true)
	logger.InfoC("qq", "QQ bot started successfully")

	return nil
}

func (c *QQChannel) Stop(ctx context.Context) error {
	logger.InfoC("qq", "Stopping QQ bot")
	c.running.Store(false)

	if c.cancel != nil {
		c.cancel()
	}

	return nil
}

func (c *QQChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *QQChannel) PostChannelMessage(ctx context.Context, channelID string, msg *callback.Outbound) error {
	if err := c.ready(); err != nil {
		return err
	}
	_, err := c.api.PostMessage(ctx, channelID, channelMessage(msg))
	return c.logSendError("channel", channelID, err)
}

func (c *QQChannel) PostGroupMessage(ctx context.Context, groupOpenID string, msg *callback.Outbound) error {
	if err := c.ready(); err != nil {
		return err
	}
	post := func(ctx context.Context, m dto.APIMessage) (*dto.Message, error) {
		return c.api.PostGroupMessage(ctx, groupOpenID, m)
	}
	return c.logSendError("group", groupOpenID, postOpenMessage(ctx, post, msg))
}

func (c *QQChannel) PostDirectMessage(ctx context.Context, userOpenID string, msg *callback.Outbound) error {
	if err := c.ready(); err != nil {
		return err
	}
	post := func(ctx context.Context, m dto.APIMessage) (*dto.Message, error) {
		return c.api.PostC2CMessage(ctx, userOpenID, m)
	}
	return c.logSendError("c2c", userOpenID, postOpenMessage(ctx, post, msg))
}

func (c *QQChannel) ready() error {
	if !c.IsRunning() || c.api == nil {
		return fmt.Errorf("QQ bot not running")
	}
	return nil
}

func (c *QQChannel) logSendError(kind, target string, err error) error {
	if err != nil {
		logger.ErrorCF("qq", "Failed to send message", map[string]interface{}{
			"audience": kind,
			"target":   target,
			"error":    err.Error(),
		})
	}
	return err
}

// channelMessage builds a guild channel reply. Channels only take images as
// media, and they ride on the text message.
func channelMessage(msg *callback.Outbound) *dto.MessageToCreate {
	m := &dto.MessageToCreate{
		Content: msg.Content,
		MsgID:   msg.ReplyTo,
		MsgSeq:  msg.Seq,
	}
	if msg.Media != nil {
		m.Image = msg.Media.URL
	}
	return m
}

type openPoster func(ctx context.Context, msg dto.APIMessage) (*dto.Message, error)

// postOpenMessage sends one group or C2C reply. Media is uploaded first and
// the returned file info rides on a single passive msg_type 7 reply.
func postOpenMessage(ctx context.Context, post openPoster, msg *callback.Outbound) error {
	reply := openReply(msg)
	if msg.Media != nil {
		uploaded, err := post(ctx, mediaUpload(msg.Media))
		if err != nil {
			return fmt.Errorf("upload %s: %w", msg.Media.Type, err)
		}
		if uploaded == nil || len(uploaded.FileInfo) == 0 {
			return fmt.Errorf("upload %s: no file info returned", msg.Media.Type)
		}
		reply.MsgType = dto.RichMediaMsg
		reply.Media = &dto.MediaInfo{FileInfo: uploaded.FileInfo}
	}
	_, err := post(ctx, reply)
	return err
}

func mediaUpload(media *callback.Media) *dto.RichMediaMessage {
	return &dto.RichMediaMessage{
		FileType: uint64(media.Type),
		URL:      media.URL,
	}
}

func openReply(msg *callback.Outbound) *dto.MessageToCreate {
	return &dto.MessageToCreate{
		Content: msg.Content,
		MsgID:   msg.ReplyTo,
		MsgSeq:  msg.Seq,
	}
}

func (c *QQChannel) handleATMessage() event.ATMessageEventHandler {
	return func(_ *dto.WSPayload, data *dto.WSATMessageData) error {
		if data == nil {
			return nil
		}
		return c.handle(data, data.ID)
	}
}

func (c *QQChannel) handleGroupATMessage() event.GroupATMessageEventHandler {
	return func(_ *dto.WSPayload, data *dto.WSGroupATMessageData) error {
		if data == nil {
			return nil
		}
		return c.handle(data, data.ID)
	}
}

func (c *QQChannel) handleC2CMessage() event.C2CMessageEventHandler {
	return func(_ *dto.WSPayload, data *dto.WSC2CMessageData) error {
		if data == nil {
			return nil
		}
		return c.handle(data, data.ID)
	}
}

// handle runs one inbound event. Failures are logged and swallowed so the
// gateway keeps delivering.
func (c *QQChannel) handle(payload any, messageID string) error {
	if c.isDuplicate(messageID) {
		return nil
	}

	cb, err := callback.FromPayload(payload, c,
		callback.WithDatabase(c.db),
		callback.WithBotAppID(c.cfg.Bot.AppID),
	)
	if err != nil {
		logger.WarnCF("qq", "Dropping unsupported event", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	senderID := cb.UserOpenID()
	if senderID == "" {
		logger.WarnC("qq", "Received message with no sender ID")
		return nil
	}
	if !c.cfg.IsAllowed(senderID) {
		logger.DebugCF("qq", "Sender not in allow list", map[string]interface{}{
			"sender": senderID,
		})
		return nil
	}

	fields := map[string]interface{}{
		"correlation_id": uuid.NewString(),
		"audience":       cb.Audience().String(),
		"sender":         senderID,
		"context":        cb.ContextID(),
		"length":         len(cb.Content()),
	}
	logger.InfoCF("qq", "Received message", fields)

	ctx := c.baseContext()
	if c.db != nil {
		if _, err := c.db.InsertUserInfo(ctx, cb); err != nil {
			fields["error"] = err.Error()
			logger.ErrorCF("qq", "Failed to record user", fields)
			delete(fields, "error")
		}
	}

	handled, err := c.session.Dispatch(ctx, cb)
	fields["handled"] = handled
	if err != nil {
		fields["error"] = err.Error()
		logger.ErrorCF("qq", "Handler failed", fields)
		return nil
	}
	logger.DebugCF("qq", "Message dispatched", fields)
	return nil
}

func (c *QQChannel) baseContext() context.Context {
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}

func (c *QQChannel) isDuplicate(messageID string) bool {
	if messageID == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.processedIDs[messageID] {
		return true
	}

	c.processedIDs[messageID] = true

	// Simple cleanup: limit map size
	if len(c.processedIDs) > maxProcessedIDs {
		count := 0
		for id := range c.processedIDs {
			if count >= maxProcessedIDs/2 {
				break
			}
			delete(c.processedIDs, id)
			count++
		}
	}

	return false
}
