// Package whatsmeow adapts a whatsmeow WhatsApp session to the chat
// capability interface. Inbound messages arrive via the event stream;
// the adapter caches the latest text message per sender so reads never
// block on the socket.
package whatsmeow

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	// Driver for the whatsmeow device store.
	_ "github.com/mattn/go-sqlite3"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"waleads/chat"
)

// Client wraps a logged-in whatsmeow session.
type Client struct {
	wm     *whatsmeow.Client
	logger *slog.Logger

	mu     sync.Mutex
	latest map[string]chat.Inbound // sender phone digits -> newest inbound
	known  map[string]types.JID    // phone digits -> verified JID
}

// Connect opens the device store at dbPath, connects the session, and
// prints a QR code to stdout when no device is paired yet. It blocks
// until the session is usable.
func Connect(ctx context.Context, dbPath string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	container, err := sqlstore.New(ctx, "sqlite3", "file:"+dbPath+"?_foreign_keys=on", waLog.Stdout("Database", "ERROR", true))
	if err != nil {
		return nil, fmt.Errorf("open whatsapp store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	c := &Client{
		wm:     whatsmeow.NewClient(device, waLog.Stdout("Client", "ERROR", true)),
		logger: logger,
		latest: make(map[string]chat.Inbound),
		known:  make(map[string]types.JID),
	}
	c.wm.AddEventHandler(c.handleEvent)

	if c.wm.Store.ID == nil {
		// New device: pairing QR must be requested before connecting.
		qrChan, err := c.wm.GetQRChannel(ctx)
		if err != nil {
			return nil, fmt.Errorf("get qr channel: %w", err)
		}
		if err := c.wm.Connect(); err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		for evt := range qrChan {
			switch evt.Event {
			case "code":
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
				logger.Info("scan_qr_to_pair")
			case "success":
				logger.Info("device_paired")
			}
		}
	} else {
		if err := c.wm.Connect(); err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
	}
	return c, nil
}

// Close disconnects the session.
func (c *Client) Close() {
	c.wm.Disconnect()
}

func (c *Client) IsLoggedIn() bool {
	return c.wm.Store.ID != nil && c.wm.IsLoggedIn()
}

// OpenChat verifies the number is registered on WhatsApp and caches
// its JID. Verified numbers are not re-checked.
func (c *Client) OpenChat(ctx context.Context, phone string) error {
	c.mu.Lock()
	_, ok := c.known[phone]
	c.mu.Unlock()
	if ok {
		return nil
	}
	if !c.IsLoggedIn() {
		return chat.ErrUnavailable
	}

	resp, err := c.wm.IsOnWhatsApp(ctx, []string{"+" + phone})
	if err != nil {
		return fmt.Errorf("verify %s: %w", phone, err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("number %s is not on whatsapp", phone)
	}

	c.mu.Lock()
	c.known[phone] = resp[0].JID
	c.mu.Unlock()
	return nil
}

// ReadLatestInbound returns the newest cached inbound message from
// phone, or nil when none has been observed.
func (c *Client) ReadLatestInbound(ctx context.Context, phone string) (*chat.Inbound, error) {
	if !c.IsLoggedIn() {
		return nil, chat.ErrUnavailable
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.latest[phone]
	if !ok {
		return nil, nil
	}
	out := msg
	return &out, nil
}

func (c *Client) SendText(ctx context.Context, phone, text string) error {
	if !c.IsLoggedIn() {
		return chat.ErrUnavailable
	}
	jid := c.jidFor(phone)
	c.wm.SendChatPresence(ctx, jid, types.ChatPresenceComposing, types.ChatPresenceMediaText)
	_, err := c.wm.SendMessage(ctx, jid, &waProto.Message{Conversation: &text})
	if err != nil {
		return fmt.Errorf("send to %s: %w", phone, err)
	}
	return nil
}

// SendMedia uploads the file at mediaPath and sends it with text as
// the caption. Images and videos keep their native message type;
// everything else goes out as a document.
func (c *Client) SendMedia(ctx context.Context, phone, text, mediaPath string) error {
	if !c.IsLoggedIn() {
		return chat.ErrUnavailable
	}
	data, err := os.ReadFile(mediaPath)
	if err != nil {
		return fmt.Errorf("read media %s: %w", mediaPath, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(mediaPath))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	var mediaType whatsmeow.MediaType
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		mediaType = whatsmeow.MediaImage
	case strings.HasPrefix(mimeType, "video/"):
		mediaType = whatsmeow.MediaVideo
	default:
		mediaType = whatsmeow.MediaDocument
	}

	up, err := c.wm.Upload(ctx, data, mediaType)
	if err != nil {
		return fmt.Errorf("upload media %s: %w", mediaPath, err)
	}

	msg := &waProto.Message{}
	switch mediaType {
	case whatsmeow.MediaImage:
		msg.ImageMessage = &waProto.ImageMessage{
			Caption:       proto.String(text),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			Mimetype:      proto.String(mimeType),
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}
	case whatsmeow.MediaVideo:
		msg.VideoMessage = &waProto.VideoMessage{
			Caption:       proto.String(text),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			Mimetype:      proto.String(mimeType),
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}
	default:
		msg.DocumentMessage = &waProto.DocumentMessage{
			Caption:       proto.String(text),
			FileName:      proto.String(filepath.Base(mediaPath)),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			Mimetype:      proto.String(mimeType),
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}
	}

	if _, err := c.wm.SendMessage(ctx, c.jidFor(phone), msg); err != nil {
		return fmt.Errorf("send media to %s: %w", phone, err)
	}
	return nil
}

func (c *Client) jidFor(phone string) types.JID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if jid, ok := c.known[phone]; ok {
		return jid
	}
	return types.NewJID(phone, types.DefaultUserServer)
}

func (c *Client) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		c.handleMessage(v)
	case *events.HistorySync:
		c.handleHistorySync(v)
	case *events.Connected:
		c.logger.Info("whatsapp_connected")
	case *events.LoggedOut:
		c.logger.Warn("whatsapp_logged_out")
	}
}

func (c *Client) handleMessage(v *events.Message) {
	if v.Info.IsFromMe || v.Info.IsGroup || v.Info.Chat.User == "status" {
		return
	}
	text := messageText(v.Message)
	if text == "" {
		return
	}

	c.mu.Lock()
	c.latest[v.Info.Sender.User] = chat.Inbound{Text: text, Fingerprint: v.Info.ID}
	c.mu.Unlock()
	c.logger.Debug("inbound_cached", "sender", v.Info.Sender.User)
}

// handleHistorySync seeds the inbound cache with the newest message of
// each synced one-to-one chat, so monitoring starts from the present
// instead of replaying old history.
func (c *Client) handleHistorySync(v *events.HistorySync) {
	for _, conv := range v.Data.GetConversations() {
		jid, err := types.ParseJID(conv.GetID())
		if err != nil || jid.Server != types.DefaultUserServer {
			continue
		}
		for _, histMsg := range conv.GetMessages() {
			m := histMsg.GetMessage()
			if m.GetKey().GetFromMe() {
				continue
			}
			text := messageText(m.GetMessage())
			if text == "" {
				continue
			}
			c.mu.Lock()
			if _, ok := c.latest[jid.User]; !ok {
				c.latest[jid.User] = chat.Inbound{Text: text, Fingerprint: m.GetKey().GetID()}
			}
			c.mu.Unlock()
			break
		}
	}
}

func messageText(m *waProto.Message) string {
	if m == nil {
		return ""
	}
	if t := m.GetConversation(); t != "" {
		return t
	}
	if ext := m.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	return ""
}
