package ajax

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-waha-admin/internal/types"
	"github.com/gdbrns/go-waha-admin/pkg/router"
	"github.com/gdbrns/go-waha-admin/pkg/validation"
	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

const (
	defaultMessageLimit = 20
	maxMessageLimit     = 100
)

func (h *Handler) GetChats(c *fiber.Ctx) error {
	client, err := h.client(c)
	if err != nil {
		return h.settingsError(c, err)
	}
	cfg := client.Config()

	res := client.Call(ctx(c), waha.OpChats, nil, nil)
	if !res.Success {
		return h.respondResult(c, cfg, res, "")
	}

	items := listOf(res.Data, "chats")
	chats := make([]types.ResponseChat, 0, len(items))
	for _, item := range items {
		last := pickString(item, "lastMessage", "last_message")
		if last == "" {
			if msg, ok := item["lastMessage"].(map[string]interface{}); ok {
				last = pickString(msg, "body", "text", "caption")
			}
		}
		chats = append(chats, types.ResponseChat{
			ID:          pickString(item, "id", "chatId"),
			Name:        pickString(item, "name", "pushName", "formattedTitle"),
			LastMessage: validation.Truncate(last, validation.ChatPreviewLength),
			Timestamp:   pickInt(item, "timestamp", "conversationTimestamp", "t"),
			UnreadCount: int(pickInt(item, "unreadCount", "unread_count")),
		})
	}

	h.deps.Debug.Debug(cfg.DebugMode, "Loaded %d chats", len(chats))
	return router.ResponseSuccessWithData(c, fmt.Sprintf("%d chats", len(chats)), chats)
}

func (h *Handler) GetMessages(c *fiber.Ctx) error {
	var req types.RequestGetMessages
	if err := bind(c, &req); err != nil {
		return router.ResponseBadRequest(c, "Invalid request body")
	}
	chatID, err := validation.FormatChatID(req.ChatID)
	if err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}
	if req.Limit <= 0 {
		req.Limit = defaultMessageLimit
	}
	if req.Limit > maxMessageLimit {
		req.Limit = maxMessageLimit
	}

	client, err := h.client(c)
	if err != nil {
		return h.settingsError(c, err)
	}
	cfg := client.Config()

	query := url.Values{}
	query.Set("chatId", chatID)
	query.Set("limit", strconv.Itoa(req.Limit))
	res := client.Call(ctx(c), waha.OpMessages, nil, query)
	if !res.Success {
		return h.respondResult(c, cfg, res, "")
	}

	items := listOf(res.Data, "messages")
	messages := make([]types.ResponseMessage, 0, len(items))
	for _, item := range items {
		fromMe, _ := item["fromMe"].(bool)
		messages = append(messages, types.ResponseMessage{
			ID:        pickString(item, "id"),
			From:      pickString(item, "from", "author"),
			Body:      pickString(item, "body", "text", "caption"),
			FromMe:    fromMe,
			Timestamp: pickInt(item, "timestamp", "t"),
		})
	}
	return router.ResponseSuccessWithData(c, fmt.Sprintf("%d messages", len(messages)), messages)
}

func (h *Handler) SendMessage(c *fiber.Ctx) error {
	var req types.RequestSendMessage
	if err := bind(c, &req); err != nil {
		return router.ResponseBadRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.ChatID) == "" || strings.TrimSpace(req.Message) == "" {
		return router.ResponseBadRequest(c, "chat_id and message are required")
	}
	chatID, err := validation.FormatChatID(req.ChatID)
	if err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}
	if err := validation.ValidateMessage(req.Message); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	client, err := h.client(c)
	if err != nil {
		return h.settingsError(c, err)
	}
	cfg := client.Config()

	res := client.Call(ctx(c), waha.OpSendText, map[string]string{
		"chatId": chatID,
		"text":   req.Message,
	}, nil)
	if res.Success {
		h.deps.Debug.Info("Message sent to %s", chatID)
	}
	return h.respondResult(c, cfg, res, "Message sent")
}

func (h *Handler) GetContacts(c *fiber.Ctx) error {
	client, err := h.client(c)
	if err != nil {
		return h.settingsError(c, err)
	}
	cfg := client.Config()

	res := client.Call(ctx(c), waha.OpContacts, nil, nil)
	if !res.Success {
		return h.respondResult(c, cfg, res, "")
	}

	items := listOf(res.Data, "contacts")
	contacts := make([]types.ResponseContact, 0, len(items))
	for _, item := range items {
		id := pickString(item, "id")
		number := pickString(item, "number")
		if number == "" {
			number = strings.SplitN(id, "@", 2)[0]
		}
		contacts = append(contacts, types.ResponseContact{
			ID:     id,
			Name:   pickString(item, "name", "pushname", "pushName", "shortName"),
			Number: number,
		})
	}
	return router.ResponseSuccessWithData(c, fmt.Sprintf("%d contacts", len(contacts)), contacts)
}

// listOf accepts a bare JSON array or an object wrapping one under key.
func listOf(data interface{}, key string) []map[string]interface{} {
	var raw []interface{}
	switch t := data.(type) {
	case []interface{}:
		raw = t
	case map[string]interface{}:
		raw, _ = t[key].([]interface{})
	}

	out := make([]map[string]interface{}, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// pickString returns the first non-empty key. WAHA ids may be objects
// carrying a _serialized form.
func pickString(node map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := node[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case map[string]interface{}:
			if s, ok := v["_serialized"].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func pickInt(node map[string]interface{}, keys ...string) int64 {
	for _, key := range keys {
		switch v := node[key].(type) {
		case float64:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}
