package types

type RequestSendMessage struct {
	ChatID  string `json:"chat_id" form:"chat_id"`
	Message string `json:"message" form:"message"`
}

type RequestGetMessages struct {
	ChatID string `json:"chat_id" form:"chat_id"`
	Limit  int    `json:"limit" form:"limit"`
}

type RequestQRState struct {
	Cancel bool `json:"cancel" form:"cancel"`
}

type RequestSettings struct {
	URLType     string `form:"wa_url_type"`
	APILink     string `form:"wa_api_link"`
	SessionName string `form:"wa_session_name"`
	WebhookURL  string `form:"wa_webhook_url"`
	AutoStart   string `form:"wa_auto_start"`
	DebugMode   string `form:"wa_debug_mode"`
}
