package types

import "time"

type ResponseQRCode struct {
	QRCode           string    `json:"qr_code"`
	Payload          string    `json:"payload"`
	Format           string    `json:"format"`
	ExpiresIn        int       `json:"expires_in"`
	RemainingSeconds int       `json:"remaining_seconds"`
	IssuedAt         time.Time `json:"issued_at"`
	Attempts         int       `json:"attempts"`
	Generation       uint64    `json:"generation"`
}

type ResponseQRState struct {
	State            string `json:"state"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Generation       uint64 `json:"generation"`
	Error            string `json:"error,omitempty"`
}

type ResponseSessionStatus struct {
	Status   string      `json:"status"`
	RawState string      `json:"raw_state"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details"`
}

type ResponseConnection struct {
	APIURL  string      `json:"api_url"`
	Version interface{} `json:"version"`
}

type ResponseChat struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LastMessage string `json:"last_message"`
	Timestamp   int64  `json:"timestamp,omitempty"`
	UnreadCount int    `json:"unread_count"`
}

type ResponseMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Body      string `json:"body"`
	FromMe    bool   `json:"from_me"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type ResponseContact struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number"`
}

type ResponseLogs struct {
	Path  string   `json:"path"`
	Lines []string `json:"lines"`
}
