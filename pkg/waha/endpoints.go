package waha

import (
	"net/http"
	"net/url"
	"strings"
)

type Op string

const (
	OpVersion  Op = "version"
	OpAuthQR   Op = "auth_qr"
	OpStatus   Op = "status"
	OpStart    Op = "start"
	OpStop     Op = "stop"
	OpRestart  Op = "restart"
	OpDelete   Op = "delete"
	OpChats    Op = "chats"
	OpContacts Op = "contacts"
	OpSendText Op = "send_text"
	OpSendFile Op = "send_file"
	OpMessages Op = "messages"
)

type Endpoint struct {
	Method string
	Path   string
}

var endpoints = map[Op]Endpoint{
	OpVersion:  {http.MethodGet, "/api/version"},
	OpAuthQR:   {http.MethodGet, "/api/{session}/auth/qr"},
	OpStatus:   {http.MethodGet, "/api/{session}/status"},
	OpStart:    {http.MethodPost, "/api/{session}/start"},
	OpStop:     {http.MethodPost, "/api/{session}/stop"},
	OpRestart:  {http.MethodPost, "/api/{session}/restart"},
	OpDelete:   {http.MethodDelete, "/api/{session}"},
	OpChats:    {http.MethodGet, "/api/{session}/chats"},
	OpContacts: {http.MethodGet, "/api/{session}/contacts"},
	OpSendText: {http.MethodPost, "/api/{session}/sendText"},
	OpSendFile: {http.MethodPost, "/api/{session}/sendFile"},
	OpMessages: {http.MethodGet, "/api/{session}/messages"},
}

// Lookup returns the endpoint with {session} substituted.
func Lookup(op Op, session string) (Endpoint, bool) {
	ep, ok := endpoints[op]
	if !ok {
		return Endpoint{}, false
	}
	ep.Path = strings.ReplaceAll(ep.Path, "{session}", url.PathEscape(session))
	return ep, true
}
