package waha

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/vincent-petithory/dataurl"
)

type QRFormat string

const (
	FormatImage   QRFormat = "image"
	FormatText    QRFormat = "text"
	FormatUnknown QRFormat = "unknown"

	DefaultQRExpiry = 60

	// minTextPayload is the length above which a non-image payload is
	// treated as a raw QR string.
	minTextPayload = 50
)

var (
	qrPayloadKeys = []string{"qr", "qrCode", "base64", "image"}
	qrExpiryKeys  = []string{"expiresIn", "ttl"}

	// base64 signatures of raw image bytes, keyed to their media type.
	imageSignatures = []struct {
		prefix    string
		mediaType string
	}{
		{"iVBORw0KGgo", "image/png"},
		{"/9j/", "image/jpeg"},
		{"R0lGOD", "image/gif"},
		{"UklGR", "image/webp"},
	}
)

// QRChallenge is one QR code issued by WAHA.
type QRChallenge struct {
	Payload          string    `json:"payload"`
	Format           QRFormat  `json:"format"`
	ExpiresInSeconds int       `json:"expires_in"`
	IssuedAt         time.Time `json:"issued_at"`
	ImageSrc         string    `json:"image_src,omitempty"`
}

// ClassifyQR decides how a payload should be displayed.
func ClassifyQR(payload string) QRFormat {
	if strings.HasPrefix(payload, "data:image/") {
		return FormatImage
	}
	if _, ok := imageMediaType(payload); ok {
		return FormatImage
	}
	if len(payload) > minTextPayload {
		return FormatText
	}
	return FormatUnknown
}

func imageMediaType(payload string) (string, bool) {
	for _, sig := range imageSignatures {
		if strings.HasPrefix(payload, sig.prefix) {
			return sig.mediaType, true
		}
	}
	return "", false
}

// ExtractQR pulls the QR payload and expiry out of a decoded auth_qr body.
func ExtractQR(body map[string]interface{}, issuedAt time.Time) (QRChallenge, error) {
	var payload string
	for _, key := range qrPayloadKeys {
		if v, ok := body[key].(string); ok && strings.TrimSpace(v) != "" {
			payload = strings.TrimSpace(v)
			break
		}
	}
	if payload == "" {
		return QRChallenge{}, &Error{Kind: KindDecode, Op: OpAuthQR, Err: ErrNoQRCode}
	}

	challenge := QRChallenge{
		Payload:          payload,
		Format:           ClassifyQR(payload),
		ExpiresInSeconds: expirySeconds(body),
		IssuedAt:         issuedAt,
	}
	challenge.ImageSrc = ImageSrc(challenge)
	return challenge, nil
}

func expirySeconds(body map[string]interface{}) int {
	for _, key := range qrExpiryKeys {
		switch v := body[key].(type) {
		case float64:
			if v > 0 {
				return int(v)
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
				return n
			}
		}
	}
	return DefaultQRExpiry
}

// ImageSrc returns a data URI the browser can display: the payload itself
// for data URIs, a wrapped data URI for raw base64 images, a rendered PNG
// for text payloads and "" for unknown payloads. Image payloads that do not
// decode are passed through unchanged so the browser still gets to try.
func ImageSrc(challenge QRChallenge) string {
	switch challenge.Format {
	case FormatImage:
		if strings.HasPrefix(challenge.Payload, "data:image/") {
			return challenge.Payload
		}
		mediaType, _ := imageMediaType(challenge.Payload)
		raw, err := base64.StdEncoding.DecodeString(challenge.Payload)
		if err != nil {
			return "data:" + mediaType + ";base64," + challenge.Payload
		}
		return dataurl.New(raw, mediaType).String()
	case FormatText:
		png, err := qrcode.Encode(challenge.Payload, qrcode.Medium, 256)
		if err != nil {
			return ""
		}
		return dataurl.New(png, "image/png").String()
	}
	return ""
}

// FetchQR requests a QR code and extracts the challenge from the response.
func (c *Client) FetchQR(ctx context.Context) (QRChallenge, *Result, error) {
	res := c.Call(ctx, OpAuthQR, nil, nil)
	if !res.Success {
		return QRChallenge{}, res, res.Err
	}
	challenge, err := ExtractQR(res.Object(), time.Now())
	if err != nil {
		res.Success = false
		res.Err = err
		res.ErrorMessage = err.Error()
		return QRChallenge{}, res, err
	}
	return challenge, res, nil
}
