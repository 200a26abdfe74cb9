// Package dataurl decodes RFC 2397 data URLs as used for embedded favicons.
package dataurl

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
)

var ErrMalformed = errors.New("malformed data url")

// Is reports whether s looks like a data URL.
func Is(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// Decode returns the mime type and payload of a data URL. A missing mime
// type defaults to text/plain.
func Decode(s string) (mimeType string, data []byte, err error) {
	if !Is(s) {
		return "", nil, ErrMalformed
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return "", nil, ErrMalformed
	}

	params := strings.Split(header, ";")
	mimeType = strings.TrimSpace(params[0])
	if mimeType == "" {
		mimeType = "text/plain"
	}
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	if isBase64 {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// some encoders drop the padding
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return "", nil, errors.Join(ErrMalformed, err)
		}
		return mimeType, data, nil
	}

	text, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, errors.Join(ErrMalformed, err)
	}
	return mimeType, []byte(text), nil
}

// Encode builds a base64 data URL.
func Encode(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
