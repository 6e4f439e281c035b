// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pushpull

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Codec converts message text to and from wire frames.
type Codec interface {
	Name() string
	Encode(msg string) ([]byte, error)
	Decode(frame []byte) (string, error)
}

var (
	// UTF8 is the default wire encoding.
	UTF8 Codec = utf8Codec{}

	// Latin1 encodes frames as ISO-8859-1.
	Latin1 Codec = charmapCodec{name: "latin-1", enc: charmap.ISO8859_1}
)

// CodecByName resolves an encoding name such as "utf-8" or "latin-1".
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return Latin1, nil
	}
	return nil, fmt.Errorf("pushpull: unsupported encoding %q", name)
}

type utf8Codec struct{}

func (utf8Codec) Name() string { return "utf-8" }

func (utf8Codec) Encode(msg string) ([]byte, error) {
	if !utf8.ValidString(msg) {
		return nil, fmt.Errorf("pushpull: message is not valid utf-8")
	}
	return []byte(msg), nil
}

func (utf8Codec) Decode(frame []byte) (string, error) {
	if !utf8.Valid(frame) {
		return "", fmt.Errorf("pushpull: frame is not valid utf-8")
	}
	return string(frame), nil
}

type charmapCodec struct {
	name string
	enc  encoding.Encoding
}

func (c charmapCodec) Name() string { return c.name }

func (c charmapCodec) Encode(msg string) ([]byte, error) {
	b, err := c.enc.NewEncoder().Bytes([]byte(msg))
	if err != nil {
		return nil, fmt.Errorf("pushpull: could not encode %s: %w", c.name, err)
	}
	return b, nil
}

func (c charmapCodec) Decode(frame []byte) (string, error) {
	b, err := c.enc.NewDecoder().Bytes(frame)
	if err != nil {
		return "", fmt.Errorf("pushpull: could not decode %s: %w", c.name, err)
	}
	return string(b), nil
}
