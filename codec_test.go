// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pushpull_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destiny/pushpull"
)

func TestCodecByName(t *testing.T) {
	for _, name := range []string{"", "utf-8", "UTF8", " utf-8 "} {
		c, err := pushpull.CodecByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, "utf-8", c.Name())
	}
	for _, name := range []string{"latin-1", "Latin1", "ISO-8859-1"} {
		c, err := pushpull.CodecByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, "latin-1", c.Name())
	}

	_, err := pushpull.CodecByName("ebcdic")
	assert.Error(t, err)
}

func TestUTF8Codec(t *testing.T) {
	frame, err := pushpull.UTF8.Encode("Task 1 – café")
	require.NoError(t, err)
	assert.Equal(t, []byte("Task 1 – café"), frame)

	msg, err := pushpull.UTF8.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "Task 1 – café", msg)

	_, err = pushpull.UTF8.Decode([]byte{0xff, 0xfe})
	assert.Error(t, err)
}

func TestLatin1Codec(t *testing.T) {
	frame, err := pushpull.Latin1.Encode("café")
	require.NoError(t, err)
	assert.Equal(t, []byte{'c', 'a', 'f', 0xe9}, frame)

	msg, err := pushpull.Latin1.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "café", msg)

	// every byte is a valid latin-1 character
	msg, err = pushpull.Latin1.Decode([]byte{0xff})
	require.NoError(t, err)
	assert.Equal(t, "ÿ", msg)

	_, err = pushpull.Latin1.Encode("price: 5€")
	assert.Error(t, err)
}
