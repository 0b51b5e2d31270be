/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package broadcast

import (
	"bytes"
	"io"
	"strings"
)

// DefaultMetaInt is the audio byte count between ICY metadata blocks.
const DefaultMetaInt = 16000

const maxMetaBlocks = 255

// StreamTitle formats a title for an ICY metadata block.
func StreamTitle(title string) string {
	return "StreamTitle='" + strings.ReplaceAll(title, "'", "’") + "';"
}

// BuildBlock encodes text as an ICY metadata block: one length byte counting
// 16-byte units, then the text padded with zeros. Text beyond 255 units is
// truncated.
func BuildBlock(text string) []byte {
	if text == "" {
		return []byte{0x00}
	}

	payload := []byte(text)
	if len(payload) > maxMetaBlocks*16 {
		payload = payload[:maxMetaBlocks*16]
	}
	blocks := (len(payload) + 15) / 16
	pad := blocks*16 - len(payload)

	var buf bytes.Buffer
	buf.Grow(1 + blocks*16)
	buf.WriteByte(byte(blocks))
	buf.Write(payload)
	buf.Write(make([]byte, pad))
	return buf.Bytes()
}

// icyWriter interleaves a metadata block every metaInt bytes of audio.
// The block is only sent when the title changed since the last one; an
// empty block is sent otherwise.
type icyWriter struct {
	w         io.Writer
	metaInt   int
	remaining int
	title     func() string
	lastSent  string
}

func newICYWriter(w io.Writer, metaInt int, title func() string) *icyWriter {
	return &icyWriter{w: w, metaInt: metaInt, remaining: metaInt, title: title}
}

func (iw *icyWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := len(p)
		if n > iw.remaining {
			n = iw.remaining
		}
		m, err := iw.w.Write(p[:n])
		written += m
		if err != nil {
			return written, err
		}
		p = p[n:]
		iw.remaining -= n

		if iw.remaining == 0 {
			block := []byte{0x00}
			if t := iw.title(); t != iw.lastSent {
				block = BuildBlock(StreamTitle(t))
				iw.lastSent = t
			}
			if _, err := iw.w.Write(block); err != nil {
				return written, err
			}
			iw.remaining = iw.metaInt
		}
	}
	return written, nil
}
