// Copyright 2025 The Arri Go SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package arri

import (
	"strconv"
	"strings"
)

// Server-Sent Events parsing.
//
// The stream driver reads an SSE byte stream whose lines may be
// terminated by LF, CR, or CRLF, and whose chunk boundaries may fall
// anywhere, including between the CR and LF of a CRLF pair. The parser
// therefore works over an accumulating buffer and reports the unconsumed
// tail, which the driver prepends to the next chunk.

// An sseMessage is one complete server-sent event. A message is only
// complete once a blank line is seen, and is only emitted if at least
// one data field was set.
type sseMessage struct {
	id       string
	event    string
	data     string
	retry    int32
	hasRetry bool
}

type sseField int

const (
	sseFieldNone sseField = iota
	sseFieldID
	sseFieldEvent
	sseFieldData
	sseFieldRetry
)

// classifySSELine classifies a single logical line (no CR/LF). Comment
// lines, blank lines, unknown field names, and retry values that do not
// parse as integers all classify as sseFieldNone and are skipped.
func classifySSELine(line string) (sseField, string) {
	if rest, ok := strings.CutPrefix(line, "data:"); ok {
		return sseFieldData, strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutPrefix(line, "id:"); ok {
		return sseFieldID, strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutPrefix(line, "event:"); ok {
		return sseFieldEvent, strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutPrefix(line, "retry:"); ok {
		v := strings.TrimSpace(rest)
		if _, err := strconv.ParseInt(v, 10, 32); err == nil {
			return sseFieldRetry, v
		}
	}
	return sseFieldNone, ""
}

// parseSSEMessages scans input for completed SSE messages. It returns
// the messages in stream order along with the leftover tail: the suffix
// of input starting at the first byte not consumed by a completed
// message. The same logical input produces identical results whether its
// lines are terminated by LF, CR, or CRLF.
func parseSSEMessages(input string) (msgs []sseMessage, leftover string) {
	var (
		cur          sseMessage
		hasData      bool
		line         []byte
		pendingIndex int
		prev         byte
		hasPrev      bool
		ignoreLF     bool
	)
	flushLine := func() {
		field, value := classifySSELine(string(line))
		switch field {
		case sseFieldID:
			cur.id = value
		case sseFieldEvent:
			cur.event = value
		case sseFieldData:
			cur.data = value
			hasData = true
		case sseFieldRetry:
			n, _ := strconv.ParseInt(value, 10, 32)
			cur.retry = int32(n)
			cur.hasRetry = true
		}
		line = line[:0]
	}
	emit := func() {
		if hasData {
			msgs = append(msgs, cur)
		}
		cur = sseMessage{}
		hasData = false
	}
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch c {
		case '\r':
			blankLine := hasPrev && (prev == '\n' || prev == '\r')
			ignoreLF = true
			flushLine()
			if blankLine {
				emit()
				// Greedily consume one terminator byte after the blank
				// line so the tail starts at real content.
				if i+1 < len(input) {
					next := input[i+1]
					if next == '\n' || next == '\r' {
						pendingIndex = i + 2
					} else {
						line = append(line, next)
						pendingIndex = i + 1
					}
					i++
				} else {
					pendingIndex = i
				}
			}
		case '\n':
			if ignoreLF {
				// The LF of a CRLF pair; the CR already ended the line.
				ignoreLF = false
				break
			}
			blankLine := hasPrev && prev == '\n'
			flushLine()
			if blankLine {
				emit()
				pendingIndex = i + 1
			}
		default:
			ignoreLF = false
			line = append(line, c)
		}
		prev = c
		hasPrev = true
	}
	return msgs, input[pendingIndex:]
}
