// Copyright 2025 The Arri Go SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package arri

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ProtocolVersion is the ARRI-RPC wire protocol version emitted on the
// first line of every encoded message.
const ProtocolVersion = "0.0.8"

// An HTTPMethod names the HTTP verb used to dispatch an invocation. The
// empty value means "unspecified"; dispatchers default it to POST.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodPatch  HTTPMethod = "PATCH"
	MethodDelete HTTPMethod = "DELETE"
)

// A ContentType identifies the serialization of a message body. The zero
// value means the content type was not declared.
type ContentType int

const (
	ContentTypeUnspecified ContentType = iota
	ContentTypeJSON
)

// String returns the serial form of the content type, or "" if
// unspecified.
func (c ContentType) String() string {
	if c == ContentTypeJSON {
		return "application/json"
	}
	return ""
}

// ParseContentType parses a serial content type value. Unknown values
// fail with a DecodeError of kind DecodeUnsupportedContentType.
func ParseContentType(s string) (ContentType, error) {
	if s == "application/json" {
		return ContentTypeJSON, nil
	}
	return ContentTypeUnspecified, &DecodeError{
		Kind:   DecodeUnsupportedContentType,
		reason: fmt.Sprintf("unsupported content type %q", s),
	}
}

// A DecodeErrorKind classifies why a wire message failed to decode.
type DecodeErrorKind int

const (
	DecodeBadVersionLine DecodeErrorKind = iota
	DecodeUnknownVerb
	DecodeMalformedHeader
	DecodeTruncatedInput
	DecodeInvalidNumericHeader
	DecodeUnsupportedContentType
)

// A DecodeError reports a malformed wire message.
type DecodeError struct {
	Kind   DecodeErrorKind
	reason string
}

func (e *DecodeError) Error() string {
	return "arri: decode: " + e.reason
}

// An EncodeError reports a message that cannot be represented in the
// wire format, such as a header value containing a newline.
type EncodeError struct {
	reason string
}

func (e *EncodeError) Error() string {
	return "arri: encode: " + e.reason
}

// reservedHeaders are the header keys that ride in dedicated slots during
// encoding. Custom header maps must never contain them; entries with
// these keys are skipped when a message is encoded.
var reservedHeaders = map[string]bool{
	"content-type":       true,
	"req-id":             true,
	"client-version":     true,
	"rpc-name":           true,
	"err-code":           true,
	"err-msg":            true,
	"msg-id":             true,
	"reason":             true,
	"heartbeat-interval": true,
}

// A Message is one of the ARRI-RPC wire message variants: Invocation, Ok,
// Error, Heartbeat, ConnectionStart, StreamData, StreamEnd, StreamCancel,
// or Unknown.
type Message interface {
	encode(b *messageBuilder) error
}

// An InvocationMessage asks the peer to execute the named rpc. Method and
// Path are transport metadata; they are not part of the wire form.
type InvocationMessage struct {
	ReqID         string
	RPCName       string
	ContentType   ContentType
	ClientVersion string
	CustomHeaders HeaderMap
	Method        HTTPMethod
	Path          string
	Body          []byte
}

// An OkMessage is a successful unary response.
type OkMessage struct {
	ReqID         string
	ContentType   ContentType
	CustomHeaders HeaderMap
	Body          []byte
}

// An ErrorMessage is a failed unary response.
type ErrorMessage struct {
	ReqID         string
	Code          uint32
	Message       string
	ContentType   ContentType
	CustomHeaders HeaderMap
	Body          []byte
}

// A HeartbeatMessage keeps a long-lived connection alive.
// HeartbeatInterval is in milliseconds; zero means unadvertised.
type HeartbeatMessage struct {
	HeartbeatInterval uint32
}

// A ConnectionStartMessage opens a long-lived connection.
// HeartbeatInterval is in milliseconds; zero means unadvertised.
type ConnectionStartMessage struct {
	HeartbeatInterval uint32
}

// A StreamDataMessage carries one item of an output stream.
type StreamDataMessage struct {
	ReqID string
	MsgID string
	Body  []byte
}

// A StreamEndMessage terminates an output stream cleanly.
type StreamEndMessage struct {
	ReqID  string
	Reason string
}

// A StreamCancelMessage cancels an output stream from the consumer side.
type StreamCancelMessage struct {
	ReqID  string
	Reason string
}

// An UnknownMessage is the safe decode fallback for verbs introduced by a
// newer protocol revision. It is never encoded.
type UnknownMessage struct{}

// MessageReqID returns the req-id carried by msg, for the variants that
// carry one. Heartbeat, ConnectionStart, and Unknown messages have none.
func MessageReqID(msg Message) (string, bool) {
	switch m := msg.(type) {
	case *InvocationMessage:
		return m.ReqID, true
	case *OkMessage:
		return m.ReqID, true
	case *ErrorMessage:
		return m.ReqID, true
	case *StreamDataMessage:
		return m.ReqID, true
	case *StreamEndMessage:
		return m.ReqID, true
	case *StreamCancelMessage:
		return m.ReqID, true
	}
	return "", false
}

// A messageBuilder accumulates the header section of an encoded message,
// validating header keys and values as they are written.
type messageBuilder struct {
	buf bytes.Buffer
}

func (b *messageBuilder) versionLine(verb string) {
	b.buf.WriteString("ARRIRPC/")
	b.buf.WriteString(ProtocolVersion)
	b.buf.WriteByte(' ')
	b.buf.WriteString(verb)
	b.buf.WriteByte('\n')
}

func (b *messageBuilder) header(key, value string) error {
	if strings.ContainsAny(key, ": \n\r") {
		return &EncodeError{reason: fmt.Sprintf("invalid header key %q", key)}
	}
	if strings.ContainsAny(value, "\n\r") {
		return &EncodeError{reason: fmt.Sprintf("header %q value contains a line terminator", key)}
	}
	b.buf.WriteString(key)
	b.buf.WriteString(": ")
	b.buf.WriteString(value)
	b.buf.WriteByte('\n')
	return nil
}

// customHeaders writes the caller-supplied headers in map iteration
// order (lexicographic). Reserved keys are skipped: they ride in
// dedicated slots and must not be duplicated or overridden.
func (b *messageBuilder) customHeaders(h HeaderMap) error {
	for k, v := range h.All() {
		if reservedHeaders[k] {
			continue
		}
		if err := b.header(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (b *messageBuilder) finish(body []byte) []byte {
	b.buf.WriteByte('\n')
	b.buf.Write(body)
	return b.buf.Bytes()
}

// EncodeMessage encodes msg into its framed wire form. Encoding is
// byte-deterministic for a given message value. Unknown messages cannot
// be encoded.
func EncodeMessage(msg Message) ([]byte, error) {
	var b messageBuilder
	if err := msg.encode(&b); err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case *InvocationMessage:
		return b.finish(m.Body), nil
	case *OkMessage:
		return b.finish(m.Body), nil
	case *ErrorMessage:
		return b.finish(m.Body), nil
	case *StreamDataMessage:
		return b.finish(m.Body), nil
	default:
		return b.finish(nil), nil
	}
}

func (m *InvocationMessage) encode(b *messageBuilder) error {
	if m.RPCName == "" {
		return &EncodeError{reason: "invocation has no rpc name"}
	}
	if strings.ContainsAny(m.RPCName, " \n\r") {
		return &EncodeError{reason: fmt.Sprintf("invalid rpc name %q", m.RPCName)}
	}
	b.versionLine(m.RPCName)
	if m.ContentType != ContentTypeUnspecified {
		if err := b.header("content-type", m.ContentType.String()); err != nil {
			return err
		}
	}
	if err := b.header("req-id", m.ReqID); err != nil {
		return err
	}
	if m.ClientVersion != "" {
		if err := b.header("client-version", m.ClientVersion); err != nil {
			return err
		}
	}
	return b.customHeaders(m.CustomHeaders)
}

func (m *OkMessage) encode(b *messageBuilder) error {
	b.versionLine("OK")
	if m.ContentType != ContentTypeUnspecified {
		if err := b.header("content-type", m.ContentType.String()); err != nil {
			return err
		}
	}
	if err := b.header("req-id", m.ReqID); err != nil {
		return err
	}
	return b.customHeaders(m.CustomHeaders)
}

func (m *ErrorMessage) encode(b *messageBuilder) error {
	b.versionLine("ERROR")
	if m.ContentType != ContentTypeUnspecified {
		if err := b.header("content-type", m.ContentType.String()); err != nil {
			return err
		}
	}
	if err := b.header("req-id", m.ReqID); err != nil {
		return err
	}
	if err := b.header("err-code", strconv.FormatUint(uint64(m.Code), 10)); err != nil {
		return err
	}
	if err := b.header("err-msg", m.Message); err != nil {
		return err
	}
	return b.customHeaders(m.CustomHeaders)
}

func (m *HeartbeatMessage) encode(b *messageBuilder) error {
	b.versionLine("HEARTBEAT")
	if m.HeartbeatInterval > 0 {
		return b.header("heartbeat-interval", strconv.FormatUint(uint64(m.HeartbeatInterval), 10))
	}
	return nil
}

func (m *ConnectionStartMessage) encode(b *messageBuilder) error {
	b.versionLine("CONNECTION_START")
	if m.HeartbeatInterval > 0 {
		return b.header("heartbeat-interval", strconv.FormatUint(uint64(m.HeartbeatInterval), 10))
	}
	return nil
}

func (m *StreamDataMessage) encode(b *messageBuilder) error {
	b.versionLine("STREAM_DATA")
	if err := b.header("req-id", m.ReqID); err != nil {
		return err
	}
	if m.MsgID != "" {
		return b.header("msg-id", m.MsgID)
	}
	return nil
}

func (m *StreamEndMessage) encode(b *messageBuilder) error {
	b.versionLine("STREAM_END")
	if err := b.header("req-id", m.ReqID); err != nil {
		return err
	}
	if m.Reason != "" {
		return b.header("reason", m.Reason)
	}
	return nil
}

func (m *StreamCancelMessage) encode(b *messageBuilder) error {
	b.versionLine("STREAM_CANCEL")
	if err := b.header("req-id", m.ReqID); err != nil {
		return err
	}
	if m.Reason != "" {
		return b.header("reason", m.Reason)
	}
	return nil
}

func (m *UnknownMessage) encode(*messageBuilder) error {
	return &EncodeError{reason: "unknown messages cannot be encoded"}
}

// decodedHeaders holds the header section of a wire message after
// parsing, with reserved keys pulled into their dedicated slots.
type decodedHeaders struct {
	contentType       ContentType
	reqID             string
	clientVersion     string
	errCode           uint32
	errMsg            string
	msgID             string
	reason            string
	heartbeatInterval uint32
	custom            HeaderMap
}

// DecodeMessage decodes one framed wire message. Verbs in the reserved
// all-caps form that this library does not recognize decode to
// *UnknownMessage; any other second token is taken as an rpc name and
// decodes to *InvocationMessage.
func DecodeMessage(data []byte) (Message, error) {
	s := string(data)
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return nil, &DecodeError{Kind: DecodeTruncatedInput, reason: "missing version line terminator"}
	}
	verb, err := parseVersionLine(s[:nl])
	if err != nil {
		return nil, err
	}
	hdr, body, err := parseHeaderSection(s[nl+1:])
	if err != nil {
		return nil, err
	}
	switch verb {
	case "OK":
		if hdr.reqID == "" {
			return nil, missingReqID(verb)
		}
		return &OkMessage{
			ReqID:         hdr.reqID,
			ContentType:   hdr.contentType,
			CustomHeaders: hdr.custom,
			Body:          body,
		}, nil
	case "ERROR":
		if hdr.reqID == "" {
			return nil, missingReqID(verb)
		}
		return &ErrorMessage{
			ReqID:         hdr.reqID,
			Code:          hdr.errCode,
			Message:       hdr.errMsg,
			ContentType:   hdr.contentType,
			CustomHeaders: hdr.custom,
			Body:          body,
		}, nil
	case "HEARTBEAT":
		return &HeartbeatMessage{HeartbeatInterval: hdr.heartbeatInterval}, nil
	case "CONNECTION_START":
		return &ConnectionStartMessage{HeartbeatInterval: hdr.heartbeatInterval}, nil
	case "STREAM_DATA":
		if hdr.reqID == "" {
			return nil, missingReqID(verb)
		}
		return &StreamDataMessage{ReqID: hdr.reqID, MsgID: hdr.msgID, Body: body}, nil
	case "STREAM_END":
		if hdr.reqID == "" {
			return nil, missingReqID(verb)
		}
		return &StreamEndMessage{ReqID: hdr.reqID, Reason: hdr.reason}, nil
	case "STREAM_CANCEL":
		if hdr.reqID == "" {
			return nil, missingReqID(verb)
		}
		return &StreamCancelMessage{ReqID: hdr.reqID, Reason: hdr.reason}, nil
	}
	if isReservedVerb(verb) {
		// A reserved-form verb from a future protocol revision.
		return &UnknownMessage{}, nil
	}
	if hdr.reqID == "" {
		return nil, missingReqID(verb)
	}
	return &InvocationMessage{
		ReqID:         hdr.reqID,
		RPCName:       verb,
		ContentType:   hdr.contentType,
		ClientVersion: hdr.clientVersion,
		CustomHeaders: hdr.custom,
		Body:          body,
	}, nil
}

func parseVersionLine(line string) (verb string, err error) {
	prefix, verb, ok := strings.Cut(line, " ")
	if !ok {
		return "", &DecodeError{Kind: DecodeBadVersionLine, reason: fmt.Sprintf("malformed version line %q", line)}
	}
	version, found := strings.CutPrefix(prefix, "ARRIRPC/")
	if !found || version == "" {
		return "", &DecodeError{Kind: DecodeBadVersionLine, reason: fmt.Sprintf("malformed version line %q", line)}
	}
	if verb == "" || strings.ContainsRune(verb, ' ') {
		return "", &DecodeError{Kind: DecodeUnknownVerb, reason: fmt.Sprintf("malformed verb in version line %q", line)}
	}
	return verb, nil
}

// isReservedVerb reports whether verb has the reserved all-caps form
// used by wire-level message variants, as opposed to an rpc name.
func isReservedVerb(verb string) bool {
	for _, r := range verb {
		if (r < 'A' || r > 'Z') && r != '_' {
			return false
		}
	}
	return true
}

func missingReqID(verb string) error {
	return &DecodeError{Kind: DecodeMalformedHeader, reason: fmt.Sprintf("%s message has no req-id header", verb)}
}

// parseHeaderSection parses "key: value" lines until the bare newline
// that terminates the header section, returning the remaining bytes as
// the body. Decoders accept a colon followed by any run of spaces; a
// missing end-of-headers line is a truncation.
func parseHeaderSection(s string) (*decodedHeaders, []byte, error) {
	hdr := &decodedHeaders{}
	for {
		nl := strings.IndexByte(s, '\n')
		if nl < 0 {
			return nil, nil, &DecodeError{Kind: DecodeTruncatedInput, reason: "missing end of header section"}
		}
		line := s[:nl]
		s = s[nl+1:]
		if line == "" {
			var body []byte
			if len(s) > 0 {
				body = []byte(s)
			}
			return hdr, body, nil
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || key == "" {
			return nil, nil, &DecodeError{Kind: DecodeMalformedHeader, reason: fmt.Sprintf("malformed header line %q", line)}
		}
		key = strings.ToLower(key)
		value = strings.TrimLeft(value, " ")
		switch key {
		case "content-type":
			ct, err := ParseContentType(value)
			if err != nil {
				return nil, nil, err
			}
			hdr.contentType = ct
		case "req-id":
			hdr.reqID = value
		case "client-version":
			hdr.clientVersion = value
		case "err-code":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return nil, nil, invalidNumericHeader(key, value)
			}
			hdr.errCode = uint32(n)
		case "err-msg":
			hdr.errMsg = value
		case "msg-id":
			hdr.msgID = value
		case "reason":
			hdr.reason = value
		case "heartbeat-interval":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return nil, nil, invalidNumericHeader(key, value)
			}
			hdr.heartbeatInterval = uint32(n)
		default:
			hdr.custom.Set(key, value)
		}
	}
}

func invalidNumericHeader(key, value string) error {
	return &DecodeError{Kind: DecodeInvalidNumericHeader, reason: fmt.Sprintf("header %q has non-numeric value %q", key, value)}
}
