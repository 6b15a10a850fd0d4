// Copyright 2025 The Arri Go SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package arri

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var messageCmpOpts = []cmp.Option{cmp.AllowUnexported(HeaderMap{})}

func TestEncodeInvocationMessage(t *testing.T) {
	msg := &InvocationMessage{
		ReqID:         "12345",
		RPCName:       "foo.fooFoo",
		ContentType:   ContentTypeJSON,
		ClientVersion: "1.2.5",
		CustomHeaders: NewHeaderMap(map[string]string{"foo": "hello foo"}),
		Body:          []byte(`{"message":"hello world"}`),
	}
	want := "ARRIRPC/0.0.8 foo.fooFoo\n" +
		"content-type: application/json\n" +
		"req-id: 12345\n" +
		"client-version: 1.2.5\n" +
		"foo: hello foo\n" +
		"\n" +
		`{"message":"hello world"}`
	got, err := EncodeMessage(msg)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("encoded invocation mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeOkMessageWithoutBody(t *testing.T) {
	msg := &OkMessage{
		ReqID:         "54321",
		ContentType:   ContentTypeJSON,
		CustomHeaders: NewHeaderMap(map[string]string{"foo": "foo"}),
	}
	want := "ARRIRPC/0.0.8 OK\ncontent-type: application/json\nreq-id: 54321\nfoo: foo\n\n"
	got, err := EncodeMessage(msg)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Errorf("encoded ok message = %q, want %q", got, want)
	}
}

func TestEncodeErrorMessage(t *testing.T) {
	msg := &ErrorMessage{
		ReqID:         "12345",
		Code:          54321,
		Message:       "This is an error",
		ContentType:   ContentTypeJSON,
		CustomHeaders: NewHeaderMap(map[string]string{"foo": "foo"}),
		Body:          []byte(`{"data":[],"trace":["foo","bar","baz"]}`),
	}
	want := "ARRIRPC/0.0.8 ERROR\n" +
		"content-type: application/json\n" +
		"req-id: 12345\n" +
		"err-code: 54321\n" +
		"err-msg: This is an error\n" +
		"foo: foo\n" +
		"\n" +
		`{"data":[],"trace":["foo","bar","baz"]}`
	got, err := EncodeMessage(msg)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("encoded error mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeHeartbeatMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"heartbeat without interval", &HeartbeatMessage{}, "ARRIRPC/0.0.8 HEARTBEAT\n\n"},
		{"heartbeat with interval", &HeartbeatMessage{HeartbeatInterval: 155}, "ARRIRPC/0.0.8 HEARTBEAT\nheartbeat-interval: 155\n\n"},
		{"connection start without interval", &ConnectionStartMessage{}, "ARRIRPC/0.0.8 CONNECTION_START\n\n"},
		{"connection start with interval", &ConnectionStartMessage{HeartbeatInterval: 255}, "ARRIRPC/0.0.8 CONNECTION_START\nheartbeat-interval: 255\n\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := EncodeMessage(test.msg)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != test.want {
				t.Errorf("got %q, want %q", got, test.want)
			}
		})
	}
}

func TestEncodeStreamMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			"stream data",
			&StreamDataMessage{ReqID: "1515", MsgID: "1", Body: []byte(`{"message":"hello world"}`)},
			"ARRIRPC/0.0.8 STREAM_DATA\nreq-id: 1515\nmsg-id: 1\n\n{\"message\":\"hello world\"}",
		},
		{
			"stream end",
			&StreamEndMessage{ReqID: "1515", Reason: "no more events"},
			"ARRIRPC/0.0.8 STREAM_END\nreq-id: 1515\nreason: no more events\n\n",
		},
		{
			"stream cancel",
			&StreamCancelMessage{ReqID: "1515", Reason: "no longer needed"},
			"ARRIRPC/0.0.8 STREAM_CANCEL\nreq-id: 1515\nreason: no longer needed\n\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := EncodeMessage(test.msg)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != test.want {
				t.Errorf("got %q, want %q", got, test.want)
			}
		})
	}
}

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{
			"invocation",
			&InvocationMessage{
				ReqID:         "12345",
				RPCName:       "foo.fooFoo",
				ContentType:   ContentTypeJSON,
				ClientVersion: "1.2.5",
				CustomHeaders: NewHeaderMap(map[string]string{"foo": "hello foo", "bar": "hello bar"}),
				Body:          []byte(`{"message":"hello world"}`),
			},
		},
		{
			"invocation minimal",
			&InvocationMessage{ReqID: "1", RPCName: "users.watchUser"},
		},
		{
			"ok with body",
			&OkMessage{ReqID: "12345", ContentType: ContentTypeJSON, Body: []byte(`{"message":"hello world"}`)},
		},
		{
			"ok without body",
			&OkMessage{ReqID: "54321", ContentType: ContentTypeJSON, CustomHeaders: NewHeaderMap(map[string]string{"foo": "foo"})},
		},
		{
			"error",
			&ErrorMessage{
				ReqID:         "2",
				Code:          11,
				Message:       "this is an error",
				ContentType:   ContentTypeJSON,
				CustomHeaders: NewHeaderMap(map[string]string{"foo": "foo"}),
				Body:          []byte(`{"data":[],"trace":["foo"]}`),
			},
		},
		{"heartbeat", &HeartbeatMessage{HeartbeatInterval: 155}},
		{"heartbeat empty", &HeartbeatMessage{}},
		{"connection start", &ConnectionStartMessage{HeartbeatInterval: 255}},
		{"stream data", &StreamDataMessage{ReqID: "1515", MsgID: "1", Body: []byte(`{"message":"hello world"}`)}},
		{"stream data without msg id", &StreamDataMessage{ReqID: "6"}},
		{"stream end", &StreamEndMessage{ReqID: "1515", Reason: "no more events"}},
		{"stream cancel", &StreamCancelMessage{ReqID: "1515", Reason: "no longer needed"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			encoded, err := EncodeMessage(test.msg)
			if err != nil {
				t.Fatal(err)
			}
			decoded, err := DecodeMessage(encoded)
			if err != nil {
				t.Fatalf("DecodeMessage: %v", err)
			}
			if diff := cmp.Diff(test.msg, decoded, messageCmpOpts...); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMessageReqID(t *testing.T) {
	tests := []struct {
		msg    Message
		want   string
		wantOK bool
	}{
		{&InvocationMessage{ReqID: "1", RPCName: "foo"}, "1", true},
		{&ErrorMessage{ReqID: "2", Code: 11, Message: "this is an error"}, "2", true},
		{&OkMessage{ReqID: "3"}, "3", true},
		{&ConnectionStartMessage{}, "", false},
		{&HeartbeatMessage{}, "", false},
		{&StreamDataMessage{ReqID: "6"}, "6", true},
		{&StreamEndMessage{ReqID: "7"}, "7", true},
		{&StreamCancelMessage{ReqID: "8"}, "8", true},
		{&UnknownMessage{}, "", false},
	}
	for _, test := range tests {
		got, ok := MessageReqID(test.msg)
		if got != test.want || ok != test.wantOK {
			t.Errorf("MessageReqID(%T) = %q, %t, want %q, %t", test.msg, got, ok, test.want, test.wantOK)
		}
	}
}

func TestDecodeMessageErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  DecodeErrorKind
	}{
		{"empty input", "", DecodeTruncatedInput},
		{"unterminated version line", "ARRIRPC/0.0.8 OK", DecodeTruncatedInput},
		{"no version prefix", "HELLO WORLD\n\n", DecodeBadVersionLine},
		{"no verb separator", "ARRIRPC/0.0.8\n\n", DecodeBadVersionLine},
		{"empty version", "ARRIRPC/ OK\n\n", DecodeBadVersionLine},
		{"empty verb", "ARRIRPC/0.0.8 \n\n", DecodeUnknownVerb},
		{"header without colon", "ARRIRPC/0.0.8 OK\nfoo\n\n", DecodeMalformedHeader},
		{"missing header terminator", "ARRIRPC/0.0.8 OK\nreq-id: 1\n", DecodeTruncatedInput},
		{"missing req-id", "ARRIRPC/0.0.8 OK\n\n", DecodeMalformedHeader},
		{"non-numeric err-code", "ARRIRPC/0.0.8 ERROR\nreq-id: 1\nerr-code: abc\n\n", DecodeInvalidNumericHeader},
		{"non-numeric heartbeat interval", "ARRIRPC/0.0.8 HEARTBEAT\nheartbeat-interval: soon\n\n", DecodeInvalidNumericHeader},
		{"unsupported content type", "ARRIRPC/0.0.8 OK\ncontent-type: text/plain\nreq-id: 1\n\n", DecodeUnsupportedContentType},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := DecodeMessage([]byte(test.input))
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("DecodeMessage(%q) = %v, want *DecodeError", test.input, err)
			}
			if decodeErr.Kind != test.kind {
				t.Errorf("DecodeMessage(%q) kind = %d, want %d", test.input, decodeErr.Kind, test.kind)
			}
		})
	}
}

func TestDecodeUnknownVerb(t *testing.T) {
	// Reserved-form verbs from future protocol revisions decode to
	// UnknownMessage rather than failing.
	msg, err := DecodeMessage([]byte("ARRIRPC/0.0.9 STREAM_PAUSE\nreq-id: 1\n\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := msg.(*UnknownMessage); !ok {
		t.Errorf("decoded %T, want *UnknownMessage", msg)
	}
}

func TestDecodeAcceptsSpaceRuns(t *testing.T) {
	msg, err := DecodeMessage([]byte("ARRIRPC/0.0.8 OK\nreq-id:    12345\n\n"))
	if err != nil {
		t.Fatal(err)
	}
	ok, isOK := msg.(*OkMessage)
	if !isOK {
		t.Fatalf("decoded %T, want *OkMessage", msg)
	}
	if ok.ReqID != "12345" {
		t.Errorf("ReqID = %q, want 12345", ok.ReqID)
	}
}

func TestDecodeLowercasesCustomHeaderKeys(t *testing.T) {
	msg, err := DecodeMessage([]byte("ARRIRPC/0.0.8 OK\nreq-id: 1\nX-Custom: value\n\n"))
	if err != nil {
		t.Fatal(err)
	}
	ok := msg.(*OkMessage)
	if got, found := ok.CustomHeaders.Get("x-custom"); !found || got != "value" {
		t.Errorf("CustomHeaders.Get(x-custom) = %q, %t, want value, true", got, found)
	}
}

func TestEncodeSkipsReservedCustomHeaders(t *testing.T) {
	msg := &OkMessage{
		ReqID: "1",
		CustomHeaders: NewHeaderMap(map[string]string{
			"req-id":       "override",
			"content-type": "text/evil",
			"foo":          "bar",
		}),
	}
	got, err := EncodeMessage(msg)
	if err != nil {
		t.Fatal(err)
	}
	want := "ARRIRPC/0.0.8 OK\nreq-id: 1\nfoo: bar\n\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEncodeRejectsNewlineInjection(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"value with LF", &OkMessage{ReqID: "1", CustomHeaders: NewHeaderMap(map[string]string{"foo": "bar\nbaz"})}},
		{"value with CR", &OkMessage{ReqID: "1", CustomHeaders: NewHeaderMap(map[string]string{"foo": "bar\rbaz"})}},
		{"err-msg with LF", &ErrorMessage{ReqID: "1", Code: 1, Message: "line one\nline two"}},
		{"rpc name with space", &InvocationMessage{ReqID: "1", RPCName: "foo bar"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := EncodeMessage(test.msg)
			var encodeErr *EncodeError
			if !errors.As(err, &encodeErr) {
				t.Errorf("EncodeMessage = %v, want *EncodeError", err)
			}
		})
	}
}

func TestEncodeUnknownMessageFails(t *testing.T) {
	if _, err := EncodeMessage(&UnknownMessage{}); err == nil {
		t.Error("EncodeMessage(UnknownMessage) succeeded, want error")
	}
}
