package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithVolunteerID(ctx, "VOL-ABC123")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte("\"request_id\"")) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"volunteer_id\":\"VOL-ABC123\"")) {
		t.Fatalf("expected volunteer_id field; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack trace on error; entry=%s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack when warn stack enabled")
	}

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})
	quiet.Warn(context.Background(), "warny")
	if bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected no stack when warn stack disabled")
	}
}

func TestWithFieldsDoesNotLeakIntoParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: buf})

	parent := context.Background()
	_ = log.WithFields(parent, map[string]any{"order_id": "o-1"})
	log.Info(parent, "plain")

	if bytes.Contains(buf.Bytes(), []byte("order_id")) {
		t.Fatalf("fields attached to child context leaked: %s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" WARN "); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
}

func TestInstanceAndFormatOptions(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf, Format: FormatJSON, Instance: "web.1"})
	log.Info(context.Background(), "ready")
	if !bytes.Contains(buf.Bytes(), []byte(`"instance":"web.1"`)) {
		t.Fatalf("expected instance field; entry=%s", buf.String())
	}

	buf.Reset()
	console := New(Options{ServiceName: "api", Output: buf, Format: "CONSOLE"})
	console.Info(context.Background(), "ready")
	if bytes.HasPrefix(bytes.TrimSpace(buf.Bytes()), []byte("{")) {
		t.Fatalf("expected console output, got json: %s", buf.String())
	}
}

func TestCustomerPhoneIsMasked(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: FormatJSON})

	ctx := log.WithCustomerPhone(context.Background(), "+91 94470 00001")
	ctx = log.WithOrderNumber(ctx, "SD-7K2M9QX4")
	log.Info(ctx, "order placed")

	if bytes.Contains(buf.Bytes(), []byte("94470")) {
		t.Fatalf("raw phone leaked: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"customer_phone":"********0001"`)) {
		t.Fatalf("expected masked phone; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"order_number":"SD-7K2M9QX4"`)) {
		t.Fatalf("expected order number; entry=%s", buf.String())
	}
}

func TestMaskPhone(t *testing.T) {
	cases := map[string]string{
		"9447000001": "******0001",
		"123":        "***",
		"":           "",
	}
	for in, want := range cases {
		if got := MaskPhone(in); got != want {
			t.Fatalf("MaskPhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNestedFieldsAccumulate(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: FormatJSON})

	ctx := log.WithRequestID(context.Background(), "req-9")
	child := log.WithFields(ctx, map[string]any{"job": "payment-expiry", "batch": 3})
	log.Info(child, "job.done")
	log.Info(ctx, "request.done")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected two entries, got %d: %s", len(lines), buf.String())
	}
	if !bytes.Contains(lines[0], []byte(`"request_id":"req-9"`)) || !bytes.Contains(lines[0], []byte(`"job":"payment-expiry"`)) {
		t.Fatalf("child entry lost fields: %s", lines[0])
	}
	if bytes.Contains(lines[1], []byte("job")) {
		t.Fatalf("child fields leaked into parent entry: %s", lines[1])
	}
}
