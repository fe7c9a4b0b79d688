package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestNew_ParsesLevel(t *testing.T) {
	l := New("rentd", "debug", "json")
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", l.GetLevel())
	}

	l = New("rentd", "nonsense", "json")
	if l.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %v, want info fallback", l.GetLevel())
	}
}

func TestWithContext_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := New("rentd", "info", "json")
	l.SetOutput(&buf)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithUserID(ctx, "user-1")
	ctx = WithRole(ctx, "landlord")

	l.WithContext(ctx).Info("hello")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	for key, want := range map[string]string{
		"service":  "rentd",
		"trace_id": "trace-1",
		"user_id":  "user-1",
		"role":     "landlord",
		"msg":      "hello",
	} {
		if got[key] != want {
			t.Errorf("%s = %v, want %s", key, got[key], want)
		}
	}
}

func TestLogRequest_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	l := New("rentd", "info", "json")
	l.SetOutput(&buf)

	l.LogRequest(context.Background(), http.MethodGet, "/api/catalog", http.StatusBadGateway, 15*time.Millisecond)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if got["level"] != "error" {
		t.Fatalf("level = %v, want error", got["level"])
	}
	if got["status"] != float64(http.StatusBadGateway) {
		t.Fatalf("status = %v", got["status"])
	}
}

func TestTraceIDHelpers(t *testing.T) {
	id := NewTraceID()
	if id == "" {
		t.Fatal("NewTraceID returned empty id")
	}
	ctx := WithTraceID(context.Background(), "")
	if GetTraceID(ctx) != "" {
		t.Fatal("empty trace id must not be stored")
	}
}
