// Trackrelay - Video Tracking Session Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackrelay

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	id1 := GenerateCorrelationID()
	id2 := GenerateCorrelationID()

	if len(id1) != 8 {
		t.Errorf("expected 8-character correlation ID, got %d", len(id1))
	}
	if id1 == id2 {
		t.Error("expected unique correlation IDs")
	}
}

func TestGenerateRequestID(t *testing.T) {
	t.Parallel()

	id := GenerateRequestID()
	if len(id) != 36 { // UUID format
		t.Errorf("expected 36-character request ID, got %d", len(id))
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if CorrelationIDFromContext(ctx) != "" || RequestIDFromContext(ctx) != "" || SessionIDFromContext(ctx) != "" {
		t.Fatal("expected empty values from bare context")
	}

	ctx = ContextWithCorrelationID(ctx, "corr1234")
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithSessionID(ctx, "sess-1")

	if got := CorrelationIDFromContext(ctx); got != "corr1234" {
		t.Errorf("CorrelationIDFromContext = %q", got)
	}
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext = %q", got)
	}
	if got := SessionIDFromContext(ctx); got != "sess-1" {
		t.Errorf("SessionIDFromContext = %q", got)
	}

	if UserIDFromContext(ctx) != 0 {
		t.Error("expected no user id before ContextWithUserID")
	}
	if got := UserIDFromContext(ContextWithUserID(ctx, 7)); got != 7 {
		t.Errorf("UserIDFromContext = %d", got)
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer

	original := Logger()
	defer SetLogger(original)
	SetLogger(zerolog.New(&buf))

	ctx := ContextWithRequestID(context.Background(), "req-42")
	ctx = ContextWithSessionID(ctx, "sess-42")
	ctx = ContextWithUserID(ctx, 42)
	ctx = ContextWithNewCorrelationID(ctx)

	Ctx(ctx).Info().Msg("with context")

	output := buf.String()
	for _, want := range []string{`"request_id":"req-42"`, `"session_id":"sess-42"`, `"user_id":42`, `"correlation_id":"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}
