package socketio

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/edumarques81/stellar-videohub/internal/domain/catalog"
	"github.com/edumarques81/stellar-videohub/internal/domain/thumbnail"
)

func TestGetIntFromMap(t *testing.T) {
	tests := []struct {
		name     string
		m        map[string]interface{}
		expected int
	}{
		{"nil map", nil, -1},
		{"missing key", map[string]interface{}{"other": 5}, -1},
		{"int value", map[string]interface{}{"id": 42}, 42},
		{"float64 value", map[string]interface{}{"id": float64(42)}, 42},
		{"int64 value", map[string]interface{}{"id": int64(42)}, 42},
		{"numeric string", map[string]interface{}{"id": "42"}, 42},
		{"non-numeric string", map[string]interface{}{"id": "x"}, -1},
		{"fractional float64", map[string]interface{}{"id": 1.7}, -1},
		{"negative fractional float64", map[string]interface{}{"id": -0.5}, -1},
		{"NaN", map[string]interface{}{"id": math.NaN()}, -1},
		{"infinity", map[string]interface{}{"id": math.Inf(1)}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getIntFromMap(tt.m, "id", -1); got != tt.expected {
				t.Errorf("getIntFromMap() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestGetStringFromMap(t *testing.T) {
	m := map[string]interface{}{"channelId": "news", "n": float64(7), "b": true}

	if got := getStringFromMap(m, "channelId"); got != "news" {
		t.Errorf("channelId = %q", got)
	}
	if got := getStringFromMap(m, "n"); got != "7" {
		t.Errorf("n = %q, want 7", got)
	}
	if got := getStringFromMap(m, "b"); got != "" {
		t.Errorf("b = %q, want empty", got)
	}
	if got := getStringFromMap(nil, "x"); got != "" {
		t.Errorf("nil map = %q", got)
	}
}

func TestPayloadMap(t *testing.T) {
	if payloadMap(nil) != nil {
		t.Error("no args should give nil")
	}
	if payloadMap([]any{"str"}) != nil {
		t.Error("non-object arg should give nil")
	}
	if m := payloadMap([]any{map[string]interface{}{"id": "a"}}); m["id"] != "a" {
		t.Errorf("payloadMap = %v", m)
	}
}

func TestNewErrorPayloadKinds(t *testing.T) {
	_, loadErr := catalog.Parse([]byte(`{"metadata":{}}`))
	if loadErr == nil {
		t.Fatal("expected parse failure")
	}
	p := newErrorPayload("reloadCatalog", fmt.Errorf("catalog refresh failed: %w", loadErr))
	if p.Kind != catalog.ParseFailure.String() || p.Ref != "asset inline" {
		t.Errorf("load error payload = %+v", p)
	}

	fe := &thumbnail.FetchError{Kind: thumbnail.DecodeFailure, Ref: "a.png", Err: errors.New("bad")}
	p = newErrorPayload("getThumbnail", fe)
	if p.Kind != thumbnail.DecodeFailure.String() || p.Ref != "a.png" {
		t.Errorf("fetch error payload = %+v", p)
	}

	p = newErrorPayload("selectVideo", errVideoNotFound)
	if p.Kind != "" || p.Message != errVideoNotFound.Error() || p.Event != "selectVideo" {
		t.Errorf("plain error payload = %+v", p)
	}
}
