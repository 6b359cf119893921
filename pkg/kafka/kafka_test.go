package kafka

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestHookChainOrder(t *testing.T) {
	var calls []string
	mk := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
				calls = append(calls, "before:"+name)
				return ctx, km, append(data, name...), nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) {
				calls = append(calls, "after:"+name)
			},
		}
	}

	chain := NewHookChain(mk("a"), nil, mk("b"))
	ctx, km, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	if err != nil {
		t.Fatalf("BeforeHandle: %v", err)
	}
	if string(data) != "xab" {
		t.Errorf("data = %q, want xab", data)
	}
	chain.AfterHandle(ctx, "t", km, data, nil)

	want := "before:a,before:b,after:b,after:a"
	if got := strings.Join(calls, ","); got != want {
		t.Errorf("calls = %s, want %s", got, want)
	}
}

func TestHookChainRecoversPanics(t *testing.T) {
	boom := HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("boom")
		},
		After: func(context.Context, string, kafka.Message, []byte, error) { panic("after") },
		Err:   func(context.Context, string, kafka.Message, []byte, error) { panic("err") },
	}
	chain := NewHookChain(boom)

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var he *HookError
	if !errors.As(err, &he) || he.Code != "ERR_PANIC" {
		t.Fatalf("err = %v, want ERR_PANIC HookError", err)
	}
	chain.AfterHandle(context.Background(), "t", kafka.Message{}, nil, nil)
	chain.OnError(context.Background(), "t", kafka.Message{}, nil, err)
}

func TestTracingHook(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: TraceHeader, Value: []byte("abc")}}}
	ctx, _, _, err := TracingHook().BeforeHandle(context.Background(), "t", km, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := TraceIDFrom(ctx); got != "abc" {
		t.Errorf("trace id = %q", got)
	}
	if got := TraceIDFrom(context.Background()); got != "" {
		t.Errorf("empty ctx trace id = %q", got)
	}
}

func TestBackoffWithJitter(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		if d <= 0 || d > max {
			t.Fatalf("attempt %d: backoff %v out of (0, %v]", attempt, d, max)
		}
	}
	if d := backoffWithJitter(min, max, 1); d < min/2 {
		t.Errorf("first backoff %v below half of min", d)
	}
}

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"bytes", []byte("raw"), "raw"},
		{"string", "text", "text"},
		{"struct", struct {
			Kind string `json:"kind"`
		}{"dasha"}, `{"kind":"dasha"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := encodeValue(tt.value)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.want {
				t.Errorf("got %s, want %s", b, tt.want)
			}
		})
	}
}

func TestConstructorsRequireBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Error("producer without brokers should fail")
	}
	if _, err := NewConsumer(nil); err == nil {
		t.Error("consumer without brokers should fail")
	}
}

func TestParseCompression(t *testing.T) {
	if parseCompression("zstd") != kafka.Zstd {
		t.Error("zstd")
	}
	if parseCompression("") != kafka.Snappy {
		t.Error("default should be snappy")
	}
}
