package backends_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wayneeseguin/retrolog/pkg/backends"
	testhelpers "github.com/wayneeseguin/retrolog/internal/testing"
)

func TestNewNATSSink_Parse(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantErr     bool
		wantSubject string
		wantServers []string
	}{
		{"basic", "nats://localhost:4222/logs.app", false, "logs.app", []string{"nats://localhost:4222"}},
		{"with auth and options", "nats://u:p@host:4222/logs?batch=10&flush_interval=50&tls=true", false, "logs", []string{"nats://host:4222"}},
		{"sync", "nats://host/logs?async=false", false, "logs", []string{"nats://host"}},
		{"wrong scheme", "http://host/logs", true, "", nil},
		{"no subject", "nats://host:4222", true, "", nil},
		{"bad batch", "nats://host/logs?batch=x", true, "", nil},
		{"bad flush interval", "nats://host/logs?flush_interval=0", true, "", nil},
		{"bad async", "nats://host/logs?async=maybe", true, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, err := backends.NewNATSSinkWithOptions(tt.uri, false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewNATSSinkWithOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if sink.Subject() != tt.wantSubject {
				t.Errorf("Subject() = %q, want %q", sink.Subject(), tt.wantSubject)
			}
			if strings.Join(sink.Servers(), ",") != strings.Join(tt.wantServers, ",") {
				t.Errorf("Servers() = %v, want %v", sink.Servers(), tt.wantServers)
			}
		})
	}
}

func TestNATSSink_NotConnected(t *testing.T) {
	for _, uri := range []string{"nats://host/logs", "nats://host/logs?async=false"} {
		sink, err := backends.NewNATSSinkWithOptions(uri, false)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := sink.Write([]byte("x")); !errors.Is(err, backends.ErrNotConnected) {
			t.Errorf("%s: Write() error = %v, want ErrNotConnected", uri, err)
		}
		if sink.Stats().ErrorCount != 1 {
			t.Errorf("%s: ErrorCount = %d", uri, sink.Stats().ErrorCount)
		}
		if err := sink.Close(); err != nil {
			t.Errorf("%s: Close() error = %v", uri, err)
		}
	}
}

func TestNATSSink_Integration(t *testing.T) {
	testhelpers.SkipIfUnit(t)

	url := testhelpers.NATSURL()
	nc, err := nats.Connect(url)
	if err != nil {
		t.Skipf("nats server not reachable at %s: %v", url, err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync("retrolog.test")
	if err != nil {
		t.Fatal(err)
	}
	nc.Flush()

	sink, err := backends.NewNATSSink(url + "/retrolog.test?batch=2")
	if err != nil {
		t.Fatalf("NewNATSSink() error = %v", err)
	}
	sink.Write([]byte("one"))
	sink.Write([]byte("two"))
	sink.Write([]byte("three"))
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	for _, want := range []string{"one", "two", "three"} {
		msg, err := sub.NextMsg(2 * time.Second)
		if err != nil {
			t.Fatalf("NextMsg() error = %v", err)
		}
		if string(msg.Data) != want {
			t.Errorf("got %q, want %q", msg.Data, want)
		}
	}
}
