package pubsub

import (
	"testing"

	"github.com/angelmondragon/propertyhub-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"short topic", topicResourceName("proj", "ph-domain-events"), "projects/proj/topics/ph-domain-events"},
		{"full topic", topicResourceName("proj", "projects/other/topics/t"), "projects/other/topics/t"},
		{"short subscription", subscriptionResourceName("proj", " notif "), "projects/proj/subscriptions/notif"},
		{"topic path used as subscription", subscriptionResourceName("proj", "projects/other/topics/t"), "projects/proj/subscriptions/projects/other/topics/t"},
		{"empty name", topicResourceName("proj", ""), ""},
		{"missing project", topicResourceName("", "t"), ""},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: want %q got %q", tc.name, tc.want, tc.got)
		}
	}
}

func TestClientOptions(t *testing.T) {
	if opts := ClientOptions(config.GCPConfig{}); len(opts) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(opts))
	}
	if opts := ClientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}); len(opts) != 1 {
		t.Fatalf("expected json credentials option")
	}
	if opts := ClientOptions(config.GCPConfig{ApplicationCredentials: "/etc/gcp.json"}); len(opts) != 1 {
		t.Fatalf("expected file credentials option")
	}
}

func TestCompactDropsBlankNames(t *testing.T) {
	got := compact([]string{"", " a ", "  "})
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("unexpected names %v", got)
	}
}
