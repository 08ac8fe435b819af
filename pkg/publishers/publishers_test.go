package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
}

func TestValidatePublisherConfigRejectsMissingHTTP(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{
		ID:   "h1",
		Type: TypeHTTP,
	})
	if err == nil {
		t.Fatalf("expected validation error for missing http block")
	}
}

func TestLoadRegistryParsesCloudSinks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: queue
    type: SQS
    sqs:
      uri: " https://sqs.us-east-1.amazonaws.com/123/dispatch "
      region: us-east-1
      endpoint: http://localhost:4566
  - id: topic
    type: sns
    sns:
      topic_arn: arn:aws:sns:us-east-1:123:dispatch
      region: us-east-1
      access_key_id: test
      secret_access_key: test
  - id: gcp
    type: gcp_pubsub
    gcp_pubsub:
      project_id: demo
      topic: dispatch
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if got := len(reg.All()); got != 3 {
		t.Fatalf("expected 3 publishers, got %d", got)
	}

	q, ok := reg.ByID("queue")
	if !ok || q.Type != TypeSQS {
		t.Fatalf("queue publisher not normalized: %#v", q)
	}
	if q.SQS.QueueURL != "https://sqs.us-east-1.amazonaws.com/123/dispatch" || q.SQS.Endpoint != "http://localhost:4566" {
		t.Fatalf("unexpected sqs config: %#v", q.SQS)
	}

	topic, _ := reg.ByID("topic")
	if topic.SNS == nil || topic.SNS.AccessKeyID != "test" || topic.SNS.Region != "us-east-1" {
		t.Fatalf("unexpected sns config: %#v", topic.SNS)
	}

	gcp, _ := reg.ByID("gcp")
	if gcp.PubSub == nil || gcp.PubSub.ProjectID != "demo" || gcp.PubSub.Topic != "dispatch" {
		t.Fatalf("unexpected pubsub config: %#v", gcp.PubSub)
	}
}

func TestLoadRegistryRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.json")
	raw := `{"publishers":[
  {"id":"a","type":"http","http":{"url":"https://example.com"}},
  {"id":"a","type":"http","http":{"url":"https://example.com/2"}}
]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestValidatePublisherConfigCloudSinks(t *testing.T) {
	cases := []struct {
		name string
		cfg  PublisherConfig
		ok   bool
	}{
		{name: "sqs missing region", cfg: PublisherConfig{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "u"}}},
		{name: "sqs ok", cfg: PublisherConfig{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "u", AWSConfig: AWSConfig{Region: "eu-west-1"}}}, ok: true},
		{name: "sns missing topic", cfg: PublisherConfig{ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{AWSConfig: AWSConfig{Region: "eu-west-1"}}}},
		{name: "sns ok", cfg: PublisherConfig{ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{TopicARN: "arn", AWSConfig: AWSConfig{Region: "eu-west-1"}}}, ok: true},
		{name: "pubsub missing topic", cfg: PublisherConfig{ID: "g", Type: TypeGCPPubSub, PubSub: &PubSubPublisherConfig{ProjectID: "p"}}},
		{name: "pubsub ok", cfg: PublisherConfig{ID: "g", Type: TypeGCPPubSub, PubSub: &PubSubPublisherConfig{ProjectID: "p", Topic: "t"}}, ok: true},
		{name: "unknown type", cfg: PublisherConfig{ID: "x", Type: "kafka"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePublisherConfig(tc.cfg)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
