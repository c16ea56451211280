package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockS3Client records PutObject calls and can fail a number of times.
type mockS3Client struct {
	puts      []*s3.PutObjectInput
	failTimes int
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.failTimes > 0 {
		m.failTimes--
		return nil, fmt.Errorf("slow down")
	}
	m.puts = append(m.puts, params)
	return &s3.PutObjectOutput{}, nil
}

func TestS3SinkDeliver(t *testing.T) {
	mock := &mockS3Client{}
	s, err := NewS3SinkWithClient(mock, "query-transcripts", "transcripts/", testLogger())
	if err != nil {
		t.Fatalf("NewS3SinkWithClient: %v", err)
	}
	s.retryCfg = fastRetryConfig()

	tr := sampleTranscript()
	if err := s.Deliver(context.Background(), &tr); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if len(mock.puts) != 1 {
		t.Fatalf("PutObject calls = %d, want 1", len(mock.puts))
	}
	put := mock.puts[0]
	if *put.Bucket != "query-transcripts" {
		t.Errorf("bucket = %q", *put.Bucket)
	}
	if want := "transcripts/2026/03/01/"; !strings.HasPrefix(*put.Key, want) {
		t.Errorf("key = %q, want prefix %q", *put.Key, want)
	}
	if !strings.HasSuffix(*put.Key, ".json") {
		t.Errorf("key = %q, want .json suffix", *put.Key)
	}

	var stored Transcript
	if err := json.NewDecoder(put.Body).Decode(&stored); err != nil {
		t.Fatalf("decoding stored transcript: %v", err)
	}
	if stored.Query != tr.Query {
		t.Errorf("stored query = %q", stored.Query)
	}
}

func TestS3SinkRetries(t *testing.T) {
	mock := &mockS3Client{failTimes: 2}
	s, err := NewS3SinkWithClient(mock, "query-transcripts", "", testLogger())
	if err != nil {
		t.Fatalf("NewS3SinkWithClient: %v", err)
	}
	s.retryCfg = fastRetryConfig()

	tr := sampleTranscript()
	if err := s.Deliver(context.Background(), &tr); err != nil {
		t.Fatalf("Deliver after retries: %v", err)
	}
	if len(mock.puts) != 1 {
		t.Errorf("PutObject successes = %d, want 1", len(mock.puts))
	}
}

func TestS3SinkObjectKeyZeroTimestamp(t *testing.T) {
	mock := &mockS3Client{}
	s, err := NewS3SinkWithClient(mock, "query-transcripts", "p/", testLogger())
	if err != nil {
		t.Fatalf("NewS3SinkWithClient: %v", err)
	}
	s.nowFunc = func() time.Time {
		return time.Date(2026, 7, 4, 8, 30, 0, 0, time.UTC)
	}

	key := s.objectKey(&Transcript{})
	if want := "p/2026/07/04/"; !strings.HasPrefix(key, want) {
		t.Errorf("key = %q, want prefix %q", key, want)
	}
}

func TestNewS3SinkWithClientValidation(t *testing.T) {
	if _, err := NewS3SinkWithClient(nil, "b", "", testLogger()); err == nil {
		t.Error("expected error for nil client")
	}
	if _, err := NewS3SinkWithClient(&mockS3Client{}, "", "", testLogger()); err == nil {
		t.Error("expected error for empty bucket")
	}
}
