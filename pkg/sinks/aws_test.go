package sinks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-456")}, nil
}

func TestSQSSinkPublish(t *testing.T) {
	client := &fakeSQSClient{}
	s := &sqsSink{id: "q", queueURL: "https://example.com/queue", client: client, log: noopLogger{}}

	if err := s.Publish(context.Background(), Event{ExchangeID: "e1", Method: "GET", Status: 404}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	if attr := client.input.MessageAttributes["status"]; aws.ToString(attr.StringValue) != "404" || aws.ToString(attr.DataType) != "Number" {
		t.Fatalf("status attribute wrong: %#v", attr)
	}
	if body := aws.ToString(client.input.MessageBody); !strings.Contains(body, `"exchange_id":"e1"`) {
		t.Fatalf("MessageBody missing exchange id: %s", body)
	}
}

func TestSQSSinkPublishError(t *testing.T) {
	s := &sqsSink{id: "q", queueURL: "u", client: &fakeSQSClient{err: errors.New("boom")}, log: noopLogger{}}
	if err := s.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestSNSSinkPublish(t *testing.T) {
	client := &fakeSNSClient{}
	s := &snsSink{id: "t", topicARN: "arn:aws:sns:us-east-1:1:t", client: client, log: noopLogger{}}

	if err := s.Publish(context.Background(), Event{ExchangeID: "e2", Method: "POST", Status: 201}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:us-east-1:1:t" {
		t.Fatalf("TopicArn = %s", got)
	}
	if attr := client.input.MessageAttributes["method"]; aws.ToString(attr.StringValue) != "POST" {
		t.Fatalf("method attribute wrong: %#v", attr)
	}
	if msg := aws.ToString(client.input.Message); !strings.Contains(msg, `"exchange_id":"e2"`) {
		t.Fatalf("Message missing exchange id: %s", msg)
	}
}

func TestSNSSinkPublishError(t *testing.T) {
	s := &snsSink{id: "t", topicARN: "arn", client: &fakeSNSClient{err: errors.New("boom")}, log: noopLogger{}}
	if err := s.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestBuildAWSSinksWithStaticCredentials(t *testing.T) {
	creds := &AWSCredentials{AccessKeyID: "AK", SecretAccessKey: "SK"}
	sinks, err := BuildAll(context.Background(), DefaultRegistry(), []SinkConfig{
		{ID: "q", Type: TypeSQS, SQS: &SQSSinkConfig{QueueURL: "http://localhost:4566/000000000000/q", Region: "us-east-1", Endpoint: "http://localhost:4566", Credentials: creds}},
		{ID: "t", Type: TypeSNS, SNS: &SNSSinkConfig{TopicARN: "arn:aws:sns:us-east-1:000000000000:t", Region: "us-east-1", Credentials: creds}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(sinks) != 2 || sinks[0].Type() != TypeSQS || sinks[1].Type() != TypeSNS {
		t.Fatalf("unexpected sinks: %#v", sinks)
	}
}
