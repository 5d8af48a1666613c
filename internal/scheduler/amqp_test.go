package scheduler

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"captioner/internal/logging"
)

type recordingAck struct {
	acks    int
	nacks   []bool
	rejects []bool
}

func (r *recordingAck) Ack(uint64, bool) error { r.acks++; return nil }

func (r *recordingAck) Nack(_ uint64, _ bool, requeue bool) error {
	r.nacks = append(r.nacks, requeue)
	return nil
}

func (r *recordingAck) Reject(_ uint64, requeue bool) error {
	r.rejects = append(r.rejects, requeue)
	return nil
}

func delivery(ack *recordingAck, body string, redelivered bool) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, Body: []byte(body), Redelivered: redelivered, DeliveryTag: 1}
}

func TestAMQPHandleAcknowledgement(t *testing.T) {
	a := NewAMQP("amqp://localhost", "", 1, logging.NewNop())
	if a.queue != defaultQueueName {
		t.Fatalf("expected default queue, got %q", a.queue)
	}
	ctx := context.Background()
	var got []string
	ok := func(_ context.Context, id string) error { got = append(got, id); return nil }
	failing := func(context.Context, string) error { return errors.New("db locked") }
	canceled := func(context.Context, string) error { return context.Canceled }

	ack := &recordingAck{}
	a.handle(ctx, ok, delivery(ack, " job-1 \n", false))
	if ack.acks != 1 || len(got) != 1 || got[0] != "job-1" {
		t.Fatalf("expected ack for job-1, got acks=%d ids=%v", ack.acks, got)
	}

	ack = &recordingAck{}
	a.handle(ctx, failing, delivery(ack, "job-2", false))
	if len(ack.nacks) != 1 || !ack.nacks[0] {
		t.Fatalf("first failure should requeue, got %v", ack.nacks)
	}

	ack = &recordingAck{}
	a.handle(ctx, failing, delivery(ack, "job-2", true))
	if len(ack.nacks) != 1 || ack.nacks[0] {
		t.Fatalf("redelivered failure should be dropped, got %v", ack.nacks)
	}

	ack = &recordingAck{}
	a.handle(ctx, canceled, delivery(ack, "job-3", true))
	if len(ack.nacks) != 1 || !ack.nacks[0] {
		t.Fatalf("shutdown should requeue, got %v", ack.nacks)
	}

	ack = &recordingAck{}
	a.handle(ctx, ok, delivery(ack, "   ", false))
	if len(ack.rejects) != 1 || ack.rejects[0] {
		t.Fatalf("empty message should be rejected without requeue, got %v", ack.rejects)
	}

	stats := a.Stats()
	if stats.Processed != 4 || stats.Failed != 2 || stats.Running != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestAMQPStartReportsDialFailure(t *testing.T) {
	a := NewAMQP("amqp://unreachable", "jobs", 2, logging.NewNop())
	a.dial = func(string) (*amqp.Connection, error) { return nil, errors.New("connection refused") }
	err := a.Start(context.Background(), func(context.Context, string) error { return nil })
	if err == nil {
		t.Fatal("expected Start to fail when the broker is unreachable")
	}
	if err := a.Enqueue(context.Background(), "job"); err == nil {
		t.Fatal("expected Enqueue to fail when the broker is unreachable")
	}
	a.Stop()
	if err := a.Enqueue(context.Background(), "job"); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after Stop, got %v", err)
	}
}

func TestAMQPRequiresURL(t *testing.T) {
	a := NewAMQP("", "jobs", 1, logging.NewNop())
	if err := a.Enqueue(context.Background(), "job"); err == nil {
		t.Fatal("expected error without url")
	}
}
