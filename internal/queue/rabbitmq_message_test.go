package queue

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAcker struct {
	acks    []uint64
	nacks   []uint64
	requeue []bool
}

func (r *recordingAcker) Ack(tag uint64, _ bool) error {
	r.acks = append(r.acks, tag)
	return nil
}

func (r *recordingAcker) Nack(tag uint64, _ bool, requeue bool) error {
	r.nacks = append(r.nacks, tag)
	r.requeue = append(r.requeue, requeue)
	return nil
}

func (r *recordingAcker) Reject(tag uint64, requeue bool) error {
	return r.Nack(tag, false, requeue)
}

func TestMessage_SettlesOnce(t *testing.T) {
	t.Parallel()

	acker := &recordingAcker{}
	job := &Job{Type: JobTypeSuggestionGeneration}
	msg := newMessage(job, amqp.Delivery{Acknowledger: acker, DeliveryTag: 7})

	require.Same(t, job, msg.GetJob())
	require.NoError(t, msg.Nack(false))
	require.NoError(t, msg.Ack())
	require.NoError(t, msg.Nack(true))

	assert.Empty(t, acker.acks)
	assert.Equal(t, []uint64{7}, acker.nacks)
	assert.Equal(t, []bool{false}, acker.requeue)
}

func TestMessage_Ack(t *testing.T) {
	t.Parallel()

	acker := &recordingAcker{}
	msg := newMessage(&Job{}, amqp.Delivery{Acknowledger: acker, DeliveryTag: 3})
	require.NoError(t, msg.Ack())
	assert.Equal(t, []uint64{3}, acker.acks)
}
