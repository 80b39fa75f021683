package queue

import (
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Message is a decoded job plus the delivery it arrived on. Exactly one of
// Ack or Nack takes effect; later calls are no-ops.
type Message struct {
	Job *Job

	tag     uint64
	acker   amqp.Acknowledger
	settled atomic.Bool
}

func newMessage(job *Job, d amqp.Delivery) *Message {
	return &Message{Job: job, tag: d.DeliveryTag, acker: d.Acknowledger}
}

// Ack removes the delivery from the queue.
func (m *Message) Ack() error {
	if !m.settled.CompareAndSwap(false, true) {
		return nil
	}
	return m.acker.Ack(m.tag, false)
}

// Nack rejects the delivery. Without requeue the broker dead-letters it.
func (m *Message) Nack(requeue bool) error {
	if !m.settled.CompareAndSwap(false, true) {
		return nil
	}
	return m.acker.Nack(m.tag, false, requeue)
}

func (m *Message) GetJob() *Job {
	return m.Job
}
