package config

import (
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewConsumer(queueName string) (*Consumer, error) {
	ch, err := RabbitMQ.Channel()
	if err != nil {
		return nil, err
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		conn:    RabbitMQ,
		channel: ch,
		queue:   q.Name,
	}, nil
}

// Consume blocks and delivers each message body to handler. Failed
// messages are requeued.
func (c *Consumer) Consume(handler func([]byte) error) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return err
	}

	log.Infof("Consumer is running on queue %s", c.queue)

	for msg := range msgs {
		if err := handler(msg.Body); err != nil {
			log.Errorf("Handle msg failed: %v", err)
			msg.Nack(false, true) // requeue the message
		} else {
			msg.Ack(false)
		}
	}

	return nil
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
