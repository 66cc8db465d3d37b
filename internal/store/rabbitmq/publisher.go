package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// InquiryMessage is the payload carried on the inquiry queue. The
// worker loads everything else from the database, so the id is all
// that crosses the broker.
type InquiryMessage struct {
	InquiryID string `json:"inquiry_id"`
}

// retryTTL is how long a delivery parks on the retry queue before it
// dead-letters back onto the main queue.
const retryTTL = 30 * time.Second

func retryQueue(queue string) string { return queue + ".retry" }
func dlqQueue(queue string) string   { return queue + ".dlq" }

// DeclareTopology declares the inquiry queue trio: the main queue
// dead-letters rejected deliveries to the DLQ, and the retry queue
// holds deliveries for retryTTL before routing them back to the main
// queue. Publisher and worker both declare through here, so whichever
// side starts first creates identical queues.
func DeclareTopology(ch *amqp.Channel, queue string) error {
	declare := func(name string, args amqp.Table) error {
		_, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			args,
		)
		return err
	}

	if err := declare(dlqQueue(queue), nil); err != nil {
		return err
	}
	if err := declare(retryQueue(queue), amqp.Table{
		"x-message-ttl":             int32(retryTTL / time.Millisecond),
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queue,
	}); err != nil {
		return err
	}
	return declare(queue, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqQueue(queue),
	})
}

type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := DeclareTopology(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) PublishInquiry(ctx context.Context, inquiryID string) error {
	body, err := json.Marshal(InquiryMessage{InquiryID: inquiryID})
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(cctx,
		"",      // default exchange
		p.queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}
