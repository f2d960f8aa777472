//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"social_watch/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) newPublisher(queue string) *RabbitMQ {
	pub, err := NewRabbitMQ(Config{
		URL:        s.amqpURL,
		Exchange:   "social_watch_test",
		RoutingKey: "posts",
		QueueName:  queue,
	}, s.logger)
	s.Require().NoError(err)
	return pub
}

func (s *RabbitMQIntegrationSuite) TestPublish_DeliversPostMessage() {
	pub := s.newPublisher("posts_delivery_test")
	defer pub.Close()

	post := &domain.Post{
		Platform:     "x",
		PostID:       "12345",
		URL:          "https://x.com/acct/status/12345",
		Category:     "government",
		AuthorHandle: "acct",
		Text:         "hello from the test",
		RetrievedAt:  time.Now().UTC(),
		MediaJSON:    "[]",
		MetricsJSON:  "{}",
		RawJSON:      `{"id":"12345"}`,
	}
	s.Require().NoError(pub.Publish(s.ctx, post))

	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()
	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	deliveries, err := ch.Consume("posts_delivery_test", "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case delivery := <-deliveries:
		s.Equal("application/json", delivery.ContentType)

		var msg PostMessage
		s.Require().NoError(json.Unmarshal(delivery.Body, &msg))
		s.Equal("x", msg.Platform)
		s.Equal("12345", msg.PostID)
		s.Equal("hello from the test", msg.Post.Text)
	case <-time.After(10 * time.Second):
		s.Fail("no message delivered within timeout")
	}
}

func (s *RabbitMQIntegrationSuite) TestPublish_MessagesAreDurable() {
	pub := s.newPublisher("posts_durability_test")
	defer pub.Close()

	post := &domain.Post{
		Platform:    "x",
		PostID:      "67890",
		URL:         "https://x.com/acct/status/67890",
		Category:    "independent",
		RetrievedAt: time.Now().UTC(),
		MediaJSON:   "[]",
		MetricsJSON: "{}",
		RawJSON:     "{}",
	}
	s.Require().NoError(pub.Publish(s.ctx, post))

	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()
	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	deliveries, err := ch.Consume("posts_durability_test", "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case delivery := <-deliveries:
		s.Equal(uint8(amqp.Persistent), delivery.DeliveryMode)
	case <-time.After(10 * time.Second):
		s.Fail("no message delivered within timeout")
	}
}
