package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type BrokerTestSuite struct {
	suite.Suite
	broker *Broker
}

func (s *BrokerTestSuite) SetupTest() {
	s.broker = NewBroker(nil, nil)
}

func (s *BrokerTestSuite) TearDownTest() {
	s.broker.Close()
}

// collector records delivered events in order
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		ids = append(ids, ev.Record.ID)
	}
	return ids
}

func (s *BrokerTestSuite) TestPublish_DeliversInOrderPerTopic() {
	all := &collector{}
	u1 := &collector{}
	u2 := &collector{}

	_, err := s.broker.Subscribe(TopicAll, all.handle)
	s.Require().NoError(err)
	_, err = s.broker.Subscribe(ParticipantTopic("u1"), u1.handle)
	s.Require().NoError(err)
	_, err = s.broker.Subscribe(ParticipantTopic("u2"), u2.handle)
	s.Require().NoError(err)

	for i := 0; i < 5; i++ {
		s.Require().NoError(s.broker.Publish(context.Background(), NewEvent(EventInsert, testMessage(fmt.Sprintf("m%d", i), "u1", "admin"))))
	}

	expected := []string{"m0", "m1", "m2", "m3", "m4"}
	s.Eventually(func() bool { return len(all.ids()) == 5 && len(u1.ids()) == 5 }, time.Second, 5*time.Millisecond)
	s.Equal(expected, all.ids())
	s.Equal(expected, u1.ids())
	s.Empty(u2.ids())
}

func (s *BrokerTestSuite) TestPublish_RejectsMalformed() {
	err := s.broker.Publish(context.Background(), Event{Type: "bogus"})
	s.ErrorIs(err, ErrMalformedEvent)
}

func (s *BrokerTestSuite) TestUnsubscribe_StopsDeliveryAndIsIdempotent() {
	c := &collector{}
	sub, err := s.broker.Subscribe(TopicAll, c.handle)
	s.Require().NoError(err)
	s.Equal(1, s.broker.SubscriberCount(TopicAll))

	sub.Unsubscribe()
	sub.Unsubscribe()
	s.Equal(0, s.broker.SubscriberCount(TopicAll))

	s.Require().NoError(s.broker.Publish(context.Background(), NewEvent(EventInsert, testMessage("m1", "u1", "admin"))))
	time.Sleep(20 * time.Millisecond)
	s.Empty(c.ids())
}

func (s *BrokerTestSuite) TestSubscribe_InvalidTopic() {
	_, err := s.broker.Subscribe("orders", func(Event) {})
	s.ErrorIs(err, ErrInvalidTopic)
}

func (s *BrokerTestSuite) TestSubscribe_AfterClose() {
	s.broker.Close()
	_, err := s.broker.Subscribe(TopicAll, func(Event) {})
	s.ErrorIs(err, ErrFeedClosed)
}

func (s *BrokerTestSuite) TestPublish_FullQueueDropsWithoutBlocking() {
	release := make(chan struct{})
	_, err := s.broker.Subscribe(TopicAll, func(Event) { <-release })
	s.Require().NoError(err)
	defer close(release)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriptionBuffer+10; i++ {
			s.broker.Publish(context.Background(), NewEvent(EventInsert, testMessage(fmt.Sprintf("m%d", i), "u1", "admin")))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("publish blocked on a full subscriber queue")
	}
}

func TestBrokerTestSuite(t *testing.T) {
	suite.Run(t, new(BrokerTestSuite))
}

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, Event) error { return f.err }

func TestFanout_PublishesToAll(t *testing.T) {
	broker := NewBroker(nil, nil)
	defer broker.Close()
	c := &collector{}
	_, err := broker.Subscribe(TopicAll, c.handle)
	require.NoError(t, err)

	boom := errors.New("boom")
	fan := Fanout{broker, nil, failingPublisher{err: boom}, Discard}

	err = fan.Publish(context.Background(), NewEvent(EventInsert, testMessage("m1", "u1", "admin")))

	assert.ErrorIs(t, err, boom)
	assert.Eventually(t, func() bool { return len(c.ids()) == 1 }, time.Second, 5*time.Millisecond)
}
