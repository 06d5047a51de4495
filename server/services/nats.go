package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore keeps one JetStream stream per room. History is read back by
// sequence number, so no consumer state is involved.
type NATSStore struct {
	nc *nats.Conn
	js jetstream.JetStream

	mu      sync.Mutex
	streams map[string]jetstream.Stream
}

func NewNATSStore() (*NATSStore, error) {
	natsURL, ok := os.LookupEnv("NATS_URL")
	if !ok {
		natsURL = nats.DefaultURL
	}

	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("could not connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("could not connect to NATS JetStream: %w", err)
	}

	return &NATSStore{
		nc:      nc,
		js:      js,
		streams: make(map[string]jetstream.Stream),
	}, nil
}

func streamName(room string) string {
	return fmt.Sprintf("ROOM_%x", room)
}

func subject(room string) string {
	return fmt.Sprintf("ROOM.%x", room)
}

func (s *NATSStore) stream(ctx context.Context, room string) (jetstream.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stream, ok := s.streams[room]; ok {
		return stream, nil
	}

	stream, err := s.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName(room),
		Subjects:  []string{subject(room)},
		Retention: jetstream.LimitsPolicy,
		MaxMsgs:   MaxRecent,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create stream: %w", err)
	}

	s.streams[room] = stream
	return stream, nil
}

func (s *NATSStore) Append(ctx context.Context, room string, message Message) error {
	if room == "" {
		return ErrInvalidRoom
	}

	if _, err := s.stream(ctx, room); err != nil {
		return err
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("could not marshal message: %w", err)
	}

	_, err = s.js.Publish(ctx, subject(room), data)
	if err != nil {
		return fmt.Errorf("could not publish message: %w", err)
	}

	return nil
}

func (s *NATSStore) Recent(ctx context.Context, room string, limit int) ([]Message, error) {
	limit = clampLimit(limit)

	stream, err := s.js.Stream(ctx, streamName(room))
	if err != nil {
		if errors.Is(err, jetstream.ErrStreamNotFound) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("could not get stream: %w", err)
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get stream info: %w", err)
	}

	messages := make([]Message, 0, limit)
	if info.State.Msgs == 0 || limit == 0 {
		return messages, nil
	}

	first := info.State.FirstSeq
	if info.State.LastSeq >= uint64(limit) && info.State.LastSeq-uint64(limit)+1 > first {
		first = info.State.LastSeq - uint64(limit) + 1
	}

	for seq := first; seq <= info.State.LastSeq; seq++ {
		raw, err := stream.GetMsg(ctx, seq)
		if err != nil {
			if errors.Is(err, jetstream.ErrMsgNotFound) {
				continue
			}
			return nil, fmt.Errorf("could not get message %d: %w", seq, err)
		}

		var message Message
		if err := json.Unmarshal(raw.Data, &message); err != nil {
			return nil, fmt.Errorf("could not decode message %d: %w", seq, err)
		}
		messages = append(messages, message)
	}

	return messages, nil
}

func (s *NATSStore) Close() error {
	s.nc.Close()
	return nil
}
