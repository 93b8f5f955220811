package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Franquicias-api/internal/domain/entity"
	"github.com/jhoicas/Franquicias-api/internal/infrastructure/kafka"
)

func sampleEvent() entity.TransferEvent {
	return entity.TransferEvent{
		EventID:        "evt-1",
		Type:           entity.TransferEventDelivered,
		TransferID:     "t-1",
		TransferNumber: "TRF-20260301-0001",
		TenantID:       "franquicia-norte",
		From:           entity.TransferStatusShipped,
		To:             entity.TransferStatusDelivered,
		Actor:          "gerente-norte",
		OccurredAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestPublish_EnviaJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got entity.TransferEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.TransferID != "t-1" || got.To != entity.TransferStatusDelivered {
			return fmt.Errorf("evento inesperado: %+v", got)
		}
		return nil
	})
	p := kafka.NewPublisherWithProducer(producer, "franquicias.transfers", zerolog.Nop())

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.NoError(t, p.Close())
}

func TestPublish_HeadersYClave(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "t-1" {
			return fmt.Errorf("clave %q", key)
		}
		if msg.Topic != "franquicias.transfers" {
			return fmt.Errorf("tópico %q", msg.Topic)
		}
		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[string(h.Key)] = string(h.Value)
		}
		if headers["event_type"] != entity.TransferEventDelivered || headers["tenant_id"] != "franquicia-norte" {
			return fmt.Errorf("headers %v", headers)
		}
		return nil
	})
	p := kafka.NewPublisherWithProducer(producer, "franquicias.transfers", zerolog.Nop())

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.NoError(t, p.Close())
}

func TestPublish_ErrorDelBroker(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	boom := errors.New("leader not available")
	producer.ExpectSendMessageAndFail(boom)
	p := kafka.NewPublisherWithProducer(producer, "franquicias.transfers", zerolog.Nop())

	err := p.Publish(context.Background(), sampleEvent())

	assert.ErrorIs(t, err, boom)
	require.NoError(t, p.Close())
}
