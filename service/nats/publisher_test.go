package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/solgate/service/gateway"
)

func TestSubjects(t *testing.T) {
	assert.Equal(t, "intents.abc", IntentSubject("abc"))
	assert.Equal(t, "txstatus.sig", TxStatusSubject("sig"))
	assert.Equal(t, "txstatus", subjectPrefix("txstatus.sig"))
	assert.Equal(t, "plain", subjectPrefix("plain"))
}

func TestFromTransferIntent(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := FromTransferIntent(&gateway.TransferIntent{
		ID:        "id-1",
		From:      "from",
		To:        "to",
		Amount:    10,
		Status:    gateway.IntentPending,
		CreatedAt: created,
	})
	assert.Equal(t, "id-1", ev.IntentID)
	assert.Equal(t, "pending", ev.Status)
	assert.False(t, ev.Broadcast)
	assert.Equal(t, created, ev.CreatedAt)
	assert.False(t, ev.PublishedAt.IsZero())
}

func TestFromTransactionStatus(t *testing.T) {
	slot := uint64(7)
	ev := FromTransactionStatus(&gateway.TransactionStatus{
		Signature: "sig",
		Status:    gateway.TxConfirmed,
		Slot:      &slot,
	}, "wf-1", 3)
	assert.Equal(t, "confirmed", ev.Status)
	assert.Equal(t, "wf-1", ev.WorkflowID)
	assert.Equal(t, 3, ev.Polls)
	require.NotNil(t, ev.Slot)
	assert.Equal(t, uint64(7), *ev.Slot)
}

func TestMockPublisher(t *testing.T) {
	m := NewMockPublisher()
	ctx := context.Background()

	require.NoError(t, m.PublishTransferIntent(ctx, &gateway.TransferIntent{ID: "a", From: "f"}))
	require.NoError(t, m.PublishTransactionStatus(ctx, &TransactionStatusEvent{Signature: "s"}))
	assert.Len(t, m.IntentEvents(), 1)
	assert.Len(t, m.StatusEvents(), 1)

	m.SetPublishError(errors.New("down"))
	assert.Error(t, m.PublishTransferIntent(ctx, &gateway.TransferIntent{ID: "b"}))
	assert.Len(t, m.IntentEvents(), 1)

	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())
}
