package queue

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQueue(client, nil), mr
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	err := q.EnqueueEmail(ctx, EmailPayload{
		Template:  "invite",
		Recipient: "a@example.com",
		Data:      map[string]string{"org_name": "Acme"},
	})
	require.NoError(t, err)

	job, key, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, QueueEmails, key)
	assert.Equal(t, JobTypeEmail, job.Type)
	assert.Equal(t, 0, job.Attempt)
	assert.NotEmpty(t, job.ID)
}

func TestRetryMovesToDLQAfterMaxAttempts(t *testing.T) {
	q, mr := testQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnqueueEmail(ctx, EmailPayload{Template: "invite", Recipient: "a@example.com"}))
	job, _, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	for i := 0; i < MaxRetries-1; i++ {
		require.NoError(t, q.Retry(ctx, job))
		job, _, err = q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, job, "attempt %d should land back on the work queue", i+1)
	}

	// The final retry crosses MaxRetries and lands in the DLQ.
	require.NoError(t, q.Retry(ctx, job))
	n, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	assert.Len(t, n, 1)
	assert.Equal(t, int64(0), mustLen(t, mr, QueueEmails))
}

func mustLen(t *testing.T, mr *miniredis.Miniredis, key string) int64 {
	t.Helper()
	if !mr.Exists(key) {
		return 0
	}
	list, err := mr.List(key)
	require.NoError(t, err)
	return int64(len(list))
}

func TestDequeueSkipsGarbage(t *testing.T) {
	q, mr := testQueue(t)
	_, err := mr.Lpush(QueueEmails, "not json")
	require.NoError(t, err)

	job, _, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}
