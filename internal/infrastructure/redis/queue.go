package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go-engage/internal/core/ports"
	"go-engage/internal/domain"

	"github.com/redis/go-redis/v9"
)

const JobQueueName = "engage:queue:jobs"

type RedisQueue struct {
	client      *redis.Client
	queueName   string
	pollTimeout time.Duration
}

func NewRedisQueue(client *redis.Client, pollTimeout time.Duration) *RedisQueue {
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &RedisQueue{
		client:      client,
		queueName:   JobQueueName,
		pollTimeout: pollTimeout,
	}
}

// Push adds a job to the end of the list
func (q *RedisQueue) Push(ctx context.Context, job domain.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.queueName, payload).Err()
}

// Pop waits up to the poll timeout for a job and removes it from the front of the list
func (q *RedisQueue) Pop(ctx context.Context) (domain.Job, error) {
	result, err := q.client.BLPop(ctx, q.pollTimeout, q.queueName).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Job{}, ports.ErrQueueEmpty
	}
	if err != nil {
		return domain.Job{}, err
	}

	// BLPop returns a slice: [QueueName, Element]
	var job domain.Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}
