package shard

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/ltr/core"
)

func oneDoc(_ context.Context, shardID int) ([]*core.Candidate, error) {
	return []*core.Candidate{core.NewCandidate(&core.Document{ID: "d" + strconv.Itoa(shardID)}, 1, 0)}, nil
}

func TestFanout_Run(t *testing.T) {
	f := &Fanout{MaxConcurrent: 2}
	results, err := f.Run(context.Background(), 3, oneDoc)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.ShardID)
		require.NoError(t, r.Err)
		require.Len(t, r.Candidates, 1)
		assert.Equal(t, i, r.Candidates[0].ShardID)
		assert.Equal(t, strconv.Itoa(i), r.Candidates[0].Labels["shard"].Value)
	}
	assert.Empty(t, Failed(results))
}

func TestFanout_Partial(t *testing.T) {
	f := &Fanout{Timeout: 20 * time.Millisecond}
	results, err := f.Run(context.Background(), 3, func(ctx context.Context, shardID int) ([]*core.Candidate, error) {
		switch shardID {
		case 1:
			return nil, errors.New("boom")
		case 2:
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return oneDoc(ctx, shardID)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, Failed(results))
	assert.ErrorIs(t, results[2].Err, context.DeadlineExceeded)
	assert.Equal(t, []string{"d0"}, ids(Merge(results, 10)))
}

func TestFanout_Strict(t *testing.T) {
	var canceled atomic.Int32
	f := &Fanout{Strict: true}
	_, err := f.Run(context.Background(), 2, func(ctx context.Context, shardID int) ([]*core.Candidate, error) {
		if shardID == 0 {
			return nil, errors.New("boom")
		}
		<-ctx.Done()
		canceled.Add(1)
		return nil, ctx.Err()
	})
	require.Error(t, err)
	assert.True(t, core.IsUnavailable(err))
	assert.Equal(t, int32(1), canceled.Load())
}

func TestFanout_ParentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Fanout{}).Run(ctx, 2, oneDoc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFanout_TimeoutBoundsUnresponsiveShard(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	// 分片 1 不响应 ctx，直到测试结束才返回
	stuck := func(ctx context.Context, shardID int) ([]*core.Candidate, error) {
		if shardID == 1 {
			<-release
		}
		return oneDoc(ctx, shardID)
	}

	start := time.Now()
	results, err := (&Fanout{Timeout: 50 * time.Millisecond}).Run(context.Background(), 3, stuck)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []int{1}, Failed(results))
	assert.ErrorIs(t, results[1].Err, context.DeadlineExceeded)
	assert.Len(t, results[0].Candidates, 1)
	assert.Len(t, results[2].Candidates, 1)

	start = time.Now()
	_, err = (&Fanout{Timeout: 50 * time.Millisecond, Strict: true}).Run(context.Background(), 3, stuck)
	assert.True(t, core.IsUnavailable(err))
	assert.Less(t, time.Since(start), time.Second)
}
