package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalPublisher(t *testing.T) {
	var gotTopic string
	var gotPack *Pack
	p := NewLocalPublisher(func(_ context.Context, topic string, pack *Pack, _ time.Time) {
		gotTopic = topic
		gotPack = pack
	})

	pack := &Pack{Key: []byte("k"), Msg: []byte("v")}
	require.NoError(t, p.Publish(context.Background(), "topic", pack))
	require.Equal(t, "topic", gotTopic)
	require.Equal(t, pack, gotPack)
}
