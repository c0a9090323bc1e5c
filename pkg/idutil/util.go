package idutil

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	once sync.Once
	node *snowflake.Node
)

// Init sets the node number used by the generator. It must be called before
// the first NewID if the process is one of several writers.
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}

	once.Do(func() {})
	node = n
	return nil
}

func NewID() int64 {
	once.Do(func() {
		n, err := snowflake.NewNode(0)
		if err != nil {
			panic(err)
		}
		node = n
	})

	return node.Generate().Int64()
}

// CreatedAt extracts the generation time of id.
func CreatedAt(id int64) time.Time {
	return time.UnixMilli(snowflake.ParseInt64(id).Time())
}
