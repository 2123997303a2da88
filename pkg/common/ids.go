package common

import (
	"math/rand"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

// UUIDint64 returns a time-sortable unique int64 identifier.
func UUIDint64() int64 {
	nodeOnce.Do(func() {
		var err error
		node, err = snowflake.NewNode(rand.New(rand.NewSource(time.Now().UnixNano())).Int63n(1023))
		if err != nil {
			node, _ = snowflake.NewNode(1)
		}
	})
	return node.Generate().Int64()
}
