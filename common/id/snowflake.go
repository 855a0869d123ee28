package id

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init sets the Snowflake node used by New. Later calls are no-ops.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New returns a time-ordered int64 id.
func New() int64 {
	return node.Generate().Int64()
}

// NewString returns New formatted in base 10. Chat entities use string ids
// so client-generated ids and the "all" receiver share one column type.
func NewString() string {
	return strconv.FormatInt(New(), 10)
}
