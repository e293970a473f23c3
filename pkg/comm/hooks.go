package comm

import (
	"time"

	"github.com/robotalks/fpsensor.go/pkg/proto"
)

// Indicator is a light (or anything else) which shows activity.
// Set is best effort and never fails.
type Indicator interface {
	Set(on bool)
}

// IndicatorFunc is func type of Indicator.
type IndicatorFunc func(on bool)

// Set implements Indicator.
func (f IndicatorFunc) Set(on bool) {
	f(on)
}

// Direction of a bulk transfer.
type Direction string

// Bulk transfer directions.
const (
	Upload   Direction = "upload"
	Download Direction = "download"
)

// Result classifies how a transaction ended.
type Result string

// Transaction results.
const (
	ResultAck       Result = "ack"
	ResultNack      Result = "nack"
	ResultTimeout   Result = "timeout"
	ResultCorrupt   Result = "corrupt"
	ResultTransport Result = "transport"
)

// Observer is notified about completed transactions.
type Observer interface {
	TransactionDone(cmd proto.Command, result Result, dur time.Duration)
	BulkTransferred(dir Direction, n int)
}
