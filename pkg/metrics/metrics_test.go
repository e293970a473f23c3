package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/fpsensor.go/pkg/comm"
	"github.com/robotalks/fpsensor.go/pkg/proto"
)

var _ comm.Observer = &Metrics{}

func TestObserver(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.TransactionDone(proto.CmdOpen, comm.ResultAck, 10*time.Millisecond)
	m.TransactionDone(proto.CmdOpen, comm.ResultAck, 20*time.Millisecond)
	m.TransactionDone(proto.CmdIdentify1_N, comm.ResultNack, time.Millisecond)
	m.BulkTransferred(comm.Download, 502)
	m.BulkTransferred(comm.Upload, 504)
	m.BulkTransferred(comm.Download, 498)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(b)

	require.Contains(t, body, `fpsensor_transactions_total{command="Open",result="ack"} 2`)
	require.Contains(t, body, `fpsensor_transactions_total{command="Identify1_N",result="nack"} 1`)
	require.Contains(t, body, `fpsensor_transaction_duration_seconds_count{command="Open"} 2`)
	require.Contains(t, body, `fpsensor_bulk_bytes_total{direction="download"} 1000`)
	require.Contains(t, body, `fpsensor_bulk_bytes_total{direction="upload"} 504`)
	require.Contains(t, body, "go_goroutines")
}

func TestDuplicateRegistration(t *testing.T) {
	reg := NewRegistry()
	New(reg)
	require.Panics(t, func() { New(reg) })
}
