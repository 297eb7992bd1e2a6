package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/wendelmax/tasklets-go/internal/codec"
	"github.com/wendelmax/tasklets-go/internal/worker"
)

// demoPayload is the JSON task language the demo exec environment
// understands: sleep_ms simulates work, echo is returned verbatim on
// success, fail/crash trigger the corresponding worker.ExecFunc outcome.
// A real host replaces demoExec entirely with its own decode/run/encode
// pipeline (spec §1's exec environment is out of scope for the core).
type demoPayload struct {
	SleepMs int  `json:"sleep_ms"`
	Echo    any  `json:"echo"`
	Fail    bool `json:"fail"`
	Crash   bool `json:"crash"`
}

var demoCodec = codec.JSON{}

// demoExec is the worker.ExecFunc the CLI plugs into pool.New.
func demoExec(ctx context.Context, payload []byte) ([]byte, error) {
	var in demoPayload
	if err := demoCodec.Decode(payload, &in); err != nil {
		return nil, fmt.Errorf("decode task payload: %w", err)
	}

	if in.Crash {
		return nil, worker.ErrCrash
	}

	if in.SleepMs > 0 {
		select {
		case <-time.After(time.Duration(in.SleepMs) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if in.Fail {
		return nil, fmt.Errorf("task requested failure")
	}

	return demoCodec.Encode(in.Echo)
}
