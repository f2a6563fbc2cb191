package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// customChannel pipes the Result as JSON to a user script.
type customChannel struct {
	script string
}

func newCustomChannel(script string) *customChannel {
	return &customChannel{script: script}
}

func (c *customChannel) send(ctx context.Context, r Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	cmd := exec.Command(c.script) //nolint:gosec // script path comes from user config
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := runScript(ctx, cmd); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return fmt.Errorf("script %s: %w: %s", c.script, err, msg)
		}
		return fmt.Errorf("script %s: %w", c.script, err)
	}
	return nil
}
