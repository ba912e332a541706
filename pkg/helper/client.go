package helper

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/klasnalol/Limits-droper/pkg/rapl"
	"github.com/klasnalol/Limits-droper/pkg/types"
)

// DefaultPath is where the installer drops the privileged helper.
const DefaultPath = "/usr/local/bin/limits_helper"

// Client runs the privileged helper binary and implements
// rapl.RegisterAccess. Each command is one blocking round-trip in a
// fresh process; there is no streaming and no cancellation once a
// command is launched.
type Client struct {
	path string
}

func NewClient(path string) *Client {
	if path == "" {
		path = DefaultPath
	}
	return &Client{path: path}
}

func (c *Client) run(args ...string) (string, error) {
	cmd := exec.Command(c.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("helper: %s: %s: %w", args[0], msg, err)
		}
		return "", fmt.Errorf("helper: %s: %w", args[0], err)
	}
	return stdout.String(), nil
}

func (c *Client) State() (rapl.State, error) {
	out, err := c.run(ReqRead)
	if err != nil {
		return rapl.State{}, err
	}
	return ParseState(out)
}

func (c *Client) WriteRegister(t rapl.Target, val uint64) error {
	var req string
	switch t {
	case rapl.TargetMSR:
		req = ReqWriteMSR
	case rapl.TargetMMIO:
		req = ReqWriteMMIO
	default:
		return fmt.Errorf("helper: invalid write target %s", t)
	}
	_, err := c.run(req, types.Hex64(val))
	return err
}

func (c *Client) WritePowercap(pl1, pl2 types.Microwatts) error {
	_, err := c.run(ReqWritePowercap,
		strconv.FormatUint(uint64(pl1), 10),
		strconv.FormatUint(uint64(pl2), 10))
	return err
}

// Close is a no-op; every command already ran in its own process.
func (c *Client) Close() error { return nil }
