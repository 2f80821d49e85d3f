// Package client implements the one-shot protocol client used by the
// interactive CLI and the perf harness. Every request opens a fresh
// connection, mirroring the server's one-exchange-per-connection model.
package client

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/androidarduino/vrdb/wire/protocol"
)

// Config holds the client connection parameters.
type Config struct {
	// Endpoint is the server address ("host:port").
	Endpoint string
	// TimeoutSecond bounds dialing and the whole exchange
	// (0 = no timeout).
	TimeoutSecond int
}

// Client sends single requests to a server.
type Client struct {
	config Config
}

// New creates a client for the given configuration.
func New(config Config) *Client {
	return &Client{config: config}
}

// Do sends one request and returns the parsed response.
func (c *Client) Do(req protocol.Request) (protocol.Response, error) {
	timeout := time.Duration(c.config.TimeoutSecond) * time.Second

	var (
		conn net.Conn
		err  error
	)
	if timeout > 0 {
		conn, err = net.DialTimeout("tcp", c.config.Endpoint, timeout)
	} else {
		conn, err = net.Dial("tcp", c.config.Endpoint)
	}
	if err != nil {
		return protocol.Response{}, fmt.Errorf("connect to %s: %w", c.config.Endpoint, err)
	}
	defer conn.Close()

	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return protocol.Response{}, err
		}
	}

	if _, err := conn.Write([]byte(req.String() + "\n")); err != nil {
		return protocol.Response{}, fmt.Errorf("send request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return protocol.Response{}, fmt.Errorf("read response: %w", err)
	}
	return protocol.ParseResponse(strings.TrimRight(line, "\r\n")), nil
}

// Put stores value under key on the server.
func (c *Client) Put(key, value string) error {
	resp, err := c.Do(protocol.NewPutRequest(key, value))
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("put rejected: %s", resp.Err)
	}
	return nil
}

// Get retrieves the value for key. The boolean return value is false when
// the server reports the key as not found.
func (c *Client) Get(key string) (string, bool, error) {
	resp, err := c.Do(protocol.NewGetRequest(key))
	if err != nil {
		return "", false, err
	}
	if resp.OK {
		return resp.Value, true, nil
	}
	if strings.HasPrefix(resp.Err, "Key not found") {
		return "", false, nil
	}
	return "", false, fmt.Errorf("get failed: %s", resp.Err)
}
