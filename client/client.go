// Package client implements the kvs protocol client: one long-lived TCP
// connection carrying a stream of requests and, in the same order, their
// responses.
package client

import (
	"errors"
	"net"

	"github.com/termkv/termkv/protocol"
)

// ErrKeyNotFound is returned by Remove when the server reports the key
// absent.
var ErrKeyNotFound = errors.New("Key not found")

// Client is a kvs protocol client. It is not safe for concurrent use;
// open one Client per goroutine.
type Client struct {
	conn  net.Conn
	codec *protocol.Codec
}

// Dial connects to the server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, codec: protocol.NewCodec(conn)}, nil
}

// Get fetches key's value; found is false when the key is absent.
func (c *Client) Get(key string) (value string, found bool, err error) {
	resp, err := c.roundTrip(protocol.Request{Op: protocol.OpGet, Key: key})
	if err != nil {
		return "", false, err
	}
	if resp.Value == nil {
		return "", false, nil
	}
	return *resp.Value, true, nil
}

// Set stores value under key.
func (c *Client) Set(key, value string) error {
	_, err := c.roundTrip(protocol.Request{Op: protocol.OpSet, Key: key, Value: value})
	return err
}

// Remove deletes key, returning ErrKeyNotFound if the server reports it
// absent.
func (c *Client) Remove(key string) error {
	_, err := c.roundTrip(protocol.Request{Op: protocol.OpRemove, Key: key})
	return err
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(req protocol.Request) (protocol.Response, error) {
	if err := c.codec.WriteRequest(req); err != nil {
		return protocol.Response{}, err
	}
	resp, err := c.codec.ReadResponse()
	if err != nil {
		return protocol.Response{}, err
	}
	if !resp.OK {
		if resp.Err == ErrKeyNotFound.Error() {
			return protocol.Response{}, ErrKeyNotFound
		}
		return protocol.Response{}, errors.New(resp.Err)
	}
	return resp, nil
}
