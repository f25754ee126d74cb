package daemon

import (
	"context"
	"net"

	"github.com/sourcegraph/jsonrpc2"

	"src.oopis.sh/pkg/hal"
	"src.oopis.sh/pkg/oserr"
)

// Client is a client to the storage daemon. It implements hal.Store by
// forwarding every operation over the socket.
type Client struct {
	conn *jsonrpc2.Conn
}

var _ hal.Store = (*Client)(nil)

// Dial connects to the daemon listening on sockpath.
func Dial(sockpath string) (*Client, error) {
	netConn, err := net.Dial("unix", sockpath)
	if err != nil {
		return nil, oserr.Newf(oserr.StorageUnavailable, "cannot connect to daemon at %v: %v", sockpath, err)
	}
	conn := jsonrpc2.NewConn(context.Background(),
		jsonrpc2.NewBufferedStream(netConn, jsonrpc2.PlainObjectCodec{}),
		noopHandler{})
	return &Client{conn}, nil
}

type noopHandler struct{}

func (noopHandler) Handle(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) {}

func (c *Client) call(method string, args, reply any) error {
	err := c.conn.Call(context.Background(), method, args, reply)
	if err != nil {
		return oserr.Newf(oserr.StorageUnavailable, "daemon: %v: %v", method, err)
	}
	return nil
}

// Init verifies that the daemon speaks the expected API version.
func (c *Client) Init() error {
	var reply versionReply
	if err := c.call(methodVersion, nil, &reply); err != nil {
		return err
	}
	if reply.Version != Version {
		return oserr.Newf(oserr.StorageUnavailable,
			"daemon API version mismatch: got %v, want %v", reply.Version, Version)
	}
	return nil
}

func (c *Client) Load(key string) ([]byte, error) {
	var reply loadReply
	if err := c.call(methodLoad, keyArgs{key}, &reply); err != nil {
		return nil, err
	}
	return reply.Data, nil
}

func (c *Client) Save(key string, data []byte) error {
	return c.call(methodSave, saveArgs{key, data}, nil)
}

func (c *Client) Delete(key string) error {
	return c.call(methodDelete, keyArgs{key}, nil)
}

func (c *Client) Keys(prefix string) ([]string, error) {
	var reply keysReply
	if err := c.call(methodKeys, prefixArgs{prefix}, &reply); err != nil {
		return nil, err
	}
	return reply.Keys, nil
}

func (c *Client) Clear() error {
	return c.call(methodClear, nil, nil)
}

// Close closes the connection to the daemon. The daemon exits on its own
// once its last client disconnects.
func (c *Client) Close() error {
	return c.conn.Close()
}
