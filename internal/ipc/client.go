package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

const dialTimeout = 2 * time.Second

// Client is the CLI side of the daemon socket.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the daemon listening on the Unix socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close releases the connection. Closing the rpc client closes the socket.
func (c *Client) Close() error {
	if c == nil || c.rpc == nil {
		return nil
	}
	return c.rpc.Close()
}

func invoke[Resp any](c *Client, method string, req any) (*Resp, error) {
	resp := new(Resp)
	if err := c.rpc.Call(ServiceName+"."+method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Status() (*StatusResponse, error) {
	return invoke[StatusResponse](c, "Status", StatusRequest{})
}

// FileList returns library files matching req, newest first.
func (c *Client) FileList(req FileListRequest) (*FileListResponse, error) {
	return invoke[FileListResponse](c, "FileList", req)
}

func (c *Client) FileShow(id int64) (*FileShowResponse, error) {
	return invoke[FileShowResponse](c, "FileShow", FileShowRequest{ID: id})
}

// Reprocess resets files to unprocessed.
func (c *Client) Reprocess(ids []int64) (*UpdatedResponse, error) {
	return invoke[UpdatedResponse](c, "Reprocess", IDsRequest{IDs: ids})
}

// Cancel stops running files and fails claimable ones.
func (c *Client) Cancel(ids []int64) (*UpdatedResponse, error) {
	return invoke[UpdatedResponse](c, "Cancel", IDsRequest{IDs: ids})
}

func (c *Client) MoveToTop(ids []int64) (*UpdatedResponse, error) {
	return invoke[UpdatedResponse](c, "MoveToTop", IDsRequest{IDs: ids})
}

// Rescan wakes library scanners, optionally forcing a full pass.
func (c *Client) Rescan(req RescanRequest) (*RescanResponse, error) {
	return invoke[RescanResponse](c, "Rescan", req)
}

func (c *Client) LibraryList() (*LibraryListResponse, error) {
	return invoke[LibraryListResponse](c, "LibraryList", LibraryListRequest{})
}

// ReloadLibraries re-reads the configuration file the daemon was started with.
func (c *Client) ReloadLibraries() (*ReloadResponse, error) {
	return invoke[ReloadResponse](c, "ReloadLibraries", ReloadRequest{})
}
