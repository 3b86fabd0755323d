package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Req any, Resp any](c *Client, method string, req Req) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusRequest, StatusResponse](c, "Status", StatusRequest{})
}

// Channels lists the channel catalog.
func (c *Client) Channels() (*ChannelsResponse, error) {
	return call[ChannelsRequest, ChannelsResponse](c, "Channels", ChannelsRequest{})
}

// Programs lists guide events for a channel.
func (c *Client) Programs(req ProgramsRequest) (*ProgramsResponse, error) {
	return call[ProgramsRequest, ProgramsResponse](c, "Programs", req)
}

// NowPlaying returns the event airing on a channel.
func (c *Client) NowPlaying(channelID int64) (*NowPlayingResponse, error) {
	return call[NowPlayingRequest, NowPlayingResponse](c, "NowPlaying", NowPlayingRequest{ChannelID: channelID})
}

// Tune plays a channel.
func (c *Client) Tune(channelID int64) (*TuneResponse, error) {
	return call[TuneRequest, TuneResponse](c, "Tune", TuneRequest{ChannelID: channelID})
}

// Stop ends playback.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopRequest, StopResponse](c, "Stop", StopRequest{})
}

// ScanStart begins a channel scan.
func (c *Client) ScanStart() (*ScanResponse, error) {
	return call[ScanRequest, ScanResponse](c, "ScanStart", ScanRequest{})
}

// ScanStop aborts a running scan.
func (c *Client) ScanStop() (*ScanResponse, error) {
	return call[ScanRequest, ScanResponse](c, "ScanStop", ScanRequest{})
}

// ScanStatus reports scanner telemetry.
func (c *Client) ScanStatus() (*ScanResponse, error) {
	return call[ScanRequest, ScanResponse](c, "ScanStatus", ScanRequest{})
}

// Routes returns the discovered route table.
func (c *Client) Routes() (*RoutesResponse, error) {
	return call[RoutesRequest, RoutesResponse](c, "Routes", RoutesRequest{})
}

// EPG reports guide acquisition state; acquire queues a full acquisition.
func (c *Client) EPG(acquire bool) (*EPGResponse, error) {
	return call[EPGRequest, EPGResponse](c, "EPG", EPGRequest{Acquire: acquire})
}

// Volume reads the mixer after applying any requested change.
func (c *Client) Volume(req VolumeRequest) (*VolumeResponse, error) {
	return call[VolumeRequest, VolumeResponse](c, "Volume", req)
}

// Tracks lists audio and subtitle tracks on the playing route.
func (c *Client) Tracks() (*TracksResponse, error) {
	return call[TracksRequest, TracksResponse](c, "Tracks", TracksRequest{})
}

// SelectAudio switches the audio track.
func (c *Client) SelectAudio(index int) (*SelectAudioResponse, error) {
	return call[SelectAudioRequest, SelectAudioResponse](c, "SelectAudio", SelectAudioRequest{Index: index})
}

// TestNotification sends a test notification.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationRequest, TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}

// Database returns store statistics and health.
func (c *Client) Database() (*DatabaseResponse, error) {
	return call[DatabaseRequest, DatabaseResponse](c, "Database", DatabaseRequest{})
}

// LogTail reads lines from the daemon log.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailRequest, LogTailResponse](c, "LogTail", req)
}
