// Package client talks to a running kvsd over its Unix socket.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kvaesitso/kvs/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// New dials the daemon's Unix domain socket. The connection is established
// lazily on the first call.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn, health: healthpb.NewHealthClient(conn)}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, api.FullMethod(method), in, out)
}

func (c *Client) call(ctx context.Context, method string, req any, resp any) error {
	var in any = &emptypb.Empty{}
	if req != nil {
		s, err := api.Encode(req)
		if err != nil {
			return err
		}
		in = s
	}
	out := &structpb.Struct{}
	if err := c.invoke(ctx, method, in, out); err != nil {
		return err
	}
	return api.Decode(out, resp)
}

// Status returns the daemon's status.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.call(ctx, api.MethodGetStatus, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Healthy reports whether the launcher service is serving.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: api.ServiceName})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// OpeningHours evaluates expr at the given time. A zero at means now.
func (c *Client) OpeningHours(ctx context.Context, expr string, at time.Time) (*api.HoursResponse, error) {
	var resp api.HoursResponse
	if err := c.call(ctx, api.MethodParseOpeningHours, api.HoursRequest{Expression: expr, At: at}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetLabel sets a custom label for key. An empty label removes it.
func (c *Client) SetLabel(ctx context.Context, key, label string) error {
	s, err := api.Encode(api.LabelRequest{Key: key, Label: label})
	if err != nil {
		return err
	}
	return c.invoke(ctx, api.MethodSetLabel, s, &emptypb.Empty{})
}

// Labels returns all custom labels.
func (c *Client) Labels(ctx context.Context) (map[string]string, error) {
	var resp api.LabelsResponse
	if err := c.call(ctx, api.MethodListLabels, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Labels, nil
}

// ImportCatalog asks the daemon to re-read its catalog file.
func (c *Client) ImportCatalog(ctx context.Context) (*api.ImportResponse, error) {
	var resp api.ImportResponse
	if err := c.call(ctx, api.MethodImportCatalog, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchStream receives the snapshots of one search.
type SearchStream struct {
	stream grpc.ClientStream
}

// Recv returns the next update. It returns io.EOF when the search ends.
func (s *SearchStream) Recv() (*api.SearchUpdate, error) {
	msg := &structpb.Struct{}
	if err := s.stream.RecvMsg(msg); err != nil {
		return nil, err
	}
	var u api.SearchUpdate
	if err := api.Decode(msg, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Search starts a search. Cancel ctx to end a search without a timeout.
func (c *Client) Search(ctx context.Context, req api.SearchRequest) (*SearchStream, error) {
	in, err := api.Encode(req)
	if err != nil {
		return nil, err
	}
	stream, err := c.conn.NewStream(ctx, &api.ServiceDesc.Streams[0], api.FullMethod(api.MethodSearch))
	if err != nil {
		return nil, fmt.Errorf("open search stream: %w", err)
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, fmt.Errorf("send search request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("send search request: %w", err)
	}
	return &SearchStream{stream: stream}, nil
}

// Collect runs a search until its timeout, two seconds unless set, and
// returns the last snapshot.
func (c *Client) Collect(ctx context.Context, req api.SearchRequest) (*api.SearchUpdate, error) {
	if req.TimeoutMS <= 0 {
		req.TimeoutMS = 2000
	}
	s, err := c.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	var last *api.SearchUpdate
	for {
		u, err := s.Recv()
		if errors.Is(err, io.EOF) {
			if last == nil {
				return nil, fmt.Errorf("search ended without results")
			}
			return last, nil
		}
		if err != nil {
			return nil, err
		}
		last = u
	}
}
