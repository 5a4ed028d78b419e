package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/agent"
)

// #region client-struct
// Client talks to a remote backend host. It implements both agent.Selector
// and agent.Invoker.
type Client struct {
	conn *grpc.ClientConn
}

// #endregion client-struct

// #region constructor
// NewClient connects to the backend host at addr. Extra dial options are
// appended after the default insecure transport credentials.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region select
// Select asks the remote host which backend should serve personaID.
func (c *Client) Select(ctx context.Context, personaID, input string) (agent.Selection, error) {
	req, err := structpb.NewStruct(map[string]any{
		fieldPersonaID: personaID,
		fieldInput:     input,
	})
	if err != nil {
		return agent.Selection{}, fmt.Errorf("encode select request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, selectMethod, req, out); err != nil {
		return agent.Selection{}, fmt.Errorf("select rpc: %w", err)
	}
	return agent.Selection{
		BackendID:  stringField(out, fieldBackendID),
		Confidence: numberField(out, fieldConfidence),
		Reasoning:  stringField(out, fieldReasoning),
	}, nil
}

// #endregion select

// #region invoke
// Invoke sends a built prompt to the remote backend.
func (c *Client) Invoke(ctx context.Context, backendID, prompt string) (agent.Response, error) {
	req, err := structpb.NewStruct(map[string]any{
		fieldBackendID: backendID,
		fieldPrompt:    prompt,
	})
	if err != nil {
		return agent.Response{}, fmt.Errorf("encode invoke request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, invokeMethod, req, out); err != nil {
		return agent.Response{}, fmt.Errorf("invoke rpc: %w", err)
	}
	return agent.Response{
		Content:    stringField(out, fieldContent),
		Confidence: numberField(out, fieldConfidence),
	}, nil
}

// #endregion invoke
