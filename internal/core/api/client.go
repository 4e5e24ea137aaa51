package api

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/rulebook/internal/interchange"
	"github.com/solatis/rulebook/internal/types"
)

// Client calls a remote editor service.
// Rejected transitions come back wrapping the matching types sentinel.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return fromStatus(err)
	}
	return nil
}

// GetState fetches the current state.
func (c *Client) GetState(ctx context.Context) (*StateView, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "GetState", &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return decodeStateView(out)
}

// Dispatch sends a named command. args is any JSON-encodable value, or nil.
func (c *Client) Dispatch(ctx context.Context, op string, args any) (*StateView, error) {
	body := map[string]any{"op": op}
	if args != nil {
		body["args"] = args
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode args: %w", err)
	}
	in := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, in); err != nil {
		return nil, fmt.Errorf("args must be a JSON object: %w", err)
	}

	out := new(structpb.Struct)
	if err := c.invoke(ctx, "Dispatch", in, out); err != nil {
		return nil, err
	}
	return decodeStateView(out)
}

// Import replaces the remote catalog with the rulesets in text.
func (c *Client) Import(ctx context.Context, text string) (*StateView, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "Import", wrapperspb.String(text), out); err != nil {
		return nil, err
	}
	return decodeStateView(out)
}

// Export returns the remote catalog encoded in format.
func (c *Client) Export(ctx context.Context, format interchange.Format) (string, error) {
	in, err := structpb.NewStruct(map[string]any{"format": string(format)})
	if err != nil {
		return "", err
	}
	out := new(wrapperspb.StringValue)
	if err := c.invoke(ctx, "Export", in, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Evaluate applies the remote selection to payload, a JSON object.
func (c *Client) Evaluate(ctx context.Context, payload types.Payload) (*EvaluateResult, error) {
	in := new(structpb.Struct)
	if len(payload) > 0 {
		if err := protojson.Unmarshal(payload, in); err != nil {
			return nil, fmt.Errorf("measurements must be a JSON object: %w", err)
		}
	}

	out := new(structpb.Struct)
	if err := c.invoke(ctx, "Evaluate", in, out); err != nil {
		return nil, err
	}
	var result EvaluateResult
	if err := fromStruct(out, &result); err != nil {
		return nil, fmt.Errorf("failed to decode findings: %w", err)
	}
	return &result, nil
}

func decodeStateView(s *structpb.Struct) (*StateView, error) {
	var view StateView
	if err := fromStruct(s, &view); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &view, nil
}
