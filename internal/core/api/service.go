// Package api provides the gRPC editor service wrapping one rules store.
//
// The service is described by hand with well-known protobuf messages: requests
// and responses are google.protobuf.Struct values carrying the same JSON shapes
// the rest of rulebook uses, so no generated code is required.
package api

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/rulebook/internal/core/config"
	"github.com/solatis/rulebook/internal/rules"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "rulebook.editor.v1.RulesEditor"

// RulesEditorServer is the server API for the editor service.
type RulesEditorServer interface {
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Dispatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Import(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Export(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// EditorService implements RulesEditorServer.
// Thin orchestration layer over rules.Store and the interchange formats.
type EditorService struct {
	store  *rules.Store
	cfg    config.ServerConfig
	logger zerolog.Logger
}

var _ RulesEditorServer = (*EditorService)(nil)

// NewEditorService creates service instance with dependencies.
func NewEditorService(store *rules.Store, cfg *config.ServerConfig, logger zerolog.Logger) (*EditorService, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	return &EditorService{store: store, cfg: *cfg, logger: logger}, nil
}

// RegisterRulesEditorServer registers srv on s.
func RegisterRulesEditorServer(s grpc.ServiceRegistrar, srv RulesEditorServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RulesEditorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetState", Handler: unaryHandler("GetState", func() *emptypb.Empty { return new(emptypb.Empty) }, RulesEditorServer.GetState)},
		{MethodName: "Dispatch", Handler: unaryHandler("Dispatch", func() *structpb.Struct { return new(structpb.Struct) }, RulesEditorServer.Dispatch)},
		{MethodName: "Import", Handler: unaryHandler("Import", func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }, RulesEditorServer.Import)},
		{MethodName: "Export", Handler: unaryHandler("Export", func() *structpb.Struct { return new(structpb.Struct) }, RulesEditorServer.Export)},
		{MethodName: "Evaluate", Handler: unaryHandler("Evaluate", func() *structpb.Struct { return new(structpb.Struct) }, RulesEditorServer.Evaluate)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rulebook/editor/v1/editor.proto",
}

// unaryHandler adapts a typed method to grpc.MethodHandler, the shape protoc-gen-go-grpc emits per method.
func unaryHandler[Req, Resp proto.Message](method string, newReq func() Req, call func(RulesEditorServer, context.Context, Req) (Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RulesEditorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RulesEditorServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
