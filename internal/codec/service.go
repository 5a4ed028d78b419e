// Package codec carries backend selection and invocation over gRPC so that
// personas can be served by a remote inference host. Messages are
// google.protobuf.Struct values, so no generated stubs are needed.
package codec

// #region imports
import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/agent"
)

// #endregion

// #region wire

const (
	serviceName  = "alexai.crew.v1.Backend"
	selectMethod = "/" + serviceName + "/Select"
	invokeMethod = "/" + serviceName + "/Invoke"
)

// Struct field names on the wire.
const (
	fieldPersonaID  = "persona_id"
	fieldInput      = "input"
	fieldBackendID  = "backend_id"
	fieldPrompt     = "prompt"
	fieldConfidence = "confidence"
	fieldReasoning  = "reasoning"
	fieldContent    = "content"
)

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func numberField(s *structpb.Struct, name string) float64 {
	return s.GetFields()[name].GetNumberValue()
}

// #endregion

// #region server

// backendService is the handler type checked by grpc.Server.RegisterService.
type backendService interface {
	handleSelect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	handleInvoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type backendServer struct {
	selector agent.Selector
	invoker  agent.Invoker
}

// RegisterBackendServer exposes selector and invoker on s. Either may be
// nil, in which case the matching RPC answers Unimplemented.
func RegisterBackendServer(s *grpc.Server, selector agent.Selector, invoker agent.Invoker) {
	s.RegisterService(&backendServiceDesc, &backendServer{selector: selector, invoker: invoker})
}

func (b *backendServer) handleSelect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if b.selector == nil {
		return nil, status.Error(codes.Unimplemented, "selection not served")
	}
	personaID := stringField(req, fieldPersonaID)
	if personaID == "" {
		return nil, status.Error(codes.InvalidArgument, "persona_id is required")
	}
	sel, err := b.selector.Select(ctx, personaID, stringField(req, fieldInput))
	if err != nil {
		return nil, status.Errorf(codes.FailedPrecondition, "select: %v", err)
	}
	return structpb.NewStruct(map[string]any{
		fieldBackendID:  sel.BackendID,
		fieldConfidence: sel.Confidence,
		fieldReasoning:  sel.Reasoning,
	})
}

func (b *backendServer) handleInvoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if b.invoker == nil {
		return nil, status.Error(codes.Unimplemented, "invocation not served")
	}
	backendID := stringField(req, fieldBackendID)
	if backendID == "" {
		return nil, status.Error(codes.InvalidArgument, "backend_id is required")
	}
	resp, err := b.invoker.Invoke(ctx, backendID, stringField(req, fieldPrompt))
	if err != nil {
		if ctx.Err() != nil {
			return nil, status.FromContextError(ctx.Err()).Err()
		}
		return nil, status.Errorf(codes.Unavailable, "invoke: %v", err)
	}
	return structpb.NewStruct(map[string]any{
		fieldContent:    resp.Content,
		fieldConfidence: resp.Confidence,
	})
}

// #endregion

// #region service-desc

func selectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(backendService).handleSelect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: selectMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(backendService).handleSelect(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func invokeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(backendService).handleInvoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: invokeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(backendService).handleInvoke(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var backendServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*backendService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Select", Handler: selectHandler},
		{MethodName: "Invoke", Handler: invokeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alexai/crew/v1/backend.proto",
}

// #endregion
