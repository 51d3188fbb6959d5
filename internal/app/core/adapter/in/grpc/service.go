package grpc

import (
	"context"

	"google.golang.org/grpc"

	ledgergrpc "github.com/JoeShih716/go-statement-ledger/pkg/grpc"
)

const StatementServiceName = "ledger.v1.StatementService"

// StatementServiceServer 帳務 gRPC 服務
type StatementServiceServer interface {
	GetBalance(context.Context, *GetBalanceRequest) (*BalanceResponse, error)
	CreateStatement(context.Context, *CreateStatementRequest) (*StatementResponse, error)
	CreateTransfer(context.Context, *CreateTransferRequest) (*StatementResponse, error)
	GetStatement(context.Context, *GetStatementRequest) (*StatementResponse, error)
}

var StatementService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: StatementServiceName,
	HandlerType: (*StatementServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBalance", Handler: unaryHandler("GetBalance", StatementServiceServer.GetBalance)},
		{MethodName: "CreateStatement", Handler: unaryHandler("CreateStatement", StatementServiceServer.CreateStatement)},
		{MethodName: "CreateTransfer", Handler: unaryHandler("CreateTransfer", StatementServiceServer.CreateTransfer)},
		{MethodName: "GetStatement", Handler: unaryHandler("GetStatement", StatementServiceServer.GetStatement)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/statement",
}

func RegisterStatementServiceServer(s grpc.ServiceRegistrar, srv StatementServiceServer) {
	s.RegisterService(&StatementService_ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + StatementServiceName + "/" + method
}

// unaryHandler 解碼請求並經過攔截器後呼叫服務方法
func unaryHandler[Req, Resp any](method string, call func(StatementServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StatementServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(StatementServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// StatementServiceClient 帳務 gRPC 客戶端
type StatementServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewStatementServiceClient(cc grpc.ClientConnInterface) *StatementServiceClient {
	return &StatementServiceClient{cc: cc}
}

func (c *StatementServiceClient) GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*BalanceResponse, error) {
	out := new(BalanceResponse)
	if err := c.invoke(ctx, "GetBalance", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StatementServiceClient) CreateStatement(ctx context.Context, in *CreateStatementRequest, opts ...grpc.CallOption) (*StatementResponse, error) {
	out := new(StatementResponse)
	if err := c.invoke(ctx, "CreateStatement", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StatementServiceClient) CreateTransfer(ctx context.Context, in *CreateTransferRequest, opts ...grpc.CallOption) (*StatementResponse, error) {
	out := new(StatementResponse)
	if err := c.invoke(ctx, "CreateTransfer", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StatementServiceClient) GetStatement(ctx context.Context, in *GetStatementRequest, opts ...grpc.CallOption) (*StatementResponse, error) {
	out := new(StatementResponse)
	if err := c.invoke(ctx, "GetStatement", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StatementServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(ledgergrpc.CodecName)}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}
