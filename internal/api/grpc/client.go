package grpc

import (
	context "context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Клиент для чтения кошельков и близости из других сервисов
type AffinityClient struct {
	cc grpc.ClientConnInterface
}

func NewAffinityClient(cc grpc.ClientConnInterface) *AffinityClient {
	return &AffinityClient{cc}
}

// Dial - соединение с JSON-кодеком по умолчанию
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)
	return grpc.NewClient(target, opts...)
}

func (c *AffinityClient) GetWallet(ctx context.Context, in *WalletRequest, opts ...grpc.CallOption) (*WalletResponse, error) {
	out := new(WalletResponse)
	if err := c.cc.Invoke(ctx, "/affinity.Affinity/GetWallet", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AffinityClient) GetScore(ctx context.Context, in *ScoreRequest, opts ...grpc.CallOption) (*ScoreResponse, error) {
	out := new(ScoreResponse)
	if err := c.cc.Invoke(ctx, "/affinity.Affinity/GetScore", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AffinityClient) GetLedger(ctx context.Context, in *LedgerRequest, opts ...grpc.CallOption) (*LedgerResponse, error) {
	out := new(LedgerResponse)
	if err := c.cc.Invoke(ctx, "/affinity.Affinity/GetLedger", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
