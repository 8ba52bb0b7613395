package grpc

import (
	context "context"
	"errors"
	"time"

	model "github.com/glkeru/affinity/internal/models"
	services "github.com/glkeru/affinity/internal/services"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

type WalletRequest struct {
	OwnerID string `json:"ownerId"`
}

type WalletResponse struct {
	Wallet     model.Wallet `json:"wallet"`
	WealthTier int          `json:"wealthTier"`
}

type ScoreRequest struct {
	OwnerID       string `json:"ownerId"`
	CounterpartID string `json:"counterpartId"`
}

type ScoreResponse struct {
	Progress services.Progress `json:"progress"`
}

// Даты в формате 2006-01-02, пустые - без ограничения
type LedgerRequest struct {
	OwnerID  string `json:"ownerId"`
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
}

type LedgerResponse struct {
	Entries []model.LedgerEntry `json:"entries"`
}

type AffinityServer interface {
	GetWallet(ctx context.Context, in *WalletRequest) (*WalletResponse, error)
	GetScore(ctx context.Context, in *ScoreRequest) (*ScoreResponse, error)
	GetLedger(ctx context.Context, in *LedgerRequest) (*LedgerResponse, error)
}

type AffinityService struct {
	scores *services.ScoreService
	ledger *services.LedgerService
	logger *zap.Logger
}

func NewAffinityService(scores *services.ScoreService, ledger *services.LedgerService, logger *zap.Logger) *AffinityService {
	return &AffinityService{scores, ledger, logger}
}

func (a *AffinityService) toStatus(method string, err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, model.ErrEmptyOwner), errors.Is(err, model.ErrInvalidAction):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	a.logger.Error("gRPC request failed", zap.String("method", method), zap.Error(err))
	return status.Error(codes.Internal, err.Error())
}

// Кошелек
func (a *AffinityService) GetWallet(ctx context.Context, in *WalletRequest) (*WalletResponse, error) {
	if in.OwnerID == "" {
		return nil, status.Error(codes.InvalidArgument, model.ErrEmptyOwner.Error())
	}
	w, err := a.ledger.GetWallet(ctx, in.OwnerID)
	if err != nil {
		return nil, a.toStatus("GetWallet", err)
	}
	return &WalletResponse{
		Wallet:     w,
		WealthTier: a.ledger.WealthTiers().Resolve(w.TotalPurchased.IntPart()).Tier,
	}, nil
}

// Близость пары
func (a *AffinityService) GetScore(ctx context.Context, in *ScoreRequest) (*ScoreResponse, error) {
	if in.OwnerID == "" || in.CounterpartID == "" {
		return nil, status.Error(codes.InvalidArgument, model.ErrEmptyOwner.Error())
	}
	p, err := a.scores.Progress(ctx, in.OwnerID, in.CounterpartID)
	if err != nil {
		return nil, a.toStatus("GetScore", err)
	}
	return &ScoreResponse{Progress: p}, nil
}

// История операций
func (a *AffinityService) GetLedger(ctx context.Context, in *LedgerRequest) (*LedgerResponse, error) {
	if in.OwnerID == "" {
		return nil, status.Error(codes.InvalidArgument, model.ErrEmptyOwner.Error())
	}
	var from, to time.Time
	var err error
	if in.DateFrom != "" {
		from, err = time.Parse("2006-01-02 15:04:05", in.DateFrom+" 00:00:00")
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}
	if in.DateTo != "" {
		to, err = time.Parse("2006-01-02 15:04:05", in.DateTo+" 23:59:59")
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}
	entries, err := a.ledger.History(ctx, in.OwnerID, from, to)
	if err != nil {
		return nil, a.toStatus("GetLedger", err)
	}
	return &LedgerResponse{Entries: entries}, nil
}

// описание сервиса для grpc.Server

func RegisterAffinityServer(s grpc.ServiceRegistrar, srv AffinityServer) {
	s.RegisterService(&affinityServiceDesc, srv)
}

var affinityServiceDesc = grpc.ServiceDesc{
	ServiceName: "affinity.Affinity",
	HandlerType: (*AffinityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetWallet", Handler: getWalletHandler},
		{MethodName: "GetScore", Handler: getScoreHandler},
		{MethodName: "GetLedger", Handler: getLedgerHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func getWalletHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(WalletRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AffinityServer).GetWallet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/affinity.Affinity/GetWallet"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AffinityServer).GetWallet(ctx, req.(*WalletRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getScoreHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ScoreRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AffinityServer).GetScore(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/affinity.Affinity/GetScore"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AffinityServer).GetScore(ctx, req.(*ScoreRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getLedgerHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LedgerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AffinityServer).GetLedger(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/affinity.Affinity/GetLedger"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AffinityServer).GetLedger(ctx, req.(*LedgerRequest))
	}
	return interceptor(ctx, in, info, handler)
}
