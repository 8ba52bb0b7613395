package affinity

import (
	"context"
	"encoding/json"
	"fmt"

	interf "github.com/glkeru/affinity/internal/interfaces"
	model "github.com/glkeru/affinity/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Платное действие одного пользователя в адрес другого
type Interaction struct {
	SenderID   string           `json:"senderId"`
	ReceiverID string           `json:"receiverId"`
	Action     model.ActionType `json:"action"`
	Weight     int64            `json:"weight"`
	Price      int64            `json:"price"` // монеты, списываются с отправителя
	Reference  string           `json:"reference"`
}

type InteractionResult struct {
	Debit    *model.LedgerEntry   `json:"debit,omitempty"`
	Credit   *model.LedgerEntry   `json:"credit,omitempty"`
	Sender   model.MutationResult `json:"sender"`
	Receiver model.MutationResult `json:"receiver"`
}

type InteractionService struct {
	logger    *zap.Logger
	ledger    *LedgerService
	scores    *ScoreService
	share     int64 // доля получателя, %
	publisher interf.LevelUpPublisher
}

// publisher может быть nil
func NewInteractionService(logger *zap.Logger, ledger *LedgerService, scores *ScoreService, receiverShare int64, publisher interf.LevelUpPublisher) *InteractionService {
	if receiverShare < 0 {
		receiverShare = 0
	}
	if receiverShare > 100 {
		receiverShare = 100
	}
	return &InteractionService{logger, ledger, scores, receiverShare, publisher}
}

// Perform: сначала списание, затем начисление получателю, затем близость в обе стороны.
// Если списание не прошло - близость не меняется
func (i *InteractionService) Perform(ctx context.Context, in Interaction) (result InteractionResult, err error) {
	if err = validateAction(in.SenderID, in.ReceiverID, in.Action, in.Weight, in.Price); err != nil {
		return InteractionResult{}, err
	}

	ctx, span := tracer.Start(ctx, "Perform")
	defer span.End()

	if in.Price > 0 {
		price := decimal.NewFromInt(in.Price)
		debit, err := i.ledger.ApplyDelta(ctx, in.SenderID, price.Neg(), model.CONSUMED, in.Reference)
		if err != nil {
			return InteractionResult{}, err
		}
		result.Debit = &debit

		earned := price.Mul(decimal.NewFromInt(i.share)).Div(decimal.NewFromInt(100))
		if earned.IsPositive() {
			credit, err := i.ledger.ApplyDelta(ctx, in.ReceiverID, earned, model.EARNED, in.Reference)
			if err != nil {
				// компенсация списания
				if _, rerr := i.ledger.ApplyDelta(ctx, in.SenderID, price, model.REFUND, in.Reference); rerr != nil {
					i.logger.Error("refund after failed credit",
						zap.String("sender", in.SenderID),
						zap.String("reference", in.Reference),
						zap.Error(rerr),
					)
				}
				return InteractionResult{}, fmt.Errorf("credit receiver %s: %w", in.ReceiverID, err)
			}
			result.Credit = &credit
		}
	}

	// разные ключи - выполняем параллельно. Направления фиксируются независимо:
	// ошибка одного не отменяет другое
	var g errgroup.Group
	g.Go(func() error {
		r, err := i.scores.ApplyAction(ctx, in.SenderID, in.ReceiverID, in.Action, in.Weight, in.Price)
		if err != nil {
			return err
		}
		result.Sender = r
		return nil
	})
	g.Go(func() error {
		r, err := i.scores.ApplyAction(ctx, in.ReceiverID, in.SenderID, in.Action, in.Weight, 0)
		if err != nil {
			return err
		}
		result.Receiver = r
		return nil
	})
	if err := g.Wait(); err != nil {
		i.logger.Error("score after payment",
			zap.String("sender", in.SenderID),
			zap.String("receiver", in.ReceiverID),
			zap.String("reference", in.Reference),
			zap.Bool("senderApplied", result.Sender.Record.OwnerID != ""),
			zap.Bool("receiverApplied", result.Receiver.Record.OwnerID != ""),
			zap.Error(err),
		)
		return result, err
	}

	i.publish(ctx, result.Sender)
	i.publish(ctx, result.Receiver)
	return result, nil
}

// уведомление не влияет на результат действия
func (i *InteractionService) publish(ctx context.Context, r model.MutationResult) {
	if i.publisher == nil {
		return
	}
	evt, ok := model.NewLevelUpEvent(r)
	if !ok {
		return
	}
	if err := i.publisher.PublishLevelUp(ctx, evt); err != nil {
		i.logger.Error("publish level up",
			zap.String("owner", evt.OwnerID),
			zap.String("counterpart", evt.CounterpartID),
			zap.Error(err),
		)
	}
}

// PerformJSON - действие из очереди
func (i *InteractionService) PerformJSON(ctx context.Context, payload []byte) (InteractionResult, error) {
	var in Interaction
	if err := json.Unmarshal(payload, &in); err != nil {
		return InteractionResult{}, fmt.Errorf("interaction message: %w", err)
	}
	return i.Perform(ctx, in)
}

// Поминутная тарификация звонка
func (i *InteractionService) BillMinute(ctx context.Context, callerID, calleeID string, video bool, price int64, weight int64, reference string) (InteractionResult, error) {
	action := model.VOICECALL
	if video {
		action = model.VIDEOCALL
	}
	return i.Perform(ctx, Interaction{
		SenderID:   callerID,
		ReceiverID: calleeID,
		Action:     action,
		Weight:     weight,
		Price:      price,
		Reference:  reference,
	})
}
