package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/commitcast/wager-ledger/internal/ledger-service/domain"
	"github.com/commitcast/wager-ledger/internal/shared/kafka"
	"github.com/commitcast/wager-ledger/pkg/contracts/events"
)

// Settler é o settlement engine visto pelo worker.
type Settler interface {
	Settle(ctx context.Context, commitmentID string, outcome domain.CommitmentStatus) ([]domain.Wager, error)
}

// Broadcaster publica o resultado da liquidação pra camada de UI (pub/sub).
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Processor consome eventos commitment_resolved, dispara a liquidação e
// publica o resultado. Re-entrega do mesmo evento é segura: a liquidação
// é idempotente, a segunda passada encontra o pool vazio.
type Processor struct {
	Log     *zap.Logger
	Reader  *kafkago.Reader
	Settler Settler

	SettledWriter kafka.MessageWriter
	DLQWriter     kafka.MessageWriter // opcional
	Broadcast     Broadcaster         // opcional
	Channel       string

	OnSettled func()       // métricas (counter++)
	OnError   func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e liquidação
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		var ev events.CommitmentResolved
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			p.Log.Warn("invalid message", zap.Error(err))
			p.fail("decode")
			p.toDLQ(ctx, string(m.Key), m.Value)
			continue
		}

		if err := p.processOne(ctx, &ev); err != nil {
			p.Log.Error("settle commitment",
				zap.String("commitmentId", ev.CommitmentID),
				zap.String("outcome", ev.Outcome),
				zap.Error(err),
			)
			// Backoff simples para evitar flood em caso de erro
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// processOne executa o fluxo de liquidação de um commitment:
// 1. Chama o settlement engine (retry com backoff em falha transitória)
// 2. Publica evento wager_settled no Kafka
// 3. Broadcast do resultado via pub/sub pra UI
func (p *Processor) processOne(ctx context.Context, ev *events.CommitmentResolved) error {
	outcome := domain.CommitmentStatus(ev.Outcome)

	resolved, err := p.settleWithRetry(ctx, ev.CommitmentID, outcome)
	if err != nil {
		if errors.Is(err, domain.ErrSettlePending) {
			// evento malformado; não adianta repetir
			p.fail("settle_pending")
			p.toDLQ(ctx, ev.CommitmentID, mustJSON(ev))
			return err
		}
		p.fail("settle")
		p.toDLQ(ctx, ev.CommitmentID, mustJSON(ev))
		return err
	}

	if len(resolved) == 0 {
		// sem apostas abertas: já liquidado ou nunca apostaram
		return nil
	}

	out := buildSettledEvent(ev.CommitmentID, ev.Outcome, resolved)

	// A liquidação já está commitada: numa re-entrega o pool volta vazio e
	// o resumo nunca seria republicado. Então o publish tenta de novo aqui
	// e, se esgotar, registra a notificação perdida sem falhar o evento.
	if err := p.publishWithRetry(ctx, ev.CommitmentID, mustJSON(out)); err != nil {
		p.fail("publish")
		p.Log.Error("settlement summary dropped",
			zap.String("commitmentId", ev.CommitmentID),
			zap.Error(err),
		)
	}

	if p.Broadcast != nil {
		if err := p.Broadcast.Publish(ctx, p.Channel, mustJSON(out)); err != nil {
			p.Log.Warn("broadcast failed", zap.Error(err))
			p.fail("broadcast")
			// broadcast é notificação; não desfaz a liquidação
		}
	}

	if p.OnSettled != nil {
		p.OnSettled()
	}
	return nil
}

// settleWithRetry tenta a liquidação até 3 vezes em falha transitória.
// Erros de validação não são retentados.
func (p *Processor) settleWithRetry(ctx context.Context, commitmentID string, outcome domain.CommitmentStatus) ([]domain.Wager, error) {
	const retries = 3

	var resolved []domain.Wager
	var err error
	for i := 0; i < retries; i++ {
		resolved, err = p.Settler.Settle(ctx, commitmentID, outcome)
		if err == nil || errors.Is(err, domain.ErrSettlePending) {
			return resolved, err
		}
		time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
	}
	return nil, err
}

func (p *Processor) publishWithRetry(ctx context.Context, key string, payload []byte) error {
	const retries = 3

	var err error
	for i := 0; i < retries; i++ {
		if err = kafka.WriteJSON(ctx, p.SettledWriter, key, payload); err == nil {
			return nil
		}
		time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
	}
	return err
}

// buildSettledEvent monta o resumo da liquidação publicado no Kafka e no
// broadcast. Credited reconstrói o que voltou pra conta de cada apostador.
func buildSettledEvent(commitmentID, outcome string, resolved []domain.Wager) events.WagerSettled {
	out := events.WagerSettled{
		CommitmentID: commitmentID,
		Outcome:      outcome,
		Ts:           time.Now(),
	}
	for _, w := range resolved {
		var payout int64
		if w.Payout != nil {
			payout = *w.Payout
		}
		credited := int64(0)
		if payout >= 0 {
			credited = w.Amount + payout
		}
		out.Wagers = append(out.Wagers, events.SettledWager{
			WagerID:  w.ID,
			BettorID: w.BettorID,
			Payout:   payout,
			Credited: credited,
		})
		if payout < 0 {
			out.LoserPool += -payout
		}
	}
	return out
}

func (p *Processor) toDLQ(ctx context.Context, key string, payload []byte) {
	if p.DLQWriter == nil {
		return
	}
	if err := kafka.WriteJSON(ctx, p.DLQWriter, key, payload); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
	}
}

func (p *Processor) fail(phase string) {
	if p.OnError != nil {
		p.OnError(phase)
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
