// Package notify sends the receipt confirmation for accepted requests. The
// API enqueues an asynq task after commit and the worker renders and mails it.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/match-video-api/internal/obs"
	"github.com/noah-isme/match-video-api/internal/quote"
)

// TaskReceiptEmail is the asynq task type for receipt confirmations.
const TaskReceiptEmail = "request:receipt_email"

// ReceiptPayload is everything needed to render a confirmation without
// reading the database again.
type ReceiptPayload struct {
	RequestID      string          `json:"requestId"`
	ReceiptNumber  string          `json:"receiptNumber"`
	Email          string          `json:"email"`
	CustomerName   string          `json:"customerName"`
	PlayerName     string          `json:"playerName"`
	TournamentName string          `json:"tournamentName"`
	ItemCount      int             `json:"itemCount"`
	Breakdown      quote.Breakdown `json:"breakdown"`
	SubmittedAt    time.Time       `json:"submittedAt"`
}

// NewReceiptTask builds the asynq task for p.
func NewReceiptTask(p ReceiptPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode receipt payload: %w", err)
	}
	return asynq.NewTask(TaskReceiptEmail, data), nil
}

type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer publishes receipt tasks.
type Enqueuer struct {
	Client   taskClient
	Queue    string
	MaxRetry int
	Enabled  bool
}

// EnqueueReceipt schedules a confirmation email. The request id doubles as
// the task id so a repeated enqueue for the same request is a no-op.
func (e Enqueuer) EnqueueReceipt(ctx context.Context, p ReceiptPayload) error {
	if !e.Enabled || e.Client == nil {
		return nil
	}
	task, err := NewReceiptTask(p)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.TaskID("receipt:" + p.RequestID)}
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	if e.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(e.MaxRetry))
	}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		obs.ObserveReceiptEmail("enqueue_failed")
		return fmt.Errorf("enqueue receipt email: %w", err)
	}
	obs.ObserveReceiptEmail("enqueued")
	return nil
}

// ReceiptHandler renders and sends receipt emails on the worker.
type ReceiptHandler struct {
	Sender   Sender
	Location *time.Location
	Logger   zerolog.Logger
	// Lock, when set, keeps two workers from mailing the same receipt at once.
	Lock    Locker
	LockTTL time.Duration
}

// Locker runs fn while holding key.
type Locker interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// ProcessTask implements asynq.Handler.
func (h ReceiptHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ReceiptPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode receipt payload: %v: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(p.Email) == "" {
		h.Logger.Warn().Str("receipt_number", p.ReceiptNumber).Msg("receipt email skipped: no recipient")
		return nil
	}
	if h.Sender == nil {
		return fmt.Errorf("receipt email: sender not configured: %w", asynq.SkipRetry)
	}
	if h.Lock == nil {
		return h.send(ctx, p)
	}
	ttl := h.LockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return h.Lock.TryWithLock(ctx, "receipt-email:"+p.ReceiptNumber, ttl, func(ctx context.Context) error {
		return h.send(ctx, p)
	})
}

func (h ReceiptHandler) send(ctx context.Context, p ReceiptPayload) error {
	subject, body := RenderReceipt(p, h.Location)
	if err := h.Sender.Send(ctx, p.Email, subject, body); err != nil {
		obs.ObserveReceiptEmail("send_failed")
		return err
	}
	obs.ObserveReceiptEmail("sent")
	h.Logger.Info().Str("receipt_number", p.ReceiptNumber).Msg("receipt email sent")
	return nil
}

// RenderReceipt returns the subject and plain-text body of a confirmation.
func RenderReceipt(p ReceiptPayload, loc *time.Location) (string, string) {
	if loc == nil {
		loc = time.UTC
	}
	subject := fmt.Sprintf("【受付完了】動画制作のご依頼 (受付番号 %s)", p.ReceiptNumber)
	var b strings.Builder
	fmt.Fprintf(&b, "%s 様\n\n", p.CustomerName)
	b.WriteString("動画制作のご依頼を受け付けました。\n\n")
	fmt.Fprintf(&b, "受付番号: %s\n", p.ReceiptNumber)
	fmt.Fprintf(&b, "受付日時: %s\n", p.SubmittedAt.In(loc).Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "大会: %s\n", p.TournamentName)
	fmt.Fprintf(&b, "選手名: %s\n", p.PlayerName)
	fmt.Fprintf(&b, "試合数: %d\n\n", p.ItemCount)
	bd := p.Breakdown
	fmt.Fprintf(&b, "動画: %s\n", yen(bd.Video))
	fmt.Fprintf(&b, "編集: %s\n", yen(bd.Edit))
	fmt.Fprintf(&b, "納品: %s\n", yen(bd.Delivery))
	if bd.Shipping > 0 {
		fmt.Fprintf(&b, "送料: %s\n", yen(bd.Shipping))
	}
	fmt.Fprintf(&b, "ホルダー: %s\n", yen(bd.Holder))
	if bd.Discount > 0 {
		fmt.Fprintf(&b, "割引: -%s\n", yen(bd.Discount))
	}
	fmt.Fprintf(&b, "合計: %s\n", yen(bd.Total))
	return subject, b.String()
}

// yen formats v with thousands separators, e.g. 22340 -> "22,340円".
func yen(v quote.Money) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := fmt.Sprintf("%d", v)
	var out []byte
	for i := range len(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	if neg {
		return "-" + string(out) + "円"
	}
	return string(out) + "円"
}
