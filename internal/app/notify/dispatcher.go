package notify

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"ringi/internal/app/metrics"
)

var errPanic = errors.New("channel panic")

// Dispatcher отправляет письма по принципу "отправил и забыл":
// ошибки доставки пишутся в лог и в метрики, но не возвращаются вызывающему.
type Dispatcher struct {
	channel Channel

	mu     sync.Mutex
	pool   *pool.Pool
	closed bool
}

// NewDispatcher: workers > 0 - отправка в фоне не более чем workers горутинами,
// иначе синхронно.
func NewDispatcher(ch Channel, workers int) *Dispatcher {
	d := &Dispatcher{channel: ch}
	if workers > 0 {
		d.pool = pool.New().WithMaxGoroutines(workers)
	}
	return d
}

// Notify никогда не возвращает ошибку доставки
func (d *Dispatcher) Notify(ctx context.Context, msg Message) {
	ctx = context.WithoutCancel(ctx)

	d.mu.Lock()
	async := d.pool != nil && !d.closed
	if async {
		// Go блокируется, если все воркеры заняты
		d.pool.Go(func() { d.send(ctx, msg) })
	}
	d.mu.Unlock()

	if !async {
		d.send(ctx, msg)
	}
}

// Close дожидается отправки писем, поставленных в очередь
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed || d.pool == nil {
		d.closed = true
		d.mu.Unlock()
		return
	}
	d.closed = true
	p := d.pool
	d.mu.Unlock()

	p.Wait()
}

func (d *Dispatcher) send(ctx context.Context, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("notify: channel panicked: %v", r)
			metrics.RecordNotification(string(msg.Kind), errPanic)
		}
	}()

	err := d.channel.Send(ctx, msg)
	metrics.RecordNotification(string(msg.Kind), err)
	if err != nil {
		logrus.Errorf("notify: failed to send %q to %s: %v", msg.Subject, strings.Join(msg.To, ","), err)
		return
	}
	logrus.Infof("notify: sent %q to %s", msg.Subject, strings.Join(msg.To, ","))
}
