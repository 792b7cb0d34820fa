// Package gateway фоновая сверка незачисленных заказов с платежным шлюзом.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	defaultServiceTimeout         = 3 * time.Second
	defaultReconcileTimeout       = 75 * time.Second
	defaultInterval               = 30 * time.Second
	defaultLimitPerIteration uint = 50
	defaultWorkers           uint = 4
)

// Processor периодически сверяет незачисленные заказы со шлюзом и зачисляет оплаченные.
// Подстраховывает пользовательскую проверку и уведомления шлюза.
type Processor struct {
	svs               Servicer
	l                 *logrus.Entry
	limitPerIteration uint
	workers           uint
	interval          time.Duration
}

// NewProcessor создает новый экземпляр процессора сверки.
func NewProcessor(svs Servicer, l *logrus.Logger) *Processor {
	loggerEntry := l.WithFields(logrus.Fields{
		"component": "gateway",
		"module":    "processor",
	})

	return &Processor{
		svs:               svs,
		l:                 loggerEntry,
		limitPerIteration: defaultLimitPerIteration,
		workers:           defaultWorkers,
		interval:          defaultInterval,
	}
}

// SetLimitPerIteration устанавливает кол-во заказов, обрабатываемых в одной итерации обработчика.
func (p *Processor) SetLimitPerIteration(limit uint) *Processor {
	p.limitPerIteration = limit
	return p
}

// SetWorkers устанавливает кол-во воркеров, параллельно опрашивающих шлюз.
func (p *Processor) SetWorkers(workers uint) *Processor {
	if workers == 0 {
		workers = 1
	}
	p.workers = workers
	return p
}

// SetInterval устанавливает паузу между итерациями.
func (p *Processor) SetInterval(interval time.Duration) *Processor {
	p.interval = interval
	return p
}

// Run запускает сверку в бесконечном цикле до отмены контекста.
//
// Алгоритм работы:
//  1. В каждой итерации запрашивает через сервисный слой незачисленные заказы. Объем списка лимитируется
//     через SetLimitPerIteration.
//  2. Создает N воркеров (SetWorkers), каждый вызывает сверку заказа в сервисном слое.
//  3. Ждет интервал (с разбросом), чтобы не нагружать шлюз.
func (p *Processor) Run(ctx context.Context) {
	p.l.WithFields(logrus.Fields{
		"limitPerIteration": p.limitPerIteration,
		"workers":           p.workers,
		"interval":          p.interval.String(),
	}).Info("Starting")

	for {
		if err := p.process(ctx); err != nil && !errors.Is(err, ErrNoOrders) {
			p.l.WithError(err).Error("process error")
		}

		select {
		case <-ctx.Done():
			p.l.Info("Got stop signal, exiting...")
			return
		case <-time.After(jitterDuration(p.interval)):
		}
	}
}

// process выполняет одну итерацию: получение списка и сверку каждого заказа.
// Возвращает ErrNoOrders если нет заказов для обработки.
func (p *Processor) process(ctx context.Context) error {
	orders, ordersErr := p.produce(ctx)
	if ordersErr != nil {
		return fmt.Errorf("process: %w", ordersErr)
	}

	results := p.runWorkers(ctx, orders)

	var credited, transient, failed int
	for _, result := range results {
		l := p.l.WithFields(logrus.Fields{
			"worker": result.WorkerID,
			"order":  result.Order.Code,
		})
		switch {
		case result.Error != nil && domain.IsTransient(result.Error):
			transient++
			l.WithError(result.Error).Warn("gateway unavailable, will retry")
		case result.Error != nil:
			failed++
			l.WithError(result.Error).Error("reconcile order")
		case result.Outcome == domain.CreditOutcomeCredited:
			credited++
			l.WithField("amount", result.Order.Amount.String()).Info("Credited")
		default:
			l.WithField("outcome", result.Outcome).Debug("Checked")
		}
	}

	p.l.WithFields(logrus.Fields{
		"checked":   len(results),
		"credited":  credited,
		"transient": transient,
		"failed":    failed,
	}).Debug("Iteration done")
	return nil
}

// workerResult представляет результат сверки одного заказа.
type workerResult struct {
	WorkerID uint
	Order    *domain.Order
	Outcome  domain.CreditOutcome
	Error    error
}

// runWorkers запускает параллельных воркеров и ожидает конца их работы.
// Реализует паттерн fan-out/fan-in для параллельной обработки запросов.
func (p *Processor) runWorkers(ctx context.Context, orders []domain.Order) []workerResult {
	var taskCh = make(chan *domain.Order, len(orders))
	for i := range orders {
		taskCh <- &orders[i]
	}
	close(taskCh)

	wg := new(sync.WaitGroup)
	wg.Add(int(p.workers)) // nolint:gosec

	var resultCh = make(chan workerResult, len(orders))

	for i := range p.workers {
		go p.worker(ctx, wg, i+1, taskCh, resultCh)
	}
	wg.Wait()
	close(resultCh)

	var results = make([]workerResult, 0, len(orders))
	for result := range resultCh {
		results = append(results, result)
	}
	return results
}

// worker обрабатывает заказы из канала и отправляет результаты.
func (p *Processor) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	workerID uint,
	taskCh <-chan *domain.Order,
	resultCh chan<- workerResult,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-taskCh:
			if !ok {
				return
			}
			reqCtx, cancel := context.WithTimeout(ctx, defaultReconcileTimeout)
			outcome, err := p.svs.Reconcile(reqCtx, task.Code)
			cancel()

			resultCh <- workerResult{
				WorkerID: workerID,
				Order:    task,
				Outcome:  outcome,
				Error:    err,
			}
		}
	}
}

// produce получает список заказов для сверки.
// Возвращает ErrNoOrders, если заказы отсутствуют.
func (p *Processor) produce(ctx context.Context) ([]domain.Order, error) {
	produceCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	orders, ordersErr := p.svs.OrdersForReconciliation(produceCtx, p.limitPerIteration)
	if ordersErr != nil {
		return nil, fmt.Errorf("produce: %w", ordersErr)
	}

	if len(orders) == 0 {
		return nil, ErrNoOrders
	}
	return orders, nil
}
