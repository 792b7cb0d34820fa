package gateway

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/fsdevblog/groph-topup/internal/domain"
	"github.com/fsdevblog/groph-topup/internal/transport/gateway/mocks"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type ProcessorTestSuite struct {
	suite.Suite
	processor   *Processor
	mockService *mocks.MockServicer
	ctrl        *gomock.Controller
}

func (s *ProcessorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockServicer(s.ctrl)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)

	s.processor = NewProcessor(s.mockService, logger).
		SetWorkers(2).
		SetLimitPerIteration(10).
		SetInterval(10 * time.Millisecond)
}

func (s *ProcessorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}

// TestProcess_NoOrders Тест на случай, когда нет заказов для обработки.
func (s *ProcessorTestSuite) TestProcess_NoOrders() {
	s.mockService.EXPECT().
		OrdersForReconciliation(gomock.Any(), uint(10)).
		Return([]domain.Order{}, nil)

	err := s.processor.process(s.T().Context())
	s.ErrorIs(err, ErrNoOrders)
}

func (s *ProcessorTestSuite) TestProcess_ProduceError() {
	s.mockService.EXPECT().
		OrdersForReconciliation(gomock.Any(), uint(10)).
		Return(nil, domain.ErrUnknown)

	err := s.processor.process(s.T().Context())
	s.ErrorIs(err, domain.ErrUnknown)
}

// TestProcess_ReconcilesEveryOrder каждый заказ сверяется ровно один раз, ошибки отдельных заказов не прерывают итерацию.
func (s *ProcessorTestSuite) TestProcess_ReconcilesEveryOrder() {
	testOrders := []domain.Order{
		{Code: "cz_1", UserID: 1, Amount: decimal.NewFromInt(5), Status: domain.OrderStatusPending},
		{Code: "cz_2", UserID: 2, Amount: decimal.NewFromInt(3), Status: domain.OrderStatusPending},
		{Code: "cz_3", UserID: 3, Amount: decimal.NewFromInt(7), Status: domain.OrderStatusPending},
		{Code: "cz_4", UserID: 4, Amount: decimal.NewFromInt(9), Status: domain.OrderStatusPending},
	}

	s.mockService.EXPECT().
		OrdersForReconciliation(gomock.Any(), uint(10)).
		Return(testOrders, nil)

	s.mockService.EXPECT().Reconcile(gomock.Any(), "cz_1").Return(domain.CreditOutcomeCredited, nil)
	s.mockService.EXPECT().Reconcile(gomock.Any(), "cz_2").Return(domain.CreditOutcomeNotPaid, nil)
	s.mockService.EXPECT().Reconcile(gomock.Any(), "cz_3").
		Return(domain.CreditOutcome(""), domain.NewGatewayError(domain.ErrGatewayTransport, nil, errors.New("timeout")))
	s.mockService.EXPECT().Reconcile(gomock.Any(), "cz_4").
		Return(domain.CreditOutcome(""), domain.NewGatewayError(domain.ErrGatewayAuth, nil, nil))

	s.NoError(s.processor.process(s.T().Context()))
}

func (s *ProcessorTestSuite) TestRunWorkers() {
	testOrders := []domain.Order{{Code: "cz_1"}, {Code: "cz_2"}, {Code: "cz_3"}}
	s.mockService.EXPECT().Reconcile(gomock.Any(), gomock.Any()).
		Return(domain.CreditOutcomeNotPaid, nil).Times(len(testOrders))

	results := s.processor.runWorkers(s.T().Context(), testOrders)
	s.Require().Len(results, len(testOrders))

	seen := make(map[string]bool)
	for _, r := range results {
		s.NoError(r.Error)
		s.Equal(domain.CreditOutcomeNotPaid, r.Outcome)
		seen[r.Order.Code] = true
	}
	s.Len(seen, len(testOrders))
}

// TestRun_StopsOnCancel цикл продолжает опрос после пустых итераций и завершается по отмене контекста.
func (s *ProcessorTestSuite) TestRun_StopsOnCancel() {
	ctx, cancel := context.WithCancel(s.T().Context())
	defer cancel()

	var once sync.Once
	calls := 0
	s.mockService.EXPECT().
		OrdersForReconciliation(gomock.Any(), uint(10)).
		DoAndReturn(func(_ context.Context, _ uint) ([]domain.Order, error) {
			calls++
			if calls >= 3 {
				once.Do(cancel)
			}
			return nil, nil
		}).MinTimes(3)

	done := make(chan struct{})
	go func() {
		s.processor.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.Fail("processor did not stop")
	}
}

func TestJitter(t *testing.T) {
	for range 100 {
		v := jitter(100, 0.1, 0.2)
		if v < 90 || v > 120 {
			t.Fatalf("jitter out of range: %f", v)
		}
	}
	if d := jitterDuration(0); d != 0 {
		t.Fatalf("unexpected jitter for zero duration: %s", d)
	}
}
