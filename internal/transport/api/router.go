package api

import (
	"time"

	"github.com/fsdevblog/groph-topup/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 3 * time.Second
	// GatewayServiceTimeout запас на перебор всех стратегий подписи при обращении к шлюзу.
	GatewayServiceTimeout = 70 * time.Second
)

const (
	RouteGroup           = "/api"
	UserRoute            = "/user"
	BalanceRoute         = "/user/balance"
	BalanceSpendRoute    = "/user/balance/spend"
	OrdersRoute          = "/user/orders"
	OrderCheckRoute      = "/user/orders/:code/check"
	GatewayCallbackRoute = "/gateway/callback"
)

type RouterArgs struct {
	Logger           *logrus.Logger
	BalanceService   BalanceServicer
	OrderService     OrderServicer
	CallbackVerifier SignatureVerifier
	Cooldown         Cooldown
	CheckCooldown    time.Duration
	JWTSecretKey     []byte
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	usersHandler := NewUsersHandler(args.BalanceService)
	balanceHandler := NewBalanceHandler(args.BalanceService)
	ordersHandler := NewOrdersHandler(args.OrderService, args.Cooldown, args.CheckCooldown)

	api := r.Group(RouteGroup)

	if args.CallbackVerifier != nil {
		callbackHandler := NewCallbackHandler(args.CallbackVerifier, args.OrderService)
		api.POST(GatewayCallbackRoute, callbackHandler.Handle)
	}

	api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	// ниже все роуты группы требуют авторизованного пользователя.
	api.PUT(UserRoute, usersHandler.Ensure)

	api.GET(BalanceRoute, balanceHandler.Index)
	api.POST(BalanceSpendRoute, balanceHandler.Spend)

	api.POST(OrdersRoute, ordersHandler.Create)
	api.GET(OrdersRoute, ordersHandler.Index)
	api.POST(OrderCheckRoute, ordersHandler.Check)
	return r, nil
}
